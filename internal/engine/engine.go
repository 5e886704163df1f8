package engine

import (
	"context"
	"database/sql"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/stationops/assetcycle/internal/persistence"
	"github.com/stationops/assetcycle/pkg/api"
)

// engineImpl bundles the two workflow engines and the query service over a
// shared pair of stores and a single synchronizer.
type engineImpl struct {
	assets      persistence.AssetStore
	disposals   *DisposalEngine
	maintenance *MaintenanceEngine
	queries     *QueryEngine
}

var _ api.Engine = (*engineImpl)(nil)

// NewEngine creates an Engine over the given persistence bundle.
// External users access this via the assetcycle package constructors.
func NewEngine(p persistence.Persistence, obs api.Observer) api.Engine {
	if obs == nil {
		obs = api.NoopObserver{}
	}
	sync := NewSynchronizer(p.Assets)
	return &engineImpl{
		assets:      p.Assets,
		disposals:   NewDisposalEngine(p, sync, obs),
		maintenance: NewMaintenanceEngine(p, sync, obs),
		queries:     NewQueryEngine(p.Records),
	}
}

func NewInMemoryEngine() api.Engine {
	return NewInMemoryEngineWithObserver(nil)
}

func NewInMemoryEngineWithObserver(obs api.Observer) api.Engine {
	mem := persistence.NewInMemoryStore()
	return NewEngine(persistence.Persistence{
		Assets:  mem,
		Records: mem,
	}, obs)
}

func NewSQLiteEngine(db *sql.DB) (api.Engine, error) {
	return NewSQLiteEngineWithObserver(db, nil)
}

func NewSQLiteEngineWithObserver(db *sql.DB, obs api.Observer) (api.Engine, error) {
	store, err := persistence.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return NewEngine(persistence.Persistence{
		Assets:  store,
		Records: store,
	}, obs), nil
}

func NewPostgresEngine(db *sql.DB) (api.Engine, error) {
	return NewPostgresEngineWithObserver(db, nil)
}

func NewPostgresEngineWithObserver(db *sql.DB, obs api.Observer) (api.Engine, error) {
	store, err := persistence.NewPostgresStore(db)
	if err != nil {
		return nil, err
	}
	return NewEngine(persistence.Persistence{
		Assets:  store,
		Records: store,
	}, obs), nil
}

func NewRedisEngine(client *redis.Client) api.Engine {
	return NewRedisEngineWithObserver(client, nil)
}

func NewRedisEngineWithObserver(client *redis.Client, obs api.Observer) api.Engine {
	store := persistence.NewRedisStore(client, "assetcycle:")
	return NewEngine(persistence.Persistence{
		Assets:  store,
		Records: store,
	}, obs)
}

func (e *engineImpl) Disposals() api.DisposalService      { return e.disposals }
func (e *engineImpl) Maintenance() api.MaintenanceService { return e.maintenance }
func (e *engineImpl) Queries() api.QueryService           { return e.queries }

func (e *engineImpl) RegisterAsset(ctx context.Context, a *api.Asset) error {
	if a == nil || a.ID == "" {
		return &api.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if a.Code == "" {
		return &api.ValidationError{Field: "code", Reason: "must not be empty"}
	}

	seeded := *a
	if seeded.Status == "" {
		seeded.Status = api.AssetAvailable
		seeded.Active = true
	}
	if seeded.Version == 0 {
		seeded.Version = 1
	}

	if err := e.assets.SaveAsset(ctx, &seeded); err != nil {
		if errors.Is(err, persistence.ErrDuplicateID) {
			return &api.ConflictError{AssetID: seeded.ID}
		}
		return err
	}
	return nil
}

func (e *engineImpl) GetAsset(ctx context.Context, id string) (*api.Asset, error) {
	a, err := e.assets.GetAsset(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrAssetNotFound) {
			return nil, &api.NotFoundError{Entity: "asset", ID: id}
		}
		return nil, err
	}
	return a, nil
}
