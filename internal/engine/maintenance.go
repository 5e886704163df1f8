package engine

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stationops/assetcycle/internal/persistence"
	"github.com/stationops/assetcycle/pkg/api"
)

// MaintenanceEngine owns the servicing path of an asset. Like the disposal
// engine it writes asset status only through the shared Synchronizer and
// follows the same asset-first, compensate-on-failure write discipline.
//
// Maintenance is a single-actor workflow: there is no approval step.
type MaintenanceEngine struct {
	assets   persistence.AssetStore
	records  persistence.RecordStore
	sync     *Synchronizer
	observer api.Observer
	validate *validator.Validate
	now      func() time.Time
}

var _ api.MaintenanceService = (*MaintenanceEngine)(nil)

// NewMaintenanceEngine creates a MaintenanceEngine over the given stores.
func NewMaintenanceEngine(p persistence.Persistence, sync *Synchronizer, obs api.Observer) *MaintenanceEngine {
	if obs == nil {
		obs = api.NoopObserver{}
	}
	return &MaintenanceEngine{
		assets:   p.Assets,
		records:  p.Records,
		sync:     sync,
		observer: obs,
		validate: newValidator(),
		now:      time.Now,
	}
}

func (e *MaintenanceEngine) fail(ctx context.Context, op, assetID string, err error) error {
	e.observer.OnOperationFailed(ctx, op, assetID, err)
	return err
}

func (e *MaintenanceEngine) getRecord(ctx context.Context, id string) (*api.MaintenanceRecord, error) {
	rec, err := e.records.GetMaintenance(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			return nil, &api.NotFoundError{Entity: "maintenance", ID: id}
		}
		return nil, err
	}
	return rec, nil
}

func (e *MaintenanceEngine) getAsset(ctx context.Context, id string) (*api.Asset, error) {
	a, err := e.assets.GetAsset(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrAssetNotFound) {
			return nil, &api.NotFoundError{Entity: "asset", ID: id}
		}
		return nil, err
	}
	return a, nil
}

func (e *MaintenanceEngine) Schedule(ctx context.Context, req api.MaintenanceRequest) (*api.MaintenanceRecord, error) {
	if err := checkStruct(e.validate, req); err != nil {
		return nil, err
	}

	const op = "maintenance.schedule"

	asset, err := e.getAsset(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}
	if !asset.Active || asset.Status == api.AssetRetired {
		return nil, e.fail(ctx, op, asset.ID, &api.InvalidStateError{
			Entity: "asset",
			ID:     asset.ID,
			Status: string(asset.Status),
			Op:     "schedule maintenance for",
		})
	}
	if err := openConflict(ctx, e.records, asset.ID); err != nil {
		return nil, e.fail(ctx, op, asset.ID, err)
	}
	// A racing workflow publishes its status through the synchronizer
	// before its record exists, so ownership can be visible here while
	// openConflict still sees nothing.
	if asset.Status == api.AssetRetiring || asset.Status == api.AssetInMaintenance {
		return nil, e.fail(ctx, op, asset.ID, &api.InvalidStateError{
			Entity: "asset",
			ID:     asset.ID,
			Status: string(asset.Status),
			Op:     "schedule maintenance for",
		})
	}

	prev := asset.Status
	updated, err := e.sync.Apply(ctx, asset.ID, asset.Version, Transition{Status: api.AssetInMaintenance})
	if err != nil {
		return nil, e.fail(ctx, op, asset.ID, err)
	}

	rec := &api.MaintenanceRecord{
		ID:              uuid.NewString(),
		AssetID:         asset.ID,
		StationID:       asset.StationID,
		Status:          api.MaintenanceScheduled,
		MaintenanceType: req.MaintenanceType,
		Description:     req.Description,
		ScheduledBy:     req.ScheduledBy,
		MaintenanceDate: req.MaintenanceDate.UTC(),
		LaborCost:       req.LaborCost,
		PartsCost:       req.PartsCost,
		CreatedAt:       e.now().UTC(),
	}
	if err := e.records.CreateMaintenance(ctx, rec); err != nil {
		if _, cerr := e.sync.Apply(ctx, asset.ID, updated.Version, Transition{Status: prev}); cerr != nil {
			return nil, e.fail(ctx, op, asset.ID, &api.PartialFailureError{
				AssetID: asset.ID,
				Op:      op,
				Err:     errors.Join(err, cerr),
			})
		}
		return nil, e.fail(ctx, op, asset.ID, err)
	}

	e.observer.OnTransition(ctx, api.LifecycleEvent{
		Type:     api.EventMaintenanceScheduled,
		AssetID:  asset.ID,
		RecordID: rec.ID,
		From:     prev,
		To:       api.AssetInMaintenance,
		ActorID:  req.ScheduledBy,
		At:       rec.CreatedAt,
	})
	return rec, nil
}

func (e *MaintenanceEngine) Start(ctx context.Context, maintenanceID, actorID string) (*api.MaintenanceRecord, error) {
	if err := requireField("actorID", actorID); err != nil {
		return nil, err
	}

	const op = "maintenance.start"

	rec, err := e.getRecord(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	if rec.Status != api.MaintenanceScheduled {
		return nil, e.fail(ctx, op, rec.AssetID, &api.InvalidStateError{
			Entity: "maintenance",
			ID:     rec.ID,
			Status: string(rec.Status),
			Op:     "start",
		})
	}

	rec.Status = api.MaintenanceInProgress
	rec.PerformedBy = actorID

	if err := e.records.UpdateMaintenance(ctx, rec); err != nil {
		return nil, e.fail(ctx, op, rec.AssetID, err)
	}

	// Record-only transition; the asset stays IN_MAINTENANCE.
	e.observer.OnTransition(ctx, api.LifecycleEvent{
		Type:     api.EventMaintenanceStarted,
		AssetID:  rec.AssetID,
		RecordID: rec.ID,
		From:     api.AssetInMaintenance,
		To:       api.AssetInMaintenance,
		ActorID:  actorID,
		At:       e.now().UTC(),
	})
	return rec, nil
}

func (e *MaintenanceEngine) Complete(ctx context.Context, maintenanceID string, completion api.MaintenanceCompletion, actorID string) (*api.MaintenanceRecord, error) {
	if err := requireField("actorID", actorID); err != nil {
		return nil, err
	}
	if err := checkStruct(e.validate, completion); err != nil {
		return nil, err
	}

	const op = "maintenance.complete"

	rec, err := e.getRecord(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	if !rec.Status.Open() {
		return nil, e.fail(ctx, op, rec.AssetID, &api.InvalidStateError{
			Entity: "maintenance",
			ID:     rec.ID,
			Status: string(rec.Status),
			Op:     "complete",
		})
	}

	asset, err := e.getAsset(ctx, rec.AssetID)
	if err != nil {
		return nil, e.fail(ctx, op, rec.AssetID, err)
	}

	completedDate := e.now().UTC()
	if completion.CompletedDate != nil {
		completedDate = completion.CompletedDate.UTC()
	}

	updated, err := e.sync.Apply(ctx, asset.ID, asset.Version, Transition{
		Status:              api.AssetAvailable,
		NextMaintenanceDate: completion.NextMaintenanceDate,
		LastMaintenanceDate: &completedDate,
	})
	if err != nil {
		return nil, e.fail(ctx, op, asset.ID, err)
	}

	rec.Status = api.MaintenanceCompleted
	rec.PerformedBy = actorID
	rec.ActionsTaken = completion.ActionsTaken
	rec.CompletedDate = &completedDate
	rec.NextMaintenanceDate = completion.NextMaintenanceDate
	if completion.LaborCost != nil {
		rec.LaborCost = *completion.LaborCost
	}
	if completion.PartsCost != nil {
		rec.PartsCost = *completion.PartsCost
	}

	if err := e.records.UpdateMaintenance(ctx, rec); err != nil {
		if _, cerr := e.sync.Apply(ctx, asset.ID, updated.Version, Transition{Status: api.AssetInMaintenance}); cerr != nil {
			return nil, e.fail(ctx, op, asset.ID, &api.PartialFailureError{
				AssetID: asset.ID,
				Op:      op,
				Err:     errors.Join(err, cerr),
			})
		}
		return nil, e.fail(ctx, op, asset.ID, err)
	}

	e.observer.OnTransition(ctx, api.LifecycleEvent{
		Type:     api.EventMaintenanceCompleted,
		AssetID:  asset.ID,
		RecordID: rec.ID,
		From:     api.AssetInMaintenance,
		To:       api.AssetAvailable,
		ActorID:  actorID,
		At:       completedDate,
	})
	return rec, nil
}

func (e *MaintenanceEngine) Cancel(ctx context.Context, maintenanceID, reason string) (*api.MaintenanceRecord, error) {
	if err := requireField("reason", reason); err != nil {
		return nil, err
	}

	const op = "maintenance.cancel"

	rec, err := e.getRecord(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	if !rec.Status.Open() {
		return nil, e.fail(ctx, op, rec.AssetID, &api.InvalidStateError{
			Entity: "maintenance",
			ID:     rec.ID,
			Status: string(rec.Status),
			Op:     "cancel",
		})
	}

	asset, err := e.getAsset(ctx, rec.AssetID)
	if err != nil {
		return nil, e.fail(ctx, op, rec.AssetID, err)
	}

	updated, err := e.sync.Apply(ctx, asset.ID, asset.Version, Transition{Status: api.AssetAvailable})
	if err != nil {
		return nil, e.fail(ctx, op, asset.ID, err)
	}

	rec.Status = api.MaintenanceCanceled
	rec.CancelReason = reason

	if err := e.records.UpdateMaintenance(ctx, rec); err != nil {
		if _, cerr := e.sync.Apply(ctx, asset.ID, updated.Version, Transition{Status: api.AssetInMaintenance}); cerr != nil {
			return nil, e.fail(ctx, op, asset.ID, &api.PartialFailureError{
				AssetID: asset.ID,
				Op:      op,
				Err:     errors.Join(err, cerr),
			})
		}
		return nil, e.fail(ctx, op, asset.ID, err)
	}

	e.observer.OnTransition(ctx, api.LifecycleEvent{
		Type:     api.EventMaintenanceCanceled,
		AssetID:  asset.ID,
		RecordID: rec.ID,
		From:     api.AssetInMaintenance,
		To:       api.AssetAvailable,
		ActorID:  rec.ScheduledBy,
		At:       e.now().UTC(),
	})
	return rec, nil
}

func (e *MaintenanceEngine) Get(ctx context.Context, maintenanceID string) (*api.MaintenanceRecord, error) {
	return e.getRecord(ctx, maintenanceID)
}
