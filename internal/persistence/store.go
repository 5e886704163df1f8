package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/stationops/assetcycle/pkg/api"
)

var (
	// ErrAssetNotFound is returned when an asset id is unknown.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrRecordNotFound is returned when a lifecycle record id is unknown,
	// or when no open record exists for an asset.
	ErrRecordNotFound = errors.New("record not found")

	// ErrStaleVersion is returned by ConditionalUpdateAsset when the
	// asset's stored version differs from the expected one. The update has
	// not been applied.
	ErrStaleVersion = errors.New("stale asset version")

	// ErrDuplicateID is returned when creating an entity whose id is
	// already taken.
	ErrDuplicateID = errors.New("duplicate id")
)

// AssetPatch describes a partial asset update applied by
// ConditionalUpdateAsset. Nil fields are left unchanged. Version and
// UpdatedAt are managed by the store itself.
type AssetPatch struct {
	Status              *api.AssetStatus
	Active              *bool
	NextMaintenanceDate *time.Time
	LastMaintenanceDate *time.Time
}

// AssetStore is durable keyed storage for assets with a conditional
// (version-checked) update. It is the contract the synchronizer writes
// through; nothing else mutates assets.
type AssetStore interface {
	// SaveAsset creates an asset. Fails with ErrDuplicateID if the id is
	// already present.
	SaveAsset(ctx context.Context, a *api.Asset) error

	// GetAsset returns the asset by id, or ErrAssetNotFound.
	GetAsset(ctx context.Context, id string) (*api.Asset, error)

	// ConditionalUpdateAsset applies patch only if the stored version
	// equals expectedVersion, incrementing the version by exactly one.
	// Returns the updated asset, ErrAssetNotFound, or ErrStaleVersion.
	ConditionalUpdateAsset(ctx context.Context, id string, expectedVersion int64, patch AssetPatch) (*api.Asset, error)
}

// DisposalFilter selects disposal records. Zero values mean "no filter".
// From/To bound RequestedAt as a half-open interval [From, To).
type DisposalFilter struct {
	AssetID   string
	StationID string
	Status    api.DisposalStatus
	From      time.Time
	To        time.Time
}

// MaintenanceFilter selects maintenance records. Zero values mean "no
// filter". From/To bound MaintenanceDate as a half-open interval [From, To).
type MaintenanceFilter struct {
	AssetID   string
	StationID string
	Status    api.MaintenanceStatus
	From      time.Time
	To        time.Time
}

// RecordStore is durable storage for disposal and maintenance records,
// queryable by asset id and status.
//
// OpenDisposal/OpenMaintenance return the single non-terminal record for an
// asset, or ErrRecordNotFound when there is none; the engines rely on this
// to enforce the one-open-record invariants.
type RecordStore interface {
	CreateDisposal(ctx context.Context, rec *api.DisposalRecord) error
	GetDisposal(ctx context.Context, id string) (*api.DisposalRecord, error)
	UpdateDisposal(ctx context.Context, rec *api.DisposalRecord) error
	DeleteDisposal(ctx context.Context, id string) error
	OpenDisposal(ctx context.Context, assetID string) (*api.DisposalRecord, error)
	ListDisposals(ctx context.Context, f DisposalFilter) ([]*api.DisposalRecord, error)

	CreateMaintenance(ctx context.Context, rec *api.MaintenanceRecord) error
	GetMaintenance(ctx context.Context, id string) (*api.MaintenanceRecord, error)
	UpdateMaintenance(ctx context.Context, rec *api.MaintenanceRecord) error
	DeleteMaintenance(ctx context.Context, id string) error
	OpenMaintenance(ctx context.Context, assetID string) (*api.MaintenanceRecord, error)
	ListMaintenance(ctx context.Context, f MaintenanceFilter) ([]*api.MaintenanceRecord, error)
}

func matchDisposal(rec *api.DisposalRecord, f DisposalFilter) bool {
	if f.AssetID != "" && rec.AssetID != f.AssetID {
		return false
	}
	if f.StationID != "" && rec.StationID != f.StationID {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && rec.RequestedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !rec.RequestedAt.Before(f.To) {
		return false
	}
	return true
}

func matchMaintenance(rec *api.MaintenanceRecord, f MaintenanceFilter) bool {
	if f.AssetID != "" && rec.AssetID != f.AssetID {
		return false
	}
	if f.StationID != "" && rec.StationID != f.StationID {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && rec.MaintenanceDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !rec.MaintenanceDate.Before(f.To) {
		return false
	}
	return true
}
