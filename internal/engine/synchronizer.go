package engine

import (
	"context"
	"errors"
	"time"

	"github.com/stationops/assetcycle/internal/persistence"
	"github.com/stationops/assetcycle/pkg/api"
)

// Transition is the asset-side effect of a workflow operation: the target
// status plus any extra fields the operation carries onto the asset.
type Transition struct {
	Status api.AssetStatus

	// Active, when non-nil, sets the soft-delete flag. Only disposal
	// completion clears it; compensation restores it.
	Active *bool

	NextMaintenanceDate *time.Time
	LastMaintenanceDate *time.Time
}

// Synchronizer is the sole writer of asset status. Both workflow engines
// funnel every asset mutation through Apply, which performs a conditional
// (version-checked) write: of two transitions computed against the same
// version, exactly one wins and the other gets StaleWriteError.
//
// Apply has no workflow-specific knowledge. It is idempotent with respect
// to the target state given a fresh version, so a caller recovering from a
// crash between the asset write and the record write can safely re-run it.
type Synchronizer struct {
	assets persistence.AssetStore
}

// NewSynchronizer creates a Synchronizer over the given asset store.
func NewSynchronizer(assets persistence.AssetStore) *Synchronizer {
	return &Synchronizer{assets: assets}
}

// Apply conditionally writes the transition to the asset. It returns the
// updated asset (version incremented by exactly one), NotFoundError for an
// unknown asset, or StaleWriteError when the version check fails. On
// StaleWriteError the caller must retry the whole workflow operation from
// a fresh read, not re-apply the write.
func (s *Synchronizer) Apply(ctx context.Context, assetID string, expectedVersion int64, tr Transition) (*api.Asset, error) {
	patch := persistence.AssetPatch{
		Active:              tr.Active,
		NextMaintenanceDate: tr.NextMaintenanceDate,
		LastMaintenanceDate: tr.LastMaintenanceDate,
	}
	if tr.Status != "" {
		status := tr.Status
		patch.Status = &status
	}

	updated, err := s.assets.ConditionalUpdateAsset(ctx, assetID, expectedVersion, patch)
	if err != nil {
		if errors.Is(err, persistence.ErrAssetNotFound) {
			return nil, &api.NotFoundError{Entity: "asset", ID: assetID}
		}
		if errors.Is(err, persistence.ErrStaleVersion) {
			return nil, &api.StaleWriteError{AssetID: assetID, ExpectedVersion: expectedVersion}
		}
		return nil, err
	}
	return updated, nil
}
