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

// DisposalEngine owns the retirement path of an asset. It never writes
// asset status directly; every asset mutation goes through the shared
// Synchronizer.
//
// Each operation validates the current record state before any write, so
// ConflictError and InvalidStateError are pure rejections. The two-step
// write runs asset-first: the conditional status write lands, then the
// record write; a failed record write is compensated by restoring the
// previous asset status, and a failed compensation surfaces as
// PartialFailureError for manual reconciliation.
type DisposalEngine struct {
	assets   persistence.AssetStore
	records  persistence.RecordStore
	sync     *Synchronizer
	observer api.Observer
	validate *validator.Validate
	now      func() time.Time
}

var _ api.DisposalService = (*DisposalEngine)(nil)

// NewDisposalEngine creates a DisposalEngine over the given stores.
func NewDisposalEngine(p persistence.Persistence, sync *Synchronizer, obs api.Observer) *DisposalEngine {
	if obs == nil {
		obs = api.NoopObserver{}
	}
	return &DisposalEngine{
		assets:   p.Assets,
		records:  p.Records,
		sync:     sync,
		observer: obs,
		validate: newValidator(),
		now:      time.Now,
	}
}

func (e *DisposalEngine) fail(ctx context.Context, op, assetID string, err error) error {
	e.observer.OnOperationFailed(ctx, op, assetID, err)
	return err
}

func (e *DisposalEngine) getRecord(ctx context.Context, id string) (*api.DisposalRecord, error) {
	rec, err := e.records.GetDisposal(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			return nil, &api.NotFoundError{Entity: "disposal", ID: id}
		}
		return nil, err
	}
	return rec, nil
}

func (e *DisposalEngine) getAsset(ctx context.Context, id string) (*api.Asset, error) {
	a, err := e.assets.GetAsset(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrAssetNotFound) {
			return nil, &api.NotFoundError{Entity: "asset", ID: id}
		}
		return nil, err
	}
	return a, nil
}

// openConflict returns a ConflictError if the asset has any open disposal
// or maintenance record.
func openConflict(ctx context.Context, records persistence.RecordStore, assetID string) error {
	if open, err := records.OpenDisposal(ctx, assetID); err == nil {
		return &api.ConflictError{
			AssetID:      assetID,
			OpenKind:     api.KindDisposal,
			OpenRecordID: open.ID,
			OpenStatus:   string(open.Status),
		}
	} else if !errors.Is(err, persistence.ErrRecordNotFound) {
		return err
	}

	if open, err := records.OpenMaintenance(ctx, assetID); err == nil {
		return &api.ConflictError{
			AssetID:      assetID,
			OpenKind:     api.KindMaintenance,
			OpenRecordID: open.ID,
			OpenStatus:   string(open.Status),
		}
	} else if !errors.Is(err, persistence.ErrRecordNotFound) {
		return err
	}

	return nil
}

func (e *DisposalEngine) Request(ctx context.Context, req api.DisposalRequest) (*api.DisposalRecord, error) {
	if err := checkStruct(e.validate, req); err != nil {
		return nil, err
	}

	const op = "disposal.request"

	asset, err := e.getAsset(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}
	if !asset.Active || asset.Status == api.AssetRetired {
		return nil, e.fail(ctx, op, asset.ID, &api.InvalidStateError{
			Entity: "asset",
			ID:     asset.ID,
			Status: string(asset.Status),
			Op:     "request disposal of",
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
			Op:     "request disposal of",
		})
	}

	prev := asset.Status
	updated, err := e.sync.Apply(ctx, asset.ID, asset.Version, Transition{Status: api.AssetRetiring})
	if err != nil {
		return nil, e.fail(ctx, op, asset.ID, err)
	}

	rec := &api.DisposalRecord{
		ID:            uuid.NewString(),
		AssetID:       asset.ID,
		StationID:     asset.StationID,
		Status:        api.DisposalPending,
		DisposalType:  req.DisposalType,
		RequestedBy:   req.RequestedBy,
		BookValue:     req.BookValue,
		DisposalValue: req.DisposalValue,
		RequestedAt:   e.now().UTC(),
	}
	if err := e.records.CreateDisposal(ctx, rec); err != nil {
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
		Type:     api.EventDisposalRequested,
		AssetID:  asset.ID,
		RecordID: rec.ID,
		From:     prev,
		To:       api.AssetRetiring,
		ActorID:  req.RequestedBy,
		At:       rec.RequestedAt,
	})
	return rec, nil
}

func (e *DisposalEngine) Approve(ctx context.Context, disposalID, approverID, approvalDocument string) (*api.DisposalRecord, error) {
	if err := requireField("approverID", approverID); err != nil {
		return nil, err
	}

	const op = "disposal.approve"

	rec, err := e.getRecord(ctx, disposalID)
	if err != nil {
		return nil, err
	}
	if rec.Status != api.DisposalPending {
		return nil, e.fail(ctx, op, rec.AssetID, &api.InvalidStateError{
			Entity: "disposal",
			ID:     rec.ID,
			Status: string(rec.Status),
			Op:     "approve",
		})
	}

	decided := e.now().UTC()
	rec.Status = api.DisposalApproved
	rec.ApprovedBy = approverID
	rec.ApprovalDocument = approvalDocument
	rec.DecidedAt = &decided

	if err := e.records.UpdateDisposal(ctx, rec); err != nil {
		return nil, e.fail(ctx, op, rec.AssetID, err)
	}

	// Record-only transition; the asset stays RETIRING.
	e.observer.OnTransition(ctx, api.LifecycleEvent{
		Type:     api.EventDisposalApproved,
		AssetID:  rec.AssetID,
		RecordID: rec.ID,
		From:     api.AssetRetiring,
		To:       api.AssetRetiring,
		ActorID:  approverID,
		At:       decided,
	})
	return rec, nil
}

func (e *DisposalEngine) Reject(ctx context.Context, disposalID, approverID, reason string) (*api.DisposalRecord, error) {
	if err := requireField("approverID", approverID); err != nil {
		return nil, err
	}
	if err := requireField("reason", reason); err != nil {
		return nil, err
	}

	const op = "disposal.reject"

	rec, err := e.getRecord(ctx, disposalID)
	if err != nil {
		return nil, err
	}
	if rec.Status != api.DisposalPending {
		return nil, e.fail(ctx, op, rec.AssetID, &api.InvalidStateError{
			Entity: "disposal",
			ID:     rec.ID,
			Status: string(rec.Status),
			Op:     "reject",
		})
	}

	asset, err := e.getAsset(ctx, rec.AssetID)
	if err != nil {
		return nil, e.fail(ctx, op, rec.AssetID, err)
	}

	// Rejection restores AVAILABLE regardless of the asset's pre-disposal
	// status; the pre-transition status is not tracked.
	updated, err := e.sync.Apply(ctx, asset.ID, asset.Version, Transition{Status: api.AssetAvailable})
	if err != nil {
		return nil, e.fail(ctx, op, asset.ID, err)
	}

	decided := e.now().UTC()
	rec.Status = api.DisposalRejected
	rec.ApprovedBy = approverID
	rec.RejectionReason = reason
	rec.DecidedAt = &decided

	if err := e.records.UpdateDisposal(ctx, rec); err != nil {
		if _, cerr := e.sync.Apply(ctx, asset.ID, updated.Version, Transition{Status: api.AssetRetiring}); cerr != nil {
			return nil, e.fail(ctx, op, asset.ID, &api.PartialFailureError{
				AssetID: asset.ID,
				Op:      op,
				Err:     errors.Join(err, cerr),
			})
		}
		return nil, e.fail(ctx, op, asset.ID, err)
	}

	e.observer.OnTransition(ctx, api.LifecycleEvent{
		Type:     api.EventDisposalRejected,
		AssetID:  asset.ID,
		RecordID: rec.ID,
		From:     api.AssetRetiring,
		To:       api.AssetAvailable,
		ActorID:  approverID,
		At:       decided,
	})
	return rec, nil
}

func (e *DisposalEngine) Complete(ctx context.Context, disposalID, actorID string) (*api.DisposalRecord, error) {
	if err := requireField("actorID", actorID); err != nil {
		return nil, err
	}

	const op = "disposal.complete"

	rec, err := e.getRecord(ctx, disposalID)
	if err != nil {
		return nil, err
	}
	if rec.Status != api.DisposalApproved {
		return nil, e.fail(ctx, op, rec.AssetID, &api.InvalidStateError{
			Entity: "disposal",
			ID:     rec.ID,
			Status: string(rec.Status),
			Op:     "complete",
		})
	}

	asset, err := e.getAsset(ctx, rec.AssetID)
	if err != nil {
		return nil, e.fail(ctx, op, rec.AssetID, err)
	}

	inactive := false
	updated, err := e.sync.Apply(ctx, asset.ID, asset.Version, Transition{
		Status: api.AssetRetired,
		Active: &inactive,
	})
	if err != nil {
		return nil, e.fail(ctx, op, asset.ID, err)
	}

	completed := e.now().UTC()
	rec.Status = api.DisposalCompleted
	rec.CompletedAt = &completed

	if err := e.records.UpdateDisposal(ctx, rec); err != nil {
		active := true
		if _, cerr := e.sync.Apply(ctx, asset.ID, updated.Version, Transition{
			Status: api.AssetRetiring,
			Active: &active,
		}); cerr != nil {
			return nil, e.fail(ctx, op, asset.ID, &api.PartialFailureError{
				AssetID: asset.ID,
				Op:      op,
				Err:     errors.Join(err, cerr),
			})
		}
		return nil, e.fail(ctx, op, asset.ID, err)
	}

	e.observer.OnTransition(ctx, api.LifecycleEvent{
		Type:     api.EventDisposalCompleted,
		AssetID:  asset.ID,
		RecordID: rec.ID,
		From:     api.AssetRetiring,
		To:       api.AssetRetired,
		ActorID:  actorID,
		At:       completed,
	})
	return rec, nil
}

func (e *DisposalEngine) Cancel(ctx context.Context, disposalID, actorID string) error {
	if err := requireField("actorID", actorID); err != nil {
		return err
	}

	const op = "disposal.cancel"

	rec, err := e.getRecord(ctx, disposalID)
	if err != nil {
		return err
	}
	if rec.Status.Terminal() {
		return e.fail(ctx, op, rec.AssetID, &api.InvalidStateError{
			Entity: "disposal",
			ID:     rec.ID,
			Status: string(rec.Status),
			Op:     "cancel",
		})
	}

	asset, err := e.getAsset(ctx, rec.AssetID)
	if err != nil {
		return e.fail(ctx, op, rec.AssetID, err)
	}

	updated, err := e.sync.Apply(ctx, asset.ID, asset.Version, Transition{Status: api.AssetAvailable})
	if err != nil {
		return e.fail(ctx, op, asset.ID, err)
	}

	if err := e.records.DeleteDisposal(ctx, rec.ID); err != nil {
		if _, cerr := e.sync.Apply(ctx, asset.ID, updated.Version, Transition{Status: api.AssetRetiring}); cerr != nil {
			return e.fail(ctx, op, asset.ID, &api.PartialFailureError{
				AssetID: asset.ID,
				Op:      op,
				Err:     errors.Join(err, cerr),
			})
		}
		return e.fail(ctx, op, asset.ID, err)
	}

	e.observer.OnTransition(ctx, api.LifecycleEvent{
		Type:     api.EventDisposalCanceled,
		AssetID:  asset.ID,
		RecordID: rec.ID,
		From:     api.AssetRetiring,
		To:       api.AssetAvailable,
		ActorID:  actorID,
		At:       e.now().UTC(),
	})
	return nil
}

func (e *DisposalEngine) Get(ctx context.Context, disposalID string) (*api.DisposalRecord, error) {
	return e.getRecord(ctx, disposalID)
}
