package api

import (
	"context"
	"time"
)

// DisposalRequest is the input to DisposalService.Request.
// RequestedBy is an already-authorized actor id; the engine performs no
// permission checks of its own.
type DisposalRequest struct {
	AssetID       string  `validate:"required"`
	DisposalType  string  `validate:"required"`
	BookValue     float64 `validate:"gte=0"`
	DisposalValue float64 `validate:"gte=0"`
	RequestedBy   string  `validate:"required"`
}

// MaintenanceRequest is the input to MaintenanceService.Schedule.
type MaintenanceRequest struct {
	AssetID         string    `validate:"required"`
	MaintenanceType string    `validate:"required"`
	Description     string    `validate:"-"`
	MaintenanceDate time.Time `validate:"required"`
	ScheduledBy     string    `validate:"required"`
	LaborCost       float64   `validate:"gte=0"`
	PartsCost       float64   `validate:"gte=0"`
}

// MaintenanceCompletion is the input to MaintenanceService.Complete.
// CompletedDate defaults to the current date when nil. Cost fields, when
// set, override the estimates captured at scheduling time.
type MaintenanceCompletion struct {
	ActionsTaken        string `validate:"required"`
	CompletedDate       *time.Time
	NextMaintenanceDate *time.Time
	LaborCost           *float64 `validate:"omitempty,gte=0"`
	PartsCost           *float64 `validate:"omitempty,gte=0"`
}

// DisposalService owns the retirement path of an asset.
//
// State machine: PENDING -> APPROVED -> COMPLETED, with PENDING -> REJECTED
// as the terminal rejection branch. Cancel removes an open record entirely.
// All asset status side effects go through the shared synchronizer.
type DisposalService interface {
	// Request opens a PENDING disposal and moves the asset to RETIRING.
	// Fails with ConflictError if any open disposal or maintenance record
	// exists for the asset.
	Request(ctx context.Context, req DisposalRequest) (*DisposalRecord, error)

	// Approve moves a PENDING disposal to APPROVED. The asset stays
	// RETIRING.
	Approve(ctx context.Context, disposalID, approverID, approvalDocument string) (*DisposalRecord, error)

	// Reject terminally rejects a PENDING disposal and restores the asset
	// to AVAILABLE. A reason is required.
	Reject(ctx context.Context, disposalID, approverID, reason string) (*DisposalRecord, error)

	// Complete finishes an APPROVED disposal: the asset becomes RETIRED
	// and inactive. This is the only operation that soft-deletes an asset.
	Complete(ctx context.Context, disposalID, actorID string) (*DisposalRecord, error)

	// Cancel removes an open (PENDING or APPROVED) disposal and restores
	// the asset to AVAILABLE. COMPLETED and REJECTED records cannot be
	// canceled.
	Cancel(ctx context.Context, disposalID, actorID string) error

	// Get returns a disposal record by id.
	Get(ctx context.Context, disposalID string) (*DisposalRecord, error)
}

// MaintenanceService owns the servicing path of an asset.
//
// State machine: SCHEDULED -> IN_PROGRESS -> COMPLETED, with cancellation
// allowed from either open state. Unlike disposal there is no approval
// step; maintenance is a single-actor workflow.
type MaintenanceService interface {
	// Schedule opens a SCHEDULED record and moves the asset to
	// IN_MAINTENANCE. Fails with ConflictError if any open maintenance or
	// disposal record exists for the asset.
	Schedule(ctx context.Context, req MaintenanceRequest) (*MaintenanceRecord, error)

	// Start moves a SCHEDULED record to IN_PROGRESS and records the
	// performing actor. The asset stays IN_MAINTENANCE.
	Start(ctx context.Context, maintenanceID, actorID string) (*MaintenanceRecord, error)

	// Complete finishes an open record: the asset returns to AVAILABLE and
	// the completion's NextMaintenanceDate (if any) propagates to it.
	Complete(ctx context.Context, maintenanceID string, completion MaintenanceCompletion, actorID string) (*MaintenanceRecord, error)

	// Cancel terminally cancels an open record with a reason and restores
	// the asset to AVAILABLE.
	Cancel(ctx context.Context, maintenanceID, reason string) (*MaintenanceRecord, error)

	// Get returns a maintenance record by id.
	Get(ctx context.Context, maintenanceID string) (*MaintenanceRecord, error)
}

// DisposalStats aggregates disposal records for dashboards.
// Monetary totals cover COMPLETED records only.
type DisposalStats struct {
	Total     int
	Pending   int
	Approved  int
	Rejected  int
	Completed int

	TotalBookValue     float64
	TotalDisposalValue float64
	NetLossGain        float64
}

// MaintenanceStats aggregates maintenance records for dashboards.
// Cost totals cover COMPLETED records only.
type MaintenanceStats struct {
	Total      int
	Scheduled  int
	InProgress int
	Completed  int
	Canceled   int

	TotalLaborCost float64
	TotalPartsCost float64
}

// QueryService is the read-only aggregation surface consumed by
// dashboards. It never mutates state and tolerates eventual consistency
// with the write path.
type QueryService interface {
	// PendingDisposals lists disposals awaiting approval, optionally
	// filtered by station.
	PendingDisposals(ctx context.Context, stationID string) ([]*DisposalRecord, error)

	// UpcomingMaintenance lists SCHEDULED records due within daysAhead
	// days from now.
	UpcomingMaintenance(ctx context.Context, stationID string, daysAhead int) ([]*MaintenanceRecord, error)

	// DisposalStats aggregates disposals requested within [from, to).
	DisposalStats(ctx context.Context, stationID string, from, to time.Time) (DisposalStats, error)

	// MaintenanceStats aggregates maintenance dated within [from, to).
	MaintenanceStats(ctx context.Context, stationID string, from, to time.Time) (MaintenanceStats, error)
}

// Engine bundles the two workflow engines and the query service over a
// shared pair of stores.
type Engine interface {
	Disposals() DisposalService
	Maintenance() MaintenanceService
	Queries() QueryService

	// RegisterAsset seeds an asset into the store. Registration proper is
	// an external flow; this is the injection seam for it. Zero Status,
	// Version and Active are defaulted to AVAILABLE, 1 and true.
	RegisterAsset(ctx context.Context, a *Asset) error

	// GetAsset returns the current asset record.
	GetAsset(ctx context.Context, id string) (*Asset, error)
}
