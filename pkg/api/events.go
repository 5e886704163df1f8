package api

import "time"

// EventType identifies an accepted lifecycle transition.
type EventType string

const (
	EventDisposalRequested EventType = "disposal.requested"
	EventDisposalApproved  EventType = "disposal.approved"
	EventDisposalRejected  EventType = "disposal.rejected"
	EventDisposalCompleted EventType = "disposal.completed"
	EventDisposalCanceled  EventType = "disposal.canceled"

	EventMaintenanceScheduled EventType = "maintenance.scheduled"
	EventMaintenanceStarted   EventType = "maintenance.started"
	EventMaintenanceCompleted EventType = "maintenance.completed"
	EventMaintenanceCanceled  EventType = "maintenance.canceled"
)

// LifecycleEvent is emitted once per accepted transition, after both writes
// have committed. Delivery to external subscribers (email, UI) happens via
// an Observer; the engine itself persists nothing beyond the records.
//
// From and To are equal for record-only transitions (for example a disposal
// approval, which leaves the asset RETIRING).
type LifecycleEvent struct {
	Type EventType

	AssetID  string
	RecordID string

	From AssetStatus
	To   AssetStatus

	ActorID string
	At      time.Time
}
