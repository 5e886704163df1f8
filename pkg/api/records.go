package api

import "time"

// RecordKind distinguishes the two lifecycle record types where they are
// handled generically (conflicts, not-found errors, events).
type RecordKind string

const (
	KindDisposal    RecordKind = "disposal"
	KindMaintenance RecordKind = "maintenance"
)

// DisposalStatus is the state of one retirement attempt.
type DisposalStatus string

const (
	DisposalPending   DisposalStatus = "PENDING"
	DisposalApproved  DisposalStatus = "APPROVED"
	DisposalRejected  DisposalStatus = "REJECTED"
	DisposalCompleted DisposalStatus = "COMPLETED"
)

// Terminal reports whether the status permits no further transitions.
func (s DisposalStatus) Terminal() bool {
	return s == DisposalRejected || s == DisposalCompleted
}

// DisposalRecord is one retirement attempt for one asset.
//
// Many records may exist historically for an asset, but at most one may be
// in a non-terminal status at a time. A COMPLETED record is immutable.
type DisposalRecord struct {
	ID        string
	AssetID   string
	StationID string

	Status DisposalStatus

	DisposalType string

	RequestedBy string
	ApprovedBy  string

	ApprovalDocument string
	RejectionReason  string

	BookValue     float64
	DisposalValue float64

	RequestedAt time.Time
	DecidedAt   *time.Time
	CompletedAt *time.Time
}

// LossGain is the financial outcome of the disposal: disposal value minus
// book value. Negative values are a loss.
func (r *DisposalRecord) LossGain() float64 {
	return r.DisposalValue - r.BookValue
}

// MaintenanceStatus is the state of one servicing episode.
type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "SCHEDULED"
	MaintenanceInProgress MaintenanceStatus = "IN_PROGRESS"
	MaintenanceCompleted  MaintenanceStatus = "COMPLETED"
	MaintenanceCanceled   MaintenanceStatus = "CANCELED"
)

// Terminal reports whether the status permits no further transitions.
func (s MaintenanceStatus) Terminal() bool {
	return s == MaintenanceCompleted || s == MaintenanceCanceled
}

// Open reports whether a record in this status still owns the asset.
func (s MaintenanceStatus) Open() bool {
	return s == MaintenanceScheduled || s == MaintenanceInProgress
}

// MaintenanceRecord is one servicing episode for one asset.
//
// At most one record per asset may be open (SCHEDULED or IN_PROGRESS) at a
// time. Completion propagates NextMaintenanceDate forward to the asset;
// cancellation requires a reason and leaves no trace on the asset beyond
// restoring its status.
type MaintenanceRecord struct {
	ID        string
	AssetID   string
	StationID string

	Status MaintenanceStatus

	MaintenanceType string
	Description     string

	ScheduledBy string
	PerformedBy string

	ActionsTaken string
	CancelReason string

	MaintenanceDate     time.Time
	CompletedDate       *time.Time
	NextMaintenanceDate *time.Time

	LaborCost float64
	PartsCost float64

	CreatedAt time.Time
}

// TotalCost is labor plus parts.
func (r *MaintenanceRecord) TotalCost() float64 {
	return r.LaborCost + r.PartsCost
}
