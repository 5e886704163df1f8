package api

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input, for example a missing reason on
// a rejection or cancellation. Nothing has been written when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an unknown asset or record id.
type NotFoundError struct {
	Entity string // "asset", "disposal" or "maintenance"
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// ConflictError reports that an open lifecycle record already claims the
// asset, so a competing (or duplicate) record may not be created. It names
// the blocking record so callers can render it without a second lookup.
type ConflictError struct {
	AssetID      string
	OpenKind     RecordKind
	OpenRecordID string
	OpenStatus   string
}

func (e *ConflictError) Error() string {
	if e.OpenKind == "" {
		return fmt.Sprintf("asset %s already exists", e.AssetID)
	}
	return fmt.Sprintf("asset %s already has an open %s record %s (status %s)",
		e.AssetID, e.OpenKind, e.OpenRecordID, e.OpenStatus)
}

// InvalidStateError reports an operation that is not permitted from the
// entity's current status. Status carries the authoritative current value
// so callers can re-render without another round trip.
type InvalidStateError struct {
	Entity string // "asset", "disposal" or "maintenance"
	ID     string
	Status string
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in status %s", e.Op, e.Entity, e.ID, e.Status)
}

// StaleWriteError reports an optimistic-concurrency failure: the asset was
// modified after the caller read it. The whole operation must be retried
// from a fresh read; the write has not been applied.
type StaleWriteError struct {
	AssetID         string
	ExpectedVersion int64
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("stale write on asset %s: expected version %d", e.AssetID, e.ExpectedVersion)
}

// PartialFailureError reports that the two-step write (asset status, then
// record) did not complete atomically and the compensating write also
// failed. The asset and record stores disagree; the operation must be
// surfaced for manual reconciliation, never treated as success.
type PartialFailureError struct {
	AssetID string
	Op      string
	Err     error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("partial failure in %s on asset %s: %v", e.Op, e.AssetID, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsInvalidState reports whether err is an InvalidStateError.
func IsInvalidState(err error) bool {
	var ie *InvalidStateError
	return errors.As(err, &ie)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsStaleWrite reports whether err is a StaleWriteError.
func IsStaleWrite(err error) bool {
	var se *StaleWriteError
	return errors.As(err, &se)
}
