package api

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Observer receives callbacks from the lifecycle engines for logging,
// metrics and outbound notification.
//
// Implementations should be fast and non-blocking; heavy work (email
// dispatch, webhooks) should be done asynchronously so as not to delay
// the calling workflow operation.
type Observer interface {
	// OnTransition is called once per accepted transition, after the
	// record and asset writes have both committed.
	OnTransition(ctx context.Context, ev LifecycleEvent)

	// OnOperationFailed is called when an operation is rejected after
	// input validation passed (conflict, invalid state, stale write,
	// partial failure). Pure validation rejections are not reported.
	OnOperationFailed(ctx context.Context, op string, assetID string, err error)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnTransition(ctx context.Context, ev LifecycleEvent)                       {}
func (NoopObserver) OnOperationFailed(ctx context.Context, op string, assetID string, err error) {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnTransition(ctx context.Context, ev LifecycleEvent) {
	for _, o := range c.observers {
		o.OnTransition(ctx, ev)
	}
}

func (c *CompositeObserver) OnOperationFailed(ctx context.Context, op string, assetID string, err error) {
	for _, o := range c.observers {
		o.OnOperationFailed(ctx, op, assetID, err)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs lifecycle transitions
// using the provided slog.Logger. If logger is nil, slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnTransition(ctx context.Context, ev LifecycleEvent) {
	o.Logger.InfoContext(ctx, "lifecycle_transition",
		slog.String("event", string(ev.Type)),
		slog.String("asset_id", ev.AssetID),
		slog.String("record_id", ev.RecordID),
		slog.String("from", string(ev.From)),
		slog.String("to", string(ev.To)),
		slog.String("actor_id", ev.ActorID),
	)
}

func (o *LoggingObserver) OnOperationFailed(ctx context.Context, op string, assetID string, err error) {
	o.Logger.ErrorContext(ctx, "lifecycle_operation_failed",
		slog.String("op", op),
		slog.String("asset_id", assetID),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters over lifecycle activity.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	transitions        atomic.Int64
	disposalsCompleted atomic.Int64
	maintCompleted     atomic.Int64
	conflicts          atomic.Int64
	staleWrites        atomic.Int64
	failures           atomic.Int64
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	Transitions        int64
	DisposalsCompleted int64
	MaintCompleted     int64
	Conflicts          int64
	StaleWrites        int64
	Failures           int64
}

func (m *BasicMetrics) OnTransition(ctx context.Context, ev LifecycleEvent) {
	m.transitions.Add(1)
	switch ev.Type {
	case EventDisposalCompleted:
		m.disposalsCompleted.Add(1)
	case EventMaintenanceCompleted:
		m.maintCompleted.Add(1)
	}
}

func (m *BasicMetrics) OnOperationFailed(ctx context.Context, op string, assetID string, err error) {
	m.failures.Add(1)
	switch {
	case IsConflict(err):
		m.conflicts.Add(1)
	case IsStaleWrite(err):
		m.staleWrites.Add(1)
	}
}

// Snapshot returns a snapshot of the current counters.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	return BasicMetricsSnapshot{
		Transitions:        m.transitions.Load(),
		DisposalsCompleted: m.disposalsCompleted.Load(),
		MaintCompleted:     m.maintCompleted.Load(),
		Conflicts:          m.conflicts.Load(),
		StaleWrites:        m.staleWrites.Load(),
		Failures:           m.failures.Load(),
	}
}
