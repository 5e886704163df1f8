package api

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	NoopObserver
	transitions int
	failures    int
}

func (o *recordingObserver) OnTransition(ctx context.Context, ev LifecycleEvent) { o.transitions++ }
func (o *recordingObserver) OnOperationFailed(ctx context.Context, op string, assetID string, err error) {
	o.failures++
}

func TestCompositeObserverFansOut(t *testing.T) {
	ctx := context.Background()
	a := &recordingObserver{}
	b := &recordingObserver{}

	obs := NewCompositeObserver(a, nil, b)
	obs.OnTransition(ctx, LifecycleEvent{Type: EventDisposalRequested})
	obs.OnOperationFailed(ctx, "disposal.request", "a1", &ConflictError{AssetID: "a1"})

	require.Equal(t, 1, a.transitions)
	require.Equal(t, 1, b.transitions)
	require.Equal(t, 1, a.failures)
	require.Equal(t, 1, b.failures)
}

func TestCompositeObserverCollapses(t *testing.T) {
	require.IsType(t, NoopObserver{}, NewCompositeObserver())
	require.IsType(t, NoopObserver{}, NewCompositeObserver(nil, nil))

	single := &recordingObserver{}
	require.Same(t, Observer(single), NewCompositeObserver(single))
}

func TestBasicMetricsCounters(t *testing.T) {
	ctx := context.Background()
	m := &BasicMetrics{}

	m.OnTransition(ctx, LifecycleEvent{Type: EventDisposalRequested})
	m.OnTransition(ctx, LifecycleEvent{Type: EventDisposalCompleted})
	m.OnTransition(ctx, LifecycleEvent{Type: EventMaintenanceCompleted})

	m.OnOperationFailed(ctx, "disposal.request", "a1", &ConflictError{AssetID: "a1"})
	m.OnOperationFailed(ctx, "disposal.complete", "a1", &StaleWriteError{AssetID: "a1"})
	m.OnOperationFailed(ctx, "maintenance.cancel", "a1", &InvalidStateError{})

	snap := m.Snapshot()
	require.EqualValues(t, 3, snap.Transitions)
	require.EqualValues(t, 1, snap.DisposalsCompleted)
	require.EqualValues(t, 1, snap.MaintCompleted)
	require.EqualValues(t, 1, snap.Conflicts)
	require.EqualValues(t, 1, snap.StaleWrites)
	require.EqualValues(t, 3, snap.Failures)
}

func TestLoggingObserverWritesStructuredFields(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	obs := NewLoggingObserver(slog.New(slog.NewTextHandler(&buf, nil)))

	obs.OnTransition(ctx, LifecycleEvent{
		Type:    EventMaintenanceScheduled,
		AssetID: "a1",
		From:    AssetAvailable,
		To:      AssetInMaintenance,
		ActorID: "u1",
	})

	out := buf.String()
	require.Contains(t, out, "lifecycle_transition")
	require.Contains(t, out, "asset_id=a1")
	require.Contains(t, out, "to=IN_MAINTENANCE")

	buf.Reset()
	obs.OnOperationFailed(ctx, "disposal.request", "a1", &ConflictError{AssetID: "a1"})
	require.Contains(t, buf.String(), "lifecycle_operation_failed")
	require.Contains(t, buf.String(), "op=disposal.request")
}
