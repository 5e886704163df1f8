package assetcycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	assetcycle "github.com/stationops/assetcycle"
)

// End-to-end exercise of the public surface: register, dispose, service,
// query, all through the root package.
func TestLifecycleRoundTrip(t *testing.T) {
	ctx := context.Background()
	metrics := &assetcycle.BasicMetrics{}
	eng := assetcycle.NewInMemoryEngineWithObserver(metrics)

	require.NoError(t, assetcycle.RegisterAsset(ctx, eng, &assetcycle.Asset{
		ID:        "fork-01",
		Code:      "FORK-001",
		StationID: "st-main",
		Category:  "forklifts",
		BookValue: 12000,
	}))

	asset, err := assetcycle.GetAsset(ctx, eng, "fork-01")
	require.NoError(t, err)
	require.Equal(t, assetcycle.AssetAvailable, asset.Status)
	require.EqualValues(t, 1, asset.Version)

	// Service it first.
	mnt, err := assetcycle.ScheduleMaintenance(ctx, eng, assetcycle.MaintenanceRequest{
		AssetID:         "fork-01",
		MaintenanceType: "inspection",
		MaintenanceDate: time.Now().Add(48 * time.Hour),
		ScheduledBy:     "u1",
		LaborCost:       150,
	})
	require.NoError(t, err)

	// While maintenance is open, disposal is locked out.
	_, err = assetcycle.RequestDisposal(ctx, eng, assetcycle.DisposalRequest{
		AssetID: "fork-01", DisposalType: "OBSOLETE", RequestedBy: "u2",
	})
	var cerr *assetcycle.ConflictError
	require.ErrorAs(t, err, &cerr)

	next := time.Now().AddDate(0, 6, 0)
	_, err = eng.Maintenance().Complete(ctx, mnt.ID, assetcycle.MaintenanceCompletion{
		ActionsTaken:        "lubricated mast chains",
		NextMaintenanceDate: &next,
	}, "tech-1")
	require.NoError(t, err)

	asset, err = assetcycle.GetAsset(ctx, eng, "fork-01")
	require.NoError(t, err)
	require.Equal(t, assetcycle.AssetAvailable, asset.Status)
	require.NotNil(t, asset.NextMaintenanceDate)

	// Then retire it.
	disp, err := assetcycle.RequestDisposal(ctx, eng, assetcycle.DisposalRequest{
		AssetID:       "fork-01",
		DisposalType:  "OBSOLETE",
		BookValue:     12000,
		DisposalValue: 2500,
		RequestedBy:   "u2",
	})
	require.NoError(t, err)

	pending, err := assetcycle.PendingDisposals(ctx, eng, "st-main")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = eng.Disposals().Approve(ctx, disp.ID, "mgr-1", "DOC-9")
	require.NoError(t, err)
	_, err = eng.Disposals().Complete(ctx, disp.ID, "mgr-1")
	require.NoError(t, err)

	asset, err = assetcycle.GetAsset(ctx, eng, "fork-01")
	require.NoError(t, err)
	require.Equal(t, assetcycle.AssetRetired, asset.Status)
	require.False(t, asset.Active)

	stats, err := assetcycle.DisposalStatsFor(ctx, eng, "st-main",
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, stats.Completed)
	require.InDelta(t, -9500, stats.NetLossGain, 0.001)

	mstats, err := assetcycle.MaintenanceStatsFor(ctx, eng, "st-main",
		time.Now().Add(-time.Hour), time.Now().Add(72*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, mstats.Completed)

	snap := metrics.Snapshot()
	require.EqualValues(t, 1, snap.DisposalsCompleted)
	require.EqualValues(t, 1, snap.MaintCompleted)
	require.EqualValues(t, 1, snap.Conflicts)
}
