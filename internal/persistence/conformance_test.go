package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stationops/assetcycle/pkg/api"
)

// runStoreConformance exercises the AssetStore and RecordStore contracts
// against a backend. Every backend test calls into this so the stores stay
// behaviorally interchangeable.
func runStoreConformance(t *testing.T, assets AssetStore, records RecordStore) {
	ctx := context.Background()

	t.Run("AssetSaveGet", func(t *testing.T) {
		a := &api.Asset{
			ID:        "asset-1",
			Code:      "PUMP-001",
			StationID: "st-1",
			Category:  "pumps",
			Status:    api.AssetAvailable,
			Active:    true,
			Version:   3,
			BookValue: 1000,
			UpdatedAt: time.Now().UTC(),
		}
		if err := assets.SaveAsset(ctx, a); err != nil {
			t.Fatalf("SaveAsset failed: %v", err)
		}
		if err := assets.SaveAsset(ctx, a); !errors.Is(err, ErrDuplicateID) {
			t.Fatalf("expected ErrDuplicateID on second save, got %v", err)
		}

		got, err := assets.GetAsset(ctx, "asset-1")
		if err != nil {
			t.Fatalf("GetAsset failed: %v", err)
		}
		if got.Code != "PUMP-001" || got.Status != api.AssetAvailable || got.Version != 3 {
			t.Fatalf("unexpected asset: %+v", got)
		}

		if _, err := assets.GetAsset(ctx, "nope"); !errors.Is(err, ErrAssetNotFound) {
			t.Fatalf("expected ErrAssetNotFound, got %v", err)
		}
	})

	t.Run("AssetConditionalUpdate", func(t *testing.T) {
		status := api.AssetRetiring
		got, err := assets.ConditionalUpdateAsset(ctx, "asset-1", 3, AssetPatch{Status: &status})
		if err != nil {
			t.Fatalf("ConditionalUpdateAsset failed: %v", err)
		}
		if got.Status != api.AssetRetiring {
			t.Fatalf("expected status RETIRING, got %s", got.Status)
		}
		if got.Version != 4 {
			t.Fatalf("expected version 4, got %d", got.Version)
		}

		// Stale expected version must be rejected without a write.
		if _, err := assets.ConditionalUpdateAsset(ctx, "asset-1", 3, AssetPatch{Status: &status}); !errors.Is(err, ErrStaleVersion) {
			t.Fatalf("expected ErrStaleVersion, got %v", err)
		}
		if _, err := assets.ConditionalUpdateAsset(ctx, "ghost", 1, AssetPatch{Status: &status}); !errors.Is(err, ErrAssetNotFound) {
			t.Fatalf("expected ErrAssetNotFound, got %v", err)
		}

		after, err := assets.GetAsset(ctx, "asset-1")
		if err != nil {
			t.Fatalf("GetAsset failed: %v", err)
		}
		if after.Version != 4 {
			t.Fatalf("stale update must not bump version, got %d", after.Version)
		}
	})

	t.Run("AssetPatchFields", func(t *testing.T) {
		next := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		last := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
		inactive := false
		status := api.AssetRetired

		got, err := assets.ConditionalUpdateAsset(ctx, "asset-1", 4, AssetPatch{
			Status:              &status,
			Active:              &inactive,
			NextMaintenanceDate: &next,
			LastMaintenanceDate: &last,
		})
		if err != nil {
			t.Fatalf("ConditionalUpdateAsset failed: %v", err)
		}
		if got.Active {
			t.Fatal("expected asset to be inactive")
		}
		if got.NextMaintenanceDate == nil || !got.NextMaintenanceDate.Equal(next) {
			t.Fatalf("unexpected next maintenance date: %v", got.NextMaintenanceDate)
		}
		if got.LastMaintenanceDate == nil || !got.LastMaintenanceDate.Equal(last) {
			t.Fatalf("unexpected last maintenance date: %v", got.LastMaintenanceDate)
		}
	})

	t.Run("DisposalLifecycle", func(t *testing.T) {
		rec := &api.DisposalRecord{
			ID:            "disp-1",
			AssetID:       "asset-1",
			StationID:     "st-1",
			Status:        api.DisposalPending,
			DisposalType:  "OBSOLETE",
			RequestedBy:   "u1",
			BookValue:     1000,
			DisposalValue: 200,
			RequestedAt:   time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
		}
		if err := records.CreateDisposal(ctx, rec); err != nil {
			t.Fatalf("CreateDisposal failed: %v", err)
		}
		if err := records.CreateDisposal(ctx, rec); !errors.Is(err, ErrDuplicateID) {
			t.Fatalf("expected ErrDuplicateID, got %v", err)
		}

		open, err := records.OpenDisposal(ctx, "asset-1")
		if err != nil {
			t.Fatalf("OpenDisposal failed: %v", err)
		}
		if open.ID != "disp-1" {
			t.Fatalf("expected open disposal disp-1, got %s", open.ID)
		}

		decided := time.Date(2026, 1, 11, 10, 0, 0, 0, time.UTC)
		rec.Status = api.DisposalRejected
		rec.ApprovedBy = "u2"
		rec.RejectionReason = "still needed"
		rec.DecidedAt = &decided
		if err := records.UpdateDisposal(ctx, rec); err != nil {
			t.Fatalf("UpdateDisposal failed: %v", err)
		}

		// Terminal record is no longer open.
		if _, err := records.OpenDisposal(ctx, "asset-1"); !errors.Is(err, ErrRecordNotFound) {
			t.Fatalf("expected no open disposal, got %v", err)
		}

		got, err := records.GetDisposal(ctx, "disp-1")
		if err != nil {
			t.Fatalf("GetDisposal failed: %v", err)
		}
		if got.Status != api.DisposalRejected || got.RejectionReason != "still needed" {
			t.Fatalf("unexpected record: %+v", got)
		}
		if got.DecidedAt == nil || !got.DecidedAt.Equal(decided) {
			t.Fatalf("unexpected DecidedAt: %v", got.DecidedAt)
		}

		if err := records.DeleteDisposal(ctx, "disp-1"); err != nil {
			t.Fatalf("DeleteDisposal failed: %v", err)
		}
		if err := records.DeleteDisposal(ctx, "disp-1"); !errors.Is(err, ErrRecordNotFound) {
			t.Fatalf("expected ErrRecordNotFound on second delete, got %v", err)
		}
	})

	t.Run("DisposalFilters", func(t *testing.T) {
		seed := []*api.DisposalRecord{
			{ID: "d-a", AssetID: "asset-1", StationID: "st-1", Status: api.DisposalPending,
				DisposalType: "OBSOLETE", RequestedBy: "u1",
				RequestedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "d-b", AssetID: "asset-2", StationID: "st-2", Status: api.DisposalCompleted,
				DisposalType: "DAMAGED", RequestedBy: "u1",
				RequestedAt: time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)},
			{ID: "d-c", AssetID: "asset-3", StationID: "st-1", Status: api.DisposalPending,
				DisposalType: "OBSOLETE", RequestedBy: "u2",
				RequestedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		}
		for _, r := range seed {
			if err := records.CreateDisposal(ctx, r); err != nil {
				t.Fatalf("CreateDisposal(%s) failed: %v", r.ID, err)
			}
		}

		byStation, err := records.ListDisposals(ctx, DisposalFilter{StationID: "st-1"})
		if err != nil {
			t.Fatalf("ListDisposals failed: %v", err)
		}
		if len(byStation) != 2 {
			t.Fatalf("expected 2 records for st-1, got %d", len(byStation))
		}

		byStatus, err := records.ListDisposals(ctx, DisposalFilter{Status: api.DisposalPending})
		if err != nil {
			t.Fatalf("ListDisposals failed: %v", err)
		}
		if len(byStatus) != 2 {
			t.Fatalf("expected 2 pending records, got %d", len(byStatus))
		}

		byRange, err := records.ListDisposals(ctx, DisposalFilter{
			From: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("ListDisposals failed: %v", err)
		}
		if len(byRange) != 1 || byRange[0].ID != "d-b" {
			t.Fatalf("expected only d-b in range, got %d records", len(byRange))
		}

		for _, r := range seed {
			if err := records.DeleteDisposal(ctx, r.ID); err != nil {
				t.Fatalf("cleanup failed: %v", err)
			}
		}
	})

	t.Run("DisposalFilterSubSecondBoundary", func(t *testing.T) {
		from := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
		rec := &api.DisposalRecord{
			ID: "d-frac", AssetID: "asset-9", StationID: "st-9",
			Status: api.DisposalCompleted, DisposalType: "OBSOLETE", RequestedBy: "u1",
			// Inside the window's boundary second.
			RequestedAt: from.Add(500 * time.Millisecond),
		}
		if err := records.CreateDisposal(ctx, rec); err != nil {
			t.Fatalf("CreateDisposal failed: %v", err)
		}

		got, err := records.ListDisposals(ctx, DisposalFilter{
			From: from,
			To:   from.Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("ListDisposals failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != "d-frac" {
			t.Fatalf("expected d-frac inside the window, got %d records", len(got))
		}

		after, err := records.ListDisposals(ctx, DisposalFilter{
			From: from.Add(time.Second),
			To:   from.Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("ListDisposals failed: %v", err)
		}
		if len(after) != 0 {
			t.Fatalf("expected no records before From, got %d", len(after))
		}

		if err := records.DeleteDisposal(ctx, "d-frac"); err != nil {
			t.Fatalf("cleanup failed: %v", err)
		}
	})

	t.Run("MaintenanceLifecycle", func(t *testing.T) {
		rec := &api.MaintenanceRecord{
			ID:              "mnt-1",
			AssetID:         "asset-1",
			StationID:       "st-1",
			Status:          api.MaintenanceScheduled,
			MaintenanceType: "inspection",
			ScheduledBy:     "u1",
			MaintenanceDate: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
			LaborCost:       50,
			PartsCost:       20,
			CreatedAt:       time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
		}
		if err := records.CreateMaintenance(ctx, rec); err != nil {
			t.Fatalf("CreateMaintenance failed: %v", err)
		}

		open, err := records.OpenMaintenance(ctx, "asset-1")
		if err != nil {
			t.Fatalf("OpenMaintenance failed: %v", err)
		}
		if open.ID != "mnt-1" {
			t.Fatalf("expected open maintenance mnt-1, got %s", open.ID)
		}

		// IN_PROGRESS still counts as open.
		rec.Status = api.MaintenanceInProgress
		rec.PerformedBy = "u3"
		if err := records.UpdateMaintenance(ctx, rec); err != nil {
			t.Fatalf("UpdateMaintenance failed: %v", err)
		}
		if _, err := records.OpenMaintenance(ctx, "asset-1"); err != nil {
			t.Fatalf("expected open maintenance after start, got %v", err)
		}

		completed := time.Date(2026, 4, 2, 16, 0, 0, 0, time.UTC)
		next := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
		rec.Status = api.MaintenanceCompleted
		rec.ActionsTaken = "replaced filter"
		rec.CompletedDate = &completed
		rec.NextMaintenanceDate = &next
		if err := records.UpdateMaintenance(ctx, rec); err != nil {
			t.Fatalf("UpdateMaintenance failed: %v", err)
		}

		if _, err := records.OpenMaintenance(ctx, "asset-1"); !errors.Is(err, ErrRecordNotFound) {
			t.Fatalf("expected no open maintenance, got %v", err)
		}

		got, err := records.GetMaintenance(ctx, "mnt-1")
		if err != nil {
			t.Fatalf("GetMaintenance failed: %v", err)
		}
		if got.Status != api.MaintenanceCompleted || got.ActionsTaken != "replaced filter" {
			t.Fatalf("unexpected record: %+v", got)
		}
		if got.NextMaintenanceDate == nil || !got.NextMaintenanceDate.Equal(next) {
			t.Fatalf("unexpected NextMaintenanceDate: %v", got.NextMaintenanceDate)
		}

		if err := records.DeleteMaintenance(ctx, "mnt-1"); err != nil {
			t.Fatalf("DeleteMaintenance failed: %v", err)
		}
	})

	t.Run("MaintenanceFilters", func(t *testing.T) {
		seed := []*api.MaintenanceRecord{
			{ID: "m-a", AssetID: "asset-1", StationID: "st-1", Status: api.MaintenanceScheduled,
				MaintenanceType: "inspection", ScheduledBy: "u1",
				MaintenanceDate: time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
				CreatedAt:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "m-b", AssetID: "asset-2", StationID: "st-1", Status: api.MaintenanceCanceled,
				MaintenanceType: "repair", ScheduledBy: "u1", CancelReason: "duplicate",
				MaintenanceDate: time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC),
				CreatedAt:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		}
		for _, r := range seed {
			if err := records.CreateMaintenance(ctx, r); err != nil {
				t.Fatalf("CreateMaintenance(%s) failed: %v", r.ID, err)
			}
		}

		scheduled, err := records.ListMaintenance(ctx, MaintenanceFilter{
			StationID: "st-1",
			Status:    api.MaintenanceScheduled,
			From:      time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
			To:        time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("ListMaintenance failed: %v", err)
		}
		if len(scheduled) != 1 || scheduled[0].ID != "m-a" {
			t.Fatalf("expected only m-a, got %d records", len(scheduled))
		}

		for _, r := range seed {
			if err := records.DeleteMaintenance(ctx, r.ID); err != nil {
				t.Fatalf("cleanup failed: %v", err)
			}
		}
	})
}
