package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stationops/assetcycle/pkg/api"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	// modernc sqlite is single-writer; keep the pool at one connection so
	// the in-memory database is shared across the test.
	db.SetMaxOpenConns(1)

	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	return store
}

func TestSQLiteStoreConformance(t *testing.T) {
	store := newTestSQLiteStore(t)
	runStoreConformance(t, store, store)
}

func TestSQLiteStoreTimeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	next := time.Date(2026, 7, 1, 12, 30, 45, 123456000, time.UTC)
	if err := store.SaveAsset(ctx, &api.Asset{
		ID: "a1", Code: "C1", Status: api.AssetAvailable, Active: true, Version: 1,
		NextMaintenanceDate: &next,
		UpdatedAt:           time.Now().UTC(),
	}); err != nil {
		t.Fatalf("SaveAsset failed: %v", err)
	}

	got, err := store.GetAsset(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if got.NextMaintenanceDate == nil || !got.NextMaintenanceDate.Equal(next) {
		t.Fatalf("timestamp did not round-trip: %v", got.NextMaintenanceDate)
	}
}

func TestSQLiteStoreStaleUpdateLeavesRow(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	if err := store.SaveAsset(ctx, &api.Asset{
		ID: "a1", Code: "C1", Status: api.AssetAvailable, Active: true, Version: 5,
	}); err != nil {
		t.Fatalf("SaveAsset failed: %v", err)
	}

	status := api.AssetRetiring
	if _, err := store.ConditionalUpdateAsset(ctx, "a1", 4, AssetPatch{Status: &status}); !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("expected ErrStaleVersion, got %v", err)
	}

	got, err := store.GetAsset(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if got.Status != api.AssetAvailable || got.Version != 5 {
		t.Fatalf("stale update changed the row: %+v", got)
	}
}

func TestSQLiteStoreOpenRecordSelection(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	// A terminal record must not mask the asset as having open work.
	done := &api.DisposalRecord{
		ID: "d-done", AssetID: "a1", StationID: "s1",
		Status: api.DisposalCompleted, DisposalType: "OBSOLETE", RequestedBy: "u1",
		RequestedAt: time.Now().UTC(),
	}
	if err := store.CreateDisposal(ctx, done); err != nil {
		t.Fatalf("CreateDisposal failed: %v", err)
	}
	if _, err := store.OpenDisposal(ctx, "a1"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected no open disposal, got %v", err)
	}

	open := &api.DisposalRecord{
		ID: "d-open", AssetID: "a1", StationID: "s1",
		Status: api.DisposalApproved, DisposalType: "OBSOLETE", RequestedBy: "u1",
		RequestedAt: time.Now().UTC(),
	}
	if err := store.CreateDisposal(ctx, open); err != nil {
		t.Fatalf("CreateDisposal failed: %v", err)
	}
	got, err := store.OpenDisposal(ctx, "a1")
	if err != nil {
		t.Fatalf("OpenDisposal failed: %v", err)
	}
	if got.ID != "d-open" {
		t.Fatalf("expected d-open, got %s", got.ID)
	}
}
