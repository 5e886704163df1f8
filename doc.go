// Package assetcycle provides an embeddable asset lifecycle engine for Go.
//
// It governs how a physical asset moves between operational states
// (available, assigned, under maintenance, retired) through two competing
// workflows — disposal (retirement) and maintenance (servicing) — while
// keeping a single authoritative status on the asset record consistent
// with whichever workflow currently owns it. It runs fully in Go, supports
// multiple persistence backends, and integrates cleanly into existing
// codebases.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Engine
//  2. DisposalService
//  3. MaintenanceService
//  4. QueryService
//  5. Observer
//
// # Engine
//
// The Engine bundles the two workflow services and the read-only query
// service over a shared pair of stores. Engines can be backed by different
// storage systems:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability)
//   - Postgres
//   - Redis
//
// # Workflows
//
// Disposal is a two-party workflow: a request opens a PENDING record and
// moves the asset to RETIRING; an approver then approves or rejects it;
// completion retires and deactivates the asset. Maintenance is a
// single-actor workflow: scheduling moves the asset to IN_MAINTENANCE and
// completion returns it to AVAILABLE, carrying the next maintenance date
// forward onto the asset.
//
// The two workflows are mutually exclusive claims on an asset: while one
// has an open record, starting the other fails with a ConflictError. All
// asset status writes are version-checked, so of two operations racing on
// the same asset exactly one wins; the loser observes a StaleWriteError
// and must retry from a fresh read.
//
// # Quick start
//
//	eng := assetcycle.NewInMemoryEngine()
//
//	_ = eng.RegisterAsset(ctx, &assetcycle.Asset{ID: "a1", Code: "PUMP-001"})
//
//	rec, err := eng.Disposals().Request(ctx, assetcycle.DisposalRequest{
//	    AssetID:      "a1",
//	    DisposalType: "OBSOLETE",
//	    BookValue:    1000,
//	    RequestedBy:  "u1",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_, err = eng.Disposals().Approve(ctx, rec.ID, "u2", "DOC-1")
package assetcycle
