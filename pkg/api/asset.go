package api

import "time"

// AssetStatus is the single authoritative operational state of an asset.
// It is derived from whichever lifecycle record currently owns the asset
// and is only ever written by the state synchronizer.
type AssetStatus string

const (
	AssetAvailable     AssetStatus = "AVAILABLE"
	AssetAssigned      AssetStatus = "ASSIGNED"
	AssetInMaintenance AssetStatus = "IN_MAINTENANCE"
	AssetRetiring      AssetStatus = "RETIRING"
	AssetRetired       AssetStatus = "RETIRED"
)

// Asset is one physical, trackable item.
//
// Status, Active and the maintenance date fields are owned by the engine;
// descriptive attributes (Code, Category, BookValue) are written by the
// external registration flow and only read here. Version increases by
// exactly one on every accepted transition and backs the optimistic
// concurrency check: a write computed against a stale version is rejected,
// never silently applied.
type Asset struct {
	ID        string
	Code      string
	StationID string
	Category  string

	Status AssetStatus

	// Active is flipped to false only when a disposal completes.
	// Assets are never physically deleted.
	Active bool

	Version int64

	BookValue float64

	NextMaintenanceDate *time.Time
	LastMaintenanceDate *time.Time

	UpdatedAt time.Time
}
