package assetcycle

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stationops/assetcycle/internal/engine"
	"github.com/stationops/assetcycle/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine             = api.Engine
	DisposalService    = api.DisposalService
	MaintenanceService = api.MaintenanceService
	QueryService       = api.QueryService

	Asset             = api.Asset
	AssetStatus       = api.AssetStatus
	DisposalRecord    = api.DisposalRecord
	DisposalStatus    = api.DisposalStatus
	MaintenanceRecord = api.MaintenanceRecord
	MaintenanceStatus = api.MaintenanceStatus

	DisposalRequest       = api.DisposalRequest
	MaintenanceRequest    = api.MaintenanceRequest
	MaintenanceCompletion = api.MaintenanceCompletion
	DisposalStats         = api.DisposalStats
	MaintenanceStats      = api.MaintenanceStats

	LifecycleEvent = api.LifecycleEvent
	EventType      = api.EventType

	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver

	ValidationError     = api.ValidationError
	NotFoundError       = api.NotFoundError
	ConflictError       = api.ConflictError
	InvalidStateError   = api.InvalidStateError
	StaleWriteError     = api.StaleWriteError
	PartialFailureError = api.PartialFailureError
)

// Re-export common observer helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export status values for convenience.

const (
	AssetAvailable     = api.AssetAvailable
	AssetAssigned      = api.AssetAssigned
	AssetInMaintenance = api.AssetInMaintenance
	AssetRetiring      = api.AssetRetiring
	AssetRetired       = api.AssetRetired

	DisposalPending   = api.DisposalPending
	DisposalApproved  = api.DisposalApproved
	DisposalRejected  = api.DisposalRejected
	DisposalCompleted = api.DisposalCompleted

	MaintenanceScheduled  = api.MaintenanceScheduled
	MaintenanceInProgress = api.MaintenanceInProgress
	MaintenanceCompleted  = api.MaintenanceCompleted
	MaintenanceCanceled   = api.MaintenanceCanceled
)

// Engine constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores.
func NewInMemoryEngine() Engine {
	return engine.NewInMemoryEngine()
}

// NewInMemoryEngineWithObserver returns an in-memory Engine with the given Observer.
func NewInMemoryEngineWithObserver(obs Observer) Engine {
	return engine.NewInMemoryEngineWithObserver(obs)
}

// NewSQLiteEngine returns an Engine that persists assets and lifecycle
// records in a SQLite database.
func NewSQLiteEngine(db *sql.DB) (Engine, error) {
	return engine.NewSQLiteEngine(db)
}

// NewSQLiteEngineWithObserver returns a SQLite-backed Engine with the given Observer.
func NewSQLiteEngineWithObserver(db *sql.DB, obs Observer) (Engine, error) {
	return engine.NewSQLiteEngineWithObserver(db, obs)
}

// NewPostgresEngine returns an Engine that persists state in PostgreSQL.
func NewPostgresEngine(db *sql.DB) (Engine, error) {
	return engine.NewPostgresEngine(db)
}

// NewPostgresEngineWithObserver returns a Postgres-backed Engine with the given Observer.
func NewPostgresEngineWithObserver(db *sql.DB, obs Observer) (Engine, error) {
	return engine.NewPostgresEngineWithObserver(db, obs)
}

// NewRedisEngine returns an Engine that persists state in Redis.
func NewRedisEngine(client *redis.Client) Engine {
	return engine.NewRedisEngine(client)
}

// NewRedisEngineWithObserver returns a Redis-backed Engine with the given Observer.
func NewRedisEngineWithObserver(client *redis.Client, obs Observer) Engine {
	return engine.NewRedisEngineWithObserver(client, obs)
}

// Convenience helpers that just forward to the underlying Engine.

// RegisterAsset seeds an asset into the engine's store.
func RegisterAsset(ctx context.Context, eng Engine, a *Asset) error {
	return eng.RegisterAsset(ctx, a)
}

// GetAsset fetches an asset by ID.
func GetAsset(ctx context.Context, eng Engine, id string) (*Asset, error) {
	return eng.GetAsset(ctx, id)
}

// RequestDisposal opens a disposal request for an asset.
func RequestDisposal(ctx context.Context, eng Engine, req DisposalRequest) (*DisposalRecord, error) {
	return eng.Disposals().Request(ctx, req)
}

// ScheduleMaintenance opens a maintenance record for an asset.
func ScheduleMaintenance(ctx context.Context, eng Engine, req MaintenanceRequest) (*MaintenanceRecord, error) {
	return eng.Maintenance().Schedule(ctx, req)
}

// PendingDisposals lists disposals awaiting approval.
func PendingDisposals(ctx context.Context, eng Engine, stationID string) ([]*DisposalRecord, error) {
	return eng.Queries().PendingDisposals(ctx, stationID)
}

// UpcomingMaintenance lists scheduled maintenance due within daysAhead days.
func UpcomingMaintenance(ctx context.Context, eng Engine, stationID string, daysAhead int) ([]*MaintenanceRecord, error) {
	return eng.Queries().UpcomingMaintenance(ctx, stationID, daysAhead)
}

// DisposalStatsFor aggregates disposals requested within [from, to).
func DisposalStatsFor(ctx context.Context, eng Engine, stationID string, from, to time.Time) (DisposalStats, error) {
	return eng.Queries().DisposalStats(ctx, stationID, from, to)
}

// MaintenanceStatsFor aggregates maintenance dated within [from, to).
func MaintenanceStatsFor(ctx context.Context, eng Engine, stationID string, from, to time.Time) (MaintenanceStats, error) {
	return eng.Queries().MaintenanceStats(ctx, stationID, from, to)
}
