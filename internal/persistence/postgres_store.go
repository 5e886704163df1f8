package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stationops/assetcycle/pkg/api"
)

// PostgresStore implements AssetStore and RecordStore on PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib"). The caller is responsible for:
//   - importing the driver for its side effects, e.g.:
//     _ "github.com/jackc/pgx/v5/stdlib"
//   - providing a DSN via sql.Open.
type PostgresStore struct {
	db *sql.DB
}

// Ensure PostgresStore implements the interfaces.
var _ AssetStore = (*PostgresStore)(nil)

var _ RecordStore = (*PostgresStore)(nil)

// NewPostgresStore initializes the required schema in the given database
// and returns a new PostgresStore.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS assets (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			station_id TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			active BOOLEAN NOT NULL,
			version BIGINT NOT NULL,
			book_value DOUBLE PRECISION NOT NULL DEFAULT 0,
			next_maintenance_date TEXT,
			last_maintenance_date TEXT,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS disposals (
			id TEXT PRIMARY KEY,
			asset_id TEXT NOT NULL,
			station_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			disposal_type TEXT NOT NULL,
			requested_by TEXT NOT NULL,
			approved_by TEXT NOT NULL DEFAULT '',
			approval_document TEXT NOT NULL DEFAULT '',
			rejection_reason TEXT NOT NULL DEFAULT '',
			book_value DOUBLE PRECISION NOT NULL DEFAULT 0,
			disposal_value DOUBLE PRECISION NOT NULL DEFAULT 0,
			requested_at TEXT NOT NULL,
			decided_at TEXT,
			completed_at TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_disposals_asset ON disposals (asset_id, status);

		CREATE TABLE IF NOT EXISTS maintenance (
			id TEXT PRIMARY KEY,
			asset_id TEXT NOT NULL,
			station_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			maintenance_type TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			scheduled_by TEXT NOT NULL,
			performed_by TEXT NOT NULL DEFAULT '',
			actions_taken TEXT NOT NULL DEFAULT '',
			cancel_reason TEXT NOT NULL DEFAULT '',
			maintenance_date TEXT NOT NULL,
			completed_date TEXT,
			next_maintenance_date TEXT,
			labor_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
			parts_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_maintenance_asset ON maintenance (asset_id, status);
	`)
	return err
}

func isPgUniqueViolation(err error) bool {
	// 23505 is unique_violation; matching the message avoids importing
	// driver-specific error types here.
	return err != nil && strings.Contains(err.Error(), "23505")
}

func (s *PostgresStore) SaveAsset(ctx context.Context, a *api.Asset) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (id, code, station_id, category, status, active, version,
			book_value, next_maintenance_date, last_maintenance_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID,
		a.Code,
		a.StationID,
		a.Category,
		string(a.Status),
		a.Active,
		a.Version,
		a.BookValue,
		encodeTimePtr(a.NextMaintenanceDate),
		encodeTimePtr(a.LastMaintenanceDate),
		encodeTime(a.UpdatedAt),
	)
	if isPgUniqueViolation(err) {
		return ErrDuplicateID
	}
	return err
}

func (s *PostgresStore) GetAsset(ctx context.Context, id string) (*api.Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, code, station_id, category, status, active, version,
			book_value, next_maintenance_date, last_maintenance_date, updated_at
		FROM assets
		WHERE id = $1`,
		id,
	)
	return scanAsset(row)
}

func (s *PostgresStore) ConditionalUpdateAsset(ctx context.Context, id string, expectedVersion int64, patch AssetPatch) (*api.Asset, error) {
	sets := []string{"version = $1", "updated_at = $2"}
	args := []any{expectedVersion + 1, encodeTime(time.Now())}

	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.Active != nil {
		add("active", *patch.Active)
	}
	if patch.NextMaintenanceDate != nil {
		add("next_maintenance_date", encodeTime(*patch.NextMaintenanceDate))
	}
	if patch.LastMaintenanceDate != nil {
		add("last_maintenance_date", encodeTime(*patch.LastMaintenanceDate))
	}

	args = append(args, id, expectedVersion)
	query := fmt.Sprintf("UPDATE assets SET %s WHERE id = $%d AND version = $%d",
		strings.Join(sets, ", "), len(args)-1, len(args))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		var v int64
		err := s.db.QueryRowContext(ctx, "SELECT version FROM assets WHERE id = $1", id).Scan(&v)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssetNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, ErrStaleVersion
	}

	return s.GetAsset(ctx, id)
}

func (s *PostgresStore) CreateDisposal(ctx context.Context, rec *api.DisposalRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO disposals (id, asset_id, station_id, status, disposal_type,
			requested_by, approved_by, approval_document, rejection_reason,
			book_value, disposal_value, requested_at, decided_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID,
		rec.AssetID,
		rec.StationID,
		string(rec.Status),
		rec.DisposalType,
		rec.RequestedBy,
		rec.ApprovedBy,
		rec.ApprovalDocument,
		rec.RejectionReason,
		rec.BookValue,
		rec.DisposalValue,
		encodeTime(rec.RequestedAt),
		encodeTimePtr(rec.DecidedAt),
		encodeTimePtr(rec.CompletedAt),
	)
	if isPgUniqueViolation(err) {
		return ErrDuplicateID
	}
	return err
}

func (s *PostgresStore) GetDisposal(ctx context.Context, id string) (*api.DisposalRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+disposalColumns+" FROM disposals WHERE id = $1", id)
	return scanDisposal(row)
}

func (s *PostgresStore) UpdateDisposal(ctx context.Context, rec *api.DisposalRecord) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE disposals
		SET status = $1, approved_by = $2, approval_document = $3, rejection_reason = $4,
			book_value = $5, disposal_value = $6, decided_at = $7, completed_at = $8
		WHERE id = $9`,
		string(rec.Status),
		rec.ApprovedBy,
		rec.ApprovalDocument,
		rec.RejectionReason,
		rec.BookValue,
		rec.DisposalValue,
		encodeTimePtr(rec.DecidedAt),
		encodeTimePtr(rec.CompletedAt),
		rec.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteDisposal(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM disposals WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *PostgresStore) OpenDisposal(ctx context.Context, assetID string) (*api.DisposalRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+disposalColumns+` FROM disposals
		WHERE asset_id = $1 AND status IN ($2, $3)`,
		assetID, string(api.DisposalPending), string(api.DisposalApproved))
	return scanDisposal(row)
}

func (s *PostgresStore) ListDisposals(ctx context.Context, f DisposalFilter) ([]*api.DisposalRecord, error) {
	query := "SELECT " + disposalColumns + " FROM disposals"
	var args []any
	var clauses []string

	add := func(cond string, val any) {
		args = append(args, val)
		clauses = append(clauses, fmt.Sprintf(cond, len(args)))
	}
	if f.AssetID != "" {
		add("asset_id = $%d", f.AssetID)
	}
	if f.StationID != "" {
		add("station_id = $%d", f.StationID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if !f.From.IsZero() {
		add("requested_at >= $%d", encodeTime(f.From))
	}
	if !f.To.IsZero() {
		add("requested_at < $%d", encodeTime(f.To))
	}
	if len(clauses) > 0 {
		query = query + " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*api.DisposalRecord
	for rows.Next() {
		rec, err := scanDisposal(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *PostgresStore) CreateMaintenance(ctx context.Context, rec *api.MaintenanceRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO maintenance (id, asset_id, station_id, status, maintenance_type,
			description, scheduled_by, performed_by, actions_taken, cancel_reason,
			maintenance_date, completed_date, next_maintenance_date, labor_cost, parts_cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		rec.ID,
		rec.AssetID,
		rec.StationID,
		string(rec.Status),
		rec.MaintenanceType,
		rec.Description,
		rec.ScheduledBy,
		rec.PerformedBy,
		rec.ActionsTaken,
		rec.CancelReason,
		encodeTime(rec.MaintenanceDate),
		encodeTimePtr(rec.CompletedDate),
		encodeTimePtr(rec.NextMaintenanceDate),
		rec.LaborCost,
		rec.PartsCost,
		encodeTime(rec.CreatedAt),
	)
	if isPgUniqueViolation(err) {
		return ErrDuplicateID
	}
	return err
}

func (s *PostgresStore) GetMaintenance(ctx context.Context, id string) (*api.MaintenanceRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+maintenanceColumns+" FROM maintenance WHERE id = $1", id)
	return scanMaintenance(row)
}

func (s *PostgresStore) UpdateMaintenance(ctx context.Context, rec *api.MaintenanceRecord) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE maintenance
		SET status = $1, performed_by = $2, actions_taken = $3, cancel_reason = $4,
			completed_date = $5, next_maintenance_date = $6, labor_cost = $7, parts_cost = $8
		WHERE id = $9`,
		string(rec.Status),
		rec.PerformedBy,
		rec.ActionsTaken,
		rec.CancelReason,
		encodeTimePtr(rec.CompletedDate),
		encodeTimePtr(rec.NextMaintenanceDate),
		rec.LaborCost,
		rec.PartsCost,
		rec.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteMaintenance(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM maintenance WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *PostgresStore) OpenMaintenance(ctx context.Context, assetID string) (*api.MaintenanceRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+maintenanceColumns+` FROM maintenance
		WHERE asset_id = $1 AND status IN ($2, $3)`,
		assetID, string(api.MaintenanceScheduled), string(api.MaintenanceInProgress))
	return scanMaintenance(row)
}

func (s *PostgresStore) ListMaintenance(ctx context.Context, f MaintenanceFilter) ([]*api.MaintenanceRecord, error) {
	query := "SELECT " + maintenanceColumns + " FROM maintenance"
	var args []any
	var clauses []string

	add := func(cond string, val any) {
		args = append(args, val)
		clauses = append(clauses, fmt.Sprintf(cond, len(args)))
	}
	if f.AssetID != "" {
		add("asset_id = $%d", f.AssetID)
	}
	if f.StationID != "" {
		add("station_id = $%d", f.StationID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if !f.From.IsZero() {
		add("maintenance_date >= $%d", encodeTime(f.From))
	}
	if !f.To.IsZero() {
		add("maintenance_date < $%d", encodeTime(f.To))
	}
	if len(clauses) > 0 {
		query = query + " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*api.MaintenanceRecord
	for rows.Next() {
		rec, err := scanMaintenance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
