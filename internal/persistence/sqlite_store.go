package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/stationops/assetcycle/pkg/api"
)

// SQLiteStore implements AssetStore and RecordStore on SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
//
// Timestamps are stored as fixed-width RFC 3339 text so scans do not
// depend on driver-specific time conversion and string comparison matches
// time order.
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements the interfaces.
var _ AssetStore = (*SQLiteStore)(nil)

var _ RecordStore = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in the given database and
// returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS assets (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			station_id TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			active INTEGER NOT NULL,
			version INTEGER NOT NULL,
			book_value REAL NOT NULL DEFAULT 0,
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
			book_value REAL NOT NULL DEFAULT 0,
			disposal_value REAL NOT NULL DEFAULT 0,
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
			labor_cost REAL NOT NULL DEFAULT 0,
			parts_cost REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_maintenance_asset ON maintenance (asset_id, status);`,
	)
	return err
}

// timeLayout is RFC 3339 with fixed-width fractional seconds. RFC3339Nano
// trims trailing zeros, which breaks lexicographic ordering of the stored
// text; the range filters compare these columns as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func encodeTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func decodeTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := decodeTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *SQLiteStore) SaveAsset(ctx context.Context, a *api.Asset) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (id, code, station_id, category, status, active, version,
			book_value, next_maintenance_date, last_maintenance_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicateID
	}
	return err
}

func (s *SQLiteStore) GetAsset(ctx context.Context, id string) (*api.Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, code, station_id, category, status, active, version,
			book_value, next_maintenance_date, last_maintenance_date, updated_at
		FROM assets
		WHERE id = ?`,
		id,
	)
	return scanAsset(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*api.Asset, error) {
	var a api.Asset
	var status, updatedAt string
	var next, last sql.NullString

	err := row.Scan(&a.ID, &a.Code, &a.StationID, &a.Category, &status, &a.Active,
		&a.Version, &a.BookValue, &next, &last, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}

	a.Status = api.AssetStatus(status)
	if a.NextMaintenanceDate, err = decodeTimePtr(next); err != nil {
		return nil, err
	}
	if a.LastMaintenanceDate, err = decodeTimePtr(last); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *SQLiteStore) ConditionalUpdateAsset(ctx context.Context, id string, expectedVersion int64, patch AssetPatch) (*api.Asset, error) {
	sets := []string{"version = ?", "updated_at = ?"}
	args := []any{expectedVersion + 1, encodeTime(time.Now())}

	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.Active != nil {
		sets = append(sets, "active = ?")
		args = append(args, *patch.Active)
	}
	if patch.NextMaintenanceDate != nil {
		sets = append(sets, "next_maintenance_date = ?")
		args = append(args, encodeTime(*patch.NextMaintenanceDate))
	}
	if patch.LastMaintenanceDate != nil {
		sets = append(sets, "last_maintenance_date = ?")
		args = append(args, encodeTime(*patch.LastMaintenanceDate))
	}

	args = append(args, id, expectedVersion)

	res, err := s.db.ExecContext(ctx,
		"UPDATE assets SET "+strings.Join(sets, ", ")+" WHERE id = ? AND version = ?",
		args...,
	)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Distinguish a missing asset from a lost race.
		var v int64
		err := s.db.QueryRowContext(ctx, "SELECT version FROM assets WHERE id = ?", id).Scan(&v)
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

func (s *SQLiteStore) CreateDisposal(ctx context.Context, rec *api.DisposalRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO disposals (id, asset_id, station_id, status, disposal_type,
			requested_by, approved_by, approval_document, rejection_reason,
			book_value, disposal_value, requested_at, decided_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicateID
	}
	return err
}

const disposalColumns = `id, asset_id, station_id, status, disposal_type,
	requested_by, approved_by, approval_document, rejection_reason,
	book_value, disposal_value, requested_at, decided_at, completed_at`

func scanDisposal(row rowScanner) (*api.DisposalRecord, error) {
	var rec api.DisposalRecord
	var status, requestedAt string
	var decidedAt, completedAt sql.NullString

	err := row.Scan(&rec.ID, &rec.AssetID, &rec.StationID, &status, &rec.DisposalType,
		&rec.RequestedBy, &rec.ApprovedBy, &rec.ApprovalDocument, &rec.RejectionReason,
		&rec.BookValue, &rec.DisposalValue, &requestedAt, &decidedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	rec.Status = api.DisposalStatus(status)
	if rec.RequestedAt, err = decodeTime(requestedAt); err != nil {
		return nil, err
	}
	if rec.DecidedAt, err = decodeTimePtr(decidedAt); err != nil {
		return nil, err
	}
	if rec.CompletedAt, err = decodeTimePtr(completedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) GetDisposal(ctx context.Context, id string) (*api.DisposalRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+disposalColumns+" FROM disposals WHERE id = ?", id)
	return scanDisposal(row)
}

func (s *SQLiteStore) UpdateDisposal(ctx context.Context, rec *api.DisposalRecord) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE disposals
		SET status = ?, approved_by = ?, approval_document = ?, rejection_reason = ?,
			book_value = ?, disposal_value = ?, decided_at = ?, completed_at = ?
		WHERE id = ?`,
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

func (s *SQLiteStore) DeleteDisposal(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM disposals WHERE id = ?", id)
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

func (s *SQLiteStore) OpenDisposal(ctx context.Context, assetID string) (*api.DisposalRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+disposalColumns+` FROM disposals
		WHERE asset_id = ? AND status IN (?, ?)`,
		assetID, string(api.DisposalPending), string(api.DisposalApproved))
	return scanDisposal(row)
}

func (s *SQLiteStore) ListDisposals(ctx context.Context, f DisposalFilter) ([]*api.DisposalRecord, error) {
	query := "SELECT " + disposalColumns + " FROM disposals"
	var args []any
	var clauses []string

	if f.AssetID != "" {
		clauses = append(clauses, "asset_id = ?")
		args = append(args, f.AssetID)
	}
	if f.StationID != "" {
		clauses = append(clauses, "station_id = ?")
		args = append(args, f.StationID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "requested_at >= ?")
		args = append(args, encodeTime(f.From))
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "requested_at < ?")
		args = append(args, encodeTime(f.To))
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

func (s *SQLiteStore) CreateMaintenance(ctx context.Context, rec *api.MaintenanceRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO maintenance (id, asset_id, station_id, status, maintenance_type,
			description, scheduled_by, performed_by, actions_taken, cancel_reason,
			maintenance_date, completed_date, next_maintenance_date, labor_cost, parts_cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicateID
	}
	return err
}

const maintenanceColumns = `id, asset_id, station_id, status, maintenance_type,
	description, scheduled_by, performed_by, actions_taken, cancel_reason,
	maintenance_date, completed_date, next_maintenance_date, labor_cost, parts_cost, created_at`

func scanMaintenance(row rowScanner) (*api.MaintenanceRecord, error) {
	var rec api.MaintenanceRecord
	var status, maintenanceDate, createdAt string
	var completedDate, nextDate sql.NullString

	err := row.Scan(&rec.ID, &rec.AssetID, &rec.StationID, &status, &rec.MaintenanceType,
		&rec.Description, &rec.ScheduledBy, &rec.PerformedBy, &rec.ActionsTaken, &rec.CancelReason,
		&maintenanceDate, &completedDate, &nextDate, &rec.LaborCost, &rec.PartsCost, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	rec.Status = api.MaintenanceStatus(status)
	if rec.MaintenanceDate, err = decodeTime(maintenanceDate); err != nil {
		return nil, err
	}
	if rec.CompletedDate, err = decodeTimePtr(completedDate); err != nil {
		return nil, err
	}
	if rec.NextMaintenanceDate, err = decodeTimePtr(nextDate); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) GetMaintenance(ctx context.Context, id string) (*api.MaintenanceRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+maintenanceColumns+" FROM maintenance WHERE id = ?", id)
	return scanMaintenance(row)
}

func (s *SQLiteStore) UpdateMaintenance(ctx context.Context, rec *api.MaintenanceRecord) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE maintenance
		SET status = ?, performed_by = ?, actions_taken = ?, cancel_reason = ?,
			completed_date = ?, next_maintenance_date = ?, labor_cost = ?, parts_cost = ?
		WHERE id = ?`,
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

func (s *SQLiteStore) DeleteMaintenance(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM maintenance WHERE id = ?", id)
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

func (s *SQLiteStore) OpenMaintenance(ctx context.Context, assetID string) (*api.MaintenanceRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+maintenanceColumns+` FROM maintenance
		WHERE asset_id = ? AND status IN (?, ?)`,
		assetID, string(api.MaintenanceScheduled), string(api.MaintenanceInProgress))
	return scanMaintenance(row)
}

func (s *SQLiteStore) ListMaintenance(ctx context.Context, f MaintenanceFilter) ([]*api.MaintenanceRecord, error) {
	query := "SELECT " + maintenanceColumns + " FROM maintenance"
	var args []any
	var clauses []string

	if f.AssetID != "" {
		clauses = append(clauses, "asset_id = ?")
		args = append(args, f.AssetID)
	}
	if f.StationID != "" {
		clauses = append(clauses, "station_id = ?")
		args = append(args, f.StationID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "maintenance_date >= ?")
		args = append(args, encodeTime(f.From))
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "maintenance_date < ?")
		args = append(args, encodeTime(f.To))
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
