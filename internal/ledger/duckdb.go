// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register the duckdb driver
	"github.com/goccy/go-json"

	"github.com/tomtom215/authtrail/internal/logging"
	"github.com/tomtom215/authtrail/internal/models"
)

// DuckDBStore persists records in a DuckDB authentication_log table.
type DuckDBStore struct {
	db    *sql.DB
	owned bool
}

// NewDuckDBStore wraps an open database. Call CreateTable before use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// OpenDuckDBStore opens (or creates) the database at path and ensures the
// schema. An empty path opens an in-memory database.
func OpenDuckDBStore(ctx context.Context, path string) (*DuckDBStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	s := &DuckDBStore{db: db, owned: true}
	if err := s.CreateTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// CreateTable creates the authentication_log table if it doesn't exist.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	query := `
		CREATE SEQUENCE IF NOT EXISTS authentication_log_id_seq START 1;

		CREATE TABLE IF NOT EXISTS authentication_log (
			id BIGINT PRIMARY KEY DEFAULT nextval('authentication_log_id_seq'),
			authenticatable_type TEXT NOT NULL,
			authenticatable_id TEXT NOT NULL,
			ip_address TEXT,
			user_agent TEXT,
			device_id TEXT,
			device_name TEXT,
			is_trusted BOOLEAN NOT NULL DEFAULT false,
			login_at TIMESTAMPTZ,
			login_successful BOOLEAN NOT NULL DEFAULT false,
			logout_at TIMESTAMPTZ,
			last_activity_at TIMESTAMPTZ,
			cleared_by_user BOOLEAN NOT NULL DEFAULT false,
			location JSON,
			is_suspicious BOOLEAN NOT NULL DEFAULT false,
			suspicious_reason TEXT
		)
	`

	// Split and execute each statement
	for _, stmt := range strings.Split(query, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	logging.Debug().Msg("Authentication log table created/verified")
	return nil
}

const duckdbColumns = `id, authenticatable_type, authenticatable_id, ip_address, user_agent,
	device_id, device_name, is_trusted, login_at, login_successful, logout_at,
	last_activity_at, cleared_by_user, CAST(location AS VARCHAR), is_suspicious, suspicious_reason`

// Insert implements Store.
func (s *DuckDBStore) Insert(ctx context.Context, rec *models.AuthenticationRecord) error {
	loc, err := encodeLocation(rec.Location)
	if err != nil {
		return err
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO authentication_log (
			authenticatable_type, authenticatable_id, ip_address, user_agent,
			device_id, device_name, is_trusted, login_at, login_successful, logout_at,
			last_activity_at, cleared_by_user, location, is_suspicious, suspicious_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		rec.OwnerType, rec.OwnerID, nullString(rec.IPAddress), nullString(rec.UserAgent),
		nullString(rec.DeviceID), nullString(rec.DeviceName), rec.IsTrusted,
		nullTime(rec.LoginAt), rec.LoginSuccessful, nullTime(rec.LogoutAt),
		nullTime(rec.LastActivityAt), rec.ClearedByUser, loc, rec.IsSuspicious,
		nullString(rec.SuspiciousReason),
	)

	var id int64
	if err := row.Scan(&id); err != nil {
		return fmt.Errorf("failed to insert authentication record: %w", err)
	}
	rec.ID = id
	return nil
}

// Update implements Store.
func (s *DuckDBStore) Update(ctx context.Context, rec *models.AuthenticationRecord) error {
	loc, err := encodeLocation(rec.Location)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE authentication_log SET
			ip_address = ?, user_agent = ?, device_id = ?, device_name = ?,
			is_trusted = ?, login_at = ?, login_successful = ?, logout_at = ?,
			last_activity_at = ?, cleared_by_user = ?, location = ?,
			is_suspicious = ?, suspicious_reason = ?
		WHERE id = ?`,
		nullString(rec.IPAddress), nullString(rec.UserAgent), nullString(rec.DeviceID),
		nullString(rec.DeviceName), rec.IsTrusted, nullTime(rec.LoginAt), rec.LoginSuccessful,
		nullTime(rec.LogoutAt), nullTime(rec.LastActivityAt), rec.ClearedByUser, loc,
		rec.IsSuspicious, nullString(rec.SuspiciousReason), rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update authentication record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get implements Store.
func (s *DuckDBStore) Get(ctx context.Context, id int64) (*models.AuthenticationRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+duckdbColumns+" FROM authentication_log WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// Find implements Store.
func (s *DuckDBStore) Find(ctx context.Context, q Query) ([]*models.AuthenticationRecord, error) {
	where, args := buildConditions(q)
	query := "SELECT " + duckdbColumns + " FROM authentication_log" + where +
		" ORDER BY login_at DESC NULLS LAST, id DESC"
	if q.limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query authentication records: %w", err)
	}
	defer rows.Close()

	var out []*models.AuthenticationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating authentication records: %w", err)
	}
	return out, nil
}

// First implements Store.
func (s *DuckDBStore) First(ctx context.Context, q Query) (*models.AuthenticationRecord, error) {
	recs, err := s.Find(ctx, q.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs[0], nil
}

// Count implements Store.
func (s *DuckDBStore) Count(ctx context.Context, q Query) (int, error) {
	where, args := buildConditions(q)
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM authentication_log"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count authentication records: %w", err)
	}
	return n, nil
}

// CountDistinct implements Store.
func (s *DuckDBStore) CountDistinct(ctx context.Context, q Query, field Field) (int, error) {
	var column string
	switch field {
	case FieldDeviceID, FieldIPAddress:
		column = string(field)
	default:
		return 0, fmt.Errorf("unsupported distinct field %q", field)
	}

	where, args := buildConditions(q)
	if where == "" {
		where = " WHERE "
	} else {
		where += " AND "
	}
	where += column + " IS NOT NULL AND " + column + " <> ''"

	var n int
	query := "SELECT COUNT(DISTINCT " + column + ") FROM authentication_log" + where
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count distinct %s: %w", column, err)
	}
	return n, nil
}

// UpdateWhere implements Store.
func (s *DuckDBStore) UpdateWhere(ctx context.Context, q Query, p Patch) (int, error) {
	return updateEach(ctx, s, q, p)
}

// Close closes the database if this store opened it.
func (s *DuckDBStore) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

// buildConditions translates a Query into a WHERE clause.
func buildConditions(q Query) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(cond string, vals ...interface{}) {
		conditions = append(conditions, cond)
		args = append(args, vals...)
	}

	if q.owner != nil {
		add("authenticatable_type = ? AND authenticatable_id = ?", q.owner.Type, q.owner.ID)
	}
	if q.successful != nil {
		add("login_successful = ?", *q.successful)
	}
	if q.suspicious {
		add("is_suspicious = true")
	}
	if q.trusted {
		add("is_trusted = true")
	}
	if q.active {
		add("login_successful = true AND logout_at IS NULL")
	}
	if q.deviceID != nil {
		add("COALESCE(device_id, '') = ?", *q.deviceID)
	}
	if q.ip != nil {
		add("COALESCE(ip_address, '') = ?", *q.ip)
	}
	if q.userAgent != nil {
		add("COALESCE(user_agent, '') = ?", *q.userAgent)
	}
	if q.since != nil {
		add("login_at >= ?", *q.since)
	}
	if q.location {
		add("location IS NOT NULL")
	}
	if q.withDevice {
		add("device_id IS NOT NULL AND device_id <> ''")
	}
	if q.excludeID != 0 {
		add("id <> ?", q.excludeID)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord scans one row selected with duckdbColumns.
func scanRecord(row rowScanner) (*models.AuthenticationRecord, error) {
	var (
		rec                                  models.AuthenticationRecord
		ip, ua, deviceID, deviceName, reason sql.NullString
		location                             sql.NullString
		loginAt, logoutAt, lastActivityAt    sql.NullTime
	)

	err := row.Scan(
		&rec.ID, &rec.OwnerType, &rec.OwnerID, &ip, &ua,
		&deviceID, &deviceName, &rec.IsTrusted, &loginAt, &rec.LoginSuccessful, &logoutAt,
		&lastActivityAt, &rec.ClearedByUser, &location, &rec.IsSuspicious, &reason,
	)
	if err != nil {
		return nil, err
	}

	rec.IPAddress = ip.String
	rec.UserAgent = ua.String
	rec.DeviceID = deviceID.String
	rec.DeviceName = deviceName.String
	rec.SuspiciousReason = reason.String
	rec.LoginAt = timeFromNull(loginAt)
	rec.LogoutAt = timeFromNull(logoutAt)
	rec.LastActivityAt = timeFromNull(lastActivityAt)

	if location.Valid && location.String != "" {
		var loc models.Location
		if err := json.Unmarshal([]byte(location.String), &loc); err != nil {
			logging.Debug().Err(err).Int64("id", rec.ID).Msg("Failed to parse location JSON")
		} else {
			rec.Location = &loc
		}
	}
	return &rec, nil
}

func encodeLocation(loc *models.Location) (interface{}, error) {
	if loc == nil {
		return nil, nil
	}
	b, err := json.Marshal(loc)
	if err != nil {
		return nil, fmt.Errorf("marshal location: %w", err)
	}
	return string(b), nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func timeFromNull(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
