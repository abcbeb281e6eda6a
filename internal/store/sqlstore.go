package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// SQLStore is the reference relational Store implementation, backed by
// database/sql and a postgres driver (github.com/lib/pq). Schema:
//
//	CREATE TABLE plugin_records (
//	    plugin_id            text PRIMARY KEY,
//	    version              text NOT NULL,
//	    name                 text NOT NULL,
//	    description          text NOT NULL DEFAULT '',
//	    status               text NOT NULL,
//	    manifest_json        jsonb NOT NULL,
//	    granted_capabilities text[] NOT NULL DEFAULT '{}',
//	    config               jsonb,
//	    created_at           timestamptz NOT NULL DEFAULT now(),
//	    updated_at           timestamptz NOT NULL DEFAULT now()
//	);
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an already-opened *sql.DB. The caller owns the
// connection's lifecycle (open/close).
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Insert(ctx context.Context, record Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plugin_records
			(plugin_id, version, name, description, status, manifest_json, granted_capabilities, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		record.PluginID, record.Version, record.Name, record.Description, string(record.Status),
		record.ManifestJSON, pq.Array(record.GrantedCapabilities), nullableBytes(record.Config),
		record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("inserting plugin record %q: %w", record.PluginID, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, pluginID string) (Record, error) {
	return s.scanOne(ctx, `
		SELECT plugin_id, version, name, description, status, manifest_json, granted_capabilities, config, created_at, updated_at
		FROM plugin_records WHERE plugin_id = $1
	`, pluginID)
}

func (s *SQLStore) GetByVersion(ctx context.Context, pluginID, version string) (Record, error) {
	return s.scanOne(ctx, `
		SELECT plugin_id, version, name, description, status, manifest_json, granted_capabilities, config, created_at, updated_at
		FROM plugin_records WHERE plugin_id = $1 AND version = $2
	`, pluginID, version)
}

func (s *SQLStore) scanOne(ctx context.Context, query string, args ...any) (Record, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("scanning plugin record: %w", err)
	}
	return rec, nil
}

func (s *SQLStore) ListEnabled(ctx context.Context) ([]Record, error) {
	return s.listWhere(ctx, "status = $1", string(StatusEnabled))
}

func (s *SQLStore) ListAll(ctx context.Context) ([]Record, error) {
	return s.listWhere(ctx, "true")
}

func (s *SQLStore) listWhere(ctx context.Context, where string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT plugin_id, version, name, description, status, manifest_json, granted_capabilities, config, created_at, updated_at
		FROM plugin_records WHERE %s ORDER BY plugin_id
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("listing plugin records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning plugin record row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLStore) Update(ctx context.Context, record Record) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE plugin_records SET
			version = $2, name = $3, description = $4, status = $5,
			manifest_json = $6, granted_capabilities = $7, config = $8, updated_at = $9
		WHERE plugin_id = $1
	`,
		record.PluginID, record.Version, record.Name, record.Description, string(record.Status),
		record.ManifestJSON, pq.Array(record.GrantedCapabilities), nullableBytes(record.Config), record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating plugin record %q: %w", record.PluginID, err)
	}
	return requireRowsAffected(result, record.PluginID)
}

func (s *SQLStore) Delete(ctx context.Context, pluginID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM plugin_records WHERE plugin_id = $1`, pluginID)
	if err != nil {
		return fmt.Errorf("deleting plugin record %q: %w", pluginID, err)
	}
	return requireRowsAffected(result, pluginID)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var status string
	var config []byte
	var caps pq.StringArray
	err := row.Scan(
		&rec.PluginID, &rec.Version, &rec.Name, &rec.Description, &status,
		&rec.ManifestJSON, &caps, &config, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	rec.GrantedCapabilities = []string(caps)
	rec.Config = config
	return rec, nil
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func requireRowsAffected(result sql.Result, pluginID string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected for %q: %w", pluginID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "duplicate key")
}
