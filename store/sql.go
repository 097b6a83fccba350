package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"restock-watcher/internal/types"
)

const schema = `CREATE TABLE IF NOT EXISTS size_status (
	url        TEXT    NOT NULL,
	size       TEXT    NOT NULL,
	status     TEXT    NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (url, size)
)`

// SQLStore persists statuses in a sqlite or libsql database so that
// separate invocations from an external scheduler share them.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates the schema if needed
func NewSQLStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Get returns the last status recorded for size on url and whether one exists
func (s *SQLStore) Get(ctx context.Context, url string, size types.SizeKey) (types.Status, bool, error) {
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM size_status WHERE url = ? AND size = ?`, url, string(size),
	).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return types.StatusAbsent, false, nil
	}
	if err != nil {
		return types.StatusAbsent, false, fmt.Errorf("failed to read status: %w", err)
	}

	status, ok := types.ParseStatus(state)
	if !ok {
		return types.StatusAbsent, false, fmt.Errorf("unknown stored status %q", state)
	}
	return status, true, nil
}

// Put records status as the latest status of size on url
func (s *SQLStore) Put(ctx context.Context, url string, size types.SizeKey, status types.Status) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO size_status (url, size, status, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (url, size) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		url, string(size), status.String(), time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return nil
}

// List returns the records ordered by URL then size
func (s *SQLStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url, size, status, updated_at FROM size_status ORDER BY url, size`)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r       Record
			size    string
			state   string
			updated int64
		)
		if err := rows.Scan(&r.URL, &size, &state, &updated); err != nil {
			return nil, err
		}
		r.Size = types.SizeKey(size)
		r.Status, _ = types.ParseStatus(state)
		r.UpdatedAt = time.Unix(updated, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
