// Package store remembers the last status seen for every (page URL, size) pair so
// that restock alerts are only sent when a size turns available.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
	"restock-watcher/internal/types"
)

// Record is one remembered status
type Record struct {
	URL       string        `json:"url"`
	Size      types.SizeKey `json:"size"`
	Status    types.Status  `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// StatusStore keeps the last known status per (target URL, size)
type StatusStore interface {
	Get(ctx context.Context, url string, size types.SizeKey) (types.Status, bool, error)
	Put(ctx context.Context, url string, size types.SizeKey, status types.Status) error
	List(ctx context.Context) ([]Record, error)
	Close() error
}

// Open picks a store from dsn:
//
//	""                     no store, every cycle notifies again
//	"memory"               process-local map
//	"libsql://…", "http…"  remote libsql database
//	anything else          sqlite database file
func Open(ctx context.Context, dsn string) (StatusStore, error) {
	switch {
	case dsn == "":
		return nil, nil
	case dsn == "memory" || dsn == ":memory:":
		return NewMemoryStore(), nil
	case hasAnyPrefix(dsn, "libsql://", "https://", "http://", "wss://", "ws://"):
		db, err := sql.Open("libsql", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open libsql store: %w", err)
		}
		return NewSQLStore(ctx, db)
	default:
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store %s: %w", dsn, err)
		}
		// a single connection avoids SQLITE_BUSY between writers of the same file
		db.SetMaxOpenConns(1)
		return NewSQLStore(ctx, db)
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
