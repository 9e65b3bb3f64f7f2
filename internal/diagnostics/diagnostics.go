// Package diagnostics persists an audit trail of administrative events
// (reloads, reload-ssl, log level changes) to a small sqlite database,
// grounded on the teacher's internal/localdb.DB — restructured from its
// generic JSON key/value store into a single append-only events table.
// This is purely a supplementary audit trail: spec.md's routing and
// registry state must remain filesystem-derived, never sqlite-backed
// (spec.md §1/§3), so this package is never consulted by C1, C5, or C7
// — it is written to by the management endpoint (C8), opened and closed
// by C9, and read back through Recent.
package diagnostics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Event is one recorded administrative action.
type Event struct {
	ID        int64
	Kind      string // "reload", "reload_ssl", "log_level"
	Detail    string
	Timestamp time.Time
}

// DB wraps the sqlite-backed event log.
type DB struct{ sqlDB *sql.DB }

// Open creates (if needed) and opens the diagnostics database under
// stateDir.
func Open(stateDir string) (*DB, error) {
	if stateDir == "" {
		stateDir = "."
	}
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, fmt.Errorf("diagnostics: create state dir: %w", err)
	}
	path := filepath.Join(stateDir, "duwop-diagnostics.sqlite")
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: open %s: %w", path, err)
	}
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("diagnostics: set journal mode: %w", err)
	}
	schema := `CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		detail TEXT NOT NULL,
		ts INTEGER NOT NULL
	)`
	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("diagnostics: init schema: %w", err)
	}
	return &DB{sqlDB: sqlDB}, nil
}

func (d *DB) Close() error { return d.sqlDB.Close() }

// Record appends one event with the current time.
func (d *DB) Record(kind, detail string) error {
	_, err := d.sqlDB.Exec(
		`INSERT INTO events(kind, detail, ts) VALUES (?, ?, ?)`,
		kind, detail, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("diagnostics: record %s: %w", kind, err)
	}
	return nil
}

// Recent returns the most recent n events, newest first.
func (d *DB) Recent(n int) ([]Event, error) {
	rows, err := d.sqlDB.Query(
		`SELECT id, kind, detail, ts FROM events ORDER BY id DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: query recent: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var ts int64
		if err := rows.Scan(&e.ID, &e.Kind, &e.Detail, &ts); err != nil {
			return nil, fmt.Errorf("diagnostics: scan event: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("diagnostics: iterate events: %w", err)
	}
	return out, nil
}
