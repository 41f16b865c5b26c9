package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	_ "modernc.org/sqlite" // SQLite driver
)

// Open initialises a SQLite database at path, creating its directory, and
// restricts the file to its owner.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	handle, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer; the native host is a single process
	handle.SetMaxOpenConns(1)

	if err := handle.Ping(); err != nil {
		handle.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if err := EnsurePerm0600(path); err != nil {
		handle.Close()
		return nil, err
	}
	return handle, nil
}

// EnsurePerm0600 sets the database file permissions to 0600 on Unix systems.
func EnsurePerm0600(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	if err := os.Chmod(path, 0o600); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("chmod database: %w", err)
	}
	return nil
}

const createReportsTable = `
CREATE TABLE IF NOT EXISTS website_reports (
	id                TEXT    PRIMARY KEY,
	url               TEXT    NOT NULL,
	reason            TEXT    NOT NULL,
	tab_id            INTEGER NOT NULL DEFAULT 0,
	reported_at       INTEGER NOT NULL,
	triage_category   TEXT    NULL,
	triage_confidence REAL    NULL,
	triage_summary    TEXT    NULL,
	archive_url       TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_reports_reported_at ON website_reports(reported_at);
`

// Migrate ensures the reports table (and index) exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("database handle is nil")
	}
	if _, err := db.ExecContext(ctx, createReportsTable); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
