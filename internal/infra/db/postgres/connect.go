package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

const createReportsTable = `
CREATE TABLE IF NOT EXISTS website_reports (
  id                UUID        PRIMARY KEY,
  url               TEXT        NOT NULL,
  reason            TEXT        NOT NULL,
  tab_id            INTEGER     NOT NULL DEFAULT 0,
  reported_at       TIMESTAMPTZ NOT NULL,
  triage_category   TEXT        NULL,
  triage_confidence DOUBLE PRECISION NULL,
  triage_summary    TEXT        NULL,
  archive_url       TEXT        NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_reports_reported_at ON website_reports (reported_at DESC);`

// Migrate creates the reports table when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createReportsTable); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
