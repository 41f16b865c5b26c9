package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
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
  id                CHAR(36)      NOT NULL PRIMARY KEY,
  url               VARCHAR(2048) NOT NULL,
  reason            TEXT          NOT NULL,
  tab_id            INT           NOT NULL DEFAULT 0,
  reported_at       DATETIME(3)   NOT NULL,
  triage_category   VARCHAR(32)   NULL,
  triage_confidence DOUBLE        NULL,
  triage_summary    TEXT          NULL,
  archive_url       VARCHAR(2048) NOT NULL DEFAULT '',
  KEY idx_reports_reported_at (reported_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// Migrate creates the reports table when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createReportsTable); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
