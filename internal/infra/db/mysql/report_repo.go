package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/urlsentry/internal/domain/reports"
)

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository { return &ReportRepository{db: db} }

const reportColumns = `id, url, reason, tab_id, reported_at, triage_category, triage_confidence, triage_summary, archive_url`

// Save insert/update report record
func (r *ReportRepository) Save(ctx context.Context, rep *domain.Report) error {
	const q = `
INSERT INTO website_reports (` + reportColumns + `)
VALUES (?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  reason = VALUES(reason),
  triage_category = VALUES(triage_category),
  triage_confidence = VALUES(triage_confidence),
  triage_summary = VALUES(triage_summary),
  archive_url = VALUES(archive_url)`

	reported := time.UnixMilli(rep.TimestampMillis).UTC()
	if rep.TimestampMillis == 0 {
		reported = time.Now().UTC()
	}
	var category, summary sql.NullString
	var confidence sql.NullFloat64
	if rep.Triage != nil {
		category = sql.NullString{String: string(rep.Triage.Category), Valid: true}
		confidence = sql.NullFloat64{Float64: rep.Triage.Confidence, Valid: true}
		summary = sql.NullString{String: rep.Triage.Summary, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, q,
		rep.ID, rep.URL, stringOrDash(rep.Reason), int(rep.TabID), reported,
		category, confidence, summary, rep.ArchiveURL,
	)
	return err
}

func (r *ReportRepository) Get(ctx context.Context, id string) (*domain.Report, error) {
	q := `SELECT ` + reportColumns + ` FROM website_reports WHERE id = ?`
	rep, err := scanReport(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rep, err
}

func (r *ReportRepository) List(ctx context.Context, limit int) ([]*domain.Report, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + reportColumns + ` FROM website_reports ORDER BY reported_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *ReportRepository) UpdateTriage(ctx context.Context, id string, t domain.Triage) error {
	const q = `UPDATE website_reports SET triage_category = ?, triage_confidence = ?, triage_summary = ? WHERE id = ?`
	return r.exec(ctx, q, string(t.Category), t.Confidence, t.Summary, id)
}

func (r *ReportRepository) UpdateArchive(ctx context.Context, id string, archiveURL string) error {
	const q = `UPDATE website_reports SET archive_url = ? WHERE id = ?`
	return r.exec(ctx, q, archiveURL, id)
}

func (r *ReportRepository) exec(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
