package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/urlsentry/internal/domain/reports"
)

// ReportRepository stores reports in the native host's local database.
// reported_at holds unix milliseconds.
type ReportRepository struct{ db *sql.DB }

func NewReportRepository(db *sql.DB) *ReportRepository { return &ReportRepository{db: db} }

const reportColumns = `id, url, reason, tab_id, reported_at, triage_category, triage_confidence, triage_summary, archive_url`

func (r *ReportRepository) Save(ctx context.Context, rep *domain.Report) error {
	const q = `
INSERT INTO website_reports (` + reportColumns + `)
VALUES (?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
	reason = excluded.reason,
	triage_category = excluded.triage_category,
	triage_confidence = excluded.triage_confidence,
	triage_summary = excluded.triage_summary,
	archive_url = excluded.archive_url`

	reported := rep.TimestampMillis
	if reported == 0 {
		reported = time.Now().UnixMilli()
	}
	var category, summary sql.NullString
	var confidence sql.NullFloat64
	if rep.Triage != nil {
		category = sql.NullString{String: string(rep.Triage.Category), Valid: true}
		confidence = sql.NullFloat64{Float64: rep.Triage.Confidence, Valid: true}
		summary = sql.NullString{String: rep.Triage.Summary, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q,
		rep.ID, rep.URL, rep.Reason, int(rep.TabID), reported,
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*domain.Report, error) {
	var (
		r          domain.Report
		category   sql.NullString
		confidence sql.NullFloat64
		summary    sql.NullString
	)
	if err := row.Scan(&r.ID, &r.URL, &r.Reason, &r.TabID, &r.TimestampMillis,
		&category, &confidence, &summary, &r.ArchiveURL); err != nil {
		return nil, err
	}
	if category.Valid {
		r.Triage = &domain.Triage{
			Category:   domain.Category(category.String),
			Confidence: confidence.Float64,
			Summary:    summary.String,
		}
	}
	return &r, nil
}
