package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	domain "github.com/bryanwahyu/urlsentry/internal/domain/reports"
)

type ReportRepository struct{ db *sql.DB }

func NewReportRepository(db *sql.DB) *ReportRepository { return &ReportRepository{db: db} }

const reportColumns = `id, url, reason, tab_id, reported_at, triage_category, triage_confidence, triage_summary, archive_url`

// Save insert/update report record
func (r *ReportRepository) Save(ctx context.Context, rep *domain.Report) error {
	const q = `
INSERT INTO website_reports (` + reportColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
 reason = EXCLUDED.reason,
 triage_category = EXCLUDED.triage_category,
 triage_confidence = EXCLUDED.triage_confidence,
 triage_summary = EXCLUDED.triage_summary,
 archive_url = EXCLUDED.archive_url;`

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
	return mapErr(err)
}

func (r *ReportRepository) Get(ctx context.Context, id string) (*domain.Report, error) {
	q := `SELECT ` + reportColumns + ` FROM website_reports WHERE id = $1`
	rep, err := scanReport(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rep, mapErr(err)
}

func (r *ReportRepository) List(ctx context.Context, limit int) ([]*domain.Report, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + reportColumns + ` FROM website_reports ORDER BY reported_at DESC, id DESC LIMIT $1`
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
	const q = `UPDATE website_reports SET triage_category = $1, triage_confidence = $2, triage_summary = $3 WHERE id = $4`
	return r.exec(ctx, q, string(t.Category), t.Confidence, t.Summary, id)
}

func (r *ReportRepository) UpdateArchive(ctx context.Context, id string, archiveURL string) error {
	const q = `UPDATE website_reports SET archive_url = $1 WHERE id = $2`
	return r.exec(ctx, q, archiveURL, id)
}

func (r *ReportRepository) exec(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return mapErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// mapErr turns an invalid uuid (22P02) into ErrNotFound.
func mapErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "22P02" {
		return domain.ErrNotFound
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*domain.Report, error) {
	var (
		r          domain.Report
		reportedAt time.Time
		category   sql.NullString
		confidence sql.NullFloat64
		summary    sql.NullString
	)
	if err := row.Scan(&r.ID, &r.URL, &r.Reason, &r.TabID, &reportedAt,
		&category, &confidence, &summary, &r.ArchiveURL); err != nil {
		return nil, err
	}
	r.TimestampMillis = reportedAt.UnixMilli()
	if category.Valid {
		r.Triage = &domain.Triage{
			Category:   domain.Category(category.String),
			Confidence: confidence.Float64,
			Summary:    summary.String,
		}
	}
	return &r, nil
}
