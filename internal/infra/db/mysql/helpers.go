package mysql

import (
	"database/sql"
	"strings"
	"time"

	domain "github.com/bryanwahyu/urlsentry/internal/domain/reports"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
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
