package reports

import (
	"context"

	"github.com/bryanwahyu/urlsentry/internal/domain/analysis"
)

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, r *Report) error
	Get(ctx context.Context, id string) (*Report, error)
	// List returns the newest reports first.
	List(ctx context.Context, limit int) ([]*Report, error)
	UpdateTriage(ctx context.Context, id string, t Triage) error
	UpdateArchive(ctx context.Context, id string, archiveURL string) error
}

// Archive port: stores report evidence objects, returns their URL
type Archive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Triager port: classifies a report
type Triager interface {
	Triage(ctx context.Context, r *Report, evidence *analysis.Result) (Triage, error)
}
