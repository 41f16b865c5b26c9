package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/urlsentry/internal/application"
	"github.com/bryanwahyu/urlsentry/internal/domain/analysis"
	domain "github.com/bryanwahyu/urlsentry/internal/domain/reports"
	"github.com/bryanwahyu/urlsentry/internal/logging"
)

// DefaultListLimit caps GET_REPORTS.
const DefaultListLimit = 100

// enrichTimeout bounds archive upload plus triage of one report.
const enrichTimeout = 30 * time.Second

// Service implements the report use-cases. Archive and Triager are optional.
type Service struct {
	Repo    domain.Repository
	Archive domain.Archive
	Triager domain.Triager
	Clock   application.Clock
	Log     *logging.Logger
	// Async moves archiving and triage off the request path.
	Async bool
}

// Submit validates and persists a report, then archives and triages it.
// Enrichment failures are logged and never fail the submission.
func (s *Service) Submit(ctx context.Context, sub domain.Submission) (*domain.Report, error) {
	u := strings.TrimSpace(sub.URL)
	if u == "" {
		return nil, fmt.Errorf("%w: url is required", domain.ErrInvalidReport)
	}
	r := &domain.Report{
		ID:              uuid.New().String(),
		URL:             u,
		Reason:          strings.TrimSpace(sub.Reason),
		TabID:           sub.TabID,
		TimestampMillis: s.Clock.Now().UnixMilli(),
	}
	if err := s.Repo.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	s.Log.Info("report saved", "id", r.ID, "url", r.URL)

	if s.Archive == nil && s.Triager == nil {
		return r, nil
	}
	if s.Async {
		cp := *r
		go s.enrich(context.Background(), &cp, sub.Evidence)
		return r, nil
	}
	s.enrich(ctx, r, sub.Evidence)
	return r, nil
}

func (s *Service) enrich(ctx context.Context, r *domain.Report, evidence *analysis.Result) {
	ctx, cancel := context.WithTimeout(ctx, enrichTimeout)
	defer cancel()

	if s.Archive != nil {
		if url, err := s.archive(ctx, r, evidence); err != nil {
			s.Log.Warn("report archive failed", "id", r.ID, "err", err)
		} else {
			r.ArchiveURL = url
			if err := s.Repo.UpdateArchive(ctx, r.ID, url); err != nil {
				s.Log.Warn("report archive update failed", "id", r.ID, "err", err)
			}
		}
	}

	if s.Triager != nil {
		t, err := s.Triager.Triage(ctx, r, evidence)
		if err != nil {
			s.Log.Warn("report triage failed", "id", r.ID, "err", err)
			return
		}
		r.Triage = &t
		if err := s.Repo.UpdateTriage(ctx, r.ID, t); err != nil {
			s.Log.Warn("report triage update failed", "id", r.ID, "err", err)
		}
	}
}

type evidenceObject struct {
	Report   *domain.Report   `json:"report"`
	Analysis *analysis.Result `json:"analysis,omitempty"`
}

func (s *Service) archive(ctx context.Context, r *domain.Report, evidence *analysis.Result) (string, error) {
	data, err := json.Marshal(evidenceObject{Report: r, Analysis: evidence})
	if err != nil {
		return "", err
	}
	day := time.UnixMilli(r.TimestampMillis).UTC().Format("2006/01/02")
	return s.Archive.Put(ctx, fmt.Sprintf("reports/%s/%s.json", day, r.ID), data, "application/json")
}

// List returns the newest reports; limit <= 0 uses DefaultListLimit.
func (s *Service) List(ctx context.Context, limit int) ([]*domain.Report, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	out, err := s.Repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Report, error) {
	return s.Repo.Get(ctx, id)
}
