// Package memory holds an in-process report repository used when no
// database is configured, and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/bryanwahyu/urlsentry/internal/domain/reports"
)

type ReportRepository struct {
	mu      sync.RWMutex
	reports map[string]domain.Report
}

func NewReportRepository() *ReportRepository {
	return &ReportRepository{reports: make(map[string]domain.Report)}
}

func (r *ReportRepository) Save(_ context.Context, rep *domain.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[rep.ID] = clone(rep)
	return nil
}

func (r *ReportRepository) Get(_ context.Context, id string) (*domain.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reports[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := clone(&rep)
	return &out, nil
}

// List returns newest first; ties break on id for a stable order.
func (r *ReportRepository) List(_ context.Context, limit int) ([]*domain.Report, error) {
	r.mu.RLock()
	out := make([]*domain.Report, 0, len(r.reports))
	for _, rep := range r.reports {
		c := clone(&rep)
		out = append(out, &c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TimestampMillis != out[j].TimestampMillis {
			return out[i].TimestampMillis > out[j].TimestampMillis
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ReportRepository) UpdateTriage(_ context.Context, id string, t domain.Triage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.reports[id]
	if !ok {
		return domain.ErrNotFound
	}
	rep.Triage = &t
	r.reports[id] = rep
	return nil
}

func (r *ReportRepository) UpdateArchive(_ context.Context, id string, archiveURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.reports[id]
	if !ok {
		return domain.ErrNotFound
	}
	rep.ArchiveURL = archiveURL
	r.reports[id] = rep
	return nil
}

func clone(rep *domain.Report) domain.Report {
	c := *rep
	if rep.Triage != nil {
		t := *rep.Triage
		c.Triage = &t
	}
	return c
}
