package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/bryanwahyu/urlsentry/internal/domain/ai"
	"github.com/bryanwahyu/urlsentry/internal/domain/analysis"
	"github.com/bryanwahyu/urlsentry/internal/domain/reports"
)

// Service turns model replies into report triage. It implements
// reports.Triager.
type Service struct {
	client ai.Client
}

func NewService(client ai.Client) *Service {
	return &Service{client: client}
}

func (s *Service) Triage(ctx context.Context, r *reports.Report, evidence *analysis.Result) (reports.Triage, error) {
	req := ai.TriageRequest{URL: r.URL, Reason: r.Reason}
	if evidence != nil {
		req.Status = string(evidence.Status)
		req.CombinedScore = evidence.CombinedScore
		for _, t := range evidence.Threats {
			req.Threats = append(req.Threats, fmt.Sprintf("%s/%s (%s): %s", t.Source, t.Type, t.Severity, t.Detail))
		}
	}

	reply, err := s.client.Triage(ctx, req)
	if err != nil {
		return reports.Triage{}, err
	}
	out, err := ai.ParseReply(reply)
	if err != nil {
		return reports.Triage{}, err
	}
	return reports.Triage{
		Category:   normalizeCategory(out.Category),
		Confidence: clamp01(out.Confidence),
		Summary:    strings.TrimSpace(out.Summary),
	}, nil
}

func normalizeCategory(c string) reports.Category {
	switch reports.Category(strings.ToLower(strings.TrimSpace(c))) {
	case reports.CategoryPhishing:
		return reports.CategoryPhishing
	case reports.CategoryMalware:
		return reports.CategoryMalware
	case reports.CategoryScam:
		return reports.CategoryScam
	}
	return reports.CategoryOther
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
