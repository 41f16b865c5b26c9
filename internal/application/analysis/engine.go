package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"

	"github.com/bryanwahyu/urlsentry/internal/application"
	domain "github.com/bryanwahyu/urlsentry/internal/domain/analysis"
	"github.com/bryanwahyu/urlsentry/internal/domain/features"
	"github.com/bryanwahyu/urlsentry/internal/domain/heuristics"
	"github.com/bryanwahyu/urlsentry/internal/domain/reputation"
	"github.com/bryanwahyu/urlsentry/internal/domain/risk"
	"github.com/bryanwahyu/urlsentry/internal/logging"
)

// Fusion weights and status thresholds.
const (
	featureWeight    = 0.3
	heuristicWeight  = 0.3
	reputationWeight = 0.4

	maliciousThreshold  = 70
	suspiciousThreshold = 40
	cautionThreshold    = 20

	// feature breakdown entries become threats from this score on
	featureThreatThreshold = 40
)

// ReputationChecker is the reputation aggregator as seen by the engine.
type ReputationChecker interface {
	Check(ctx context.Context, rawURL string) reputation.Result
}

// Engine fuses the three analyzers into one verdict per URL. Analyze never
// returns an error; failures become results with status "error".
type Engine struct {
	Features   *features.Scorer
	Heuristics *heuristics.Engine
	Reputation ReputationChecker
	Clock      application.Clock
	Log        *logging.Logger
}

// IsWebURL reports whether rawURL uses a scheme the engine analyzes.
func IsWebURL(u *url.URL) bool {
	s := strings.ToLower(u.Scheme)
	return s == "http" || s == "https"
}

// Analyze runs the full pipeline for rawURL.
func (e *Engine) Analyze(ctx context.Context, rawURL string) (res *domain.Result) {
	now := e.Clock.Now().UnixMilli()

	defer func() {
		if r := recover(); r != nil {
			e.Log.Error("analysis panicked", "url", rawURL, "panic", r)
			res = errored(rawURL, now, fmt.Errorf("analysis failed: %v", r))
		}
	}()

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return errored(rawURL, now, fmt.Errorf("%w: %v", features.ErrInvalidURL, err))
	}
	if u.Scheme == "" {
		return errored(rawURL, now, fmt.Errorf("%w: missing scheme", features.ErrInvalidURL))
	}
	if !IsWebURL(u) {
		return skipped(rawURL, now)
	}
	if u.Hostname() == "" {
		return errored(rawURL, now, fmt.Errorf("%w: missing host", features.ErrInvalidURL))
	}

	fr, hr, rr, err := e.run(ctx, rawURL)
	if err != nil {
		e.Log.Error("analysis failed", "url", rawURL, "err", err)
		return errored(rawURL, now, err)
	}
	return Fuse(rawURL, now, fr, hr, rr)
}

// run executes the analyzers concurrently and waits for all of them.
func (e *Engine) run(ctx context.Context, rawURL string) (features.Result, heuristics.Result, reputation.Result, error) {
	var (
		wg   sync.WaitGroup
		fr   features.Result
		hr   heuristics.Result
		rr   reputation.Result
		errs = make([]error, 3)
	)
	guard := func(i int, fn func()) {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				errs[i] = fmt.Errorf("analyzer panic: %v", r)
			}
		}()
		fn()
	}

	wg.Add(3)
	go guard(0, func() { fr = e.Features.Score(rawURL) })
	go guard(1, func() { hr = e.Heuristics.Run(rawURL) })
	go guard(2, func() { rr = e.Reputation.Check(ctx, rawURL) })
	wg.Wait()

	return fr, hr, rr, errors.Join(errs...)
}

// CombinedScore weights the three sub-scores and rounds to the nearest integer.
func CombinedScore(featureScore, heuristicScore, reputationScore int) int {
	v := featureWeight*float64(featureScore) +
		heuristicWeight*float64(heuristicScore) +
		reputationWeight*float64(reputationScore)
	return risk.Clamp(int(math.Round(v)))
}

// StatusFor applies the status precedence: reputation flag or >=70 is
// malicious, then >=40 suspicious, >=20 caution, else safe.
func StatusFor(combined int, flagged bool) domain.Status {
	switch {
	case combined >= maliciousThreshold || flagged:
		return domain.StatusMalicious
	case combined >= suspiciousThreshold:
		return domain.StatusSuspicious
	case combined >= cautionThreshold:
		return domain.StatusCaution
	default:
		return domain.StatusSafe
	}
}

// Fuse builds the scored result from the three analyzer outputs.
func Fuse(rawURL string, timestamp int64, fr features.Result, hr heuristics.Result, rr reputation.Result) *domain.Result {
	combined := CombinedScore(fr.Score, hr.Score, rr.Score)
	res := &domain.Result{
		URL:             rawURL,
		TimestampMillis: timestamp,
		Status:          StatusFor(combined, rr.IsFlagged),
		CombinedScore:   combined,
		FeatureScore:    fr.Score,
		HeuristicScore:  hr.Score,
		ReputationScore: rr.Score,
		Features:        &fr,
		Heuristics:      &hr,
		Reputation:      &rr,
	}
	res.Threats = threats(fr, hr, rr)
	res.Recommendations = recommendations(res.Status, fr, hr, rr)
	return res
}

func threats(fr features.Result, hr heuristics.Result, rr reputation.Result) []domain.ThreatEntry {
	out := []domain.ThreatEntry{}

	if fr.Score >= featureThreatThreshold {
		sev := risk.SeverityMedium
		if fr.Score >= maliciousThreshold {
			sev = risk.SeverityHigh
		}
		for _, c := range fr.Breakdown {
			out = append(out, domain.ThreatEntry{Source: domain.SourceML, Type: c.Key, Detail: c.Detail, Severity: sev})
		}
	}

	for _, c := range hr.Failed() {
		detail := c.Message
		if len(c.Details) > 0 {
			detail += ": " + strings.Join(c.Details, "; ")
		}
		out = append(out, domain.ThreatEntry{Source: domain.SourceHeuristic, Type: c.Name, Detail: detail, Severity: c.Severity})
	}

	for _, name := range rr.FlaggedServices {
		out = append(out, domain.ThreatEntry{
			Source:   domain.SourceReputation,
			Type:     name,
			Detail:   describeService(rr.Services[name]),
			Severity: risk.SeverityHigh,
		})
	}
	return out
}

func describeService(s reputation.ServiceResult) string {
	switch s.Service {
	case reputation.ServiceSafeBrowsing:
		if len(s.ThreatTypes) > 0 {
			return "Listed by safe browsing as " + strings.Join(s.ThreatTypes, ", ")
		}
		return "Listed by safe browsing"
	case reputation.ServiceMalwareScan:
		return fmt.Sprintf("%d of %d scan engines report this URL as malicious", s.Malicious, s.Engines)
	case reputation.ServiceLocalBlocklist:
		return fmt.Sprintf("Matched local blocklist rule %s (%s)", s.MatchedRule, s.Severity)
	}
	return "Flagged by " + s.Service
}

func skipped(rawURL string, timestamp int64) *domain.Result {
	return &domain.Result{
		URL:             rawURL,
		TimestampMillis: timestamp,
		Status:          domain.StatusSafe,
		Skipped:         true,
		Threats:         []domain.ThreatEntry{},
		Recommendations: []string{"Internal browser page, not analyzed"},
	}
}

func errored(rawURL string, timestamp int64, err error) *domain.Result {
	return &domain.Result{
		URL:             rawURL,
		TimestampMillis: timestamp,
		Status:          domain.StatusError,
		Error:           err.Error(),
		Threats:         []domain.ThreatEntry{},
		Recommendations: []string{"This URL could not be analyzed. Proceed with caution."},
	}
}
