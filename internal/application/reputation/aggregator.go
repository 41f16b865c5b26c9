package reputation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/bryanwahyu/urlsentry/internal/domain/reputation"
	"github.com/bryanwahyu/urlsentry/internal/domain/risk"
	"github.com/bryanwahyu/urlsentry/internal/logging"
)

// DefaultTimeout bounds each remote lookup.
const DefaultTimeout = 3 * time.Second

// Score contributions.
const (
	safeBrowsingPoints      = 40
	malwareScanPoints       = 35
	suspiciousEnginePoints  = 5
	suspiciousEngineCap     = 15
	blocklistHighPoints     = 25
	blocklistModeratePoints = 10
)

// Aggregator queries all reputation sources concurrently and folds their
// verdicts into one score. It is safe for concurrent use.
type Aggregator struct {
	SafeBrowsing domain.Backend
	MalwareScan  domain.Backend
	Blocklist    *domain.Blocklist
	Timeout      time.Duration
	Log          *logging.Logger
}

func (a *Aggregator) timeout() time.Duration {
	if a.Timeout > 0 {
		return a.Timeout
	}
	return DefaultTimeout
}

// Check never returns an error: a failing source is recorded as unchecked
// and contributes nothing.
func (a *Aggregator) Check(ctx context.Context, rawURL string) domain.Result {
	var (
		wg         sync.WaitGroup
		sb, mw, bl domain.ServiceResult
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		sb = a.lookup(ctx, domain.ServiceSafeBrowsing, a.SafeBrowsing, rawURL)
	}()
	go func() {
		defer wg.Done()
		mw = a.lookup(ctx, domain.ServiceMalwareScan, a.MalwareScan, rawURL)
	}()
	go func() {
		defer wg.Done()
		bl = a.local(rawURL)
	}()
	wg.Wait()

	return Fold(sb, mw, bl)
}

// lookup runs one remote backend under its own deadline. A backend that
// ignores ctx is abandoned when the deadline passes.
func (a *Aggregator) lookup(ctx context.Context, service string, b domain.Backend, rawURL string) domain.ServiceResult {
	if b == nil {
		return domain.Failed(service, fmt.Errorf("%s not configured", service))
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()

	type outcome struct {
		res domain.ServiceResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		res, err := b.Check(ctx, rawURL)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			a.Log.Warn("reputation lookup failed", "service", service, "err", o.err)
			return domain.Failed(service, o.err)
		}
		o.res.Service = service
		return o.res
	case <-ctx.Done():
		a.Log.Warn("reputation lookup timed out", "service", service, "err", ctx.Err())
		return domain.Failed(service, ctx.Err())
	}
}

func (a *Aggregator) local(rawURL string) (res domain.ServiceResult) {
	defer func() {
		if r := recover(); r != nil {
			res = domain.Failed(domain.ServiceLocalBlocklist, fmt.Errorf("panic: %v", r))
		}
	}()
	if a.Blocklist == nil {
		return domain.ServiceResult{Service: domain.ServiceLocalBlocklist, Checked: true}
	}
	return a.Blocklist.Check(rawURL)
}

// Fold combines the three service verdicts into a Result.
func Fold(sb, mw, bl domain.ServiceResult) domain.Result {
	res := domain.Result{
		Services: map[string]domain.ServiceResult{
			domain.ServiceSafeBrowsing:   sb,
			domain.ServiceMalwareScan:    mw,
			domain.ServiceLocalBlocklist: bl,
		},
		FlaggedServices: []string{},
	}

	score := 0
	if sb.Checked && sb.Flagged {
		score += safeBrowsingPoints
		res.FlaggedServices = append(res.FlaggedServices, domain.ServiceSafeBrowsing)
	}
	if mw.Checked {
		if mw.Flagged {
			score += malwareScanPoints
			res.FlaggedServices = append(res.FlaggedServices, domain.ServiceMalwareScan)
		}
		score += min(suspiciousEngineCap, suspiciousEnginePoints*mw.Suspicious)
	}
	if bl.Checked && bl.Flagged {
		if bl.Severity == risk.SeverityHigh {
			score += blocklistHighPoints
		} else {
			score += blocklistModeratePoints
		}
		res.FlaggedServices = append(res.FlaggedServices, domain.ServiceLocalBlocklist)
	}

	res.Score = risk.Clamp(score)
	res.RiskLevel = risk.LevelFor(res.Score)
	res.IsFlagged = len(res.FlaggedServices) > 0
	res.Summary = summarize(res)
	return res
}

func summarize(r domain.Result) string {
	unchecked := r.Unchecked()
	var b strings.Builder
	if r.IsFlagged {
		fmt.Fprintf(&b, "Flagged by %d service(s): %s", len(r.FlaggedServices), strings.Join(r.FlaggedServices, ", "))
	} else {
		b.WriteString("No reputation service flagged this URL")
	}
	if len(unchecked) > 0 {
		fmt.Fprintf(&b, " (unavailable: %s)", strings.Join(unchecked, ", "))
	}
	return b.String()
}
