package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bryanwahyu/urlsentry/internal/domain/analysis"
	"github.com/bryanwahyu/urlsentry/internal/domain/reports"
	"github.com/bryanwahyu/urlsentry/internal/logging"
)

var (
	// ErrSuperseded is returned when a newer navigation in the same tab
	// replaced the analysis before it could be stored.
	ErrSuperseded = errors.New("analysis superseded by a newer navigation")
	// ErrUnknownTab is returned by RESCAN for a tab with no known URL.
	ErrUnknownTab = errors.New("no url known for tab")
)

const unknownMessage = "Unknown message type"

// Analyzer is the fusion engine as seen by the coordinator.
type Analyzer interface {
	Analyze(ctx context.Context, rawURL string) *analysis.Result
}

// Reporter is the report service as seen by the coordinator.
type Reporter interface {
	Submit(ctx context.Context, sub reports.Submission) (*reports.Report, error)
	List(ctx context.Context, limit int) ([]*reports.Report, error)
}

// Coordinator owns the session store. It turns navigation events into
// stored, badged analyses and answers extension messages. The zero value
// plus Engine and Store is usable; Badges, Warnings and Reports are optional.
type Coordinator struct {
	Engine   Analyzer
	Store    analysis.StateStore
	Badges   analysis.BadgeSink
	Warnings analysis.WarningSender
	Reports  Reporter
	Log      *logging.Logger
	// OnResult observes every stored result (metrics).
	OnResult func(*analysis.Result)

	mu   sync.Mutex
	gen  uint64
	tabs map[analysis.TabID]*tabState
}

type tabState struct {
	gen    uint64
	url    string
	cancel context.CancelFunc
}

// OnNavigationCompleted analyzes a top-level navigation. Sub-frame events
// return (nil, nil).
func (c *Coordinator) OnNavigationCompleted(ctx context.Context, ev analysis.NavigationEvent) (*analysis.Result, error) {
	if !ev.TopLevel() {
		return nil, nil
	}
	return c.process(ctx, ev.TabID, ev.URL, true)
}

// OnTabRemoved cancels in-flight work for the tab and evicts its result.
func (c *Coordinator) OnTabRemoved(ctx context.Context, tab analysis.TabID) error {
	c.mu.Lock()
	if st, ok := c.tabs[tab]; ok {
		if st.cancel != nil {
			st.cancel()
		}
		delete(c.tabs, tab)
	}
	c.gen++
	c.mu.Unlock()

	if err := c.Store.Evict(ctx, tab); err != nil {
		return fmt.Errorf("evict tab %d: %w", tab, err)
	}
	return nil
}

// begin registers a new analysis for tab, cancelling the previous one.
func (c *Coordinator) begin(ctx context.Context, tab analysis.TabID, rawURL string) (context.Context, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tabs == nil {
		c.tabs = make(map[analysis.TabID]*tabState)
	}
	if st, ok := c.tabs[tab]; ok && st.cancel != nil {
		st.cancel()
	}
	c.gen++
	runCtx, cancel := context.WithCancel(ctx)
	c.tabs[tab] = &tabState{gen: c.gen, url: rawURL, cancel: cancel}
	return runCtx, c.gen
}

// commit stores r and paints its badge when gen is still the tab's latest
// analysis. Both happen under mu so badges land in the same order as stores.
func (c *Coordinator) commit(ctx context.Context, tab analysis.TabID, gen uint64, r *analysis.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.tabs[tab]
	if !ok || st.gen != gen {
		return ErrSuperseded
	}
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	if err := c.Store.Put(ctx, tab, r); err != nil {
		return fmt.Errorf("store result for tab %d: %w", tab, err)
	}
	if c.Badges != nil {
		if err := c.Badges.SetBadge(ctx, tab, BadgeFor(r.Status)); err != nil {
			c.Log.Warn("badge update failed", "tab", tab, "err", err)
		}
	}
	return nil
}

func (c *Coordinator) latest(tab analysis.TabID, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.tabs[tab]
	return ok && st.gen == gen
}

func (c *Coordinator) process(ctx context.Context, tab analysis.TabID, rawURL string, warn bool) (*analysis.Result, error) {
	runCtx, gen := c.begin(ctx, tab, rawURL)
	r := c.Engine.Analyze(runCtx, rawURL)

	if err := c.commit(ctx, tab, gen, r); err != nil {
		if errors.Is(err, ErrSuperseded) {
			c.Log.Debug("dropping superseded analysis", "tab", tab, "url", rawURL)
		} else {
			c.Log.Error("store failed", "tab", tab, "err", err)
		}
		return nil, err
	}
	c.Log.Info("analysis stored", "tab", tab, "url", rawURL, "status", r.Status, "score", r.CombinedScore)
	if c.OnResult != nil {
		c.OnResult(r)
	}

	if warn && r.Status.Warns() && c.Warnings != nil && c.latest(tab, gen) {
		if err := c.Warnings.SendWarning(ctx, tab, r); err != nil {
			c.Log.Debug("warning not delivered", "tab", tab, "err", err)
		}
	}
	return r, nil
}

// currentURL is the URL of the tab's latest navigation, falling back to the
// stored result.
func (c *Coordinator) currentURL(ctx context.Context, tab analysis.TabID) (string, error) {
	c.mu.Lock()
	st, ok := c.tabs[tab]
	c.mu.Unlock()
	if ok && st.url != "" {
		return st.url, nil
	}
	r, found, err := c.Store.Get(ctx, tab)
	if err != nil {
		return "", err
	}
	if !found || r.URL == "" {
		return "", ErrUnknownTab
	}
	return r.URL, nil
}

// Handle dispatches one message and always produces a reply.
func (c *Coordinator) Handle(ctx context.Context, m Message) Reply {
	switch m.Type {
	case GetAnalysis:
		r, found, err := c.Store.Get(ctx, m.TabID)
		if err != nil {
			c.Log.Error("get analysis failed", "tab", m.TabID, "err", err)
			return ErrorReply{Error: err.Error()}
		}
		if !found {
			return PendingReply{Status: "pending", Message: "Analysis in progress..."}
		}
		return r

	case Rescan:
		url := m.URL
		if url == "" {
			u, err := c.currentURL(ctx, m.TabID)
			if err != nil {
				return ErrorReply{Error: err.Error()}
			}
			url = u
		}
		r, err := c.process(ctx, m.TabID, url, false)
		if err != nil {
			return ErrorReply{Error: err.Error()}
		}
		return r

	case ReportWebsite:
		if c.Reports == nil {
			return ReportReply{Success: false, Error: "reports are not enabled"}
		}
		sub := reports.Submission{URL: m.URL, Reason: m.Reason, TabID: m.TabID}
		if m.TabID != 0 {
			if r, found, err := c.Store.Get(ctx, m.TabID); err == nil && found && r.URL == m.URL {
				sub.Evidence = r
			}
		}
		rep, err := c.Reports.Submit(ctx, sub)
		if err != nil {
			c.Log.Warn("report failed", "url", m.URL, "err", err)
			return ReportReply{Success: false, Error: err.Error()}
		}
		return ReportReply{Success: true, Report: rep}

	case GetReports:
		if c.Reports == nil {
			return ReportsReply{Reports: []*reports.Report{}}
		}
		list, err := c.Reports.List(ctx, m.Limit)
		if err != nil {
			return ErrorReply{Error: err.Error()}
		}
		if list == nil {
			list = []*reports.Report{}
		}
		return ReportsReply{Reports: list}

	case ProceedAnyway:
		c.Log.Info("user proceeded past warning", "tab", m.TabID, "url", m.URL)
		return AckReply{Success: true}
	}
	return ErrorReply{Error: unknownMessage}
}
