package analysis

import (
	"github.com/bryanwahyu/urlsentry/internal/domain/features"
	"github.com/bryanwahyu/urlsentry/internal/domain/heuristics"
	"github.com/bryanwahyu/urlsentry/internal/domain/reputation"
	"github.com/bryanwahyu/urlsentry/internal/domain/risk"
)

// TabID identifies a browser tab
type TabID int

// Status enum
type Status string

const (
	StatusSafe       Status = "safe"
	StatusCaution    Status = "caution"
	StatusSuspicious Status = "suspicious"
	StatusMalicious  Status = "malicious"
	StatusError      Status = "error"
)

// Valid reports whether s is one of the five defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusSafe, StatusCaution, StatusSuspicious, StatusMalicious, StatusError:
		return true
	}
	return false
}

// Warns reports whether the tab's content script should be told to show a warning.
func (s Status) Warns() bool {
	return s == StatusSuspicious || s == StatusMalicious
}

// Source names the analyzer a threat came from
type Source string

const (
	SourceML         Source = "ml"
	SourceHeuristic  Source = "heuristic"
	SourceReputation Source = "reputation"
)

// ThreatEntry is the UI-ready projection of a single finding.
type ThreatEntry struct {
	Source   Source        `json:"source"`
	Type     string        `json:"type"`
	Detail   string        `json:"detail"`
	Severity risk.Severity `json:"severity"`
}

// Result is the fused verdict for one URL. It is also the unit of
// session storage.
type Result struct {
	URL             string        `json:"url"`
	TimestampMillis int64         `json:"timestamp"`
	Status          Status        `json:"status"`
	CombinedScore   int           `json:"combinedScore"`
	FeatureScore    int           `json:"mlScore"`
	HeuristicScore  int           `json:"heuristicScore"`
	ReputationScore int           `json:"reputationScore"`
	Threats         []ThreatEntry `json:"threats"`
	Recommendations []string      `json:"recommendations"`
	Skipped         bool          `json:"skipped,omitempty"`
	Error           string        `json:"error,omitempty"`

	// Per-analyzer detail, absent for skipped and errored results.
	Features   *features.Result   `json:"details,omitempty"`
	Heuristics *heuristics.Result `json:"heuristics,omitempty"`
	Reputation *reputation.Result `json:"reputation,omitempty"`
}

// Badge is the visible toolbar indicator for a tab.
type Badge struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// NavigationEvent is a completed navigation reported by the browser.
type NavigationEvent struct {
	TabID   TabID  `json:"tabId"`
	FrameID int    `json:"frameId"`
	URL     string `json:"url"`
}

// TopLevel reports whether the navigation happened in the tab's main frame.
func (e NavigationEvent) TopLevel() bool { return e.FrameID == 0 }
