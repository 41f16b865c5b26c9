package heuristics

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/urlsentry/internal/domain/features"
	"github.com/bryanwahyu/urlsentry/internal/domain/risk"
)

// Check is the outcome of one heuristic rule.
type Check struct {
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Severity risk.Severity `json:"severity"`
	Message  string        `json:"message"`
	Details  []string      `json:"details"`
}

// Result of running the full battery of checks
type Result struct {
	Score        int                 `json:"score"`
	RiskLevel    risk.Level          `json:"riskLevel"`
	Checks       []Check             `json:"checks"`
	FailedChecks int                 `json:"failedChecks"`
	Counts       risk.SeverityCounts `json:"counts"`
	Summary      string              `json:"summary"`
}

// Check returns the named check and whether it ran.
func (r Result) Check(name string) (Check, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

// Failed returns the checks that did not pass, in execution order.
func (r Result) Failed() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

// Engine runs every check on every URL; no check short-circuits another.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Run executes all checks against rawURL. When rawURL cannot be parsed every
// check fails with its own severity.
func (e *Engine) Run(rawURL string) Result {
	u, err := features.Parse(rawURL)

	res := Result{Checks: make([]Check, 0, len(checks))}
	var s *subject
	if err == nil {
		raw := strings.TrimSpace(rawURL)
		s = &subject{raw: raw, lower: strings.ToLower(raw), u: u, host: features.NormalizeHost(u.Hostname())}
	}

	for _, c := range checks {
		var out Check
		if s == nil {
			out = fail(c.severity, "URL could not be parsed", err.Error())
		} else {
			out = c.run(s)
		}
		out.Name = c.name
		if !out.Passed {
			res.FailedChecks++
			res.Counts.Add(out.Severity)
		}
		res.Checks = append(res.Checks, out)
	}

	res.Score = min(100, 30*res.Counts.High+15*res.Counts.Medium)
	res.RiskLevel = risk.LevelFor(res.Score)
	if res.Counts.High >= 2 {
		res.RiskLevel = risk.LevelHigh
	}
	res.Summary = summarize(res)
	return res
}

func summarize(r Result) string {
	if r.FailedChecks == 0 {
		return fmt.Sprintf("All %d checks passed", len(r.Checks))
	}
	return fmt.Sprintf("%d of %d checks failed (%d high, %d medium)",
		r.FailedChecks, len(r.Checks), r.Counts.High, r.Counts.Medium)
}
