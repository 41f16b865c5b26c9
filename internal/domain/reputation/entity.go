package reputation

import "github.com/bryanwahyu/urlsentry/internal/domain/risk"

// Service names, also the keys of Result.Services.
const (
	ServiceSafeBrowsing   = "safeBrowsing"
	ServiceMalwareScan    = "malwareScan"
	ServiceLocalBlocklist = "localBlocklist"
)

// ServiceResult is the verdict of one reputation source. Checked=false with
// Error set means the lookup failed; that is not the same as clean.
type ServiceResult struct {
	Service   string `json:"service"`
	Checked   bool   `json:"checked"`
	Flagged   bool   `json:"flagged"`
	Simulated bool   `json:"simulated,omitempty"`
	Error     string `json:"error,omitempty"`

	// safe-browsing style
	ThreatTypes []string `json:"threatTypes,omitempty"`

	// malware-scan style
	Malicious  int `json:"malicious,omitempty"`
	Suspicious int `json:"suspicious,omitempty"`
	Harmless   int `json:"harmless,omitempty"`
	Engines    int `json:"engines,omitempty"`

	// local blocklist
	Severity    risk.Severity `json:"severity,omitempty"`
	MatchedRule string        `json:"matchedRule,omitempty"`
}

// Failed builds the result of a lookup that did not complete.
func Failed(service string, err error) ServiceResult {
	return ServiceResult{Service: service, Checked: false, Flagged: false, Error: err.Error()}
}

// Result is the aggregated reputation verdict.
type Result struct {
	Score           int                      `json:"score"`
	RiskLevel       risk.Level               `json:"riskLevel"`
	IsFlagged       bool                     `json:"isFlagged"`
	Services        map[string]ServiceResult `json:"services"`
	FlaggedServices []string                 `json:"flaggedServices"`
	Summary         string                   `json:"summary"`
}

// Unchecked lists services whose lookup failed, in service order.
func (r Result) Unchecked() []string {
	var out []string
	for _, name := range []string{ServiceSafeBrowsing, ServiceMalwareScan, ServiceLocalBlocklist} {
		if s, ok := r.Services[name]; ok && !s.Checked {
			out = append(out, name)
		}
	}
	return out
}
