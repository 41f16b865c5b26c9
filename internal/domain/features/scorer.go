package features

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/urlsentry/internal/domain/risk"
)

// Contribution is one itemised entry of a feature score.
type Contribution struct {
	Key    string `json:"key"`
	Points int    `json:"points"`
	Detail string `json:"detail"`
}

// Result of scoring one URL
type Result struct {
	Score     int            `json:"score"`
	RiskLevel risk.Level     `json:"riskLevel"`
	Breakdown []Contribution `json:"breakdown"`
	Features  *Features      `json:"features,omitempty"`
}

// Points returns the contribution recorded under key, 0 when absent.
func (r Result) Points(key string) int {
	for _, c := range r.Breakdown {
		if c.Key == key {
			return c.Points
		}
	}
	return 0
}

// penalty is one capped scoring rule. It returns 0 points when it does not apply.
type penalty struct {
	key  string
	eval func(f *Features) (int, string)
}

var penalties = []penalty{
	{"url_length", func(f *Features) (int, string) {
		switch {
		case f.URLLength > 100:
			return 15, fmt.Sprintf("very long URL (%d characters)", f.URLLength)
		case f.URLLength > 75:
			return 10, fmt.Sprintf("long URL (%d characters)", f.URLLength)
		case f.URLLength > 54:
			return 5, fmt.Sprintf("moderately long URL (%d characters)", f.URLLength)
		}
		return 0, ""
	}},
	{"hostname_length", func(f *Features) (int, string) {
		switch {
		case f.HostnameLength > 40:
			return 10, fmt.Sprintf("very long hostname (%d characters)", f.HostnameLength)
		case f.HostnameLength > 30:
			return 5, fmt.Sprintf("long hostname (%d characters)", f.HostnameLength)
		}
		return 0, ""
	}},
	{"dot_count", func(f *Features) (int, string) {
		if f.DotCount > 3 {
			return min(15, 5*(f.DotCount-3)), fmt.Sprintf("%d dots in hostname", f.DotCount)
		}
		return 0, ""
	}},
	{"hyphen_count", func(f *Features) (int, string) {
		if f.HyphenCount > 2 {
			return min(10, 3*(f.HyphenCount-2)), fmt.Sprintf("%d hyphens in hostname", f.HyphenCount)
		}
		return 0, ""
	}},
	{"at_symbol", func(f *Features) (int, string) {
		if f.HasAtSymbol {
			return 20, "URL contains an @ symbol"
		}
		return 0, ""
	}},
	{"ip_literal", func(f *Features) (int, string) {
		if f.IsIPLiteral {
			return 25, "host is a raw IP address"
		}
		return 0, ""
	}},
	{"non_standard_port", func(f *Features) (int, string) {
		if f.HasNonStandardPort {
			return 10, "non-standard port"
		}
		return 0, ""
	}},
	{"no_https", func(f *Features) (int, string) {
		if !f.IsHTTPS {
			return 15, "connection is not HTTPS"
		}
		return 0, ""
	}},
	{"percent_encoding", func(f *Features) (int, string) {
		if f.PercentEncodedCount > 3 {
			return min(15, 2*f.PercentEncodedCount), fmt.Sprintf("%d percent-encoded sequences", f.PercentEncodedCount)
		}
		return 0, ""
	}},
	{"high_risk_tld", func(f *Features) (int, string) {
		if f.TLDRisk() == "high" {
			return 20, fmt.Sprintf("high-risk top-level domain .%s", f.TopLevelDomain)
		}
		return 0, ""
	}},
	{"medium_risk_tld", func(f *Features) (int, string) {
		if f.TLDRisk() == "medium" {
			return 10, fmt.Sprintf("medium-risk top-level domain .%s", f.TopLevelDomain)
		}
		return 0, ""
	}},
	{"suspicious_keywords", func(f *Features) (int, string) {
		if n := len(f.SuspiciousKeywords); n > 0 {
			return min(20, 5*n), "suspicious keywords: " + strings.Join(f.SuspiciousKeywords, ", ")
		}
		return 0, ""
	}},
	{"url_shortener", func(f *Features) (int, string) {
		if f.IsKnownShortener {
			return 15, "known URL shortener"
		}
		return 0, ""
	}},
	{"double_slash_path", func(f *Features) (int, string) {
		if f.HasDoubleSlashInPath {
			return 10, "double slash in path"
		}
		return 0, ""
	}},
	{"subdomain_count", func(f *Features) (int, string) {
		if f.SubdomainCount > 2 {
			return min(10, 5*(f.SubdomainCount-2)), fmt.Sprintf("%d subdomains", f.SubdomainCount)
		}
		return 0, ""
	}},
}

// Scorer is the deterministic feature-weighted URL scorer. It is stateless
// and safe for concurrent use.
type Scorer struct{}

func NewScorer() *Scorer { return &Scorer{} }

// Score extracts the features of rawURL and sums the capped penalties.
// Unparseable input scores 100 with a single "error" entry.
func (s *Scorer) Score(rawURL string) Result {
	f, err := Extract(rawURL)
	if err != nil {
		return Result{
			Score:     100,
			RiskLevel: risk.LevelHigh,
			Breakdown: []Contribution{{Key: "error", Points: 100, Detail: err.Error()}},
		}
	}
	return s.ScoreFeatures(f)
}

// ScoreFeatures scores already extracted features.
func (s *Scorer) ScoreFeatures(f *Features) Result {
	res := Result{Breakdown: []Contribution{}, Features: f}
	total := 0
	for _, p := range penalties {
		pts, detail := p.eval(f)
		if pts <= 0 {
			continue
		}
		res.Breakdown = append(res.Breakdown, Contribution{Key: p.key, Points: pts, Detail: detail})
		total += pts
	}
	res.Score = risk.Clamp(total)
	res.RiskLevel = risk.LevelFor(res.Score)
	return res
}
