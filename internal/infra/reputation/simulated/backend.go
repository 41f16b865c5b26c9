// Package simulated provides deterministic stand-ins for the remote
// reputation services. They flag exactly the built-in known-bad domains.
package simulated

import (
	"context"

	"github.com/bryanwahyu/urlsentry/internal/domain/features"
	"github.com/bryanwahyu/urlsentry/internal/domain/reputation"
)

const simulatedEngines = 70

// SafeBrowsing answers like the safe-browsing lookup service.
type SafeBrowsing struct{}

func (SafeBrowsing) Name() string { return reputation.ServiceSafeBrowsing }

func (SafeBrowsing) Check(ctx context.Context, rawURL string) (reputation.ServiceResult, error) {
	if err := ctx.Err(); err != nil {
		return reputation.ServiceResult{}, err
	}
	u, err := features.Parse(rawURL)
	if err != nil {
		return reputation.ServiceResult{}, err
	}
	res := reputation.ServiceResult{Service: reputation.ServiceSafeBrowsing, Checked: true, Simulated: true}
	if d := reputation.KnownBad(u.Hostname()); d != "" {
		res.Flagged = true
		res.ThreatTypes = []string{threatTypeFor(d)}
	}
	return res, nil
}

func threatTypeFor(domain string) string {
	switch domain {
	case "malware-test.com", "evil-domain.com":
		return "MALWARE"
	case "free-prize-winner.xyz":
		return "UNWANTED_SOFTWARE"
	default:
		return "SOCIAL_ENGINEERING"
	}
}

// MalwareScan answers like a multi-engine URL scanner.
type MalwareScan struct{}

func (MalwareScan) Name() string { return reputation.ServiceMalwareScan }

func (MalwareScan) Check(ctx context.Context, rawURL string) (reputation.ServiceResult, error) {
	if err := ctx.Err(); err != nil {
		return reputation.ServiceResult{}, err
	}
	u, err := features.Parse(rawURL)
	if err != nil {
		return reputation.ServiceResult{}, err
	}
	res := reputation.ServiceResult{
		Service:   reputation.ServiceMalwareScan,
		Checked:   true,
		Simulated: true,
		Engines:   simulatedEngines,
		Harmless:  simulatedEngines,
	}
	if reputation.KnownBad(u.Hostname()) != "" {
		res.Flagged = true
		res.Malicious = 8
		res.Suspicious = 2
		res.Harmless = simulatedEngines - 10
	}
	return res, nil
}
