package reputation

import (
	"net"
	"regexp"
	"strings"

	"github.com/bryanwahyu/urlsentry/internal/domain/features"
	"github.com/bryanwahyu/urlsentry/internal/domain/risk"
)

// knownBadDomains is the fixed list the simulated remote services and the
// local blocklist agree on.
var knownBadDomains = []string{
	"malware-test.com",
	"phishing-site.com",
	"evil-domain.com",
	"fake-bank-login.com",
	"free-prize-winner.xyz",
	"secure-paypal-verify.com",
	"account-update-required.net",
	"testsafebrowsing.appspot.com",
}

// KnownBad returns the known-bad domain host belongs to, or "".
func KnownBad(host string) string {
	host = features.NormalizeHost(host)
	for _, d := range knownBadDomains {
		if features.MatchesDomain(host, d) {
			return d
		}
	}
	return ""
}

type hostPattern struct {
	name string
	re   *regexp.Regexp
}

// suspiciousHostPatterns flag at medium severity.
var suspiciousHostPatterns = []hostPattern{
	{"brand_credential_host", regexp.MustCompile(`(paypal|apple|amazon|microsoft|netflix|bank)[.-]?(secure|verify|login|signin|account|update|support)`)},
	{"credential_brand_host", regexp.MustCompile(`(secure|verify|login|signin|account|update)[.-](paypal|apple|amazon|microsoft|netflix|bank)`)},
	{"prize_host", regexp.MustCompile(`free[.-]?(gift|prize|iphone|bitcoin)`)},
}

// Blocklist is the synchronous local reputation source: configured blocked
// domains plus the built-in known-bad list (high severity), suspicious host
// patterns (medium) and an allow-list that wins over everything.
type Blocklist struct {
	blocked []string
	allowed []string
}

func NewBlocklist(blocked, allowed []string) *Blocklist {
	return &Blocklist{blocked: normalizeAll(blocked), allowed: normalizeAll(allowed)}
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		d = strings.TrimPrefix(strings.TrimSpace(d), "*.")
		if d != "" {
			out = append(out, features.NormalizeHost(d))
		}
	}
	return out
}

func (b *Blocklist) Name() string { return ServiceLocalBlocklist }

// Check matches rawURL's host against the lists.
func (b *Blocklist) Check(rawURL string) ServiceResult {
	res := ServiceResult{Service: ServiceLocalBlocklist}
	u, err := features.Parse(rawURL)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Checked = true
	host := features.NormalizeHost(u.Hostname())

	for _, d := range b.allowed {
		if features.MatchesDomain(host, d) {
			res.MatchedRule = "allowed:" + d
			return res
		}
	}
	for _, d := range b.blocked {
		if features.MatchesDomain(host, d) {
			return flag(res, risk.SeverityHigh, "blocked:"+d)
		}
	}
	if d := KnownBad(host); d != "" {
		return flag(res, risk.SeverityHigh, "known_bad:"+d)
	}
	if features.IsIPLiteral(host) {
		// Local development servers are not remote threats.
		if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil && ip.IsLoopback() {
			res.MatchedRule = "loopback_host"
			return res
		}
		return flag(res, risk.SeverityMedium, "ip_literal_host")
	}
	for _, p := range suspiciousHostPatterns {
		if p.re.MatchString(host) {
			return flag(res, risk.SeverityMedium, p.name)
		}
	}
	return res
}

func flag(res ServiceResult, sev risk.Severity, rule string) ServiceResult {
	res.Flagged = true
	res.Severity = sev
	res.MatchedRule = rule
	return res
}
