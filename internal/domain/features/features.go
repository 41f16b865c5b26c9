package features

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// ErrInvalidURL is returned by Extract for input that is not an absolute URL with a host.
var ErrInvalidURL = errors.New("invalid url")

// Features are the lexical and structural properties of one URL. Built once
// by Extract and never mutated afterwards.
type Features struct {
	URLLength      int `json:"urlLength"`
	HostnameLength int `json:"hostnameLength"`
	PathLength     int `json:"pathLength"`

	DotCount            int `json:"dotCount"`
	HyphenCount         int `json:"hyphenCount"`
	UnderscoreCount     int `json:"underscoreCount"`
	PercentEncodedCount int `json:"percentEncodedCount"`
	HexEncodedCount     int `json:"hexEncodedCount"`

	IsIPLiteral          bool `json:"isIpLiteral"`
	HasNonStandardPort   bool `json:"hasNonStandardPort"`
	IsHTTPS              bool `json:"isHttps"`
	HasAtSymbol          bool `json:"hasAtSymbol"`
	HasDoubleSlashInPath bool `json:"hasDoubleSlashInPath"`
	IsKnownShortener     bool `json:"isKnownShortener"`

	SubdomainCount     int      `json:"subdomainCount"`
	TopLevelDomain     string   `json:"topLevelDomain"`
	RegistrableDomain  string   `json:"registrableDomain"`
	Hostname           string   `json:"hostname"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

var (
	percentEncodedRe = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)
	hexEncodedRe     = regexp.MustCompile(`(?i)\\x[0-9a-f]{2}|0x[0-9a-f]{2,}`)
	dottedQuadRe     = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)
)

// SuspiciousKeywords are credential and urgency words common in phishing URLs.
var SuspiciousKeywords = []string{
	"login", "signin", "sign-in", "logon", "verify", "verification",
	"account", "update", "secure", "banking", "confirm", "password",
	"suspend", "unlock", "wallet", "webscr", "billing", "credential",
	"authenticate", "recover", "invoice", "free-gift", "prize",
}

var shortenerDomains = []string{
	"bit.ly", "tinyurl.com", "goo.gl", "t.co", "ow.ly", "is.gd", "buff.ly",
	"adf.ly", "bit.do", "cutt.ly", "shorturl.at", "rebrand.ly", "tiny.cc",
	"rb.gy", "t.ly", "s.id", "v.gd", "clck.ru", "shorte.st", "lnkd.in",
}

var highRiskTLDs = map[string]bool{
	"tk": true, "ml": true, "ga": true, "cf": true, "gq": true,
	"xyz": true, "top": true, "zip": true, "mov": true, "click": true,
	"loan": true, "work": true, "country": true, "gdn": true,
	"racing": true, "review": true, "stream": true, "kim": true,
}

var mediumRiskTLDs = map[string]bool{
	"info": true, "biz": true, "online": true, "site": true, "club": true,
	"live": true, "buzz": true, "icu": true, "cyou": true, "rest": true,
	"fit": true, "monster": true, "support": true, "pw": true, "ws": true,
}

// MatchesDomain reports whether host is domain or one of its subdomains.
func MatchesDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// IsShortener reports whether host belongs to a known URL-shortening service.
func IsShortener(host string) bool {
	for _, d := range shortenerDomains {
		if MatchesDomain(host, d) {
			return true
		}
	}
	return false
}

// IsIPLiteral reports whether host is a dotted-quad IPv4 or an IPv6 literal.
// Brackets around IPv6 are accepted.
func IsIPLiteral(host string) bool {
	h := strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if dottedQuadRe.MatchString(h) {
		return true
	}
	return strings.Contains(h, ":") && net.ParseIP(h) != nil
}

// NormalizeHost lower-cases host and converts internationalised labels to
// their ASCII (punycode) form. Hosts idna rejects are returned lower-cased.
func NormalizeHost(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if ascii, err := idna.Lookup.ToASCII(host); err == nil && ascii != "" {
		return ascii
	}
	return host
}

// RegistrableDomain returns the eTLD+1 of host, or host itself when the
// public suffix list cannot classify it.
func RegistrableDomain(host string) string {
	if IsIPLiteral(host) {
		return host
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

// Parse parses raw as an absolute URL with a host.
func Parse(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing scheme or host", ErrInvalidURL)
	}
	return u, nil
}

// Extract computes the Features of raw.
func Extract(raw string) (*Features, error) {
	u, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	raw = strings.TrimSpace(raw)
	host := NormalizeHost(u.Hostname())
	lower := strings.ToLower(raw)

	f := &Features{
		URLLength:            len(raw),
		HostnameLength:       len(host),
		PathLength:           len(u.EscapedPath()),
		DotCount:             strings.Count(host, "."),
		HyphenCount:          strings.Count(host, "-"),
		UnderscoreCount:      strings.Count(host, "_"),
		PercentEncodedCount:  len(percentEncodedRe.FindAllStringIndex(raw, -1)),
		HexEncodedCount:      len(hexEncodedRe.FindAllStringIndex(raw, -1)),
		IsIPLiteral:          IsIPLiteral(host),
		IsHTTPS:              strings.EqualFold(u.Scheme, "https"),
		HasAtSymbol:          strings.Contains(raw, "@"),
		HasDoubleSlashInPath: strings.Contains(u.EscapedPath(), "//"),
		IsKnownShortener:     IsShortener(host),
		Hostname:             host,
	}

	if p := u.Port(); p != "" && p != "80" && p != "443" {
		f.HasNonStandardPort = true
	}

	if !f.IsIPLiteral {
		suffix, _ := publicsuffix.PublicSuffix(host)
		f.TopLevelDomain = suffix
		f.RegistrableDomain = RegistrableDomain(host)
		if f.RegistrableDomain != host {
			f.SubdomainCount = strings.Count(host, ".") - strings.Count(f.RegistrableDomain, ".")
		}
	} else {
		f.RegistrableDomain = host
	}

	for _, kw := range SuspiciousKeywords {
		if strings.Contains(lower, kw) {
			f.SuspiciousKeywords = append(f.SuspiciousKeywords, kw)
		}
	}
	sort.Strings(f.SuspiciousKeywords)

	return f, nil
}

// TLDRisk classifies the last label of the top-level domain as "high",
// "medium" or "".
func (f *Features) TLDRisk() string {
	tld := f.TopLevelDomain
	if i := strings.LastIndex(tld, "."); i >= 0 {
		tld = tld[i+1:]
	}
	switch {
	case highRiskTLDs[tld]:
		return "high"
	case mediumRiskTLDs[tld]:
		return "medium"
	default:
		return ""
	}
}
