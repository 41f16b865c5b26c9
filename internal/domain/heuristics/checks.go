package heuristics

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/bryanwahyu/urlsentry/internal/domain/features"
	"github.com/bryanwahyu/urlsentry/internal/domain/risk"
)

// Check names, in execution order.
const (
	CheckHTTPS              = "https"
	CheckIPAddress          = "ip_address"
	CheckURLShortener       = "url_shortener"
	CheckObfuscation        = "obfuscation"
	CheckBrandImpersonation = "brand_impersonation"
	CheckSuspiciousPath     = "suspicious_path"
)

var (
	percentEncodedRe = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)
	hexLiteralRe     = regexp.MustCompile(`(?i)\\x[0-9a-f]{2}|0x[0-9a-f]{2,}`)
	base64SegmentRe  = regexp.MustCompile(`^[A-Za-z0-9+_-]{40,}={0,2}$`)
	doubleExtRe      = regexp.MustCompile(`(?i)\.(pdf|docx?|xlsx?|pptx?|jpe?g|png|gif|txt|zip|rar|mp3|mp4)\.(exe|scr|bat|cmd|msi|jar|vbs|ps1|apk|pif|hta|js)$`)
)

var dangerousExtensions = map[string]bool{
	".exe": true, ".scr": true, ".bat": true, ".cmd": true, ".msi": true,
	".jar": true, ".vbs": true, ".ps1": true, ".apk": true, ".dmg": true,
	".pif": true, ".hta": true, ".wsf": true, ".cpl": true, ".lnk": true,
	".reg": true, ".iso": true,
}

var redirectParams = map[string]bool{
	"url": true, "redirect": true, "redirect_url": true, "redirect_uri": true,
	"redir": true, "next": true, "return": true, "return_url": true,
	"returnurl": true, "returnto": true, "goto": true, "dest": true,
	"destination": true, "continue": true, "target": true, "rurl": true,
	"out": true, "link": true, "to": true,
}

// subject is the parsed form of the URL every check inspects.
type subject struct {
	raw   string
	lower string
	u     *url.URL
	host  string
}

type checkFunc func(s *subject) Check

var checks = []struct {
	name     string
	severity risk.Severity
	run      checkFunc
}{
	{CheckHTTPS, risk.SeverityMedium, checkHTTPS},
	{CheckIPAddress, risk.SeverityHigh, checkIPAddress},
	{CheckURLShortener, risk.SeverityMedium, checkShortener},
	{CheckObfuscation, risk.SeverityHigh, checkObfuscation},
	{CheckBrandImpersonation, risk.SeverityHigh, checkBrandImpersonation},
	{CheckSuspiciousPath, risk.SeverityMedium, checkSuspiciousPath},
}

func pass(msg string) Check {
	return Check{Passed: true, Severity: risk.SeverityNone, Message: msg, Details: []string{}}
}

func fail(sev risk.Severity, msg string, details ...string) Check {
	if details == nil {
		details = []string{}
	}
	return Check{Passed: false, Severity: sev, Message: msg, Details: details}
}

func checkHTTPS(s *subject) Check {
	if strings.EqualFold(s.u.Scheme, "https") {
		return pass("Connection uses HTTPS")
	}
	return fail(risk.SeverityMedium, "Connection does not use HTTPS", "scheme: "+s.u.Scheme)
}

func checkIPAddress(s *subject) Check {
	if strings.HasPrefix(s.u.Host, "[") || features.IsIPLiteral(s.host) {
		return fail(risk.SeverityHigh, "Host is a raw IP address", "host: "+s.host)
	}
	return pass("Host is a domain name")
}

func checkShortener(s *subject) Check {
	if features.IsShortener(s.host) {
		return fail(risk.SeverityMedium, "URL uses a link shortener that hides the destination", "host: "+s.host)
	}
	return pass("No link shortener")
}

func checkObfuscation(s *subject) Check {
	var reasons []string
	if n := len(percentEncodedRe.FindAllStringIndex(s.raw, -1)); n > 10 {
		reasons = append(reasons, fmt.Sprintf("excessive URL encoding (%d sequences)", n))
	}
	if hexLiteralRe.MatchString(s.raw) {
		reasons = append(reasons, "hex-encoded characters")
	}
	for _, label := range strings.Split(s.host, ".") {
		if strings.HasPrefix(label, "xn--") {
			reasons = append(reasons, "punycode label "+label)
			break
		}
	}
	if strings.Contains(s.raw, "@") && !strings.EqualFold(s.u.Scheme, "mailto") {
		reasons = append(reasons, "@ symbol hides the real destination")
	}
	if n := strings.Count(s.lower, "http://") + strings.Count(s.lower, "https://"); n > 1 {
		reasons = append(reasons, fmt.Sprintf("%d embedded URLs", n))
	}
	if len(reasons) == 0 {
		return pass("No obfuscation detected")
	}
	return fail(risk.SeverityHigh, "URL uses obfuscation techniques", reasons...)
}

func checkBrandImpersonation(s *subject) Check {
	if features.IsIPLiteral(s.host) {
		return pass("No brand impersonation")
	}
	if found := impersonations(s.host); len(found) > 0 {
		return fail(risk.SeverityHigh, "Possible brand impersonation", found...)
	}
	return pass("No brand impersonation")
}

func checkSuspiciousPath(s *subject) Check {
	var reasons []string
	last := path.Base(s.u.Path)
	if ext := strings.ToLower(path.Ext(last)); dangerousExtensions[ext] {
		reasons = append(reasons, "executable download "+last)
	}
	if doubleExtRe.MatchString(last) {
		reasons = append(reasons, "double file extension "+last)
	}
	query := s.u.Query()
	names := make([]string, 0, len(query))
	for name := range query {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !redirectParams[strings.ToLower(name)] {
			continue
		}
		for _, v := range query[name] {
			lv := strings.ToLower(strings.TrimSpace(v))
			if strings.HasPrefix(lv, "http://") || strings.HasPrefix(lv, "https://") || strings.HasPrefix(lv, "//") {
				reasons = append(reasons, "redirect parameter "+name+" points to "+v)
			}
		}
	}
	for _, seg := range strings.Split(s.u.Path, "/") {
		if base64SegmentRe.MatchString(seg) && mixedAlnum(seg) {
			reasons = append(reasons, fmt.Sprintf("encoded path segment (%d characters)", len(seg)))
		}
	}
	if len(reasons) == 0 {
		return pass("Path looks normal")
	}
	return fail(risk.SeverityMedium, "Suspicious path or query", reasons...)
}

// mixedAlnum reports whether seg mixes upper case, lower case and digits,
// which separates encoded blobs from long readable slugs.
func mixedAlnum(seg string) bool {
	var upper, lower, digit bool
	for _, r := range seg {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return upper && lower && digit
}
