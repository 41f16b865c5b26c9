package analysis

import (
	"strings"

	domain "github.com/bryanwahyu/urlsentry/internal/domain/analysis"
	"github.com/bryanwahyu/urlsentry/internal/domain/features"
	"github.com/bryanwahyu/urlsentry/internal/domain/heuristics"
	"github.com/bryanwahyu/urlsentry/internal/domain/reputation"
)

var statusAdvice = map[domain.Status][]string{
	domain.StatusMalicious: {
		"Do not enter any personal information on this site",
		"Close this tab immediately",
		"Report this website if you reached it from an e-mail or message",
	},
	domain.StatusSuspicious: {
		"Be cautious about entering passwords or payment details",
		"Verify the address matches the site you intended to visit",
	},
	domain.StatusCaution: {
		"Double-check the address before signing in",
	},
	domain.StatusSafe: {
		"No significant threats detected",
	},
}

// recommendations are the advice for status followed by fact-based extras.
func recommendations(status domain.Status, fr features.Result, hr heuristics.Result, rr reputation.Result) []string {
	out := append([]string{}, statusAdvice[status]...)

	if c, ok := hr.Check(heuristics.CheckHTTPS); ok && !c.Passed {
		out = append(out, "This site does not use HTTPS; information you send can be intercepted")
	}
	if fr.Features != nil && fr.Features.IsIPLiteral {
		out = append(out, "The site is addressed by a raw IP address instead of a domain name")
	}
	if c, ok := hr.Check(heuristics.CheckURLShortener); ok && !c.Passed {
		out = append(out, "Shortened links hide their destination; expand the link before trusting it")
	}
	if c, ok := hr.Check(heuristics.CheckBrandImpersonation); ok && !c.Passed {
		out = append(out, "The address imitates a well-known brand; go to the brand's official site directly")
	}
	if len(rr.FlaggedServices) > 0 {
		out = append(out, "Known-bad by: "+strings.Join(rr.FlaggedServices, ", "))
	}
	if unchecked := rr.Unchecked(); len(unchecked) > 0 {
		out = append(out, "Some reputation services were unavailable ("+strings.Join(unchecked, ", ")+"); this verdict may be incomplete")
	}
	return out
}
