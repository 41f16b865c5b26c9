package heuristics

import (
	"sort"
	"strings"

	"github.com/bryanwahyu/urlsentry/internal/domain/features"
)

// brandDomains maps a protected brand token to the domains that legitimately
// carry it.
var brandDomains = map[string][]string{
	"paypal":        {"paypal.com", "paypal.me", "paypalobjects.com"},
	"apple":         {"apple.com", "icloud.com", "apple.news"},
	"icloud":        {"icloud.com", "apple.com"},
	"amazon":        {"amazon.com", "amazon.co.uk", "amazon.de", "amazon.fr", "amazon.es", "amazon.it", "amazon.ca", "amazon.in", "amazon.co.jp", "amazonaws.com"},
	"microsoft":     {"microsoft.com", "microsoftonline.com", "live.com", "office.com", "outlook.com", "azure.com", "windows.net"},
	"google":        {"google.com", "google.co.uk", "google.de", "google.fr", "googleapis.com", "googleusercontent.com", "gstatic.com", "youtube.com", "gmail.com"},
	"facebook":      {"facebook.com", "fb.com", "facebook.net", "fbcdn.net"},
	"instagram":     {"instagram.com", "cdninstagram.com"},
	"netflix":       {"netflix.com", "netflix.net", "nflxvideo.net"},
	"wellsfargo":    {"wellsfargo.com"},
	"bankofamerica": {"bankofamerica.com", "bofa.com"},
	"citibank":      {"citibank.com", "citi.com"},
	"linkedin":      {"linkedin.com", "licdn.com"},
	"dropbox":       {"dropbox.com", "dropboxusercontent.com", "dropboxapi.com"},
	"ebay":          {"ebay.com", "ebay.co.uk", "ebay.de", "ebayimg.com"},
	"coinbase":      {"coinbase.com"},
	"binance":       {"binance.com", "binance.us"},
	"whatsapp":      {"whatsapp.com", "whatsapp.net", "wa.me"},
}

// brandTokens is brandDomains' keys in a fixed order so reports are stable.
var brandTokens = func() []string {
	out := make([]string, 0, len(brandDomains))
	for k := range brandDomains {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}()

// homographs are applied in order; multi-character sequences go first.
var homographs = strings.NewReplacer(
	"rn", "m",
	"vv", "w",
	"cl", "d",
	"0", "o",
	"1", "l",
)

func isCanonical(host, brand string) bool {
	for _, d := range brandDomains[brand] {
		if features.MatchesDomain(host, d) {
			return true
		}
	}
	return false
}

// impersonations returns one detail line per brand the host pretends to be.
func impersonations(host string) []string {
	var out []string
	folded := homographs.Replace(host)
	for _, brand := range brandTokens {
		if isCanonical(host, brand) {
			continue
		}
		switch {
		case strings.Contains(host, brand):
			out = append(out, "hostname contains \""+brand+"\" but is not an official "+brand+" domain")
		case strings.Contains(folded, brand):
			out = append(out, "hostname imitates \""+brand+"\" using look-alike characters")
		}
	}
	return out
}
