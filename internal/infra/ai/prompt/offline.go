package prompt

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/bryanwahyu/urlsentry/internal/domain/ai"
)

// Offline triages by keyword rules when no model is configured. It returns
// JSON in the same schema the model is asked for.
type Offline struct{}

var offlineRules = []struct {
	category   string
	re         *regexp.Regexp
	confidence float64
	summary    string
}{
	{"malware", regexp.MustCompile(`(?i)\.(exe|scr|msi|apk|bat|ps1|vbs|jar)\b|malware|virus|trojan|ransom|download`), 0.7, "The report points at a file download or malware delivery."},
	{"phishing", regexp.MustCompile(`(?i)login|signin|sign-in|verify|password|account|credential|bank|paypal|webscr`), 0.65, "The site appears to collect credentials under a trusted name."},
	{"scam", regexp.MustCompile(`(?i)prize|winner|gift|lottery|crypto|bitcoin|giveaway|investment|refund|support`), 0.6, "The site uses reward or urgency lures typical of scams."},
}

func (Offline) Triage(ctx context.Context, req ai.TriageRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text := strings.Join(append([]string{req.URL, req.Reason}, req.Threats...), " ")

	out := ai.TriageReply{Category: "other", Confidence: 0.3, Summary: "No clear indicator; needs manual review."}
	for _, r := range offlineRules {
		if r.re.MatchString(text) {
			out = ai.TriageReply{Category: r.category, Confidence: r.confidence, Summary: r.summary}
			break
		}
	}
	// a malicious automated verdict raises confidence
	if req.Status == "malicious" && out.Confidence < 0.9 {
		out.Confidence += 0.2
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
