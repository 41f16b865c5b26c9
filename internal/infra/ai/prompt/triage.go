package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/urlsentry/internal/domain/ai"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior threat-intelligence analyst triaging websites reported by browser users. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- category is one of: phishing, malware, scam, other.
- confidence is a number between 0 and 1.
- summary is at most two sentences and never repeats the URL.
- Never visit the URL; judge only from the URL text, the user's reason and the automated analysis.

Schema (example with empty values):
{
  "category": "<phishing|malware|scam|other>",
  "confidence": 0.0,
  "summary": "<string>"
}`
}

// GetUserPrompt builds a compact user message around a report.
func GetUserPrompt(req ai.TriageRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Triage this reported website and respond with the JSON per schema.\nURL: %s\n", req.URL)
	if req.Reason != "" {
		fmt.Fprintf(&b, "User reason: %s\n", req.Reason)
	}
	if req.Status != "" {
		fmt.Fprintf(&b, "Automated verdict: %s (score %d/100)\n", req.Status, req.CombinedScore)
	}
	if len(req.Threats) > 0 {
		fmt.Fprintf(&b, "Findings:\n- %s\n", strings.Join(req.Threats, "\n- "))
	}
	return b.String()
}
