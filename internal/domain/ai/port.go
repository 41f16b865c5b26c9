package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// TriageRequest is what the model sees about one reported website.
type TriageRequest struct {
	URL           string   `json:"url"`
	Reason        string   `json:"reason"`
	Status        string   `json:"status,omitempty"`
	CombinedScore int      `json:"combinedScore,omitempty"`
	Threats       []string `json:"threats,omitempty"`
}

// Client returns a JSON object {category, confidence, summary}.
type Client interface {
	Triage(ctx context.Context, req TriageRequest) (string, error)
}

// TriageReply is the JSON object a Client returns.
type TriageReply struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"summary"`
}

// ParseReply decodes a Client reply, tolerating code fences around the object.
func ParseReply(reply string) (TriageReply, error) {
	s := strings.TrimSpace(reply)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	if i := strings.Index(s, "{"); i > 0 {
		s = s[i:]
	}
	var out TriageReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &out); err != nil {
		return TriageReply{}, fmt.Errorf("failed to parse triage reply: %w", err)
	}
	return out, nil
}
