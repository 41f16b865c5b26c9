package safebrowsing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bryanwahyu/urlsentry/internal/domain/reputation"
)

const defaultBaseURL = "https://safebrowsing.googleapis.com"

// Client handles threatMatches lookups against a Safe Browsing v4 endpoint
type Client struct {
	baseURL    string
	apiKey     string
	clientID   string
	httpClient *http.Client
}

// New creates a new Safe Browsing client. An empty baseURL uses the public endpoint.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		clientID: "urlsentry",
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (c *Client) Name() string { return reputation.ServiceSafeBrowsing }

type threatEntry struct {
	URL string `json:"url"`
}

type findRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string      `json:"threatTypes"`
		PlatformTypes    []string      `json:"platformTypes"`
		ThreatEntryTypes []string      `json:"threatEntryTypes"`
		ThreatEntries    []threatEntry `json:"threatEntries"`
	} `json:"threatInfo"`
}

type findResponse struct {
	Matches []struct {
		ThreatType string      `json:"threatType"`
		Threat     threatEntry `json:"threat"`
	} `json:"matches"`
}

// Check posts rawURL to threatMatches:find. An empty match list means clean.
func (c *Client) Check(ctx context.Context, rawURL string) (reputation.ServiceResult, error) {
	var body findRequest
	body.Client.ClientID = c.clientID
	body.Client.ClientVersion = "1.0"
	body.ThreatInfo.ThreatTypes = []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE", "POTENTIALLY_HARMFUL_APPLICATION"}
	body.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	body.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	body.ThreatInfo.ThreatEntries = []threatEntry{{URL: rawURL}}

	payload, err := json.Marshal(body)
	if err != nil {
		return reputation.ServiceResult{}, fmt.Errorf("failed to encode request: %w", err)
	}

	// The key travels in a header so transport errors, which quote the URL, never carry it.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v4/threatMatches:find", bytes.NewReader(payload))
	if err != nil {
		return reputation.ServiceResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return reputation.ServiceResult{}, fmt.Errorf("failed to call safe browsing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return reputation.ServiceResult{}, fmt.Errorf("safe browsing returned status %d", resp.StatusCode)
	}

	var out findResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return reputation.ServiceResult{}, fmt.Errorf("failed to parse safe browsing response: %w", err)
	}

	res := reputation.ServiceResult{Service: reputation.ServiceSafeBrowsing, Checked: true}
	seen := map[string]bool{}
	for _, m := range out.Matches {
		if !seen[m.ThreatType] {
			seen[m.ThreatType] = true
			res.ThreatTypes = append(res.ThreatTypes, m.ThreatType)
		}
	}
	res.Flagged = len(res.ThreatTypes) > 0
	return res, nil
}
