package malwarescan

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bryanwahyu/urlsentry/internal/domain/reputation"
)

const defaultBaseURL = "https://www.virustotal.com"

// Client queries a VirusTotal-style URL report endpoint
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (c *Client) Name() string { return reputation.ServiceMalwareScan }

type urlReport struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats struct {
				Harmless   int `json:"harmless"`
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Undetected int `json:"undetected"`
				Timeout    int `json:"timeout"`
			} `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// urlID is the unpadded url-safe base64 identifier used by the report API.
func urlID(rawURL string) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString([]byte(rawURL)), "=")
}

// Check fetches the last analysis stats for rawURL. A URL the service has
// never seen (404) counts as checked and clean.
func (c *Client) Check(ctx context.Context, rawURL string) (reputation.ServiceResult, error) {
	apiURL := fmt.Sprintf("%s/api/v3/urls/%s", c.baseURL, urlID(rawURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return reputation.ServiceResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return reputation.ServiceResult{}, fmt.Errorf("failed to call malware scan: %w", err)
	}
	defer resp.Body.Close()

	res := reputation.ServiceResult{Service: reputation.ServiceMalwareScan, Checked: true}
	if resp.StatusCode == http.StatusNotFound {
		return res, nil
	}
	if resp.StatusCode != http.StatusOK {
		return reputation.ServiceResult{}, fmt.Errorf("malware scan returned status %d", resp.StatusCode)
	}

	var rep urlReport
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return reputation.ServiceResult{}, fmt.Errorf("failed to parse malware scan response: %w", err)
	}
	st := rep.Data.Attributes.LastAnalysisStats
	res.Malicious = st.Malicious
	res.Suspicious = st.Suspicious
	res.Harmless = st.Harmless
	res.Engines = st.Harmless + st.Malicious + st.Suspicious + st.Undetected + st.Timeout
	res.Flagged = st.Malicious > 0
	return res, nil
}
