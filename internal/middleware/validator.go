package middleware

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/bryanwahyu/urlsentry/internal/domain/analysis"
)

// Input validation and sanitization utilities

const (
	maxURLLength    = 8192
	maxReasonLength = 2000
)

// ValidateTabID parses a path tab id. Browser tab ids are positive.
func ValidateTabID(raw string) (analysis.TabID, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid tab id: %q", raw)
	}
	return analysis.TabID(id), nil
}

// ValidateURL checks a URL the extension submits for analysis. Only size
// and control characters are rejected; malformed or non-web URLs are the
// engine's to classify.
func ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	if len(rawURL) > maxURLLength {
		return fmt.Errorf("URL too long (max %d bytes)", maxURLLength)
	}
	if strings.ContainsAny(rawURL, "\x00\r\n") {
		return fmt.Errorf("invalid characters in URL")
	}
	return nil
}

// ValidateReportURL is stricter: reports must name a web page.
func ValidateReportURL(rawURL string) error {
	if err := ValidateURL(rawURL); err != nil {
		return err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (allowed: http, https)", u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// SanitizeReason cleans and truncates a free-text report reason.
func SanitizeReason(reason string) string {
	reason = SanitizeString(reason)
	if len(reason) > maxReasonLength {
		reason = strings.ToValidUTF8(reason[:maxReasonLength], "")
	}
	return reason
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
