package reports

import (
	"errors"

	"github.com/bryanwahyu/urlsentry/internal/domain/analysis"
)

// ErrNotFound is returned by repositories for unknown report ids.
var ErrNotFound = errors.New("report not found")

// ErrInvalidReport is returned when a submission has no URL.
var ErrInvalidReport = errors.New("invalid report")

// Category of a triaged report
type Category string

const (
	CategoryPhishing Category = "phishing"
	CategoryMalware  Category = "malware"
	CategoryScam     Category = "scam"
	CategoryOther    Category = "other"
)

// Triage is the optional classification attached to a report after submission.
type Triage struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Summary    string   `json:"summary"`
}

// Report is one user-submitted website report.
type Report struct {
	ID              string         `json:"id"`
	URL             string         `json:"url"`
	Reason          string         `json:"reason"`
	TabID           analysis.TabID `json:"tabId,omitempty"`
	TimestampMillis int64          `json:"timestamp"`
	Triage          *Triage        `json:"triage,omitempty"`
	ArchiveURL      string         `json:"archiveUrl,omitempty"`
}

// Submission is the input of a REPORT_WEBSITE request.
type Submission struct {
	URL    string
	Reason string
	TabID  analysis.TabID
	// Evidence is the tab's latest analysis, archived with the report when present.
	Evidence *analysis.Result
}
