package coordinator

import (
	"github.com/bryanwahyu/urlsentry/internal/domain/analysis"
	"github.com/bryanwahyu/urlsentry/internal/domain/reports"
)

// MessageType enum
type MessageType string

const (
	GetAnalysis   MessageType = "GET_ANALYSIS"
	Rescan        MessageType = "RESCAN"
	ReportWebsite MessageType = "REPORT_WEBSITE"
	GetReports    MessageType = "GET_REPORTS"
	ProceedAnyway MessageType = "PROCEED_ANYWAY"

	// ShowWarning is outbound only.
	ShowWarning MessageType = "SHOW_WARNING"
)

// Message is one request from an extension surface. Fields not used by a
// type are ignored.
type Message struct {
	Type   MessageType    `json:"type"`
	TabID  analysis.TabID `json:"tabId,omitempty"`
	URL    string         `json:"url,omitempty"`
	Reason string         `json:"reason,omitempty"`
	Limit  int            `json:"limit,omitempty"`
}

// Reply is any of the reply shapes below or a *analysis.Result.
type Reply any

type PendingReply struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ReportReply struct {
	Success bool            `json:"success"`
	Report  *reports.Report `json:"report,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type ReportsReply struct {
	Reports []*reports.Report `json:"reports"`
}

type AckReply struct {
	Success bool `json:"success"`
}

type ErrorReply struct {
	Error string `json:"error"`
}

// WarningPush is the SHOW_WARNING message sent to a content script.
type WarningPush struct {
	Type MessageType      `json:"type"`
	Data *analysis.Result `json:"data"`
}

// NewWarningPush wraps r in a SHOW_WARNING message.
func NewWarningPush(r *analysis.Result) WarningPush {
	return WarningPush{Type: ShowWarning, Data: r}
}
