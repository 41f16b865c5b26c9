package heuristics

import (
	"strings"
	"testing"

	"github.com/bryanwahyu/urlsentry/internal/domain/risk"
)

func TestRunScores(t *testing.T) {
	e := NewEngine()
	tests := []struct {
		name   string
		url    string
		score  int
		failed []string
	}{
		{"clean", "https://example.com/", 0, nil},
		{"ip over http", "http://192.168.1.5/login", 45, []string{CheckHTTPS, CheckIPAddress}},
		{"shortener", "https://bit.ly/abc", 15, []string{CheckURLShortener}},
		{"brand in hostname", "https://paypal-secure-login.com/", 30, []string{CheckBrandImpersonation}},
		{"homograph", "https://paypa1.com/", 30, []string{CheckBrandImpersonation}},
		{"official brand domain", "https://www.paypal.com/signin", 0, nil},
		{"executable download", "https://example.com/files/invoice.pdf.exe", 15, []string{CheckSuspiciousPath}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Run(tt.url)
			if len(got.Checks) != len(checks) {
				t.Fatalf("ran %d checks, want %d", len(got.Checks), len(checks))
			}
			if got.Score != tt.score {
				t.Fatalf("score = %d, want %d (failed %+v)", got.Score, tt.score, got.Failed())
			}
			var names []string
			for _, c := range got.Failed() {
				names = append(names, c.Name)
			}
			if strings.Join(names, ",") != strings.Join(tt.failed, ",") {
				t.Fatalf("failed = %v, want %v", names, tt.failed)
			}
			if got.FailedChecks != len(tt.failed) {
				t.Fatalf("FailedChecks = %d, want %d", got.FailedChecks, len(tt.failed))
			}
		})
	}
}

func TestRunTwoHighFailuresForceHighLevel(t *testing.T) {
	got := NewEngine().Run("https://user@1.2.3.4/")
	if got.Counts.High != 2 {
		t.Fatalf("high failures = %d, want 2 (%+v)", got.Counts.High, got.Failed())
	}
	if got.Score != 60 {
		t.Fatalf("score = %d, want 60", got.Score)
	}
	if got.RiskLevel != risk.LevelHigh {
		t.Fatalf("level = %s, want high", got.RiskLevel)
	}
}

func TestRunUnparseableFailsEveryCheck(t *testing.T) {
	got := NewEngine().Run("::::")
	if got.FailedChecks != len(checks) {
		t.Fatalf("FailedChecks = %d, want %d", got.FailedChecks, len(checks))
	}
	if got.Score != 100 {
		t.Fatalf("score = %d, want 100", got.Score)
	}
}

func TestRedirectParameter(t *testing.T) {
	got := NewEngine().Run("https://example.com/r?next=https://evil.example.net/")
	c, ok := got.Check(CheckSuspiciousPath)
	if !ok || c.Passed {
		t.Fatalf("suspicious path check = %+v", c)
	}
	if len(c.Details) == 0 || !strings.Contains(c.Details[0], "next") {
		t.Fatalf("details = %v", c.Details)
	}
}

func TestPassedChecksHaveNoSeverity(t *testing.T) {
	for _, c := range NewEngine().Run("https://example.com/").Checks {
		if !c.Passed || c.Severity != risk.SeverityNone || c.Details == nil {
			t.Errorf("check %s = %+v", c.Name, c)
		}
	}
}
