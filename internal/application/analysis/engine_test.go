package analysis

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/bryanwahyu/urlsentry/internal/application"
	appreputation "github.com/bryanwahyu/urlsentry/internal/application/reputation"
	domain "github.com/bryanwahyu/urlsentry/internal/domain/analysis"
	"github.com/bryanwahyu/urlsentry/internal/domain/features"
	"github.com/bryanwahyu/urlsentry/internal/domain/heuristics"
	"github.com/bryanwahyu/urlsentry/internal/domain/reputation"
	"github.com/bryanwahyu/urlsentry/internal/infra/reputation/simulated"
	"github.com/bryanwahyu/urlsentry/internal/logging"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newEngine(rep ReputationChecker) *Engine {
	if rep == nil {
		rep = &appreputation.Aggregator{
			SafeBrowsing: simulated.SafeBrowsing{},
			MalwareScan:  simulated.MalwareScan{},
			Blocklist:    reputation.NewBlocklist(nil, nil),
			Log:          logging.Discard(),
		}
	}
	return &Engine{
		Features:   features.NewScorer(),
		Heuristics: heuristics.NewEngine(),
		Reputation: rep,
		Clock:      application.FixedClock{T: testNow},
		Log:        logging.Discard(),
	}
}

type stubReputation struct {
	res   reputation.Result
	panic bool
}

func (s stubReputation) Check(ctx context.Context, rawURL string) reputation.Result {
	if s.panic {
		panic("reputation exploded")
	}
	return s.res
}

func TestAnalyzeStatuses(t *testing.T) {
	e := newEngine(nil)
	tests := []struct {
		name    string
		url     string
		status  domain.Status
		skipped bool
	}{
		{"clean https", "https://example.com/", domain.StatusSafe, false},
		{"known bad host", "http://malware-test.com/payload", domain.StatusMalicious, false},
		{"ip literal flagged by blocklist", "http://192.168.1.5/login", domain.StatusMalicious, false},
		{"loopback dev server", "http://127.0.0.1:8080/", domain.StatusCaution, false},
		{"loopback v6", "http://[::1]/", domain.StatusCaution, false},
		{"browser page", "chrome://settings", domain.StatusSafe, true},
		{"extension page", "chrome-extension://abc/popup.html", domain.StatusSafe, true},
		{"empty", "", domain.StatusError, false},
		{"no host", "http://", domain.StatusError, false},
		{"no scheme", "example.com/login", domain.StatusError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Analyze(context.Background(), tt.url)
			if got.Status != tt.status {
				t.Fatalf("status = %s, want %s (combined %d)", got.Status, tt.status, got.CombinedScore)
			}
			if got.Skipped != tt.skipped {
				t.Fatalf("skipped = %v, want %v", got.Skipped, tt.skipped)
			}
			if got.URL != tt.url {
				t.Fatalf("url = %q, want %q", got.URL, tt.url)
			}
			if got.TimestampMillis != testNow.UnixMilli() {
				t.Fatalf("timestamp = %d", got.TimestampMillis)
			}
			if got.Threats == nil || len(got.Recommendations) == 0 {
				t.Fatalf("threats %v recommendations %v", got.Threats, got.Recommendations)
			}
		})
	}
}

func TestAnalyzeKnownBadDetails(t *testing.T) {
	got := newEngine(nil).Analyze(context.Background(), "http://malware-test.com/payload")
	if got.ReputationScore != 100 {
		t.Fatalf("reputation score = %d, want 100", got.ReputationScore)
	}
	if want := CombinedScore(got.FeatureScore, got.HeuristicScore, got.ReputationScore); got.CombinedScore != want {
		t.Fatalf("combined = %d, want %d", got.CombinedScore, want)
	}
	var rep int
	for _, th := range got.Threats {
		if th.Source == domain.SourceReputation {
			rep++
		}
	}
	if rep != 3 {
		t.Fatalf("reputation threats = %d, want 3: %+v", rep, got.Threats)
	}
	found := false
	for _, r := range got.Recommendations {
		if strings.HasPrefix(r, "Known-bad by: ") {
			found = true
		}
	}
	if !found {
		t.Fatalf("recommendations = %v", got.Recommendations)
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	e := newEngine(nil)
	for _, u := range []string{"https://example.com/", "https://paypa1.com/verify", "http://192.168.1.5/login"} {
		a := e.Analyze(context.Background(), u)
		b := e.Analyze(context.Background(), u)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("two analyses of %s differ", u)
		}
	}
}

func TestAnalyzeDegradedReputation(t *testing.T) {
	rr := appreputation.Fold(
		reputation.ServiceResult{Service: reputation.ServiceSafeBrowsing, Error: "timeout"},
		reputation.ServiceResult{Service: reputation.ServiceMalwareScan, Error: "timeout"},
		reputation.ServiceResult{Service: reputation.ServiceLocalBlocklist, Checked: true},
	)
	got := newEngine(stubReputation{res: rr}).Analyze(context.Background(), "https://example.com/")
	if got.Status != domain.StatusSafe || got.ReputationScore != 0 {
		t.Fatalf("got %s/%d", got.Status, got.ReputationScore)
	}
	last := got.Recommendations[len(got.Recommendations)-1]
	if !strings.Contains(last, "safeBrowsing, malwareScan") {
		t.Fatalf("last recommendation = %q", last)
	}
}

func TestAnalyzeRecoversAnalyzerPanic(t *testing.T) {
	got := newEngine(stubReputation{panic: true}).Analyze(context.Background(), "https://example.com/")
	if got.Status != domain.StatusError || got.Error == "" {
		t.Fatalf("got %+v", got)
	}
}

func TestCombinedScore(t *testing.T) {
	tests := []struct{ f, h, r, want int }{
		{0, 0, 0, 0},
		{100, 100, 100, 100},
		{50, 50, 50, 50},
		{10, 10, 10, 10},
		{45, 45, 10, 31},
		{15, 15, 100, 49},
		{1, 0, 0, 0},
		{2, 0, 0, 1},
	}
	for _, tt := range tests {
		if got := CombinedScore(tt.f, tt.h, tt.r); got != tt.want {
			t.Errorf("CombinedScore(%d,%d,%d) = %d, want %d", tt.f, tt.h, tt.r, got, tt.want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		combined int
		flagged  bool
		want     domain.Status
	}{
		{0, false, domain.StatusSafe},
		{19, false, domain.StatusSafe},
		{20, false, domain.StatusCaution},
		{39, false, domain.StatusCaution},
		{40, false, domain.StatusSuspicious},
		{69, false, domain.StatusSuspicious},
		{70, false, domain.StatusMalicious},
		{0, true, domain.StatusMalicious},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.combined, tt.flagged); got != tt.want {
			t.Errorf("StatusFor(%d,%v) = %s, want %s", tt.combined, tt.flagged, got, tt.want)
		}
	}
}

func TestAnalyzeShortener(t *testing.T) {
	got := newEngine(nil).Analyze(context.Background(), "https://bit.ly/xyz")
	if got.HeuristicScore == 0 || got.Status != domain.StatusSafe {
		t.Fatalf("heuristic %d status %s", got.HeuristicScore, got.Status)
	}
	found := false
	for _, r := range got.Recommendations {
		if strings.Contains(r, "Shortened links") {
			found = true
		}
	}
	if !found {
		t.Fatalf("recommendations = %v", got.Recommendations)
	}
}

func TestScoresStayInBounds(t *testing.T) {
	e := newEngine(nil)
	urls := []string{
		"https://example.com/",
		"http://user@10.0.0.1:8080//x/setup.pdf.exe?url=https://evil.tk/&next=http://a.b/",
		"http://secure-paypal-verify.com/webscr/login/verify/account/update/password/banking",
		"https://xn--pypal-4ve.com/%41%42%43%44%45%46%47%48%49%4a%4b%4c",
		"http://a.b.c.d.e.f.g.free-prize-winner.xyz/" + strings.Repeat("x", 200),
	}
	for _, u := range urls {
		r := e.Analyze(context.Background(), u)
		for name, s := range map[string]int{"combined": r.CombinedScore, "ml": r.FeatureScore, "heuristic": r.HeuristicScore, "reputation": r.ReputationScore} {
			if s < 0 || s > 100 {
				t.Errorf("%s: %s score %d out of bounds", u, name, s)
			}
		}
		if !r.Status.Valid() {
			t.Errorf("%s: invalid status %q", u, r.Status)
		}
	}
}
