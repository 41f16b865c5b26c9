package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bryanwahyu/urlsentry/internal/application"
	appanalysis "github.com/bryanwahyu/urlsentry/internal/application/analysis"
	"github.com/bryanwahyu/urlsentry/internal/application/coordinator"
	appreports "github.com/bryanwahyu/urlsentry/internal/application/reports"
	appreputation "github.com/bryanwahyu/urlsentry/internal/application/reputation"
	"github.com/bryanwahyu/urlsentry/internal/domain/analysis"
	"github.com/bryanwahyu/urlsentry/internal/domain/features"
	"github.com/bryanwahyu/urlsentry/internal/domain/heuristics"
	"github.com/bryanwahyu/urlsentry/internal/domain/reputation"
	"github.com/bryanwahyu/urlsentry/internal/infra/db/memory"
	"github.com/bryanwahyu/urlsentry/internal/infra/push"
	"github.com/bryanwahyu/urlsentry/internal/infra/reputation/simulated"
	"github.com/bryanwahyu/urlsentry/internal/infra/session"
	"github.com/bryanwahyu/urlsentry/internal/logging"
)

type fixture struct {
	handler http.Handler
	coord   *coordinator.Coordinator
	hub     *push.Hub
}

func newFixture(apiKeys map[string]string) *fixture {
	log := logging.Discard()
	engine := &appanalysis.Engine{
		Features:   features.NewScorer(),
		Heuristics: heuristics.NewEngine(),
		Reputation: &appreputation.Aggregator{
			SafeBrowsing: simulated.SafeBrowsing{},
			MalwareScan:  simulated.MalwareScan{},
			Blocklist:    reputation.NewBlocklist(nil, nil),
			Log:          log,
		},
		Clock: application.SystemClock{},
		Log:   log,
	}
	svc := &appreports.Service{Repo: memory.NewReportRepository(), Clock: application.SystemClock{}, Log: log}
	hub := push.NewHub()
	coord := &coordinator.Coordinator{
		Engine:   engine,
		Store:    session.NewMemoryStore(),
		Badges:   hub,
		Warnings: hub,
		Reports:  svc,
		Log:      log,
	}
	h := NewRouter(Options{
		Coordinator: coord,
		Engine:      engine,
		Reports:     svc,
		Hub:         hub,
		APIKeys:     apiKeys,
		Heartbeat:   time.Hour,
		Log:         log,
	})
	return &fixture{handler: h, coord: coord, hub: hub}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) analysis.Result {
	t.Helper()
	var r analysis.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return r
}

func TestHealth(t *testing.T) {
	f := newFixture(nil)
	if rec := f.do(t, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
}

func TestAnalyze(t *testing.T) {
	f := newFixture(nil)

	rec := f.do(t, http.MethodPost, "/v1/analyze", `{"url":"https://example.com/"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze = %d %s", rec.Code, rec.Body)
	}
	if r := decodeResult(t, rec); r.Status != analysis.StatusSafe {
		t.Fatalf("status = %s", r.Status)
	}

	if rec := f.do(t, http.MethodPost, "/v1/analyze", `{"url":""}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty url = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/v1/analyze", `{`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json = %d", rec.Code)
	}
}

func TestTabLifecycle(t *testing.T) {
	f := newFixture(nil)

	if rec := f.do(t, http.MethodGet, "/v1/tabs/5/analysis", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("pending = %d", rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/v1/tabs/5/navigations", `{"frameId":0,"url":"http://malware-test.com/"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("navigation = %d %s", rec.Code, rec.Body)
	}
	if r := decodeResult(t, rec); r.Status != analysis.StatusMalicious {
		t.Fatalf("status = %s", r.Status)
	}

	if rec := f.do(t, http.MethodPost, "/v1/tabs/5/navigations", `{"frameId":2,"url":"https://ads.example/"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("sub-frame = %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/v1/tabs/5/analysis", "")
	if rec.Code != http.StatusOK || decodeResult(t, rec).URL != "http://malware-test.com/" {
		t.Fatalf("stored = %d %s", rec.Code, rec.Body)
	}

	if rec := f.do(t, http.MethodDelete, "/v1/tabs/5", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/v1/tabs/5/analysis", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("after delete = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/v1/tabs/abc/analysis", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad tab id = %d", rec.Code)
	}
}

func TestMessages(t *testing.T) {
	f := newFixture(nil)

	if rec := f.do(t, http.MethodPost, "/v1/messages", `{"type":"BOGUS"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown type = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/v1/messages", `{"type":"REPORT_WEBSITE","url":"chrome://settings"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("non-web report = %d", rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/v1/messages", `{"type":"REPORT_WEBSITE","url":"https://phish.example/","reason":"fake bank"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("report = %d %s", rec.Code, rec.Body)
	}
	var rep coordinator.ReportReply
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil || !rep.Success || rep.Report.ID == "" {
		t.Fatalf("reply = %s", rec.Body)
	}

	rec = f.do(t, http.MethodPost, "/v1/messages", `{"type":"GET_REPORTS"}`)
	var list struct {
		Reports []json.RawMessage `json:"reports"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list.Reports) != 1 {
		t.Fatalf("reports = %s", rec.Body)
	}

	if rec := f.do(t, http.MethodGet, "/v1/reports/"+rep.Report.ID, ""); rec.Code != http.StatusOK {
		t.Fatalf("get report = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/v1/reports/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing report = %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/v1/messages", `{"type":"PROCEED_ANYWAY","tabId":1}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("proceed = %d %s", rec.Code, rec.Body)
	}
}

func TestAuth(t *testing.T) {
	f := newFixture(map[string]string{"extension": "s3cret"})

	if rec := f.do(t, http.MethodPost, "/v1/analyze", `{"url":"https://example.com/"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no key = %d", rec.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader(`{"url":"https://example.com/"}`))
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("with key = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health with auth on = %d", rec.Code)
	}
}

func TestEventsStream(t *testing.T) {
	f := newFixture(nil)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events?tabId=8", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	next := func() string {
		for sc.Scan() {
			if line := sc.Text(); strings.HasPrefix(line, "event: ") {
				return strings.TrimPrefix(line, "event: ")
			}
		}
		t.Fatalf("stream ended: %v", sc.Err())
		return ""
	}
	if ev := next(); ev != "ready" {
		t.Fatalf("first event = %s", ev)
	}

	if _, err := f.coord.OnNavigationCompleted(ctx, analysis.NavigationEvent{TabID: 3, URL: "https://example.com/"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.coord.OnNavigationCompleted(ctx, analysis.NavigationEvent{TabID: 8, URL: "http://malware-test.com/"}); err != nil {
		t.Fatal(err)
	}
	if ev := next(); ev != push.EventBadge {
		t.Fatalf("event = %s, want badge for tab 8", ev)
	}
	if ev := next(); ev != push.EventWarning {
		t.Fatalf("event = %s, want warning", ev)
	}
}
