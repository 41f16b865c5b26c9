package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenBucketRefill(t *testing.T) {
	tb := NewTokenBucket(2, 1)
	now := tb.lastRefill

	if !tb.allowAt(now) || !tb.allowAt(now) {
		t.Fatal("full bucket should allow capacity requests")
	}
	if tb.allowAt(now) {
		t.Fatal("empty bucket should deny")
	}
	if !tb.allowAt(now.Add(1100 * time.Millisecond)) {
		t.Fatal("bucket should refill after a second")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimitMiddleware(1, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(path, addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do("/v1/analyze", "10.0.0.1:5000"); rec.Code != http.StatusNoContent {
		t.Fatalf("first request = %d", rec.Code)
	}
	rec := do("/v1/analyze", "10.0.0.1:5001")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("second request = %d", rec.Code)
	}
	if rec := do("/v1/analyze", "10.0.0.2:5000"); rec.Code != http.StatusNoContent {
		t.Fatalf("other address = %d", rec.Code)
	}
	if rec := do("/health", "10.0.0.1:5000"); rec.Code != http.StatusNoContent {
		t.Fatalf("health must not be limited, got %d", rec.Code)
	}
}
