package safebrowsing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v4/threatMatches:find" ||
			r.Header.Get("X-Goog-Api-Key") != "k" || r.URL.RawQuery != "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		var req findRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.ThreatInfo.ThreatEntries[0].URL == "https://clean.example/" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"matches":[
			{"threatType":"MALWARE","threat":{"url":"x"}},
			{"threatType":"SOCIAL_ENGINEERING","threat":{"url":"x"}},
			{"threatType":"MALWARE","threat":{"url":"x"}}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k")

	res, err := c.Check(context.Background(), "https://bad.example/")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Checked || !res.Flagged || len(res.ThreatTypes) != 2 || res.ThreatTypes[0] != "MALWARE" {
		t.Fatalf("res = %+v", res)
	}

	res, err = c.Check(context.Background(), "https://clean.example/")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Checked || res.Flagged {
		t.Fatalf("res = %+v", res)
	}
}

func TestCheckHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := New(srv.URL, "k").Check(context.Background(), "https://x.example/"); err == nil {
		t.Fatal("expected an error for a 403")
	}
}

func TestCheckErrorOmitsAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := New(addr, "SECRET-API-KEY").Check(context.Background(), "https://x.example/")
	if err == nil {
		t.Fatal("expected an error for an unreachable endpoint")
	}
	if strings.Contains(err.Error(), "SECRET-API-KEY") {
		t.Fatalf("error leaks the api key: %v", err)
	}
}
