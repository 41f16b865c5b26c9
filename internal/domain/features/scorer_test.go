package features

import (
	"errors"
	"testing"

	"github.com/bryanwahyu/urlsentry/internal/domain/risk"
)

func TestScoreKnownURLs(t *testing.T) {
	s := NewScorer()
	tests := []struct {
		name  string
		url   string
		score int
		level risk.Level
	}{
		{"plain https domain", "https://example.com/", 0, risk.LevelSafe},
		{"ip literal over http with keyword", "http://192.168.1.5/login", 45, risk.LevelMedium},
		{"high risk tld over http", "http://free-prize-winner.xyz", 40, risk.LevelMedium},
		{"shortener", "https://bit.ly/abc", 15, risk.LevelSafe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.url)
			if got.Score != tt.score {
				t.Fatalf("score = %d, want %d (breakdown %+v)", got.Score, tt.score, got.Breakdown)
			}
			if got.RiskLevel != tt.level {
				t.Fatalf("level = %s, want %s", got.RiskLevel, tt.level)
			}
		})
	}
}

func TestScoreUnparseable(t *testing.T) {
	got := NewScorer().Score("not a url")
	if got.Score != 100 || got.RiskLevel != risk.LevelHigh {
		t.Fatalf("got %d/%s, want 100/high", got.Score, got.RiskLevel)
	}
	if len(got.Breakdown) != 1 || got.Breakdown[0].Key != "error" {
		t.Fatalf("breakdown = %+v", got.Breakdown)
	}
}

func TestScoreBreakdownSumsToScore(t *testing.T) {
	got := NewScorer().Score("http://secure-login.verify-account.example.tk:8080/a//b?x=%41%42%43%44")
	sum := 0
	for _, c := range got.Breakdown {
		sum += c.Points
	}
	if want := risk.Clamp(sum); got.Score != want {
		t.Fatalf("score = %d, breakdown sums to %d", got.Score, sum)
	}
	for _, key := range []string{"no_https", "non_standard_port", "double_slash_path", "high_risk_tld", "suspicious_keywords", "percent_encoding"} {
		if got.Points(key) == 0 {
			t.Errorf("expected a %s contribution, breakdown %+v", key, got.Breakdown)
		}
	}
}

func TestKeywordsNeverLowerScore(t *testing.T) {
	s := NewScorer()
	base := s.Score("https://example.com/home").Score
	for _, path := range []string{"login", "verify", "account", "password"} {
		if got := s.Score("https://example.com/home/" + path).Score; got < base {
			t.Errorf("adding %q lowered score %d -> %d", path, base, got)
		}
	}
}

func TestExtract(t *testing.T) {
	f, err := Extract("https://Login.Secure.Example.co.uk:8443/a//b?q=1")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if f.Hostname != "login.secure.example.co.uk" {
		t.Errorf("hostname = %q", f.Hostname)
	}
	if f.RegistrableDomain != "example.co.uk" || f.TopLevelDomain != "co.uk" {
		t.Errorf("domain = %q tld = %q", f.RegistrableDomain, f.TopLevelDomain)
	}
	if f.SubdomainCount != 2 {
		t.Errorf("subdomains = %d, want 2", f.SubdomainCount)
	}
	if !f.HasNonStandardPort || !f.HasDoubleSlashInPath || !f.IsHTTPS {
		t.Errorf("flags = %+v", f)
	}

	if _, err := Extract("/relative/path"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("relative url err = %v, want ErrInvalidURL", err)
	}
}

func TestHostHelpers(t *testing.T) {
	if !IsIPLiteral("10.0.0.1") || !IsIPLiteral("[::1]") || IsIPLiteral("example.com") {
		t.Fatal("IsIPLiteral misclassified a host")
	}
	if !IsShortener("www.bit.ly") || IsShortener("notbit.ly") {
		t.Fatal("IsShortener should match only the domain and its subdomains")
	}
	if got := NormalizeHost("Bücher.Example."); got != "xn--bcher-kva.example" {
		t.Fatalf("NormalizeHost = %q", got)
	}
}
