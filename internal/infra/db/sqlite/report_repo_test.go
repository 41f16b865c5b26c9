package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	domain "github.com/bryanwahyu/urlsentry/internal/domain/reports"
)

func openTestRepo(t *testing.T) (*ReportRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "reports.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewReportRepository(db), path
}

func TestOpenRestrictsPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	_, path := openTestRepo(t)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm = %o, want 600", perm)
	}
}

func TestReportRepository(t *testing.T) {
	repo, _ := openTestRepo(t)
	ctx := context.Background()

	older := &domain.Report{ID: "r-old", URL: "https://a.example/", Reason: "spam", TabID: 4, TimestampMillis: 1_700_000_000_000}
	newer := &domain.Report{ID: "r-new", URL: "https://b.example/", Reason: "phishing", TimestampMillis: 1_700_000_500_000}
	for _, r := range []*domain.Report{older, newer} {
		if err := repo.Save(ctx, r); err != nil {
			t.Fatalf("save %s: %v", r.ID, err)
		}
	}

	got, err := repo.Get(ctx, "r-old")
	if err != nil {
		t.Fatal(err)
	}
	if got.URL != older.URL || got.TabID != 4 || got.TimestampMillis != older.TimestampMillis || got.Triage != nil {
		t.Fatalf("got %+v", got)
	}

	if err := repo.UpdateTriage(ctx, "r-old", domain.Triage{Category: domain.CategoryScam, Confidence: 0.6, Summary: "lure"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpdateArchive(ctx, "r-old", "http://archive/r-old.json"); err != nil {
		t.Fatal(err)
	}
	got, _ = repo.Get(ctx, "r-old")
	if got.Triage == nil || got.Triage.Category != domain.CategoryScam || got.ArchiveURL != "http://archive/r-old.json" {
		t.Fatalf("after update %+v", got)
	}

	list, err := repo.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "r-new" {
		t.Fatalf("list = %+v", list)
	}

	if _, err := repo.Get(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if err := repo.UpdateArchive(ctx, "nope", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}
