// Package wire builds the shared object graph of both binaries from config.
package wire

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bryanwahyu/urlsentry/internal/application"
	appai "github.com/bryanwahyu/urlsentry/internal/application/ai"
	appanalysis "github.com/bryanwahyu/urlsentry/internal/application/analysis"
	appreports "github.com/bryanwahyu/urlsentry/internal/application/reports"
	appreputation "github.com/bryanwahyu/urlsentry/internal/application/reputation"
	"github.com/bryanwahyu/urlsentry/internal/config"
	domanalysis "github.com/bryanwahyu/urlsentry/internal/domain/analysis"
	"github.com/bryanwahyu/urlsentry/internal/domain/features"
	"github.com/bryanwahyu/urlsentry/internal/domain/heuristics"
	domreports "github.com/bryanwahyu/urlsentry/internal/domain/reports"
	"github.com/bryanwahyu/urlsentry/internal/domain/reputation"
	"github.com/bryanwahyu/urlsentry/internal/infra/ai/openai"
	"github.com/bryanwahyu/urlsentry/internal/infra/ai/prompt"
	"github.com/bryanwahyu/urlsentry/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/urlsentry/internal/infra/db/mysql"
	"github.com/bryanwahyu/urlsentry/internal/infra/db/postgres"
	"github.com/bryanwahyu/urlsentry/internal/infra/db/sqlite"
	"github.com/bryanwahyu/urlsentry/internal/infra/reputation/malwarescan"
	"github.com/bryanwahyu/urlsentry/internal/infra/reputation/safebrowsing"
	"github.com/bryanwahyu/urlsentry/internal/infra/reputation/simulated"
	"github.com/bryanwahyu/urlsentry/internal/infra/session"
	"github.com/bryanwahyu/urlsentry/internal/infra/storage"
	"github.com/bryanwahyu/urlsentry/internal/logging"
	"github.com/bryanwahyu/urlsentry/internal/middleware"
)

// Components holds everything built from config. Close releases it.
type Components struct {
	Engine  *appanalysis.Engine
	Store   domanalysis.StateStore
	Reports *appreports.Service
	Health  map[string]middleware.HealthChecker

	closers []func() error
}

func (c *Components) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Reputation picks a real HTTP backend per service when its API key is
// configured and the deterministic simulation otherwise.
func Reputation(cfg *config.Config, log *logging.Logger) *appreputation.Aggregator {
	var sb, mw reputation.Backend = simulated.SafeBrowsing{}, simulated.MalwareScan{}
	if key := cfg.Reputation.SafeBrowsing.APIKey; key != "" {
		sb = safebrowsing.New(cfg.Reputation.SafeBrowsing.BaseURL, key)
	}
	if key := cfg.Reputation.MalwareScan.APIKey; key != "" {
		mw = malwarescan.New(cfg.Reputation.MalwareScan.BaseURL, key)
	}
	log.Info("reputation backends",
		"safeBrowsing", backendKind(cfg.Reputation.SafeBrowsing.APIKey),
		"malwareScan", backendKind(cfg.Reputation.MalwareScan.APIKey),
		"timeout", cfg.Reputation.Timeout)

	return &appreputation.Aggregator{
		SafeBrowsing: sb,
		MalwareScan:  mw,
		Blocklist:    reputation.NewBlocklist(cfg.Reputation.Blocklist, cfg.Reputation.Allowlist),
		Timeout:      cfg.Reputation.Timeout,
		Log:          log,
	}
}

func backendKind(key string) string {
	if key == "" {
		return "simulated"
	}
	return "remote"
}

// Engine builds the fusion engine.
func Engine(cfg *config.Config, log *logging.Logger) *appanalysis.Engine {
	return &appanalysis.Engine{
		Features:   features.NewScorer(),
		Heuristics: heuristics.NewEngine(),
		Reputation: Reputation(cfg, log),
		Clock:      application.SystemClock{},
		Log:        log,
	}
}

// Build wires engine, session store and report service. driverOverride
// replaces cfg.Database.Driver when non-empty.
func Build(ctx context.Context, cfg *config.Config, log *logging.Logger, driverOverride string) (*Components, error) {
	c := &Components{
		Engine: Engine(cfg, log),
		Health: map[string]middleware.HealthChecker{},
	}

	store, err := c.sessionStore(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Store = store

	driver := cfg.Database.Driver
	if driverOverride != "" {
		driver = driverOverride
	}
	repo, err := c.reportRepo(ctx, cfg, driver)
	if err != nil {
		c.Close()
		return nil, err
	}

	svc := &appreports.Service{
		Repo:  repo,
		Clock: application.SystemClock{},
		Log:   log,
		Async: true,
	}
	if cfg.Minio.Enabled {
		archive, err := storage.New(ctx, cfg.Minio.Endpoint, cfg.Minio.Region, cfg.Minio.BucketName,
			cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("minio init: %w", err)
		}
		svc.Archive = archive
		c.Health["archive"] = &middleware.PingHealthChecker{Pinger: archive}
	}
	switch {
	case cfg.OpenAI.APIKey != "":
		svc.Triager = appai.NewService(openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model))
	case cfg.OpenAI.Offline:
		svc.Triager = appai.NewService(prompt.Offline{})
	}
	c.Reports = svc
	return c, nil
}

func (c *Components) sessionStore(ctx context.Context, cfg *config.Config) (domanalysis.StateStore, error) {
	if cfg.Session.Driver != "redis" {
		return session.NewMemoryStore(), nil
	}
	rc := cfg.Session.Redis
	rdb, err := session.Connect(ctx, rc.Addr, rc.Password, rc.DB)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, rdb.Close)
	store := session.NewRedisStore(rdb, rc.TTL)
	c.Health["redis"] = &middleware.PingHealthChecker{Pinger: store}
	return store, nil
}

func (c *Components) reportRepo(ctx context.Context, cfg *config.Config, driver string) (domreports.Repository, error) {
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case "mysql":
		if db, err = mysqlp.Connect(ctx, cfg.MySQLDSN()); err == nil {
			err = mysqlp.Migrate(ctx, db)
		}
	case "postgres":
		if db, err = postgres.Connect(ctx, cfg.PostgresDSN()); err == nil {
			err = postgres.Migrate(ctx, db)
		}
	case "sqlite":
		if db, err = sqlite.Open(cfg.Database.Path); err == nil {
			err = sqlite.Migrate(ctx, db)
		}
	default:
		return memory.NewReportRepository(), nil
	}
	if db != nil {
		c.closers = append(c.closers, db.Close)
	}
	if err != nil {
		return nil, fmt.Errorf("%s report store: %w", driver, err)
	}
	c.Health["database"] = &middleware.DatabaseHealthChecker{DB: db}

	switch driver {
	case "mysql":
		return mysqlp.NewReportRepository(db), nil
	case "postgres":
		return postgres.NewReportRepository(db), nil
	default:
		return sqlite.NewReportRepository(db), nil
	}
}
