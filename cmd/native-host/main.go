// Command native-host is the browser native-messaging host. stdout carries
// protocol frames, so all logging goes to stderr.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bryanwahyu/urlsentry/internal/application/coordinator"
	"github.com/bryanwahyu/urlsentry/internal/config"
	"github.com/bryanwahyu/urlsentry/internal/infra/nativemsg"
	"github.com/bryanwahyu/urlsentry/internal/infra/wire"
	"github.com/bryanwahyu/urlsentry/internal/logging"
	"github.com/bryanwahyu/urlsentry/internal/middleware"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "urlsentry-host: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	logger := logging.NewWithWriter(os.Stderr, logging.ParseLevel(cfg.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// reports persist locally unless a server database is configured
	driver := ""
	if cfg.Database.Driver == "memory" {
		driver = "sqlite"
	}
	comps, err := wire.Build(ctx, cfg, logger, driver)
	if err != nil {
		return err
	}
	defer comps.Close()

	host := nativemsg.NewHost(os.Stdin, os.Stdout, logger)
	host.Version = version
	host.Handler = &coordinator.Coordinator{
		Engine:   comps.Engine,
		Store:    comps.Store,
		Badges:   host,
		Warnings: host,
		Reports:  comps.Reports,
		Log:      logger,
		OnResult: middleware.RecordAnalysis,
	}

	logger.Info("native host started", "version", version)
	if err := host.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
