package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanwahyu/urlsentry/internal/application/coordinator"
	"github.com/bryanwahyu/urlsentry/internal/config"
	"github.com/bryanwahyu/urlsentry/internal/infra/httpserver"
	"github.com/bryanwahyu/urlsentry/internal/infra/push"
	"github.com/bryanwahyu/urlsentry/internal/infra/wire"
	"github.com/bryanwahyu/urlsentry/internal/logging"
	"github.com/bryanwahyu/urlsentry/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	logger := logging.NewWithWriter(os.Stdout, logging.ParseLevel(cfg.Log.Level))

	ctx := context.Background()
	comps, err := wire.Build(ctx, cfg, logger, "")
	if err != nil {
		log.Fatalf("init error: %v", err)
	}
	defer comps.Close()

	hub := push.NewHub()
	coord := &coordinator.Coordinator{
		Engine:   comps.Engine,
		Store:    comps.Store,
		Badges:   hub,
		Warnings: hub,
		Reports:  comps.Reports,
		Log:      logger,
		OnResult: middleware.RecordAnalysis,
	}

	handler := httpserver.NewRouter(httpserver.Options{
		Coordinator:    coord,
		Engine:         comps.Engine,
		Reports:        comps.Reports,
		Hub:            hub,
		Health:         comps.Health,
		APIKeys:        cfg.Server.APIKeys,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateCapacity:   cfg.Server.RateCapacity,
		RateRefill:     cfg.Server.RateRefill,
		Log:            logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: /v1/events is a long-lived stream
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}
