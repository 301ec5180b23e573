// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

// Package main is the entry point for the Authtrail server.
//
// Authtrail records authentication events (logins, failed logins, logouts)
// per principal, correlates them into sessions and devices, flags anomalies
// and notifies principals about new devices and suspicious activity.
//
// # Application Architecture
//
//  1. Configuration: .env (godotenv), then defaults, YAML file and env vars (koanf v2)
//  2. Ledger: memory, Badger, DuckDB or MongoDB record store
//  3. Rate limiter: memory, Badger or Redis counter store
//  4. Correlator: detection engine, notifier and webhook dispatcher
//  5. Event bus: Watermill gochannel and router feeding the correlator
//  6. HTTP API: chi router publishing events and serving session queries
//
// Components run under a suture supervision tree and shut down on SIGINT or
// SIGTERM.
//
// # Example Usage
//
//	export LEDGER_DRIVER=badger
//	export LEDGER_PATH=/var/lib/authtrail/ledger
//	export WEBHOOK_URL=https://siem.example.com/hooks/auth
//	./authtrail
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/joho/godotenv"

	"github.com/tomtom215/authtrail/internal/api"
	"github.com/tomtom215/authtrail/internal/config"
	"github.com/tomtom215/authtrail/internal/correlator"
	"github.com/tomtom215/authtrail/internal/detection"
	"github.com/tomtom215/authtrail/internal/events"
	"github.com/tomtom215/authtrail/internal/ledger"
	"github.com/tomtom215/authtrail/internal/logging"
	"github.com/tomtom215/authtrail/internal/notify"
	"github.com/tomtom215/authtrail/internal/ratelimit"
	"github.com/tomtom215/authtrail/internal/sessions"
	"github.com/tomtom215/authtrail/internal/supervisor"
	"github.com/tomtom215/authtrail/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Authtrail stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

//nolint:gocyclo // sequential setup steps
func run() error {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn().Err(err).Msg("Failed to load .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("ledger_driver", cfg.Ledger.Driver).
		Str("rate_limit_driver", cfg.RateLimit.Driver).
		Int("webhook_endpoints", len(cfg.Webhooks.AllEndpoints())).
		Msg("Starting Authtrail")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === STORAGE ===

	store, err := ledger.Open(ctx, cfg.Ledger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing ledger")
		}
	}()

	counters, countersCloser, err := ratelimit.Open(ctx, cfg.RateLimit)
	if err != nil {
		return fmt.Errorf("open rate limit store: %w", err)
	}
	defer func() {
		if err := countersCloser.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing rate limit store")
		}
	}()

	// === CORRELATION ===

	engine := detection.NewDefaultEngine(store, cfg.Suspicious)
	notifier := notify.NewChannelNotifier(
		notify.DefaultRenderers(cfg.Notifications),
		notify.NewLogChannel(),
	)
	webhooks := notify.NewWebhookDispatcher(cfg.Webhooks)

	corr := correlator.New(store, ratelimit.New(counters), engine,
		correlator.WithConfig(cfg),
		correlator.WithNotifier(notifier),
		correlator.WithWebhooks(webhooks),
	)

	// === EVENT BUS ===

	busLogger := watermill.NewSlogLogger(logging.NewSlogLogger())
	bus := events.NewGoChannel(cfg.Events, busLogger)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	router, err := events.NewRouter(cfg.Events, bus, events.NewHandler(corr), busLogger)
	if err != nil {
		return fmt.Errorf("create event router: %w", err)
	}

	// === HTTP API ===

	apiRouter := api.NewRouter(cfg.Server,
		events.NewPublisher(bus, cfg.Events.Topic),
		sessions.NewManager(store),
	)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      apiRouter.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	if gc, ok := ledger.Unwrap(store).(services.ValueLogGCer); ok {
		tree.AddStorageService(services.NewValueLogGCService("ledger", gc, 0))
	}
	if gc, ok := counters.(services.ValueLogGCer); ok {
		tree.AddStorageService(services.NewValueLogGCService("ratelimit", gc, 0))
	}
	tree.AddMessagingService(services.NewRouterService(router))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}
	return nil
}
