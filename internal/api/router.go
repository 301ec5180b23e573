// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/authtrail/internal/config"
	"github.com/tomtom215/authtrail/internal/events"
	"github.com/tomtom215/authtrail/internal/middleware"
	"github.com/tomtom215/authtrail/internal/sessions"
)

// EventPublisher hands validated envelopes to the bus.
type EventPublisher interface {
	Publish(ctx context.Context, env *events.Envelope) error
}

// Router holds the dependencies of the HTTP handlers.
type Router struct {
	cfg       config.ServerConfig
	publisher EventPublisher
	sessions  *sessions.Manager
	metrics   http.Handler
}

// Option customizes a Router.
type Option func(*Router)

// WithMetricsHandler replaces the default promhttp handler.
func WithMetricsHandler(h http.Handler) Option {
	return func(r *Router) { r.metrics = h }
}

// NewRouter creates a Router.
func NewRouter(cfg config.ServerConfig, publisher EventPublisher, m *sessions.Manager, opts ...Option) *Router {
	r := &Router{
		cfg:       cfg,
		publisher: publisher,
		sessions:  m,
		metrics:   promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// chiMiddleware adapts http.HandlerFunc middleware to chi.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Handler builds the chi mux.
func (router *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.Recoverer)
	r.Use(chiMiddleware(middleware.PrometheusMetrics))

	r.Get("/healthz", router.handleHealth)
	r.Handle("/metrics", router.metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Use(router.rateLimit())

		r.Post("/events", router.handlePublishEvent)

		r.Route("/principals/{type}/{id}", func(r chi.Router) {
			r.Get("/stats", router.handleStats)
			r.Get("/sessions", router.handleSessions)
			r.Delete("/sessions/{sessionID}", router.handleRevokeSession)
			r.Get("/devices", router.handleDevices)
			r.Post("/devices/{deviceID}/trust", router.handleTrustDevice)
			r.Post("/devices/{deviceID}/untrust", router.handleUntrustDevice)
		})
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

// rateLimit limits the /v1 routes per client IP.
func (router *Router) rateLimit() func(http.Handler) http.Handler {
	if router.cfg.RateLimitDisabled || router.cfg.RateLimitRequests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		router.cfg.RateLimitRequests,
		router.cfg.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, http.StatusTooManyRequests, "Too many requests")
		}),
	)
}
