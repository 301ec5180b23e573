// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package correlator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/authtrail/internal/config"
	"github.com/tomtom215/authtrail/internal/detection"
	"github.com/tomtom215/authtrail/internal/fingerprint"
	"github.com/tomtom215/authtrail/internal/ledger"
	"github.com/tomtom215/authtrail/internal/logging"
	"github.com/tomtom215/authtrail/internal/models"
	"github.com/tomtom215/authtrail/internal/notify"
	"github.com/tomtom215/authtrail/internal/ratelimit"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// GeoResolver resolves an IP address to a location. A nil location with a
// nil error means the address is unknown.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) (*models.Location, error)
}

// WebhookSender delivers webhook events. Delivery failures are handled by
// the sender and never reported back.
type WebhookSender interface {
	Send(ctx context.Context, event string, rec *models.AuthenticationRecord, principal models.Principal)
}

// Meta is the request context of an authentication event.
type Meta struct {
	Request fingerprint.RequestMeta

	// Location, when set, is used instead of resolving Request.IP.
	Location *models.Location
}

// Outcome describes what an event did to the ledger.
type Outcome struct {
	// Record is the record created, updated or closed.
	Record *models.AuthenticationRecord

	// Restored is set when a login was treated as session restoration.
	Restored bool

	// Placeholder is set when a logout matched no session and a new record
	// was created for it.
	Placeholder bool

	Findings []models.Finding

	// Cleared counts sessions closed by OtherDeviceLogout.
	Cleared int
}

// Correlator turns authentication events into ledger records, runs anomaly
// detection and dispatches notifications and webhooks.
//
// Events for the same principal should be serialized by the caller; the
// read-then-write sequences here are not atomic across records.
type Correlator struct {
	store    ledger.Store
	limiter  *ratelimit.Limiter
	engine   *detection.Engine
	failed   *detection.FailedLoginsDetector
	cfg      *config.Config
	clock    Clock
	notifier notify.Notifier
	webhooks WebhookSender
	geo      GeoResolver
	audit    *logging.AuditLogger
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithConfig overrides the built-in configuration.
func WithConfig(cfg *config.Config) Option {
	return func(c *Correlator) {
		if cfg != nil {
			c.cfg = cfg
		}
	}
}

// WithClock overrides the clock.
func WithClock(clock Clock) Option {
	return func(c *Correlator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithNotifier sets the principal notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Correlator) { c.notifier = n }
}

// WithWebhooks sets the webhook sender.
func WithWebhooks(w WebhookSender) Option {
	return func(c *Correlator) { c.webhooks = w }
}

// WithGeoResolver sets the location resolver.
func WithGeoResolver(g GeoResolver) Option {
	return func(c *Correlator) { c.geo = g }
}

// WithAuditLogger overrides the audit logger.
func WithAuditLogger(a *logging.AuditLogger) Option {
	return func(c *Correlator) {
		if a != nil {
			c.audit = a
		}
	}
}

// New creates a Correlator. A nil limiter gets an in-memory one and a nil
// engine gets the default detectors for the configuration.
func New(store ledger.Store, limiter *ratelimit.Limiter, engine *detection.Engine, opts ...Option) *Correlator {
	c := &Correlator{
		store:   store,
		limiter: limiter,
		engine:  engine,
		cfg:     config.Default(),
		clock:   ClockFunc(time.Now),
		audit:   logging.NewAuditLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.limiter == nil {
		c.limiter = ratelimit.New(ratelimit.NewMemoryStore())
	}
	if c.engine == nil {
		c.engine = detection.NewDefaultEngine(store, c.cfg.Suspicious)
	}
	if d, ok := c.engine.GetDetector(models.FindingMultipleFailedLogins); ok {
		c.failed, _ = d.(*detection.FailedLoginsDetector)
	}
	if c.failed == nil {
		c.failed = detection.NewFailedLoginsDetector(store)
		if t := c.cfg.Suspicious.FailedLoginThreshold; t > 0 {
			_ = c.failed.Configure([]byte(fmt.Sprintf(`{"threshold":%d}`, t)))
		}
	}
	return c
}

// first returns the first match or nil, hiding ErrNotFound.
func (c *Correlator) first(ctx context.Context, q ledger.Query) (*models.AuthenticationRecord, error) {
	rec, err := c.store.First(ctx, q)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// location picks the event location: the supplied one, else the resolver's.
func (c *Correlator) location(ctx context.Context, meta Meta) *models.Location {
	if meta.Location != nil {
		loc := *meta.Location
		return &loc
	}
	if c.geo == nil || meta.Request.IP == "" {
		return nil
	}
	loc, err := c.geo.Resolve(ctx, meta.Request.IP)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("ip", meta.Request.IP).Msg("Failed to resolve location")
		return nil
	}
	return loc
}

// device describes the request's device the way records store it.
type device struct {
	id        string
	name      string
	userAgent string
}

func deviceOf(meta Meta) device {
	return device{
		id:        fingerprint.Generate(meta.Request),
		name:      fingerprint.DeviceName(meta.Request),
		userAgent: fingerprint.ParseUserAgent(meta.Request.UserAgent),
	}
}
