// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/authtrail/internal/config"
	"github.com/tomtom215/authtrail/internal/logging"
	"github.com/tomtom215/authtrail/internal/metrics"
	"github.com/tomtom215/authtrail/internal/models"
)

// Webhook event names.
const (
	EventLogin      = "login"
	EventFailed     = "failed"
	EventNewDevice  = "new_device"
	EventSuspicious = "suspicious"

	// EventAll subscribes an endpoint to every event.
	EventAll = "*"
)

// Envelope is the JSON body POSTed to webhook endpoints.
type Envelope struct {
	Event             string         `json:"event"`
	Timestamp         string         `json:"timestamp"`
	User              EnvelopeUser   `json:"user"`
	AuthenticationLog EnvelopeRecord `json:"authentication_log"`
}

// EnvelopeUser identifies the principal. Email is null when unknown.
type EnvelopeUser struct {
	ID    string  `json:"id"`
	Email *string `json:"email"`
}

// EnvelopeRecord is the subset of the record exposed to webhooks.
type EnvelopeRecord struct {
	ID              int64            `json:"id"`
	IPAddress       string           `json:"ip_address"`
	UserAgent       string           `json:"user_agent"`
	DeviceID        string           `json:"device_id"`
	DeviceName      string           `json:"device_name"`
	LoginAt         *string          `json:"login_at"`
	LoginSuccessful bool             `json:"login_successful"`
	IsSuspicious    bool             `json:"is_suspicious"`
	Location        *models.Location `json:"location"`
}

// NewEnvelope builds the webhook body for rec.
func NewEnvelope(event string, rec *models.AuthenticationRecord, principal models.Principal, now time.Time) Envelope {
	env := Envelope{
		Event:     event,
		Timestamp: now.Format(time.RFC3339),
		User:      EnvelopeUser{ID: principal.PrincipalID()},
		AuthenticationLog: EnvelopeRecord{
			ID:              rec.ID,
			IPAddress:       rec.IPAddress,
			UserAgent:       rec.UserAgent,
			DeviceID:        rec.DeviceID,
			DeviceName:      rec.DeviceName,
			LoginSuccessful: rec.LoginSuccessful,
			IsSuspicious:    rec.IsSuspicious,
			Location:        rec.Location,
		},
	}
	if email := models.EmailOf(principal); email != "" {
		env.User.Email = &email
	}
	if rec.LoginAt != nil {
		s := rec.LoginAt.Format(time.RFC3339)
		env.AuthenticationLog.LoginAt = &s
	}
	return env
}

// errStatus marks a delivery that reached the endpoint but was rejected.
type errStatus struct{ code int }

func (e errStatus) Error() string { return fmt.Sprintf("webhook returned status %d", e.code) }

type endpoint struct {
	url     string
	headers map[string]string
	all     bool
	events  map[string]bool
	breaker *gobreaker.CircuitBreaker[int]
	limiter *rate.Limiter
}

func (e *endpoint) wants(event string) bool {
	return e.all || e.events[event]
}

// WebhookDispatcher delivers envelopes to the configured endpoints. Each
// endpoint has its own circuit breaker and pacing limiter. Delivery failures
// are logged and counted but never returned to the caller.
type WebhookDispatcher struct {
	endpoints   []*endpoint
	client      *http.Client
	logFailures bool
	now         func() time.Time
}

// WebhookOption configures a WebhookDispatcher.
type WebhookOption func(*WebhookDispatcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(d *WebhookDispatcher) { d.client = c }
}

// WithWebhookClock overrides the clock used for envelope timestamps.
func WithWebhookClock(now func() time.Time) WebhookOption {
	return func(d *WebhookDispatcher) { d.now = now }
}

// NewWebhookDispatcher creates a dispatcher for cfg.AllEndpoints(). Endpoints
// without a URL or events are skipped.
func NewWebhookDispatcher(cfg config.WebhooksConfig, opts ...WebhookOption) *WebhookDispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	d := &WebhookDispatcher{
		client:      &http.Client{Timeout: timeout},
		logFailures: cfg.LogFailures,
		now:         time.Now,
	}

	for _, ep := range cfg.AllEndpoints() {
		if ep.URL == "" || len(ep.Events) == 0 {
			continue
		}
		e := &endpoint{
			url:     ep.URL,
			headers: make(map[string]string, len(ep.Headers)),
			events:  make(map[string]bool, len(ep.Events)),
			breaker: newBreaker(ep.URL),
		}
		for k, v := range ep.Headers {
			e.headers[k] = v
		}
		for _, ev := range ep.Events {
			if ev == EventAll {
				e.all = true
			}
			e.events[ev] = true
		}
		if cfg.RatePerSecond > 0 {
			burst := cfg.Burst
			if burst < 1 {
				burst = 1
			}
			e.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
		}
		d.endpoints = append(d.endpoints, e)
	}

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// newBreaker opens after five consecutive failures and probes again after
// thirty seconds.
func newBreaker(name string) *gobreaker.CircuitBreaker[int] {
	return gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("endpoint", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] Webhook state transition")
		},
	})
}

// Endpoints returns the number of usable endpoints.
func (d *WebhookDispatcher) Endpoints() int {
	return len(d.endpoints)
}

// Send POSTs the envelope for event to every subscribed endpoint
// concurrently and waits for all deliveries to finish.
func (d *WebhookDispatcher) Send(ctx context.Context, event string, rec *models.AuthenticationRecord, principal models.Principal) {
	if len(d.endpoints) == 0 || rec == nil || principal == nil {
		return
	}

	body, err := json.Marshal(NewEnvelope(event, rec, principal, d.now()))
	if err != nil {
		logging.Error().Err(err).Str("event", event).Msg("Failed to marshal webhook payload")
		return
	}

	var wg sync.WaitGroup
	for _, ep := range d.endpoints {
		if !ep.wants(event) {
			continue
		}
		wg.Add(1)
		go func(ep *endpoint) {
			defer wg.Done()
			d.deliver(ctx, ep, event, body)
		}(ep)
	}
	wg.Wait()
}

func (d *WebhookDispatcher) deliver(ctx context.Context, ep *endpoint, event string, body []byte) {
	start := time.Now()

	if ep.limiter != nil {
		if err := ep.limiter.Wait(ctx); err != nil {
			metrics.RecordWebhookDelivery(event, "rate_limited", time.Since(start))
			d.logFailure(ep, event, 0, err)
			return
		}
	}

	status, err := ep.breaker.Execute(func() (int, error) {
		return d.post(ctx, ep, body)
	})

	result := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result = "rejected"
	case err != nil:
		result = "failure"
	}
	metrics.RecordWebhookDelivery(event, result, time.Since(start))

	if err != nil {
		d.logFailure(ep, event, status, err)
	}
}

func (d *WebhookDispatcher) post(ctx context.Context, ep *endpoint, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range ep.headers {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, errStatus{code: resp.StatusCode}
	}
	return resp.StatusCode, nil
}

func (d *WebhookDispatcher) logFailure(ep *endpoint, event string, status int, err error) {
	if !d.logFailures {
		return
	}
	var se errStatus
	if errors.As(err, &se) {
		logging.Warn().
			Str("url", ep.url).
			Str("event", event).
			Int("status", status).
			Msg("Webhook failed")
		return
	}
	logging.Error().
		Err(err).
		Str("url", ep.url).
		Str("event", event).
		Msg("Webhook exception")
}
