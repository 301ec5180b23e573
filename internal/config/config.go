// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Logging       LoggingConfig       `koanf:"logging"`
	Ledger        LedgerConfig        `koanf:"ledger"`
	RateLimit     RateLimitConfig     `koanf:"rate_limit"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Suspicious    SuspiciousConfig    `koanf:"suspicious"`
	Session       SessionConfig       `koanf:"session"`
	Webhooks      WebhooksConfig      `koanf:"webhooks"`
	BehindCDN     BehindCDNConfig     `koanf:"behind_cdn"`
	Events        EventsConfig        `koanf:"events"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimitRequests is the number of API requests allowed per client IP
	// within RateLimitWindow.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig configures the global zerolog logger.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is json or console.
	// Default: json
	Format string `koanf:"format"`

	Caller bool `koanf:"caller"`
}

// Ledger drivers.
const (
	LedgerDriverMemory = "memory"
	LedgerDriverBadger = "badger"
	LedgerDriverDuckDB = "duckdb"
	LedgerDriverMongo  = "mongo"
)

// LedgerConfig selects and configures the authentication record store.
type LedgerConfig struct {
	// Driver is one of memory, badger, duckdb, mongo.
	// Default: badger
	Driver string `koanf:"driver"`

	// Path is the Badger directory or DuckDB database file.
	Path string `koanf:"path"`

	// URI, Database and Collection configure the mongo driver.
	URI        string `koanf:"uri"`
	Database   string `koanf:"database"`
	Collection string `koanf:"collection"`
}

// Rate limit counter drivers.
const (
	RateLimitDriverMemory = "memory"
	RateLimitDriverBadger = "badger"
	RateLimitDriverRedis  = "redis"
)

// RateLimitConfig selects the notification rate limiter counter store.
type RateLimitConfig struct {
	// Driver is one of memory, badger, redis.
	// Default: memory
	Driver   string `koanf:"driver"`
	Path     string `koanf:"path"`
	RedisURL string `koanf:"redis_url"`
}

// NotificationConfig configures one notification kind.
type NotificationConfig struct {
	Enabled bool `koanf:"enabled"`

	// Location includes the resolved location in the rendered message.
	Location bool `koanf:"location"`

	// RateLimit is the number of notifications allowed per principal within
	// RateLimitDecay.
	RateLimit      int           `koanf:"rate_limit"`
	RateLimitDecay time.Duration `koanf:"rate_limit_decay"`
}

// NotificationsConfig groups the per-kind notification settings.
type NotificationsConfig struct {
	// AppName is used in rendered notification subjects.
	// Default: Authtrail
	AppName string `koanf:"app_name"`

	NewDevice          NotificationConfig `koanf:"new_device"`
	FailedLogin        NotificationConfig `koanf:"failed_login"`
	SuspiciousActivity NotificationConfig `koanf:"suspicious_activity"`

	// NewUserThreshold suppresses new-device notifications for principals
	// created less than this long ago.
	// Default: 1m
	NewUserThreshold time.Duration `koanf:"new_user_threshold"`
}

// SuspiciousConfig configures the anomaly detectors.
type SuspiciousConfig struct {
	// FailedLoginThreshold is the number of failures within an hour that
	// marks activity suspicious.
	// Default: 5
	FailedLoginThreshold int `koanf:"failed_login_threshold"`

	// CheckUnusualTimes enables the unusual login time check.
	CheckUnusualTimes bool `koanf:"check_unusual_times"`

	// UsualHours lists hours of day (0-23) considered normal.
	// Default: 9-17
	UsualHours []int `koanf:"usual_hours"`
}

// Known device policies.
const (
	KnownDevicePolicyAnySuccess     = "any_success"
	KnownDevicePolicyActiveOrRecent = "active_or_recent"
)

// SessionConfig configures session restoration and the known-device check.
type SessionConfig struct {
	// PreventRestorationLogging treats a repeated login from an active device
	// within RestorationWindow as activity instead of a new session.
	// Default: true
	PreventRestorationLogging bool          `koanf:"prevent_restoration_logging"`
	RestorationWindow         time.Duration `koanf:"restoration_window"`

	// KnownDevicePolicy decides whether a device with a successful login
	// counts as known: any_success (ever) or active_or_recent.
	// Default: any_success
	KnownDevicePolicy string `koanf:"known_device_policy"`

	// KnownDeviceWindow bounds active_or_recent.
	KnownDeviceWindow time.Duration `koanf:"known_device_window"`
}

// WebhookEndpoint is one webhook receiver.
type WebhookEndpoint struct {
	URL string `koanf:"url"`

	// Events filters delivery: login, failed, new_device, suspicious or "*".
	Events  []string          `koanf:"events"`
	Headers map[string]string `koanf:"headers"`
}

// WebhooksConfig configures outbound webhook delivery.
type WebhooksConfig struct {
	Endpoints []WebhookEndpoint `koanf:"endpoints"`

	// URL and Events define a single endpoint from environment variables.
	URL    string   `koanf:"url"`
	Events []string `koanf:"events"`

	// Timeout bounds each HTTP call.
	// Default: 10s
	Timeout     time.Duration `koanf:"timeout"`
	LogFailures bool          `koanf:"log_failures"`

	// RatePerSecond paces deliveries per endpoint (0 disables pacing).
	RatePerSecond float64 `koanf:"rate_per_second"`
	Burst         int     `koanf:"burst"`
}

// AllEndpoints returns Endpoints plus the env-defined endpoint, if any.
func (w WebhooksConfig) AllEndpoints() []WebhookEndpoint {
	out := make([]WebhookEndpoint, 0, len(w.Endpoints)+1)
	out = append(out, w.Endpoints...)
	if w.URL != "" {
		events := w.Events
		if len(events) == 0 {
			events = []string{"*"}
		}
		out = append(out, WebhookEndpoint{URL: w.URL, Events: events})
	}
	return out
}

// BehindCDNConfig names the header carrying the client IP when the service
// sits behind a CDN or reverse proxy.
type BehindCDNConfig struct {
	HTTPHeaderField string `koanf:"http_header_field"`
}

// EventsConfig configures the in-process Watermill bus.
type EventsConfig struct {
	Topic                string        `koanf:"topic"`
	BufferSize           int64         `koanf:"buffer_size"`
	RetryMaxRetries      int           `koanf:"retry_max_retries"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	CloseTimeout         time.Duration `koanf:"close_timeout"`
}
