// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package config

import (
	"fmt"
	"strings"
)

// Validate checks that configuration values are present and consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateRateLimit(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateSuspicious(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateWebhooks(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitRequests < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Server.RateLimitRequests)
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Server.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateLedger() error {
	switch c.Ledger.Driver {
	case LedgerDriverMemory:
		return nil
	case LedgerDriverBadger, LedgerDriverDuckDB:
		if c.Ledger.Path == "" {
			return fmt.Errorf("LEDGER_PATH is required for the %s ledger driver", c.Ledger.Driver)
		}
		return nil
	case LedgerDriverMongo:
		if c.Ledger.URI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo ledger driver")
		}
		if c.Ledger.Database == "" || c.Ledger.Collection == "" {
			return fmt.Errorf("MONGO_DATABASE and MONGO_COLLECTION are required for the mongo ledger driver")
		}
		return nil
	default:
		return fmt.Errorf("LEDGER_DRIVER must be one of memory, badger, duckdb, mongo, got %q", c.Ledger.Driver)
	}
}

func (c *Config) validateRateLimit() error {
	switch c.RateLimit.Driver {
	case RateLimitDriverMemory:
		return nil
	case RateLimitDriverBadger:
		if c.RateLimit.Path == "" {
			return fmt.Errorf("RATELIMIT_PATH is required for the badger rate limit driver")
		}
		if c.Ledger.Driver == LedgerDriverBadger && c.RateLimit.Path == c.Ledger.Path {
			return fmt.Errorf("RATELIMIT_PATH must differ from LEDGER_PATH")
		}
		return nil
	case RateLimitDriverRedis:
		if c.RateLimit.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis rate limit driver")
		}
		return nil
	default:
		return fmt.Errorf("RATELIMIT_DRIVER must be one of memory, badger, redis, got %q", c.RateLimit.Driver)
	}
}

func (c *Config) validateNotifications() error {
	kinds := map[string]NotificationConfig{
		"new_device":          c.Notifications.NewDevice,
		"failed_login":        c.Notifications.FailedLogin,
		"suspicious_activity": c.Notifications.SuspiciousActivity,
	}
	for name, n := range kinds {
		if !n.Enabled {
			continue
		}
		if n.RateLimit < 1 {
			return fmt.Errorf("notifications.%s.rate_limit must be at least 1, got %d", name, n.RateLimit)
		}
		if n.RateLimitDecay <= 0 {
			return fmt.Errorf("notifications.%s.rate_limit_decay must be positive, got %v", name, n.RateLimitDecay)
		}
	}
	if c.Notifications.NewUserThreshold < 0 {
		return fmt.Errorf("NEW_USER_THRESHOLD must not be negative, got %v", c.Notifications.NewUserThreshold)
	}
	return nil
}

func (c *Config) validateSuspicious() error {
	if c.Suspicious.FailedLoginThreshold < 1 {
		return fmt.Errorf("FAILED_LOGIN_THRESHOLD must be at least 1, got %d", c.Suspicious.FailedLoginThreshold)
	}
	for _, h := range c.Suspicious.UsualHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("USUAL_HOURS entries must be between 0 and 23, got %d", h)
		}
	}
	if c.Suspicious.CheckUnusualTimes && len(c.Suspicious.UsualHours) == 0 {
		return fmt.Errorf("USUAL_HOURS is required when CHECK_UNUSUAL_TIMES=true")
	}
	return nil
}

func (c *Config) validateSession() error {
	if c.Session.PreventRestorationLogging && c.Session.RestorationWindow <= 0 {
		return fmt.Errorf("SESSION_RESTORATION_WINDOW must be positive, got %v", c.Session.RestorationWindow)
	}
	switch c.Session.KnownDevicePolicy {
	case KnownDevicePolicyAnySuccess:
	case KnownDevicePolicyActiveOrRecent:
		if c.Session.KnownDeviceWindow <= 0 {
			return fmt.Errorf("KNOWN_DEVICE_WINDOW must be positive for the active_or_recent policy")
		}
	default:
		return fmt.Errorf("KNOWN_DEVICE_POLICY must be any_success or active_or_recent, got %q", c.Session.KnownDevicePolicy)
	}
	return nil
}

var webhookEvents = map[string]bool{
	"*":          true,
	"login":      true,
	"failed":     true,
	"new_device": true,
	"suspicious": true,
}

func (c *Config) validateWebhooks() error {
	endpoints := c.Webhooks.AllEndpoints()
	if len(endpoints) == 0 {
		return nil
	}
	if c.Webhooks.Timeout <= 0 {
		return fmt.Errorf("WEBHOOK_TIMEOUT must be positive, got %v", c.Webhooks.Timeout)
	}
	if c.Webhooks.RatePerSecond < 0 {
		return fmt.Errorf("webhooks.rate_per_second must not be negative")
	}
	for i, ep := range endpoints {
		field := fmt.Sprintf("webhooks.endpoints[%d].url", i)
		if err := validateHTTPURL(ep.URL, field); err != nil {
			return err
		}
		if len(ep.Events) == 0 {
			return fmt.Errorf("webhooks.endpoints[%d].events must list at least one event", i)
		}
		for _, ev := range ep.Events {
			if !webhookEvents[ev] {
				return fmt.Errorf("webhooks.endpoints[%d] has unknown event %q", i, ev)
			}
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
