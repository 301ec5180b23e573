// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"authtrail.yaml",
	"config.yaml",
	"/etc/authtrail/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Default returns the built-in configuration without reading any source.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8087,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Ledger: LedgerConfig{
			Driver:     LedgerDriverBadger,
			Path:       "/data/authtrail/ledger",
			Database:   "authtrail",
			Collection: "authentication_log",
		},
		RateLimit: RateLimitConfig{
			Driver: RateLimitDriverMemory,
			Path:   "/data/authtrail/ratelimit",
		},
		Notifications: NotificationsConfig{
			AppName: "Authtrail",
			NewDevice: NotificationConfig{
				Enabled:        true,
				Location:       true,
				RateLimit:      3,
				RateLimitDecay: time.Hour,
			},
			FailedLogin: NotificationConfig{
				Enabled:        false,
				Location:       true,
				RateLimit:      5,
				RateLimitDecay: time.Hour,
			},
			SuspiciousActivity: NotificationConfig{
				Enabled:        true,
				Location:       true,
				RateLimit:      3,
				RateLimitDecay: time.Hour,
			},
			NewUserThreshold: time.Minute,
		},
		Suspicious: SuspiciousConfig{
			FailedLoginThreshold: 5,
			CheckUnusualTimes:    false,
			UsualHours:           []int{9, 10, 11, 12, 13, 14, 15, 16, 17},
		},
		Session: SessionConfig{
			PreventRestorationLogging: true,
			RestorationWindow:         5 * time.Minute,
			KnownDevicePolicy:         KnownDevicePolicyAnySuccess,
			KnownDeviceWindow:         30 * 24 * time.Hour,
		},
		Webhooks: WebhooksConfig{
			Timeout:       10 * time.Second,
			LogFailures:   true,
			RatePerSecond: 5,
			Burst:         10,
		},
		Events: EventsConfig{
			Topic:                "auth.events",
			BufferSize:           256,
			RetryMaxRetries:      3,
			RetryInitialInterval: 100 * time.Millisecond,
			CloseTimeout:         30 * time.Second,
		},
	}
}

// Load reads configuration from layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"suspicious.usual_hours",
	"webhooks.events",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so unrelated environment does not leak in.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"rate_limit_requests":   "server.rate_limit_requests",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"ledger_driver":    "ledger.driver",
	"ledger_path":      "ledger.path",
	"mongo_uri":        "ledger.uri",
	"mongo_database":   "ledger.database",
	"mongo_collection": "ledger.collection",

	"ratelimit_driver": "rate_limit.driver",
	"ratelimit_path":   "rate_limit.path",
	"redis_url":        "rate_limit.redis_url",

	"app_name": "notifications.app_name",

	"new_device_notification_enabled":          "notifications.new_device.enabled",
	"new_device_notification_rate_limit":       "notifications.new_device.rate_limit",
	"new_device_notification_rate_limit_decay": "notifications.new_device.rate_limit_decay",
	"failed_login_notification_enabled":        "notifications.failed_login.enabled",
	"failed_login_notification_rate_limit":     "notifications.failed_login.rate_limit",
	"suspicious_notification_enabled":          "notifications.suspicious_activity.enabled",
	"suspicious_notification_rate_limit":       "notifications.suspicious_activity.rate_limit",
	"new_user_threshold":                       "notifications.new_user_threshold",

	"failed_login_threshold": "suspicious.failed_login_threshold",
	"check_unusual_times":    "suspicious.check_unusual_times",
	"usual_hours":            "suspicious.usual_hours",

	"prevent_session_restoration_logging": "session.prevent_restoration_logging",
	"session_restoration_window":          "session.restoration_window",
	"known_device_policy":                 "session.known_device_policy",
	"known_device_window":                 "session.known_device_window",

	"webhook_url":          "webhooks.url",
	"webhook_events":       "webhooks.events",
	"webhook_timeout":      "webhooks.timeout",
	"webhook_log_failures": "webhooks.log_failures",

	"behind_cdn_header": "behind_cdn.http_header_field",

	"events_topic": "events.topic",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
