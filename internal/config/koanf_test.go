// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns the documented defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Suspicious.FailedLoginThreshold != 5 {
		t.Errorf("Suspicious.FailedLoginThreshold = %d, want 5", cfg.Suspicious.FailedLoginThreshold)
	}
	if cfg.Suspicious.CheckUnusualTimes {
		t.Error("Suspicious.CheckUnusualTimes should be false by default")
	}
	if want := []int{9, 10, 11, 12, 13, 14, 15, 16, 17}; !reflect.DeepEqual(cfg.Suspicious.UsualHours, want) {
		t.Errorf("Suspicious.UsualHours = %v, want %v", cfg.Suspicious.UsualHours, want)
	}
	if !cfg.Session.PreventRestorationLogging {
		t.Error("Session.PreventRestorationLogging should be true by default")
	}
	if cfg.Session.RestorationWindow != 5*time.Minute {
		t.Errorf("Session.RestorationWindow = %v, want 5m", cfg.Session.RestorationWindow)
	}
	if cfg.Session.KnownDevicePolicy != KnownDevicePolicyAnySuccess {
		t.Errorf("Session.KnownDevicePolicy = %q, want %q", cfg.Session.KnownDevicePolicy, KnownDevicePolicyAnySuccess)
	}
	if cfg.Notifications.NewUserThreshold != time.Minute {
		t.Errorf("Notifications.NewUserThreshold = %v, want 1m", cfg.Notifications.NewUserThreshold)
	}
	if cfg.Notifications.NewDevice.RateLimit != 3 || cfg.Notifications.NewDevice.RateLimitDecay != time.Hour {
		t.Errorf("Notifications.NewDevice rate limit = %d/%v, want 3/1h",
			cfg.Notifications.NewDevice.RateLimit, cfg.Notifications.NewDevice.RateLimitDecay)
	}
	if cfg.Notifications.FailedLogin.Enabled {
		t.Error("Notifications.FailedLogin.Enabled should be false by default")
	}
	if cfg.Notifications.FailedLogin.RateLimit != 5 {
		t.Errorf("Notifications.FailedLogin.RateLimit = %d, want 5", cfg.Notifications.FailedLogin.RateLimit)
	}
	if cfg.Webhooks.Timeout != 10*time.Second {
		t.Errorf("Webhooks.Timeout = %v, want 10s", cfg.Webhooks.Timeout)
	}
	if cfg.Ledger.Driver != LedgerDriverBadger {
		t.Errorf("Ledger.Driver = %q, want badger", cfg.Ledger.Driver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"HTTP_PORT", "server.port"},
		{"LOG_LEVEL", "logging.level"},
		{"LEDGER_DRIVER", "ledger.driver"},
		{"REDIS_URL", "rate_limit.redis_url"},
		{"FAILED_LOGIN_THRESHOLD", "suspicious.failed_login_threshold"},
		{"SESSION_RESTORATION_WINDOW", "session.restoration_window"},
		{"WEBHOOK_EVENTS", "webhooks.events"},
		{"BEHIND_CDN_HEADER", "behind_cdn.http_header_field"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := envTransformFunc(tt.input); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("env var path", func(t *testing.T) {
		customPath := filepath.Join(tmpDir, "custom.yaml")
		if err := os.WriteFile(customPath, []byte("logging:\n  level: debug\n"), 0o644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		t.Setenv(ConfigPathEnvVar, customPath)

		if got := findConfigFile(); got != customPath {
			t.Errorf("findConfigFile() = %q, want %q", got, customPath)
		}
	})

	t.Run("missing env path falls through", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, "/non/existent/authtrail.yaml")
		if got := findConfigFile(); got == "/non/existent/authtrail.yaml" {
			t.Errorf("findConfigFile() returned a non-existent path")
		}
	})
}

func TestLoadEnvVars(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "/non/existent/authtrail.yaml")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LEDGER_DRIVER", "memory")
	t.Setenv("FAILED_LOGIN_THRESHOLD", "3")
	t.Setenv("USUAL_HOURS", "8, 9,10")
	t.Setenv("SESSION_RESTORATION_WINDOW", "90s")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/auth")
	t.Setenv("WEBHOOK_EVENTS", "login,suspicious")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Ledger.Driver != LedgerDriverMemory {
		t.Errorf("Ledger.Driver = %q, want memory", cfg.Ledger.Driver)
	}
	if cfg.Suspicious.FailedLoginThreshold != 3 {
		t.Errorf("Suspicious.FailedLoginThreshold = %d, want 3", cfg.Suspicious.FailedLoginThreshold)
	}
	if want := []int{8, 9, 10}; !reflect.DeepEqual(cfg.Suspicious.UsualHours, want) {
		t.Errorf("Suspicious.UsualHours = %v, want %v", cfg.Suspicious.UsualHours, want)
	}
	if cfg.Session.RestorationWindow != 90*time.Second {
		t.Errorf("Session.RestorationWindow = %v, want 90s", cfg.Session.RestorationWindow)
	}

	endpoints := cfg.Webhooks.AllEndpoints()
	if len(endpoints) != 1 {
		t.Fatalf("AllEndpoints() len = %d, want 1", len(endpoints))
	}
	if want := []string{"login", "suspicious"}; !reflect.DeepEqual(endpoints[0].Events, want) {
		t.Errorf("endpoint events = %v, want %v", endpoints[0].Events, want)
	}
}

func TestLoadConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "authtrail.yaml")
	content := `
ledger:
  driver: duckdb
  path: /tmp/authtrail.duckdb
session:
  known_device_policy: active_or_recent
  known_device_window: 72h
webhooks:
  endpoints:
    - url: https://hooks.example.com/a
      events: ["*"]
      headers:
        Authorization: Bearer abc
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, configPath)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Ledger.Driver != LedgerDriverDuckDB || cfg.Ledger.Path != "/tmp/authtrail.duckdb" {
		t.Errorf("Ledger = %+v, want duckdb at /tmp/authtrail.duckdb", cfg.Ledger)
	}
	if cfg.Session.KnownDevicePolicy != KnownDevicePolicyActiveOrRecent {
		t.Errorf("Session.KnownDevicePolicy = %q", cfg.Session.KnownDevicePolicy)
	}
	if cfg.Session.KnownDeviceWindow != 72*time.Hour {
		t.Errorf("Session.KnownDeviceWindow = %v, want 72h", cfg.Session.KnownDeviceWindow)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("env should override file, Logging.Level = %q", cfg.Logging.Level)
	}
	if len(cfg.Webhooks.Endpoints) != 1 || cfg.Webhooks.Endpoints[0].Headers["Authorization"] != "Bearer abc" {
		t.Errorf("Webhooks.Endpoints = %+v", cfg.Webhooks.Endpoints)
	}
	// Defaults survive when the file does not mention them.
	if cfg.Suspicious.FailedLoginThreshold != 5 {
		t.Errorf("Suspicious.FailedLoginThreshold = %d, want 5", cfg.Suspicious.FailedLoginThreshold)
	}
}

func TestLoadValidationFailure(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "/non/existent/authtrail.yaml")
	t.Setenv("LEDGER_DRIVER", "sqlite")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected validation error for unknown ledger driver")
	}
}
