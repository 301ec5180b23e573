// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package detection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/authtrail/internal/ledger"
	"github.com/tomtom215/authtrail/internal/models"
)

// FailedLoginsDetector reports bursts of failed logins within Window.
type FailedLoginsDetector struct {
	config  FailedLoginsConfig
	store   ledger.Store
	enabled bool
	mu      sync.RWMutex
}

// NewFailedLoginsDetector creates a failed-login detector backed by store.
func NewFailedLoginsDetector(store ledger.Store) *FailedLoginsDetector {
	return &FailedLoginsDetector{
		config:  DefaultFailedLoginsConfig(),
		store:   store,
		enabled: true,
	}
}

// Type returns the finding type.
func (d *FailedLoginsDetector) Type() models.FindingType {
	return models.FindingMultipleFailedLogins
}

// CountRecent returns the failed logins of owner with login_at >= now-Window.
func (d *FailedLoginsDetector) CountRecent(ctx context.Context, owner models.OwnerKey, now time.Time) (int, error) {
	n, err := d.store.Count(ctx, ledger.For(owner).Failed().Since(now.Add(-Window)))
	if err != nil {
		return 0, fmt.Errorf("failed to count failed logins: %w", err)
	}
	return n, nil
}

// Threshold returns the configured threshold.
func (d *FailedLoginsDetector) Threshold() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config.Threshold
}

// Finding builds the multiple_failed_logins finding for count failures, or
// nil when count is below the threshold.
func (d *FailedLoginsDetector) Finding(count int) *models.Finding {
	if count < d.Threshold() {
		return nil
	}
	return &models.Finding{
		Type:    models.FindingMultipleFailedLogins,
		Count:   count,
		Message: fmt.Sprintf("%d failed login attempts in the last hour", count),
	}
}

// Check evaluates the failed-login rule.
func (d *FailedLoginsDetector) Check(ctx context.Context, owner models.OwnerKey, now time.Time) (*models.Finding, error) {
	if !d.Enabled() {
		return nil, nil
	}
	count, err := d.CountRecent(ctx, owner, now)
	if err != nil {
		return nil, err
	}
	return d.Finding(count), nil
}

// Configure updates the detector configuration.
func (d *FailedLoginsDetector) Configure(config json.RawMessage) error {
	var cfg FailedLoginsConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Threshold < 1 {
		return fmt.Errorf("threshold must be at least 1")
	}

	d.mu.Lock()
	d.config = cfg
	d.mu.Unlock()
	return nil
}

// Enabled returns whether the detector is enabled.
func (d *FailedLoginsDetector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

// SetEnabled enables or disables the detector.
func (d *FailedLoginsDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	d.enabled = enabled
	d.mu.Unlock()
}

// Config returns the current configuration.
func (d *FailedLoginsDetector) Config() FailedLoginsConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}
