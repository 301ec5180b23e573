// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package detection

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/authtrail/internal/models"
)

// UnusualTimeDetector reports logins outside the usual hours. The hour is
// taken from now in its own location. Disabled by default.
type UnusualTimeDetector struct {
	config  UnusualTimeConfig
	enabled bool
	mu      sync.RWMutex
}

// NewUnusualTimeDetector creates a disabled unusual time detector.
func NewUnusualTimeDetector() *UnusualTimeDetector {
	return &UnusualTimeDetector{config: DefaultUnusualTimeConfig()}
}

// Type returns the finding type.
func (d *UnusualTimeDetector) Type() models.FindingType {
	return models.FindingUnusualLoginTime
}

// Check evaluates the unusual time rule.
func (d *UnusualTimeDetector) Check(_ context.Context, _ models.OwnerKey, now time.Time) (*models.Finding, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.enabled {
		return nil, nil
	}
	hour := now.Hour()
	if slices.Contains(d.config.UsualHours, hour) {
		return nil, nil
	}
	return &models.Finding{
		Type:    models.FindingUnusualLoginTime,
		Hour:    &hour,
		Message: fmt.Sprintf("Login at unusual time: %d:00", hour),
	}, nil
}

// Configure updates the detector configuration.
func (d *UnusualTimeDetector) Configure(config json.RawMessage) error {
	var cfg UnusualTimeConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, h := range cfg.UsualHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("usual hour %d out of range 0-23", h)
		}
	}

	d.mu.Lock()
	d.config = cfg
	d.mu.Unlock()
	return nil
}

// Enabled returns whether the detector is enabled.
func (d *UnusualTimeDetector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

// SetEnabled enables or disables the detector.
func (d *UnusualTimeDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	d.enabled = enabled
	d.mu.Unlock()
}
