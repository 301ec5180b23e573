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

// LocationChangeDetector reports successful logins from several countries
// within Window.
type LocationChangeDetector struct {
	config  LocationChangeConfig
	store   ledger.Store
	enabled bool
	mu      sync.RWMutex
}

// NewLocationChangeDetector creates a location change detector backed by store.
func NewLocationChangeDetector(store ledger.Store) *LocationChangeDetector {
	return &LocationChangeDetector{
		config:  DefaultLocationChangeConfig(),
		store:   store,
		enabled: true,
	}
}

// Type returns the finding type.
func (d *LocationChangeDetector) Type() models.FindingType {
	return models.FindingRapidLocationChange
}

// Check evaluates the location change rule.
func (d *LocationChangeDetector) Check(ctx context.Context, owner models.OwnerKey, now time.Time) (*models.Finding, error) {
	d.mu.RLock()
	if !d.enabled {
		d.mu.RUnlock()
		return nil, nil
	}
	config := d.config
	d.mu.RUnlock()

	recs, err := d.store.Find(ctx, ledger.For(owner).Successful().Since(now.Add(-Window)).HasLocation())
	if err != nil {
		return nil, fmt.Errorf("failed to get recent logins: %w", err)
	}

	countries := distinctCountries(recs)
	if len(countries) < config.MinCountries {
		return nil, nil
	}
	return &models.Finding{
		Type:      models.FindingRapidLocationChange,
		Countries: countries,
		Message:   "Login from multiple countries within an hour",
	}, nil
}

// distinctCountries returns non-empty countries in the order they were first
// seen. recs arrive most recent first.
func distinctCountries(recs []*models.AuthenticationRecord) []string {
	seen := make(map[string]bool, len(recs))
	var countries []string
	for i := len(recs) - 1; i >= 0; i-- {
		loc := recs[i].Location
		if loc == nil || loc.Country == "" || seen[loc.Country] {
			continue
		}
		seen[loc.Country] = true
		countries = append(countries, loc.Country)
	}
	return countries
}

// Configure updates the detector configuration.
func (d *LocationChangeDetector) Configure(config json.RawMessage) error {
	var cfg LocationChangeConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.MinCountries < 2 {
		return fmt.Errorf("min_countries must be at least 2")
	}

	d.mu.Lock()
	d.config = cfg
	d.mu.Unlock()
	return nil
}

// Enabled returns whether the detector is enabled.
func (d *LocationChangeDetector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

// SetEnabled enables or disables the detector.
func (d *LocationChangeDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	d.enabled = enabled
	d.mu.Unlock()
}
