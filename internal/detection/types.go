// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package detection

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/authtrail/internal/models"
)

// Window is the look-back period of the failed-login and location checks.
// The lower bound is inclusive: a record exactly one Window old still counts.
const Window = time.Hour

// Detector evaluates one anomaly rule for a principal at a point in time.
type Detector interface {
	// Type returns the finding type this detector reports.
	Type() models.FindingType

	// Check evaluates the rule. Returns a finding if the rule fires, nil
	// otherwise. Detectors never write to the ledger.
	Check(ctx context.Context, owner models.OwnerKey, now time.Time) (*models.Finding, error)

	// Configure updates the detector configuration.
	Configure(config json.RawMessage) error

	// Enabled returns whether this detector is currently enabled.
	Enabled() bool

	// SetEnabled enables or disables the detector.
	SetEnabled(enabled bool)
}

// FailedLoginsConfig configures the multiple_failed_logins rule.
type FailedLoginsConfig struct {
	// Threshold is the number of failures within Window that fires the rule.
	Threshold int `json:"threshold"`
}

// DefaultFailedLoginsConfig returns the default threshold of 5.
func DefaultFailedLoginsConfig() FailedLoginsConfig {
	return FailedLoginsConfig{Threshold: 5}
}

// LocationChangeConfig configures the rapid_location_change rule.
type LocationChangeConfig struct {
	// MinCountries is the number of distinct countries within Window that
	// fires the rule.
	MinCountries int `json:"min_countries"`
}

// DefaultLocationChangeConfig returns the default of two countries.
func DefaultLocationChangeConfig() LocationChangeConfig {
	return LocationChangeConfig{MinCountries: 2}
}

// UnusualTimeConfig configures the unusual_login_time rule.
type UnusualTimeConfig struct {
	// UsualHours lists hours of day (0-23) that are not reported.
	UsualHours []int `json:"usual_hours"`
}

// DefaultUnusualTimeConfig returns business hours 9 through 17.
func DefaultUnusualTimeConfig() UnusualTimeConfig {
	return UnusualTimeConfig{UsualHours: []int{9, 10, 11, 12, 13, 14, 15, 16, 17}}
}
