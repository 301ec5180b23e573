// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package detection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/authtrail/internal/config"
	"github.com/tomtom215/authtrail/internal/ledger"
	"github.com/tomtom215/authtrail/internal/logging"
	"github.com/tomtom215/authtrail/internal/metrics"
	"github.com/tomtom215/authtrail/internal/models"
)

// Engine runs the registered detectors in registration order and collects
// their findings.
type Engine struct {
	order     []models.FindingType
	detectors map[models.FindingType]Detector

	mu      sync.RWMutex
	enabled bool

	statsMu sync.RWMutex
	stats   EngineMetrics
}

// EngineMetrics is a snapshot of detection engine activity.
type EngineMetrics struct {
	Evaluations      int64
	FindingsReported int64
	DetectionErrors  int64
	LastEvaluatedAt  time.Time
	DetectorMetrics  map[models.FindingType]*DetectorMetrics
}

// DetectorMetrics tracks individual detector activity.
type DetectorMetrics struct {
	Checks          int64
	Findings        int64
	Errors          int64
	LastTriggeredAt *time.Time
}

// NewEngine creates an engine with no detectors.
func NewEngine() *Engine {
	return &Engine{
		detectors: make(map[models.FindingType]Detector),
		enabled:   true,
		stats: EngineMetrics{
			DetectorMetrics: make(map[models.FindingType]*DetectorMetrics),
		},
	}
}

// NewDefaultEngine registers the three built-in rules against store. The
// unusual time rule follows cfg.CheckUnusualTimes.
func NewDefaultEngine(store ledger.Store, cfg config.SuspiciousConfig) *Engine {
	e := NewEngine()

	failed := NewFailedLoginsDetector(store)
	if cfg.FailedLoginThreshold > 0 {
		failed.config.Threshold = cfg.FailedLoginThreshold
	}
	e.RegisterDetector(failed)

	e.RegisterDetector(NewLocationChangeDetector(store))

	unusual := NewUnusualTimeDetector()
	if len(cfg.UsualHours) > 0 {
		unusual.config.UsualHours = append([]int(nil), cfg.UsualHours...)
	}
	unusual.SetEnabled(cfg.CheckUnusualTimes)
	e.RegisterDetector(unusual)

	return e
}

// RegisterDetector adds a detector to the engine. Registering a type again
// replaces the detector but keeps its position.
func (e *Engine) RegisterDetector(detector Detector) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := detector.Type()
	if _, exists := e.detectors[t]; !exists {
		e.order = append(e.order, t)
	}
	e.detectors[t] = detector

	e.statsMu.Lock()
	e.stats.DetectorMetrics[t] = &DetectorMetrics{}
	e.statsMu.Unlock()

	logging.Debug().Str("detector", string(t)).Msg("registered detector")
}

// Detect evaluates every enabled detector for principal. Checks are
// independent: a failing detector is reported in the returned error while
// the findings of the others are still returned.
func (e *Engine) Detect(ctx context.Context, principal models.Principal, now time.Time) ([]models.Finding, error) {
	detectors := e.getEnabledDetectors()
	if detectors == nil {
		return nil, nil
	}

	owner := models.OwnerOf(principal)
	var (
		findings []models.Finding
		errs     []error
	)
	for _, d := range detectors {
		f, err := e.runSingleDetector(ctx, d, owner, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if f != nil {
			findings = append(findings, *f)
		}
	}

	e.statsMu.Lock()
	e.stats.Evaluations++
	e.stats.LastEvaluatedAt = now
	e.statsMu.Unlock()

	return findings, errors.Join(errs...)
}

// getEnabledDetectors returns enabled detectors in registration order, or nil
// if the engine is disabled or has none.
func (e *Engine) getEnabledDetectors() []Detector {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.enabled {
		return nil
	}

	detectors := make([]Detector, 0, len(e.order))
	for _, t := range e.order {
		if d := e.detectors[t]; d.Enabled() {
			detectors = append(detectors, d)
		}
	}
	if len(detectors) == 0 {
		return nil
	}
	return detectors
}

// runSingleDetector executes one detector and updates its metrics.
func (e *Engine) runSingleDetector(ctx context.Context, d Detector, owner models.OwnerKey, now time.Time) (*models.Finding, error) {
	t := d.Type()

	f, err := d.Check(ctx, owner, now)

	e.statsMu.Lock()
	defer e.statsMu.Unlock()

	dm := e.stats.DetectorMetrics[t]
	if dm != nil {
		dm.Checks++
	}
	if err != nil {
		if dm != nil {
			dm.Errors++
		}
		e.stats.DetectionErrors++
		metrics.RecordDetectorError(string(t))
		return nil, fmt.Errorf("%s: %w", t, err)
	}
	if f != nil {
		if dm != nil {
			dm.Findings++
			triggered := now
			dm.LastTriggeredAt = &triggered
		}
		e.stats.FindingsReported++
		metrics.RecordFinding(string(t))
	}
	return f, nil
}

// SetEnabled enables or disables the detection engine.
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = enabled
}

// Enabled returns whether the engine is enabled.
func (e *Engine) Enabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enabled
}

// GetDetector returns a detector by finding type.
func (e *Engine) GetDetector(t models.FindingType) (Detector, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, ok := e.detectors[t]
	return d, ok
}

// ListDetectors returns all registered detectors in registration order.
func (e *Engine) ListDetectors() []Detector {
	e.mu.RLock()
	defer e.mu.RUnlock()

	detectors := make([]Detector, 0, len(e.order))
	for _, t := range e.order {
		detectors = append(detectors, e.detectors[t])
	}
	return detectors
}

// Metrics returns a copy of the engine metrics.
func (e *Engine) Metrics() EngineMetrics {
	e.statsMu.RLock()
	defer e.statsMu.RUnlock()

	detectorMetrics := make(map[models.FindingType]*DetectorMetrics, len(e.stats.DetectorMetrics))
	for k, v := range e.stats.DetectorMetrics {
		dm := *v
		detectorMetrics[k] = &dm
	}

	return EngineMetrics{
		Evaluations:      e.stats.Evaluations,
		FindingsReported: e.stats.FindingsReported,
		DetectionErrors:  e.stats.DetectionErrors,
		LastEvaluatedAt:  e.stats.LastEvaluatedAt,
		DetectorMetrics:  detectorMetrics,
	}
}

// ConfigureDetector updates a detector's configuration.
func (e *Engine) ConfigureDetector(t models.FindingType, config json.RawMessage) error {
	e.mu.RLock()
	detector, ok := e.detectors[t]
	e.mu.RUnlock()

	if !ok {
		return fmt.Errorf("detector not found: %s", t)
	}
	return detector.Configure(config)
}

// SetDetectorEnabled enables or disables a specific detector.
func (e *Engine) SetDetectorEnabled(t models.FindingType, enabled bool) error {
	e.mu.RLock()
	detector, ok := e.detectors[t]
	e.mu.RUnlock()

	if !ok {
		return fmt.Errorf("detector not found: %s", t)
	}
	detector.SetEnabled(enabled)
	return nil
}
