// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package services

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/authtrail/internal/logging"
)

// ValueLogGCer is implemented by stores backed by BadgerDB.
type ValueLogGCer interface {
	RunValueLogGC(discardRatio float64) error
}

// ValueLogGCService periodically reclaims Badger value log space.
type ValueLogGCService struct {
	store        ValueLogGCer
	interval     time.Duration
	discardRatio float64
	name         string
}

// NewValueLogGCService runs GC on store every interval (default 5m).
func NewValueLogGCService(name string, store ValueLogGCer, interval time.Duration) *ValueLogGCService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ValueLogGCService{
		store:        store,
		interval:     interval,
		discardRatio: 0.5,
		name:         name + "-gc",
	}
}

// Serve implements suture.Service.
func (s *ValueLogGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.collect()
		}
	}
}

// collect rewrites files until Badger reports nothing left to reclaim.
func (s *ValueLogGCService) collect() {
	runs := 0
	for {
		err := s.store.RunValueLogGC(s.discardRatio)
		if err == nil {
			runs++
			continue
		}
		if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
			logging.Warn().Err(err).Str("service", s.name).Msg("Value log GC failed")
		}
		break
	}
	if runs > 0 {
		logging.Debug().Str("service", s.name).Int("rewrites", runs).Msg("Value log GC completed")
	}
}

// String implements fmt.Stringer for suture's logs.
func (s *ValueLogGCService) String() string {
	return s.name
}
