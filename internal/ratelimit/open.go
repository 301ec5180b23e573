// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package ratelimit

import (
	"context"
	"fmt"
	"io"

	"github.com/tomtom215/authtrail/internal/config"
)

// Open builds the CounterStore selected by cfg. The returned closer releases
// the backend and is never nil.
func Open(ctx context.Context, cfg config.RateLimitConfig) (CounterStore, io.Closer, error) {
	switch cfg.Driver {
	case config.RateLimitDriverMemory, "":
		return NewMemoryStore(), nopCloser{}, nil
	case config.RateLimitDriverBadger:
		s, err := OpenBadgerStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.RateLimitDriverRedis:
		s, err := OpenRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown rate limit driver %q", cfg.Driver)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
