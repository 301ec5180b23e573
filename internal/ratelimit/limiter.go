// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/authtrail/internal/metrics"
)

// KeyPrefix namespaces notification counters in shared stores.
const KeyPrefix = "auth_log_notification:"

// CounterStore is a shared counter with expiry.
type CounterStore interface {
	// Get returns the current count, or 0 for a missing or expired key.
	Get(ctx context.Context, key string) (int64, error)

	// Increment adds one to the counter and re-arms its expiry to ttl from
	// now. It returns the new count.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Delete removes the counter. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Limiter throttles repeated notifications per key.
//
// The counter is read, compared to the limit and then incremented. Between
// the read and the increment another caller may slip in, so under concurrent
// callers a key can briefly exceed its limit by the number of racing callers.
// Each store documents the atomicity of its Increment.
type Limiter struct {
	store CounterStore
}

// New creates a Limiter over store.
func New(store CounterStore) *Limiter {
	return &Limiter{store: store}
}

// ShouldSend reports whether a notification for key may be sent. When the
// count is below maxAttempts it increments the counter, arms its expiry to
// decay and returns true. At or above the limit it returns false and leaves
// the counter untouched. A non-positive maxAttempts never allows sending.
func (l *Limiter) ShouldSend(ctx context.Context, key string, maxAttempts int, decay time.Duration) (bool, error) {
	if maxAttempts <= 0 {
		metrics.RecordRateLimitDecision(false)
		return false, nil
	}

	k := KeyPrefix + key
	count, err := l.store.Get(ctx, k)
	if err != nil {
		return false, fmt.Errorf("read counter %s: %w", key, err)
	}
	if count >= int64(maxAttempts) {
		metrics.RecordRateLimitDecision(false)
		return false, nil
	}

	if _, err := l.store.Increment(ctx, k, decay); err != nil {
		return false, fmt.Errorf("increment counter %s: %w", key, err)
	}
	metrics.RecordRateLimitDecision(true)
	return true, nil
}

// Reset clears the counter for key, restoring the full budget.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.store.Delete(ctx, KeyPrefix+key); err != nil {
		return fmt.Errorf("reset counter %s: %w", key, err)
	}
	return nil
}

// Remaining returns how many more notifications key may send.
func (l *Limiter) Remaining(ctx context.Context, key string, maxAttempts int) (int, error) {
	count, err := l.store.Get(ctx, KeyPrefix+key)
	if err != nil {
		return 0, fmt.Errorf("read counter %s: %w", key, err)
	}
	remaining := int64(maxAttempts) - count
	if remaining < 0 {
		return 0, nil
	}
	return int(remaining), nil
}
