// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

// Package ratelimit throttles repeated notifications per key.
//
// A Limiter keeps one counter per key in a CounterStore. The counter expires
// decay after its most recent increment, so a burst of notifications is
// capped and the budget refills once the key has been quiet for the decay
// window. Keys are namespaced with KeyPrefix.
//
// Backends:
//   - MemoryStore: process local, mutex guarded
//   - BadgerStore: persistent, native TTL, transactional increment
//   - RedisStore: shared across processes, MULTI/EXEC increment with EXPIRE
package ratelimit
