// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

// Package testinfra provides shared test infrastructure.
//
// MockWebhookServer is available to every test and captures webhook
// deliveries for inspection.
//
// Container helpers (build tag integration) use testcontainers-go to run
// the Redis and MongoDB servers backing the networked rate limiter and
// ledger stores:
//
//	//go:build integration
//
//	func TestRedisStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    redis, err := testinfra.NewRedisContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, redis)
//	    // connect to redis.Endpoint
//	}
//
// Run them with:
//
//	go test -tags integration ./...
package testinfra
