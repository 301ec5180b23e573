// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

/*
Package middleware provides HTTP middleware for the Authtrail API.

  - RequestID: assigns or propagates X-Request-ID and seeds the logging
    context with request and correlation ids
  - PrometheusMetrics: records request count, latency and in-flight
    requests, labelled by chi route pattern to keep cardinality bounded

Both use the http.HandlerFunc shape; the api package adapts them to chi.
*/
package middleware
