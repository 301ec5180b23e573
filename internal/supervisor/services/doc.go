// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

/*
Package services adapts Authtrail components to suture.Service.

  - HTTPServerService: ListenAndServe/Shutdown servers (the API)
  - RouterService: the Watermill router that feeds the correlator
  - ValueLogGCService: periodic Badger value log garbage collection for the
    ledger and rate limiter stores

Each Serve blocks until its context is canceled and then shuts the wrapped
component down, returning ctx.Err(). Unexpected exits return an error so the
supervisor restarts the service with backoff.
*/
package services
