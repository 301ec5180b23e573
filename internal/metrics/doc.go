// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

/*
Package metrics provides Prometheus metrics for Authtrail.

All collectors are registered on the default registry through promauto and
exposed at /metrics by the API router.

# Available Metrics

Correlator:
  - authtrail_events_total{kind,outcome}: handled events
  - authtrail_event_duration_seconds{kind}: correlation latency
  - authtrail_findings_total{type}: suspicious activity findings
  - authtrail_detector_errors_total{type}: detector failures

Notifications:
  - authtrail_notifications_total{kind,result}: sent, rate_limited, disabled, error
  - authtrail_webhook_deliveries_total{event,result}
  - authtrail_webhook_delivery_duration_seconds
  - authtrail_ratelimit_decisions_total{result}

Storage and transport:
  - authtrail_ledger_operation_duration_seconds{driver,operation}
  - authtrail_ledger_operation_errors_total{driver,operation}
  - authtrail_bus_messages_total{result}
  - authtrail_api_requests_total{method,path,status}
  - authtrail_api_request_duration_seconds{method,path}
  - authtrail_api_active_requests

# Usage

Components call the Record* helpers rather than touching collectors:

	start := time.Now()
	err := store.Insert(ctx, rec)
	metrics.RecordLedgerOperation("badger", "insert", time.Since(start), err)
*/
package metrics
