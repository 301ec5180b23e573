// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Correlator Metrics
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authtrail_events_total",
			Help: "Total number of authentication events handled",
		},
		[]string{"kind", "outcome"}, // outcome: recorded, restored, ignored, error
	)

	EventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authtrail_event_duration_seconds",
			Help:    "Time spent correlating one authentication event",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	FindingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authtrail_findings_total",
			Help: "Total number of suspicious activity findings",
		},
		[]string{"type"},
	)

	DetectorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authtrail_detector_errors_total",
			Help: "Total number of detector evaluation errors",
		},
		[]string{"type"},
	)

	// Notification Metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authtrail_notifications_total",
			Help: "Total number of notification decisions",
		},
		[]string{"kind", "result"}, // result: sent, rate_limited, disabled, error
	)

	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authtrail_webhook_deliveries_total",
			Help: "Total number of webhook delivery attempts",
		},
		[]string{"event", "result"}, // result: success, http_error, transport_error, circuit_open
	)

	WebhookDeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "authtrail_webhook_delivery_duration_seconds",
			Help:    "Duration of webhook HTTP calls",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authtrail_ratelimit_decisions_total",
			Help: "Total number of notification rate limiter decisions",
		},
		[]string{"result"}, // allowed, limited
	)

	// Ledger Metrics
	LedgerOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authtrail_ledger_operation_duration_seconds",
			Help:    "Duration of ledger store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver", "operation"},
	)

	LedgerOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authtrail_ledger_operation_errors_total",
			Help: "Total number of ledger store errors",
		},
		[]string{"driver", "operation"},
	)

	// Bus Metrics
	BusMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authtrail_bus_messages_total",
			Help: "Total number of event bus messages by result",
		},
		[]string{"result"}, // published, processed, rejected, failed
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authtrail_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authtrail_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "authtrail_api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)
)

// RecordEvent records one handled authentication event.
func RecordEvent(kind, outcome string, duration time.Duration) {
	EventsTotal.WithLabelValues(kind, outcome).Inc()
	EventDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordFinding counts one finding.
func RecordFinding(findingType string) {
	FindingsTotal.WithLabelValues(findingType).Inc()
}

// RecordDetectorError counts a failed detector run.
func RecordDetectorError(detectorType string) {
	DetectorErrors.WithLabelValues(detectorType).Inc()
}

// RecordNotification records a notification decision.
func RecordNotification(kind, result string) {
	NotificationsTotal.WithLabelValues(kind, result).Inc()
}

// RecordWebhookDelivery records one webhook delivery attempt.
func RecordWebhookDelivery(event, result string, duration time.Duration) {
	WebhookDeliveriesTotal.WithLabelValues(event, result).Inc()
	if duration > 0 {
		WebhookDeliveryDuration.Observe(duration.Seconds())
	}
}

// RecordRateLimitDecision records a rate limiter decision.
func RecordRateLimitDecision(allowed bool) {
	if allowed {
		RateLimitDecisions.WithLabelValues("allowed").Inc()
	} else {
		RateLimitDecisions.WithLabelValues("limited").Inc()
	}
}

// RecordLedgerOperation records a ledger store operation.
func RecordLedgerOperation(driver, operation string, duration time.Duration, err error) {
	LedgerOperationDuration.WithLabelValues(driver, operation).Observe(duration.Seconds())
	if err != nil {
		LedgerOperationErrors.WithLabelValues(driver, operation).Inc()
	}
}

// RecordBusMessage records an event bus message result.
func RecordBusMessage(result string) {
	BusMessagesTotal.WithLabelValues(result).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, path, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
