// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

// Package notify delivers principal notifications and outbound webhooks.
//
// Notifications (new_device, failed_login, suspicious_activity) are rendered
// by a Renderer chosen per kind and fanned out to Channels by
// ChannelNotifier. Webhooks are a separate path: WebhookDispatcher POSTs a
// JSON Envelope to every endpoint subscribed to the event, each endpoint
// behind its own circuit breaker and rate limiter.
package notify
