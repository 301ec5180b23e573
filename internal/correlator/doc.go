// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

/*
Package correlator turns authentication events into ledger records.

Four events are understood: login, failed, logout and other_device_logout.
Each is handled synchronously against the ledger:

  - Login writes a successful record unless the same device already has an
    active session that started within the restoration window, in which case
    that session's last activity is refreshed instead. Anomaly detection runs
    before the record is written and its findings are stored on the record.
  - FailedLogin writes a failed record and flags it once the principal's
    failures in the last hour reach the configured threshold.
  - Logout closes the session of the requesting device, falling back to a
    lookup by IP address and user agent and finally to a placeholder record.
  - OtherDeviceLogout closes every other active session of the principal and
    marks them cleared by the user.

Notifications are rate limited per principal and kind through the
ratelimit package. Webhooks are delivered for login, failed, new_device and
suspicious events. Notifier and webhook failures are logged and never
returned; ledger errors are.

Usage:

	c := correlator.New(store, limiter, nil,
	    correlator.WithConfig(cfg),
	    correlator.WithNotifier(notifier),
	    correlator.WithWebhooks(dispatcher),
	)
	out, err := c.Handle(ctx, correlator.Event{
	    Kind:    correlator.EventLogin,
	    Subject: user,
	    Meta:    correlator.Meta{Request: fingerprint.FromRequest(r, "")},
	})
*/
package correlator
