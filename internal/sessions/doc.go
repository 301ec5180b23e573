// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

// Package sessions exposes a principal's authentication history: last and
// previous logins, login statistics, active sessions with revocation, and
// per-device trust and naming. RequireTrustedDevice gates HTTP handlers on
// the requesting device being trusted.
package sessions
