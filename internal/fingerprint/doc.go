// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

// Package fingerprint derives a stable device identity and a readable label
// from request metadata.
//
// Device ids must survive routine browser upgrades, so the user agent is
// normalized (version numbers removed) before hashing. The IP address and the
// Accept-Language / Accept-Encoding headers are mixed in when present. All
// functions are pure: the same input always yields the same output, which the
// session restoration and known-device checks rely on.
package fingerprint
