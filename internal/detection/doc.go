// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

// Package detection evaluates anomaly rules over a principal's recent
// authentication history.
//
// Detection Architecture:
//
//	Login/FailedLogin -> Engine.Detect -> []Finding -> record.MarkSuspicious
//	                       |
//	                       v
//	                 ledger queries (read only)
//
// Supported rules:
//   - multiple_failed_logins: failed logins within the last hour reach the
//     threshold (default 5)
//   - rapid_location_change: successful logins from two or more countries
//     within the last hour
//   - unusual_login_time: login hour outside the usual hours (opt-in)
//
// All windows include their lower bound. Checks are independent: one
// detector failing does not suppress findings from the others.
package detection
