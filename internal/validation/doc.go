// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

// Package validation wraps go-playground/validator v10 with a shared,
// lazily built validator and readable error messages.
//
// Field names in errors are JSON names with their nesting, so a missing
// principal id on an event envelope reads "principal.id is required".
// Bus envelopes and HTTP request bodies are validated through
// ValidateStruct before they reach the correlator.
package validation
