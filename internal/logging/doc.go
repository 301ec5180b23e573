// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

// Package logging provides centralized zerolog-based structured logging for Authtrail.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("driver", "badger").Msg("ledger opened")
//	logging.Err(err).Msg("webhook delivery failed")
//
//	// Context-aware logging picks up correlation_id, request_id and principal.
//	logging.Ctx(ctx).Warn().Strs("findings", types).Msg("suspicious login")
//
// # Audit Stream
//
// AuditLogger writes one line per correlated authentication event with
// emails, device hashes and credential-like values masked.
//
// # slog Interop
//
// NewSlogLogger returns an *slog.Logger backed by zerolog for libraries that
// take slog (sutureslog, Watermill).
//
// Always terminate chains with Msg or Send; an unterminated event is dropped.
package logging
