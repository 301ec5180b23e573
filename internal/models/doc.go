// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

/*
Package models defines the data structures shared across Authtrail.

Key types:

  - AuthenticationRecord: one login or failed-login attempt, later mutated by
    logout, trust and suspicion updates
  - Principal / OwnerKey: the polymorphic owner of records, identified by a
    type tag plus id
  - Finding: one anomaly detector output, serialized as a JSON list into
    AuthenticationRecord.SuspiciousReason
  - APIResponse / APIError: HTTP envelope

JSON tags follow the column names of the original authentication log table
(authenticatable_type, login_at, ...) so webhook receivers and exports can
rely on stable field names. BSON tags mirror them for the MongoDB ledger.
*/
package models
