// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

/*
Package ledger stores authentication records and answers the queries the
correlator, detectors and session manager ask of them.

# Backends

Four Store implementations share one contract:

  - MemoryStore: process memory, used by tests and ephemeral deployments
  - BadgerStore: embedded BadgerDB with an owner index (default)
  - DuckDBStore: an authentication_log table in DuckDB
  - MongoStore: a MongoDB collection with a counters collection for ids

Open selects one from config.LedgerConfig and wraps it with Instrument so
every call shows up in the authtrail_ledger_operation_* metrics.

# Queries

Query is an immutable filter builder. Query.Matches defines the semantics;
backends that push filters down (DuckDB, Mongo) must agree with it,
including that an empty string filter matches records where the field was
never set.

# Ordering

Find returns records most recent first: login_at descending, records
without a login time last, then id descending.
*/
package ledger
