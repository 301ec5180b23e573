// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

/*
Package events carries authentication events from producers to the
correlator over an in-process Watermill bus.

Producers publish an Envelope with Publisher.Publish; the HTTP API does so
for POST /v1/events. The router built by NewRouter consumes the topic and
hands each message to Handler, which decodes, validates and dispatches it
to the correlator.

Failure handling:

  - malformed or invalid envelopes are acknowledged and counted as
    "invalid"; they are never retried
  - correlator errors (ledger failures) are returned to the router, whose
    Retry middleware re-runs the message with backoff
  - panics are recovered and treated as errors

Wiring:

	bus := events.NewGoChannel(cfg.Events, wmLogger)
	pub := events.NewPublisher(bus, cfg.Events.Topic)
	router, err := events.NewRouter(cfg.Events, bus, events.NewHandler(c), wmLogger)
*/
package events
