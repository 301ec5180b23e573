// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package events

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/authtrail/internal/correlator"
	"github.com/tomtom215/authtrail/internal/logging"
	"github.com/tomtom215/authtrail/internal/metrics"
)

// EventHandler is the part of the correlator the bus consumer needs.
type EventHandler interface {
	Handle(ctx context.Context, ev correlator.Event) (correlator.Outcome, error)
}

// Handler consumes envelopes from the bus.
type Handler struct {
	events EventHandler
}

// NewHandler creates a Handler dispatching to events.
func NewHandler(events EventHandler) *Handler {
	return &Handler{events: events}
}

// Handle processes one message. Messages that cannot be decoded or name an
// unknown kind are acknowledged and dropped, since retrying cannot fix them.
// Correlator errors are returned so the router retries the message.
func (h *Handler) Handle(msg *message.Message) error {
	ctx := msg.Context()
	if id := msg.Metadata.Get(MetadataCorrelationID); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	}
	log := logging.Ctx(ctx)

	env, err := DecodeEnvelope(msg.Payload)
	if err != nil {
		log.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping invalid event")
		metrics.RecordBusMessage("invalid")
		return nil
	}

	if _, err := h.events.Handle(ctx, env.Event()); err != nil {
		if errors.Is(err, correlator.ErrUnknownEventKind) {
			log.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping invalid event")
			metrics.RecordBusMessage("invalid")
			return nil
		}
		log.Error().Err(err).
			Str("message_id", msg.UUID).
			Str("kind", env.Kind).
			Msg("Failed to handle event")
		metrics.RecordBusMessage("error")
		return err
	}

	metrics.RecordBusMessage("processed")
	return nil
}
