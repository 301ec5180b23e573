// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/authtrail/internal/correlator"
	"github.com/tomtom215/authtrail/internal/fingerprint"
	"github.com/tomtom215/authtrail/internal/models"
	"github.com/tomtom215/authtrail/internal/validation"
)

// Envelope is the wire form of an authentication event on the bus and the
// body of POST /v1/events.
type Envelope struct {
	Kind       string                  `json:"kind" validate:"required,oneof=login failed logout other_device_logout"`
	Principal  models.Subject          `json:"principal"`
	Request    fingerprint.RequestMeta `json:"request"`
	Location   *models.Location        `json:"location,omitempty"`
	OccurredAt time.Time               `json:"occurred_at"`
}

// Validate checks the envelope fields.
func (e *Envelope) Validate() error {
	return validation.ValidateStruct(e)
}

// Event converts the envelope for correlator.Handle.
func (e *Envelope) Event() correlator.Event {
	return correlator.Event{
		Kind:    correlator.EventKind(e.Kind),
		Subject: e.Principal,
		Meta: correlator.Meta{
			Request:  e.Request,
			Location: e.Location,
		},
	}
}

// Marshal encodes the envelope.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses and validates a payload.
func DecodeEnvelope(payload []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}
	return &e, nil
}
