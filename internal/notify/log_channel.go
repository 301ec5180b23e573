// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/authtrail/internal/logging"
	"github.com/tomtom215/authtrail/internal/models"
)

// LogChannel writes rendered notifications to a zerolog logger. It is the
// default channel when no outbound transport is configured.
type LogChannel struct {
	logger zerolog.Logger
}

// NewLogChannel creates a channel on the global logger.
func NewLogChannel() *LogChannel {
	return &LogChannel{logger: logging.WithComponent("notify")}
}

// NewLogChannelWithLogger creates a channel on a custom logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewLogChannelWithLogger(logger zerolog.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

// Name returns the channel name.
func (c *LogChannel) Name() string {
	return "log"
}

// Deliver implements Channel.
func (c *LogChannel) Deliver(_ context.Context, principal models.Principal, kind Kind, msg Message) error {
	c.logger.Info().
		Str("principal", models.OwnerOf(principal).String()).
		Str("email", logging.SanitizeEmail(models.EmailOf(principal))).
		Str("kind", string(kind)).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("notification")
	return nil
}
