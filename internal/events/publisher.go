// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/authtrail/internal/config"
	"github.com/tomtom215/authtrail/internal/logging"
)

// Metadata keys set on published messages.
const (
	MetadataKind          = "kind"
	MetadataCorrelationID = "correlation_id"
)

// NewGoChannel creates the in-process pub/sub used as both publisher and
// subscriber of the event topic.
func NewGoChannel(cfg config.EventsConfig, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.BufferSize,
	}, logger)
}

// Publisher publishes validated envelopes to a topic.
type Publisher struct {
	pub   message.Publisher
	topic string
}

// NewPublisher creates a Publisher. An empty topic uses "auth.events".
func NewPublisher(pub message.Publisher, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{pub: pub, topic: topic}
}

// DefaultTopic is the topic authentication events are published on.
const DefaultTopic = "auth.events"

// Topic returns the topic messages are published on.
func (p *Publisher) Topic() string {
	return p.topic
}

// Publish validates and publishes env. The correlation id of ctx, or a new
// one, travels in the message metadata.
func (p *Publisher) Publish(ctx context.Context, env *Envelope) error {
	if err := env.Validate(); err != nil {
		return fmt.Errorf("invalid envelope: %w", err)
	}
	payload, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(MetadataKind, env.Kind)

	correlationID := logging.CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = logging.GenerateCorrelationID()
	}
	msg.Metadata.Set(MetadataCorrelationID, correlationID)

	if err := p.pub.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	logging.Ctx(ctx).Debug().
		Str("message_id", msg.UUID).
		Str("kind", env.Kind).
		Str("topic", p.topic).
		Msg("Event published")
	return nil
}
