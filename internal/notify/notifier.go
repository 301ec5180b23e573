// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/authtrail/internal/models"
)

// Kind names a principal-facing notification.
type Kind string

const (
	KindNewDevice          Kind = "new_device"
	KindFailedLogin        Kind = "failed_login"
	KindSuspiciousActivity Kind = "suspicious_activity"
)

// ErrNoRenderer is returned when a notification kind has no renderer.
var ErrNoRenderer = errors.New("no renderer for notification kind")

// Payload is the data a notification is built from.
type Payload struct {
	Record   *models.AuthenticationRecord
	Findings []models.Finding
}

// Notifier delivers a notification to a principal.
type Notifier interface {
	Send(ctx context.Context, principal models.Principal, kind Kind, payload Payload) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, principal models.Principal, kind Kind, payload Payload) error

// Send implements Notifier.
func (f NotifierFunc) Send(ctx context.Context, principal models.Principal, kind Kind, payload Payload) error {
	return f(ctx, principal, kind, payload)
}

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}

// Channel is a delivery transport for rendered messages.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, principal models.Principal, kind Kind, msg Message) error
}

// ChannelNotifier renders a notification with the renderer registered for
// its kind and fans the message out to every channel.
type ChannelNotifier struct {
	renderers map[Kind]Renderer
	channels  []Channel
}

// NewChannelNotifier creates a notifier. renderers is copied.
func NewChannelNotifier(renderers map[Kind]Renderer, channels ...Channel) *ChannelNotifier {
	r := make(map[Kind]Renderer, len(renderers))
	for k, v := range renderers {
		r[k] = v
	}
	return &ChannelNotifier{renderers: r, channels: channels}
}

// Send implements Notifier. Every channel is attempted; failures are joined.
func (n *ChannelNotifier) Send(ctx context.Context, principal models.Principal, kind Kind, payload Payload) error {
	renderer, ok := n.renderers[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoRenderer, kind)
	}
	msg, err := renderer.Render(principal, payload)
	if err != nil {
		return fmt.Errorf("render %s: %w", kind, err)
	}

	var errs []error
	for _, ch := range n.channels {
		if err := ch.Deliver(ctx, principal, kind, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
	}
	return errors.Join(errs...)
}
