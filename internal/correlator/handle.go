// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package correlator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/tomtom215/authtrail/internal/logging"
	"github.com/tomtom215/authtrail/internal/models"
)

// EventKind names an authentication event.
type EventKind string

const (
	EventLogin             EventKind = "login"
	EventFailed            EventKind = "failed"
	EventLogout            EventKind = "logout"
	EventOtherDeviceLogout EventKind = "other_device_logout"
)

// ErrUnknownEventKind is returned by Handle for an unrecognized kind.
var ErrUnknownEventKind = errors.New("unknown event kind")

// ParseEventKind validates s as an EventKind.
func ParseEventKind(s string) (EventKind, error) {
	switch k := EventKind(s); k {
	case EventLogin, EventFailed, EventLogout, EventOtherDeviceLogout:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEventKind, s)
}

// Event is an authentication event from the host system. Subject is whatever
// the host authenticated; events whose subject is not a models.Principal are
// ignored.
type Event struct {
	Kind    EventKind
	Subject any
	Meta    Meta
}

// Handle dispatches ev to the matching operation.
func (c *Correlator) Handle(ctx context.Context, ev Event) (Outcome, error) {
	var handler func(context.Context, models.Principal, Meta) (Outcome, error)
	switch ev.Kind {
	case EventLogin:
		handler = c.Login
	case EventFailed:
		handler = c.FailedLogin
	case EventLogout:
		handler = c.Logout
	case EventOtherDeviceLogout:
		handler = c.OtherDeviceLogout
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownEventKind, ev.Kind)
	}

	principal, ok := ev.Subject.(models.Principal)
	if !ok || isNil(principal) {
		logging.Ctx(ctx).Debug().Str("kind", string(ev.Kind)).Msg("Ignoring event without a principal")
		recordEvent(string(ev.Kind), Outcome{}, nil, time.Now())
		return Outcome{}, nil
	}

	ctx = logging.ContextWithPrincipal(ctx, models.OwnerOf(principal).String())
	return handler(ctx, principal, ev.Meta)
}

// isNil reports whether p is nil or a typed nil pointer.
func isNil(p models.Principal) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
