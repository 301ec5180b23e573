// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/authtrail/internal/config"
	"github.com/tomtom215/authtrail/internal/models"
)

// Renderer turns a payload into a message for one notification kind.
type Renderer interface {
	Render(principal models.Principal, payload Payload) (Message, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(principal models.Principal, payload Payload) (Message, error)

// Render implements Renderer.
func (f RendererFunc) Render(principal models.Principal, payload Payload) (Message, error) {
	return f(principal, payload)
}

// TextRenderer renders plain text with a fixed subject line.
type TextRenderer struct {
	Subject string
	Intro   string

	// IncludeLocation adds the resolved location line.
	IncludeLocation bool

	// IncludeFindings lists finding messages.
	IncludeFindings bool
}

// Render implements Renderer.
func (r TextRenderer) Render(principal models.Principal, payload Payload) (Message, error) {
	rec := payload.Record
	if rec == nil {
		return Message{}, fmt.Errorf("payload has no record")
	}

	var b strings.Builder
	b.WriteString(r.Intro)
	b.WriteString("\n\n")

	if email := models.EmailOf(principal); email != "" {
		fmt.Fprintf(&b, "Account: %s\n", email)
	}
	fmt.Fprintf(&b, "Time: %s\n", formatTime(rec.LoginAt))
	fmt.Fprintf(&b, "IP Address: %s\n", orNA(rec.IPAddress))
	fmt.Fprintf(&b, "Browser: %s\n", orNA(rec.UserAgent))
	if rec.DeviceName != "" {
		fmt.Fprintf(&b, "Device: %s\n", rec.DeviceName)
	}
	if r.IncludeLocation {
		fmt.Fprintf(&b, "Location: %s\n", locationLine(rec.Location))
	}
	if r.IncludeFindings && len(payload.Findings) > 0 {
		msgs := make([]string, len(payload.Findings))
		for i, f := range payload.Findings {
			msgs[i] = f.Message
		}
		fmt.Fprintf(&b, "Suspicious Activity: %s\n", strings.Join(msgs, ", "))
	}

	return Message{Subject: r.Subject, Body: b.String()}, nil
}

// DefaultRenderers returns plain text renderers for every kind. Location
// lines follow each kind's Location flag.
func DefaultRenderers(cfg config.NotificationsConfig) map[Kind]Renderer {
	app := cfg.AppName
	if app == "" {
		app = "Authtrail"
	}
	return map[Kind]Renderer{
		KindNewDevice: TextRenderer{
			Subject:         fmt.Sprintf("Login from a new device on your %s account", app),
			Intro:           "Your account was accessed from a new device.",
			IncludeLocation: cfg.NewDevice.Location,
		},
		KindFailedLogin: TextRenderer{
			Subject:         fmt.Sprintf("Failed login attempt on your %s account", app),
			Intro:           "There was a failed login attempt on your account.",
			IncludeLocation: cfg.FailedLogin.Location,
		},
		KindSuspiciousActivity: TextRenderer{
			Subject:         fmt.Sprintf("Suspicious activity detected on your %s account", app),
			Intro:           "We detected suspicious activity on your account.",
			IncludeLocation: cfg.SuspiciousActivity.Location,
			IncludeFindings: true,
		},
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.UTC().Format("2006-01-02 15:04:05 MST")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// locationLine renders "City, State" for a resolved location and Unknown for
// missing or default locations.
func locationLine(loc *models.Location) string {
	if loc == nil || loc.Default {
		return "Unknown"
	}
	return orNA(loc.City) + ", " + orNA(loc.State)
}
