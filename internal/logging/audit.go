// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// AuditEvent is one correlated authentication event written to the audit
// stream. Values are sanitized before they reach the log.
type AuditEvent struct {
	// Event is the correlated event kind (login, failed, logout, other_device_logout).
	Event     string
	Principal string
	Email     string
	RecordID  int64
	DeviceID  string
	IPAddress string
	UserAgent string
	Success   bool
	// Outcome is a short tag such as "recorded", "restored" or "placeholder".
	Outcome  string
	Findings []string
	Details  map[string]string
}

// AuditLogger writes authentication events with sensitive values masked.
type AuditLogger struct {
	logger zerolog.Logger
}

// NewAuditLogger creates an audit logger on top of the global logger.
func NewAuditLogger() *AuditLogger {
	return &AuditLogger{logger: With().Str("component", "audit").Logger()}
}

// NewAuditLoggerWithLogger creates an audit logger on a custom zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewAuditLoggerWithLogger(logger zerolog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.With().Str("component", "audit").Logger()}
}

// Log writes the event. Suspicious events are logged at warn level.
func (l *AuditLogger) Log(event *AuditEvent) {
	e := l.logger.Info()
	if len(event.Findings) > 0 {
		e = l.logger.Warn()
	}

	e = e.Str("event", event.Event)
	if event.Success {
		e = e.Str("status", "success")
	} else {
		e = e.Str("status", "failed")
	}
	if event.Principal != "" {
		e = e.Str("principal", event.Principal)
	}
	if event.Email != "" {
		e = e.Str("email", SanitizeEmail(event.Email))
	}
	if event.RecordID != 0 {
		e = e.Int64("record_id", event.RecordID)
	}
	if event.DeviceID != "" {
		e = e.Str("device_id", SanitizeToken(event.DeviceID))
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", truncateString(event.UserAgent, 100))
	}
	if event.Outcome != "" {
		e = e.Str("outcome", event.Outcome)
	}
	if len(event.Findings) > 0 {
		e = e.Strs("findings", event.Findings)
	}
	for k, v := range event.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}

	e.Msg("authentication event")
}

// SanitizeToken masks a secret, keeping the first and last 4 characters.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeEmail keeps the first two characters of the local part.
// Example: "john.doe@example.com" -> "jo***@example.com"
func SanitizeEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return "***" + domain
	}
	return local[:2] + "***" + domain
}

var sensitiveKeys = map[string]bool{
	"authorization": true,
	"x-api-key":     true,
	"api_key":       true,
	"token":         true,
	"secret":        true,
	"password":      true,
	"cookie":        true,
}

// SanitizeValue masks a value whose key looks like a credential, and email
// addresses anywhere. Used for webhook headers and free-form details.
func SanitizeValue(key, value string) string {
	if sensitiveKeys[strings.ToLower(key)] {
		return SanitizeToken(value)
	}
	if strings.Contains(value, "@") && strings.Contains(value, ".") {
		return SanitizeEmail(value)
	}
	return value
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
