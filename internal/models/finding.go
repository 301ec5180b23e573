// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package models

import (
	"github.com/goccy/go-json"
)

// FindingType names an anomaly check.
type FindingType string

const (
	FindingMultipleFailedLogins FindingType = "multiple_failed_logins"
	FindingRapidLocationChange  FindingType = "rapid_location_change"
	FindingUnusualLoginTime     FindingType = "unusual_login_time"

	// FindingLegacy wraps a free-text suspicious reason.
	FindingLegacy FindingType = "legacy"
)

// Finding is one suspicious condition reported by a detector.
type Finding struct {
	Type    FindingType `json:"type"`
	Message string      `json:"message"`

	// Count is set for multiple_failed_logins.
	Count int `json:"count,omitempty"`

	// Countries is set for rapid_location_change.
	Countries []string `json:"countries,omitempty"`

	// Hour is set for unusual_login_time. A pointer keeps midnight distinct
	// from "not set".
	Hour *int `json:"hour,omitempty"`
}

// FindingTypes returns the type tags of the findings, in order.
func FindingTypes(findings []Finding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = string(f.Type)
	}
	return out
}

// EncodeFindings serializes findings for the SuspiciousReason column.
func EncodeFindings(findings []Finding) (string, error) {
	b, err := json.Marshal(findings)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeFindings parses a stored reason. Anything that is not a JSON list of
// findings is returned as one legacy finding carrying the original text.
func DecodeFindings(reason string) []Finding {
	var findings []Finding
	if err := json.Unmarshal([]byte(reason), &findings); err == nil && len(findings) > 0 {
		return findings
	}
	return []Finding{{Type: FindingLegacy, Message: reason}}
}
