// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Separator joins fingerprint components before hashing.
const Separator = "|"

// Sentinels used by DeviceName when no token matches.
const (
	UnknownBrowser = "Unknown Browser"
	UnknownOS      = "Unknown OS"
)

var (
	// Applied in order by NormalizeUserAgent.
	slashVersion   = regexp.MustCompile(`/(\d+\.\d+\.\d+\.\d+|\d+\.\d+\.\d+|\d+\.\d+|\d+)`)
	versionToken   = regexp.MustCompile(`(?i)Version/[\d.]+`)
	bareVersion    = regexp.MustCompile(`(?i)\bv[\d.]+\b`)
	whitespaceRuns = regexp.MustCompile(`\s+`)

	// Order matters: the leftmost token in the user agent wins.
	browserTokens = regexp.MustCompile(`(?i)(Chrome|Firefox|Safari|Edge|Opera|MSIE|Trident)`)
	osTokens      = regexp.MustCompile(`(?i)(Windows|Mac|Linux|Android|iOS|iPhone|iPad)`)
)

// RequestMeta is the subset of request metadata a fingerprint is built from.
type RequestMeta struct {
	IP             string `json:"ip,omitempty" validate:"omitempty,ip"`
	UserAgent      string `json:"user_agent,omitempty"`
	AcceptLanguage string `json:"accept_language,omitempty"`
	AcceptEncoding string `json:"accept_encoding,omitempty"`
}

// Generate returns the device id for meta: a SHA-256 hex digest over the
// normalized user agent, IP, Accept-Language and Accept-Encoding. Empty
// components are skipped so a missing header does not change the id.
func Generate(meta RequestMeta) string {
	components := []string{
		NormalizeUserAgent(meta.UserAgent),
		meta.IP,
		meta.AcceptLanguage,
		meta.AcceptEncoding,
	}

	parts := components[:0]
	for _, c := range components {
		if c != "" {
			parts = append(parts, c)
		}
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, Separator)))
	return hex.EncodeToString(sum[:])
}

// NormalizeUserAgent strips version numbers so that browser updates keep
// the same fingerprint. "Chrome/120.0.0.0" and "Chrome/121.0.1.2" both
// normalize to "Chrome".
func NormalizeUserAgent(ua string) string {
	if ua == "" {
		return ""
	}

	s := slashVersion.ReplaceAllString(ua, "")
	s = versionToken.ReplaceAllString(s, "")
	s = bareVersion.ReplaceAllString(s, "")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	return strings.Trim(s, " /")
}

// DeviceName returns a "{browser} on {os}" label from the raw user agent.
func DeviceName(meta RequestMeta) string {
	browser := UnknownBrowser
	if m := browserTokens.FindStringSubmatch(meta.UserAgent); m != nil {
		browser = m[1]
	}

	os := UnknownOS
	if m := osTokens.FindStringSubmatch(meta.UserAgent); m != nil {
		os = m[1]
	}

	return browser + " on " + os
}
