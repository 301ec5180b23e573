// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package fingerprint

import (
	"net"
	"net/http"
	"strings"

	ua "github.com/mileusna/useragent"
)

// FromRequest extracts RequestMeta from an HTTP request. When cdnHeader is
// set and present on the request it is trusted as the client IP; otherwise
// the first X-Forwarded-For entry, then X-Real-IP, then RemoteAddr is used.
func FromRequest(r *http.Request, cdnHeader string) RequestMeta {
	return RequestMeta{
		IP:             ClientIP(r, cdnHeader),
		UserAgent:      r.UserAgent(),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		AcceptEncoding: r.Header.Get("Accept-Encoding"),
	}
}

// ClientIP resolves the client address of r.
func ClientIP(r *http.Request, cdnHeader string) string {
	if cdnHeader != "" {
		if v := strings.TrimSpace(r.Header.Get(cdnHeader)); v != "" {
			return v
		}
	}

	// Take the first IP in the chain
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ParseUserAgent returns the summary stored on records, for example
// "Chrome 120.0.0.0 (Windows 10.0)". The raw user agent is returned when no
// browser can be identified.
func ParseUserAgent(raw string) string {
	if raw == "" {
		return ""
	}

	parsed := ua.Parse(raw)
	if parsed.Name == "" {
		return raw
	}

	var b strings.Builder
	b.WriteString(parsed.Name)
	if parsed.Version != "" {
		b.WriteString(" ")
		b.WriteString(parsed.Version)
	}
	if parsed.OS != "" {
		b.WriteString(" (")
		b.WriteString(parsed.OS)
		if parsed.OSVersion != "" {
			b.WriteString(" ")
			b.WriteString(parsed.OSVersion)
		}
		b.WriteString(")")
	}
	return b.String()
}
