// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package sessions

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/authtrail/internal/fingerprint"
	"github.com/tomtom215/authtrail/internal/logging"
	"github.com/tomtom215/authtrail/internal/models"
)

// PrincipalResolver returns the authenticated principal of a request, or
// nil when the request is unauthenticated.
type PrincipalResolver func(r *http.Request) models.Principal

const untrustedDeviceMessage = "This action requires a trusted device. Please verify your device in your account settings."

// RequireTrustedDevice only lets requests through when they come from a
// device the principal has marked trusted. cdnHeader is the optional header
// carrying the client IP.
func RequireTrustedDevice(m *Manager, resolve PrincipalResolver, cdnHeader string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := resolve(r)
			if p == nil {
				writeError(w, http.StatusUnauthorized, "Unauthenticated")
				return
			}

			deviceID := fingerprint.Generate(fingerprint.FromRequest(r, cdnHeader))
			trusted, err := m.IsDeviceTrusted(r.Context(), p, deviceID)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("Trusted device check failed")
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if !trusted {
				writeError(w, http.StatusForbidden, untrustedDeviceMessage)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		logging.Error().Err(err).Msg("Failed to encode error response")
	}
}
