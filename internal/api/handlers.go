// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/authtrail/internal/events"
	"github.com/tomtom215/authtrail/internal/logging"
	"github.com/tomtom215/authtrail/internal/models"
	"github.com/tomtom215/authtrail/internal/sessions"
	"github.com/tomtom215/authtrail/internal/validation"
)

// maxEventBody bounds POST /v1/events bodies.
const maxEventBody = 64 << 10

func (router *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePublishEvent accepts one envelope and publishes it.
func (router *Router) handlePublishEvent(w http.ResponseWriter, r *http.Request) {
	var env events.Envelope
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody))
	if err := dec.Decode(&env); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = time.Now().UTC()
	}

	if err := env.Validate(); err != nil {
		resp := ErrorResponse{
			Error:     "Invalid event",
			RequestID: logging.RequestIDFromContext(r.Context()),
		}
		var verr *validation.Error
		if errors.As(err, &verr) {
			for _, fe := range verr.Fields() {
				resp.Fields = append(resp.Fields, FieldError{Field: fe.Field(), Message: fe.Error()})
			}
		}
		writeJSON(w, r, http.StatusBadRequest, resp)
		return
	}

	if err := router.publisher.Publish(r.Context(), &env); err != nil {
		internalError(w, r, err, "Failed to publish event")
		return
	}

	writeJSON(w, r, http.StatusAccepted, map[string]string{
		"status":         "accepted",
		"correlation_id": logging.CorrelationIDFromContext(r.Context()),
	})
}

// principalFromPath builds a Subject from the {type} and {id} URL params.
func principalFromPath(r *http.Request) models.Subject {
	return models.Subject{
		Type: chi.URLParam(r, "type"),
		ID:   chi.URLParam(r, "id"),
	}
}

func (router *Router) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := router.sessions.Stats(r.Context(), principalFromPath(r))
	if err != nil {
		internalError(w, r, err, "Failed to compute login stats")
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

func (router *Router) handleSessions(w http.ResponseWriter, r *http.Request) {
	recs, err := router.sessions.ActiveSessions(r.Context(), principalFromPath(r))
	if err != nil {
		internalError(w, r, err, "Failed to list sessions")
		return
	}
	if recs == nil {
		recs = []*models.AuthenticationRecord{}
	}
	writeJSON(w, r, http.StatusOK, recs)
}

func (router *Router) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "Invalid session id")
		return
	}

	err = router.sessions.RevokeSession(r.Context(), principalFromPath(r), id)
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Session not found")
	case err != nil:
		internalError(w, r, err, "Failed to revoke session")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (router *Router) handleDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := router.sessions.Devices(r.Context(), principalFromPath(r))
	if err != nil {
		internalError(w, r, err, "Failed to list devices")
		return
	}
	if devices == nil {
		devices = []sessions.Device{}
	}
	writeJSON(w, r, http.StatusOK, devices)
}

func (router *Router) handleTrustDevice(w http.ResponseWriter, r *http.Request) {
	router.setDeviceTrust(w, r, true)
}

func (router *Router) handleUntrustDevice(w http.ResponseWriter, r *http.Request) {
	router.setDeviceTrust(w, r, false)
}

func (router *Router) setDeviceTrust(w http.ResponseWriter, r *http.Request, trusted bool) {
	p := principalFromPath(r)
	deviceID := chi.URLParam(r, "deviceID")

	update := router.sessions.UntrustDevice
	if trusted {
		update = router.sessions.TrustDevice
	}
	n, err := update(r.Context(), p, deviceID)
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Device not found")
		return
	case err != nil:
		internalError(w, r, err, "Failed to update device trust")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"device_id":  deviceID,
		"is_trusted": trusted,
		"records":    n,
	})
}
