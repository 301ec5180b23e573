// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package sessions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/authtrail/internal/fingerprint"
	"github.com/tomtom215/authtrail/internal/models"
)

func TestRequireTrustedDevice(t *testing.T) {
	m, store := newTestManager()

	newRequest := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/account/delete", nil)
		req.RemoteAddr = "203.0.113.10:51234"
		req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0")
		req.Header.Set("Accept-Language", "en-US")
		return req
	}
	trustedID := fingerprint.Generate(fingerprint.FromRequest(newRequest(), ""))
	insert(t, store, alice, now, successful(), device(trustedID), trusted())
	insert(t, store, bob, now, successful(), device(trustedID))

	tests := []struct {
		name      string
		principal models.Principal
		mutate    func(*http.Request)
		want      int
		wantError string
	}{
		{"unauthenticated", nil, nil, http.StatusUnauthorized, "Unauthenticated"},
		{"trusted device", alice, nil, http.StatusOK, ""},
		{"untrusted for principal", bob, nil, http.StatusForbidden, untrustedDeviceMessage},
		{"different device", alice, func(r *http.Request) { r.Header.Set("Accept-Language", "de-DE") }, http.StatusForbidden, untrustedDeviceMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})
			resolve := func(*http.Request) models.Principal { return tt.principal }
			h := RequireTrustedDevice(m, resolve, "")(next)

			req := newRequest()
			if tt.mutate != nil {
				tt.mutate(req)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req.WithContext(context.Background()))

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if called != (tt.want == http.StatusOK) {
				t.Errorf("next called = %v", called)
			}
			if tt.wantError == "" {
				return
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("Content-Type = %q", ct)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["error"] != tt.wantError {
				t.Errorf("error = %q, want %q", body["error"], tt.wantError)
			}
		})
	}
}
