// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/authtrail/internal/config"
	"github.com/tomtom215/authtrail/internal/events"
	"github.com/tomtom215/authtrail/internal/ledger"
	"github.com/tomtom215/authtrail/internal/models"
	"github.com/tomtom215/authtrail/internal/sessions"
)

var testNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

type mockPublisher struct {
	mu        sync.Mutex
	envelopes []*events.Envelope
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, env *events.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.envelopes = append(m.envelopes, env)
	return nil
}

func (m *mockPublisher) published() []*events.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*events.Envelope(nil), m.envelopes...)
}

type testServer struct {
	handler http.Handler
	pub     *mockPublisher
	store   *ledger.MemoryStore
}

func newTestServer(t *testing.T, mutate func(*config.ServerConfig)) *testServer {
	t.Helper()
	cfg := config.Default().Server
	if mutate != nil {
		mutate(&cfg)
	}
	store := ledger.NewMemoryStore()
	pub := &mockPublisher{}
	m := sessions.NewManagerWithClock(store, func() time.Time { return testNow })
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	r := NewRouter(cfg, pub, m, WithMetricsHandler(metrics))
	return &testServer{handler: r.Handler(), pub: pub, store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seed(t *testing.T, ownerID, deviceID string, at time.Time, active bool) *models.AuthenticationRecord {
	t.Helper()
	rec := &models.AuthenticationRecord{
		OwnerType:       "user",
		OwnerID:         ownerID,
		IPAddress:       "198.51.100.7",
		DeviceID:        deviceID,
		DeviceName:      "Firefox on Linux",
		LoginAt:         models.TimePtr(at),
		LoginSuccessful: true,
		LastActivityAt:  models.TimePtr(at),
	}
	if !active {
		rec.Close(at.Add(time.Hour))
	}
	if err := s.store.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

const validEvent = `{
	"kind": "login",
	"principal": {"type": "user", "id": "42", "email": "alice@example.com", "created_at": "2025-01-01T00:00:00Z"},
	"request": {"ip": "203.0.113.10", "user_agent": "Mozilla/5.0 Firefox/128.0"}
}`

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "# metrics") {
		t.Errorf("status = %d body = %q", rec.Code, rec.Body.String())
	}
}

func TestPublishEvent(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		pubErr     error
		wantStatus int
		wantField  string
	}{
		{"accepted", validEvent, nil, http.StatusAccepted, ""},
		{"malformed json", "{", nil, http.StatusBadRequest, ""},
		{"unknown kind", strings.Replace(validEvent, `"login"`, `"password_reset"`, 1), nil, http.StatusBadRequest, "kind"},
		{"missing principal id", strings.Replace(validEvent, `"id": "42"`, `"id": ""`, 1), nil, http.StatusBadRequest, "principal.id"},
		{"bus failure", validEvent, errors.New("bus closed"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			s.pub.err = tt.pubErr

			rec := s.do(t, http.MethodPost, "/v1/events", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}

			if tt.wantStatus == http.StatusAccepted {
				got := s.pub.published()
				if len(got) != 1 {
					t.Fatalf("published %d envelopes, want 1", len(got))
				}
				if got[0].Principal.ID != "42" || got[0].OccurredAt.IsZero() {
					t.Errorf("envelope = %+v", got[0])
				}
				return
			}

			if len(s.pub.published()) != 0 {
				t.Error("rejected event was published")
			}
			resp := decodeError(t, rec)
			if resp.Error == "" {
				t.Error("error message empty")
			}
			if tt.wantField == "" {
				return
			}
			var found bool
			for _, fe := range resp.Fields {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("fields = %+v, want %q", resp.Fields, tt.wantField)
			}
		})
	}
}

func TestStats(t *testing.T) {
	s := newTestServer(t, nil)
	s.seed(t, "7", "dev-a", testNow.Add(-time.Hour), true)
	s.seed(t, "7", "dev-b", testNow.Add(-48*time.Hour), false)
	s.seed(t, "8", "dev-c", testNow.Add(-time.Hour), true)

	rec := s.do(t, http.MethodGet, "/v1/principals/user/7/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats sessions.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalLogins != 2 || stats.UniqueDevices != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSessions(t *testing.T) {
	s := newTestServer(t, nil)
	active := s.seed(t, "7", "dev-a", testNow.Add(-time.Hour), true)
	s.seed(t, "7", "dev-b", testNow.Add(-48*time.Hour), false)

	rec := s.do(t, http.MethodGet, "/v1/principals/user/7/sessions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var recs []models.AuthenticationRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != active.ID {
		t.Errorf("sessions = %+v, want only record %d", recs, active.ID)
	}

	rec = s.do(t, http.MethodGet, "/v1/principals/user/unknown/sessions", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("empty sessions body = %q, want []", rec.Body.String())
	}
}

func TestRevokeSession(t *testing.T) {
	s := newTestServer(t, nil)
	mine := s.seed(t, "7", "dev-a", testNow.Add(-time.Hour), true)
	theirs := s.seed(t, "8", "dev-b", testNow.Add(-time.Hour), true)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"revokes own session", "/v1/principals/user/7/sessions/" + strconv.FormatInt(mine.ID, 10), http.StatusNoContent},
		{"already revoked", "/v1/principals/user/7/sessions/" + strconv.FormatInt(mine.ID, 10), http.StatusNotFound},
		{"other principal's session", "/v1/principals/user/7/sessions/" + strconv.FormatInt(theirs.ID, 10), http.StatusNotFound},
		{"bad id", "/v1/principals/user/7/sessions/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodDelete, tt.path, "")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}

	got, err := s.store.Get(context.Background(), mine.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.IsActive() || !got.ClearedByUser {
		t.Errorf("revoked record = %+v", got)
	}
	if other, _ := s.store.Get(context.Background(), theirs.ID); !other.IsActive() {
		t.Error("another principal's session was revoked")
	}
}

func TestDevicesAndTrust(t *testing.T) {
	s := newTestServer(t, nil)
	s.seed(t, "7", "dev-a", testNow.Add(-time.Hour), true)
	s.seed(t, "7", "dev-a", testNow.Add(-72*time.Hour), false)

	rec := s.do(t, http.MethodPost, "/v1/principals/user/7/devices/dev-a/trust", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("trust status = %d", rec.Code)
	}
	var body struct {
		Records int `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Records != 2 {
		t.Errorf("trust body = %s", rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/v1/principals/user/7/devices", "")
	var devices []sessions.Device
	if err := json.Unmarshal(rec.Body.Bytes(), &devices); err != nil {
		t.Fatalf("decode devices: %v", err)
	}
	if len(devices) != 1 || devices[0].ID != "dev-a" || !devices[0].Trusted {
		t.Errorf("devices = %+v", devices)
	}

	if rec := s.do(t, http.MethodPost, "/v1/principals/user/7/devices/dev-a/untrust", ""); rec.Code != http.StatusOK {
		t.Errorf("untrust status = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/v1/principals/user/7/devices/missing/trust", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown device status = %d, want 404", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.ServerConfig) {
		c.RateLimitRequests = 2
		c.RateLimitWindow = time.Minute
	})

	for i := 0; i < 2; i++ {
		if rec := s.do(t, http.MethodGet, "/v1/principals/user/7/stats", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, rec.Code)
		}
	}
	rec := s.do(t, http.MethodGet, "/v1/principals/user/7/stats", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "Too many requests" {
		t.Errorf("error = %q", resp.Error)
	}

	// Health checks are outside the limited group.
	if rec := s.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
}

func TestNotFoundIsJSON(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/v2/nothing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "Not found" || resp.RequestID == "" {
		t.Errorf("error body = %+v", resp)
	}
}
