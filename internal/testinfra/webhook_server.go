// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package testinfra

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// WebhookCapture represents a captured webhook request.
type WebhookCapture struct {
	Method  string
	Path    string
	Headers http.Header
	Body    []byte
}

// MockWebhookServer provides a mock HTTP server for testing webhook deliveries.
// It captures all incoming requests for verification.
type MockWebhookServer struct {
	Server *httptest.Server

	mu       sync.Mutex
	captures []WebhookCapture
	status   int
}

// NewMockWebhookServer creates a new mock webhook server answering 200.
// The server is closed when the test ends.
func NewMockWebhookServer(t *testing.T) *MockWebhookServer {
	t.Helper()

	m := &MockWebhookServer{status: http.StatusOK}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()

		m.mu.Lock()
		m.captures = append(m.captures, WebhookCapture{
			Method:  r.Method,
			Path:    r.URL.Path,
			Headers: r.Header.Clone(),
			Body:    body,
		})
		status := m.status
		m.mu.Unlock()

		w.WriteHeader(status)
	}))
	t.Cleanup(m.Server.Close)

	return m
}

// URL returns the server URL.
func (m *MockWebhookServer) URL() string {
	return m.Server.URL
}

// SetStatus changes the status code returned to subsequent requests.
func (m *MockWebhookServer) SetStatus(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = code
}

// GetCaptures returns all captured requests.
func (m *MockWebhookServer) GetCaptures() []WebhookCapture {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]WebhookCapture, len(m.captures))
	copy(result, m.captures)
	return result
}

// ClearCaptures clears all captured requests.
func (m *MockWebhookServer) ClearCaptures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captures = nil
}

// WaitForCaptures waits until at least n requests are captured or timeout.
func (m *MockWebhookServer) WaitForCaptures(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		count := len(m.captures)
		m.mu.Unlock()
		if count >= n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
