// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/authtrail/internal/ledger"
	"github.com/tomtom215/authtrail/internal/models"
)

var (
	now   = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	alice = models.Subject{Type: "user", ID: "1", Created: now.AddDate(-2, 0, 0)}
	bob   = models.Subject{Type: "user", ID: "2", Created: now.AddDate(-2, 0, 0)}
)

type recordOpt func(*models.AuthenticationRecord)

func successful() recordOpt {
	return func(r *models.AuthenticationRecord) {
		r.LoginSuccessful = true
		r.LastActivityAt = models.TimePtr(*r.LoginAt)
	}
}

func device(id string) recordOpt {
	return func(r *models.AuthenticationRecord) { r.DeviceID = id }
}

func ip(addr string) recordOpt {
	return func(r *models.AuthenticationRecord) { r.IPAddress = addr }
}

func closed(at time.Time) recordOpt {
	return func(r *models.AuthenticationRecord) { r.Close(at) }
}

func trusted() recordOpt {
	return func(r *models.AuthenticationRecord) { r.IsTrusted = true }
}

func suspicious() recordOpt {
	return func(r *models.AuthenticationRecord) {
		_ = r.MarkSuspicious([]models.Finding{{Type: models.FindingUnusualLoginTime, Message: "Login at unusual time: 3:00"}})
	}
}

func insert(t *testing.T, s ledger.Store, p models.Principal, at time.Time, opts ...recordOpt) *models.AuthenticationRecord {
	t.Helper()
	owner := models.OwnerOf(p)
	rec := &models.AuthenticationRecord{
		OwnerType: owner.Type,
		OwnerID:   owner.ID,
		LoginAt:   models.TimePtr(at),
	}
	for _, o := range opts {
		o(rec)
	}
	if err := s.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	return rec
}

func newTestManager() (*Manager, *ledger.MemoryStore) {
	store := ledger.NewMemoryStore()
	return NewManagerWithClock(store, func() time.Time { return now }), store
}

func TestManager_LoginAccessors(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager()

	insert(t, store, alice, now.Add(-3*time.Hour), successful(), ip("203.0.113.1"))
	insert(t, store, alice, now.Add(-2*time.Hour), successful(), ip("203.0.113.2"))
	insert(t, store, alice, now.Add(-time.Hour), ip("198.51.100.9"))

	lastAt, err := m.LastLoginAt(ctx, alice)
	if err != nil || lastAt == nil || !lastAt.Equal(now.Add(-time.Hour)) {
		t.Errorf("LastLoginAt() = %v, %v", lastAt, err)
	}
	if got, _ := m.LastLoginIP(ctx, alice); got != "198.51.100.9" {
		t.Errorf("LastLoginIP() = %q", got)
	}
	succAt, _ := m.LastSuccessfulLoginAt(ctx, alice)
	if succAt == nil || !succAt.Equal(now.Add(-2*time.Hour)) {
		t.Errorf("LastSuccessfulLoginAt() = %v", succAt)
	}
	if got, _ := m.LastSuccessfulLoginIP(ctx, alice); got != "203.0.113.2" {
		t.Errorf("LastSuccessfulLoginIP() = %q", got)
	}
	prevAt, _ := m.PreviousLoginAt(ctx, alice)
	if prevAt == nil || !prevAt.Equal(now.Add(-3*time.Hour)) {
		t.Errorf("PreviousLoginAt() = %v", prevAt)
	}
	if got, _ := m.PreviousLoginIP(ctx, alice); got != "203.0.113.1" {
		t.Errorf("PreviousLoginIP() = %q", got)
	}

	// No history.
	if got, err := m.LastLoginAt(ctx, bob); got != nil || err != nil {
		t.Errorf("LastLoginAt(bob) = %v, %v, want nil, nil", got, err)
	}
	if got, err := m.PreviousLoginIP(ctx, bob); got != "" || err != nil {
		t.Errorf("PreviousLoginIP(bob) = %q, %v", got, err)
	}
}

func TestManager_Stats(t *testing.T) {
	m, store := newTestManager()

	insert(t, store, alice, now.Add(-time.Hour), successful(), device("d1"), ip("203.0.113.1"), trusted())
	insert(t, store, alice, now.Add(-2*time.Hour), successful(), device("d1"), ip("203.0.113.1"), trusted())
	insert(t, store, alice, now.AddDate(0, 0, -10), successful(), device("d2"), ip("203.0.113.2"), suspicious())
	insert(t, store, alice, now.AddDate(0, 0, -40), successful(), device("d3"), ip("203.0.113.2"))
	insert(t, store, alice, now.Add(-time.Minute), device("d4"), ip("198.51.100.1"))
	insert(t, store, bob, now, successful(), device("d9"))

	got, err := m.Stats(context.Background(), alice)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	want := Stats{
		TotalLogins:          4,
		FailedAttempts:       1,
		UniqueDevices:        3,
		UniqueIPs:            2,
		Last30Days:           3,
		Last7Days:            2,
		SuspiciousActivities: 1,
		TrustedDevices:       1,
	}
	if got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestManager_RevokeSession(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager()

	active := insert(t, store, alice, now.Add(-time.Hour), successful(), device("d1"))
	ended := insert(t, store, alice, now.Add(-2*time.Hour), successful(), device("d2"), closed(now.Add(-90*time.Minute)))
	foreign := insert(t, store, bob, now.Add(-time.Hour), successful(), device("d3"))

	tests := []struct {
		name    string
		id      int64
		wantErr error
	}{
		{"missing", 999, ErrNotFound},
		{"not active", ended.ID, ErrNotFound},
		{"other principal", foreign.ID, ErrNotFound},
		{"active", active.ID, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.RevokeSession(ctx, alice, tt.id); !errors.Is(err, tt.wantErr) {
				t.Errorf("RevokeSession(%d) error = %v, want %v", tt.id, err, tt.wantErr)
			}
		})
	}

	got, _ := store.Get(ctx, active.ID)
	if got.LogoutAt == nil || !got.LogoutAt.Equal(now) || !got.LastActivityAt.Equal(now) || !got.ClearedByUser {
		t.Errorf("revoked session = %+v", got)
	}
	if b, _ := store.Get(ctx, foreign.ID); !b.IsActive() {
		t.Error("another principal's session was revoked")
	}
}

func TestManager_RevokeAllOtherSessions(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager()

	current := insert(t, store, alice, now.Add(-time.Hour), successful(), device("d1"))
	insert(t, store, alice, now.Add(-2*time.Hour), successful(), device("d2"))
	insert(t, store, alice, now.Add(-3*time.Hour), successful(), device("d3"))
	insert(t, store, bob, now.Add(-time.Hour), successful(), device("d2"))

	n, err := m.RevokeAllOtherSessions(ctx, alice, "d1")
	if err != nil {
		t.Fatalf("RevokeAllOtherSessions() error = %v", err)
	}
	if n != 2 {
		t.Errorf("revoked = %d, want 2", n)
	}
	active, _ := m.ActiveSessions(ctx, alice)
	if len(active) != 1 || active[0].ID != current.ID {
		t.Errorf("ActiveSessions() = %v, want only current", active)
	}
	if bobActive, _ := m.ActiveSessions(ctx, bob); len(bobActive) != 1 {
		t.Error("another principal's session was revoked")
	}

	n, err = m.RevokeAllOtherSessions(ctx, alice, "")
	if err != nil || n != 1 {
		t.Errorf("RevokeAllOtherSessions(\"\") = %d, %v, want 1, nil", n, err)
	}
}

func TestManager_RevokeAllSessions(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager()

	insert(t, store, alice, now.Add(-time.Hour), successful(), device("d1"))
	insert(t, store, alice, now.Add(-2*time.Hour), successful(), device("d2"))
	insert(t, store, alice, now.Add(-time.Minute), device("d3"))

	n, err := m.RevokeAllSessions(ctx, alice)
	if err != nil {
		t.Fatalf("RevokeAllSessions() error = %v", err)
	}
	if n != 2 {
		t.Errorf("revoked = %d, want 2", n)
	}
	if active, _ := m.ActiveSessions(ctx, alice); len(active) != 0 {
		t.Errorf("ActiveSessions() = %d, want 0", len(active))
	}
}

func TestManager_Devices(t *testing.T) {
	m, store := newTestManager()

	insert(t, store, alice, now.Add(-3*time.Hour), successful(), device("d1"), ip("203.0.113.1"))
	insert(t, store, alice, now.Add(-time.Hour), successful(), device("d1"), ip("203.0.113.5"), trusted())
	insert(t, store, alice, now.Add(-2*time.Hour), successful(), device("d2"), ip("203.0.113.2"))
	insert(t, store, alice, now.Add(-time.Minute), device("d3"))
	insert(t, store, alice, now.Add(-4*time.Hour), successful())

	devices, err := m.Devices(context.Background(), alice)
	if err != nil {
		t.Fatalf("Devices() error = %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("Devices() = %d, want 2: %+v", len(devices), devices)
	}
	first := devices[0]
	if first.ID != "d1" || first.IPAddress != "203.0.113.5" || !first.Trusted || !first.LastLoginAt.Equal(now.Add(-time.Hour)) {
		t.Errorf("devices[0] = %+v, want latest d1 record", first)
	}
	if devices[1].ID != "d2" {
		t.Errorf("devices[1].ID = %q, want d2", devices[1].ID)
	}
}

func TestManager_DeviceTrust(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager()

	insert(t, store, alice, now.Add(-2*time.Hour), successful(), device("d1"))
	insert(t, store, alice, now.Add(-time.Hour), device("d1"))
	insert(t, store, alice, now.Add(-time.Hour), successful(), device("d2"))
	insert(t, store, bob, now.Add(-time.Hour), successful(), device("d1"))

	n, err := m.TrustDevice(ctx, alice, "d1")
	if err != nil || n != 2 {
		t.Fatalf("TrustDevice() = %d, %v, want 2, nil", n, err)
	}
	if ok, _ := m.IsDeviceTrusted(ctx, alice, "d1"); !ok {
		t.Error("IsDeviceTrusted(d1) = false after trust")
	}
	if ok, _ := m.IsDeviceTrusted(ctx, alice, "d2"); ok {
		t.Error("IsDeviceTrusted(d2) = true")
	}
	if ok, _ := m.IsDeviceTrusted(ctx, bob, "d1"); ok {
		t.Error("trust leaked to another principal")
	}

	if _, err := m.RenameDevice(ctx, alice, "d1", "Work laptop"); err != nil {
		t.Fatalf("RenameDevice() error = %v", err)
	}
	devices, _ := m.Devices(ctx, alice)
	for _, d := range devices {
		if d.ID == "d1" && d.Name != "Work laptop" {
			t.Errorf("device name = %q, want Work laptop", d.Name)
		}
	}

	if _, err := m.UntrustDevice(ctx, alice, "d1"); err != nil {
		t.Fatalf("UntrustDevice() error = %v", err)
	}
	if ok, _ := m.IsDeviceTrusted(ctx, alice, "d1"); ok {
		t.Error("IsDeviceTrusted(d1) = true after untrust")
	}

	if _, err := m.TrustDevice(ctx, alice, "unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("TrustDevice(unknown) error = %v, want ErrNotFound", err)
	}
	if _, err := m.TrustDevice(ctx, alice, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("TrustDevice(\"\") error = %v, want ErrNotFound", err)
	}
}
