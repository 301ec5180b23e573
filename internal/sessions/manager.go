// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/authtrail/internal/ledger"
	"github.com/tomtom215/authtrail/internal/logging"
	"github.com/tomtom215/authtrail/internal/models"
)

// ErrNotFound is returned when a session or device does not belong to the
// principal or does not exist.
var ErrNotFound = errors.New("session not found")

// Manager answers history and session questions for principals and applies
// user-initiated revocation and device trust changes.
type Manager struct {
	store ledger.Store
	now   func() time.Time
}

// NewManager creates a Manager using the wall clock.
func NewManager(store ledger.Store) *Manager {
	return NewManagerWithClock(store, time.Now)
}

// NewManagerWithClock creates a Manager with a custom clock.
func NewManagerWithClock(store ledger.Store, now func() time.Time) *Manager {
	return &Manager{store: store, now: now}
}

// Stats summarizes a principal's authentication history.
type Stats struct {
	TotalLogins          int `json:"total_logins"`
	FailedAttempts       int `json:"failed_attempts"`
	UniqueDevices        int `json:"unique_devices"`
	UniqueIPs            int `json:"unique_ips"`
	Last30Days           int `json:"last_30_days"`
	Last7Days            int `json:"last_7_days"`
	SuspiciousActivities int `json:"suspicious_activities"`
	TrustedDevices       int `json:"trusted_devices"`
}

func (m *Manager) first(ctx context.Context, q ledger.Query) (*models.AuthenticationRecord, error) {
	rec, err := m.store.First(ctx, q)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// nth returns the n-th record (0-based) Find would return, or nil.
func (m *Manager) nth(ctx context.Context, q ledger.Query, n int) (*models.AuthenticationRecord, error) {
	recs, err := m.store.Find(ctx, q.Limit(n+1))
	if err != nil {
		return nil, err
	}
	if len(recs) <= n {
		return nil, nil
	}
	return recs[n], nil
}

// LastLoginAt is the login time of the most recent attempt, failed or not.
func (m *Manager) LastLoginAt(ctx context.Context, p models.Principal) (*time.Time, error) {
	rec, err := m.first(ctx, ledger.For(models.OwnerOf(p)))
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.LoginAt, nil
}

// LastSuccessfulLoginAt is the login time of the most recent successful login.
func (m *Manager) LastSuccessfulLoginAt(ctx context.Context, p models.Principal) (*time.Time, error) {
	rec, err := m.first(ctx, ledger.For(models.OwnerOf(p)).Successful())
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.LoginAt, nil
}

// LastLoginIP is the IP address of the most recent attempt.
func (m *Manager) LastLoginIP(ctx context.Context, p models.Principal) (string, error) {
	rec, err := m.first(ctx, ledger.For(models.OwnerOf(p)))
	if err != nil || rec == nil {
		return "", err
	}
	return rec.IPAddress, nil
}

// LastSuccessfulLoginIP is the IP address of the most recent successful login.
func (m *Manager) LastSuccessfulLoginIP(ctx context.Context, p models.Principal) (string, error) {
	rec, err := m.first(ctx, ledger.For(models.OwnerOf(p)).Successful())
	if err != nil || rec == nil {
		return "", err
	}
	return rec.IPAddress, nil
}

// PreviousLoginAt is the login time of the second most recent successful
// login.
func (m *Manager) PreviousLoginAt(ctx context.Context, p models.Principal) (*time.Time, error) {
	rec, err := m.nth(ctx, ledger.For(models.OwnerOf(p)).Successful(), 1)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.LoginAt, nil
}

// PreviousLoginIP is the IP address of the second most recent successful
// login.
func (m *Manager) PreviousLoginIP(ctx context.Context, p models.Principal) (string, error) {
	rec, err := m.nth(ctx, ledger.For(models.OwnerOf(p)).Successful(), 1)
	if err != nil || rec == nil {
		return "", err
	}
	return rec.IPAddress, nil
}

// Stats computes login statistics for p.
func (m *Manager) Stats(ctx context.Context, p models.Principal) (Stats, error) {
	var (
		s          Stats
		err        error
		now        = m.now()
		owner      = ledger.For(models.OwnerOf(p))
		successful = owner.Successful()
	)

	counts := []struct {
		dst *int
		q   ledger.Query
	}{
		{&s.TotalLogins, successful},
		{&s.FailedAttempts, owner.Failed()},
		{&s.Last30Days, successful.Recent(30, now)},
		{&s.Last7Days, successful.Recent(7, now)},
		{&s.SuspiciousActivities, owner.Suspicious()},
	}
	for _, c := range counts {
		if *c.dst, err = m.store.Count(ctx, c.q); err != nil {
			return Stats{}, fmt.Errorf("count logins: %w", err)
		}
	}

	distinct := []struct {
		dst   *int
		q     ledger.Query
		field ledger.Field
	}{
		{&s.UniqueDevices, successful, ledger.FieldDeviceID},
		{&s.UniqueIPs, successful, ledger.FieldIPAddress},
		{&s.TrustedDevices, owner.Trusted(), ledger.FieldDeviceID},
	}
	for _, d := range distinct {
		if *d.dst, err = m.store.CountDistinct(ctx, d.q, d.field); err != nil {
			return Stats{}, fmt.Errorf("count distinct %s: %w", d.field, err)
		}
	}
	return s, nil
}

// ActiveSessions returns the principal's open sessions, most recent first.
func (m *Manager) ActiveSessions(ctx context.Context, p models.Principal) ([]*models.AuthenticationRecord, error) {
	return m.store.Find(ctx, ledger.For(models.OwnerOf(p)).Active())
}

func (m *Manager) revokePatch() ledger.Patch {
	p := ledger.ClosePatch(m.now())
	p.ClearedByUser = ledger.Bool(true)
	return p
}

// RevokeSession closes one active session of p.
func (m *Manager) RevokeSession(ctx context.Context, p models.Principal, id int64) error {
	rec, err := m.store.Get(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if rec.Owner() != models.OwnerOf(p) || !rec.IsActive() {
		return ErrNotFound
	}

	m.revokePatch().Apply(rec)
	if err := m.store.Update(ctx, rec); err != nil {
		return fmt.Errorf("revoke session %d: %w", id, err)
	}
	logging.Ctx(ctx).Info().
		Str("principal", models.OwnerOf(p).String()).
		Int64("session_id", id).
		Msg("Session revoked")
	return nil
}

// RevokeAllOtherSessions closes every active session of p whose device is
// not currentDeviceID. An empty currentDeviceID revokes everything.
func (m *Manager) RevokeAllOtherSessions(ctx context.Context, p models.Principal, currentDeviceID string) (int, error) {
	if currentDeviceID == "" {
		return m.RevokeAllSessions(ctx, p)
	}

	active, err := m.ActiveSessions(ctx, p)
	if err != nil {
		return 0, err
	}
	patch := m.revokePatch()
	n := 0
	for _, rec := range active {
		if rec.DeviceID == currentDeviceID {
			continue
		}
		patch.Apply(rec)
		if err := m.store.Update(ctx, rec); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				continue
			}
			return n, fmt.Errorf("revoke session %d: %w", rec.ID, err)
		}
		n++
	}
	return n, nil
}

// RevokeAllSessions closes every active session of p.
func (m *Manager) RevokeAllSessions(ctx context.Context, p models.Principal) (int, error) {
	n, err := m.store.UpdateWhere(ctx, ledger.For(models.OwnerOf(p)).Active(), m.revokePatch())
	if err != nil {
		return n, fmt.Errorf("revoke sessions: %w", err)
	}
	return n, nil
}
