// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package correlator

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/authtrail/internal/ledger"
	"github.com/tomtom215/authtrail/internal/models"
)

// Logout closes the session of the requesting device. The session is found
// by device id, then by IP address and user agent; when neither matches a
// closed placeholder record is written.
func (c *Correlator) Logout(ctx context.Context, principal models.Principal, meta Meta) (Outcome, error) {
	start := time.Now()
	out, err := c.logout(ctx, principal, meta)
	recordEvent(string(EventLogout), out, err, start)
	return out, err
}

func (c *Correlator) logout(ctx context.Context, principal models.Principal, meta Meta) (Outcome, error) {
	now := c.clock.Now()

	rec, placeholder, err := c.currentSession(ctx, principal, meta, now)
	if err != nil {
		return Outcome{}, err
	}
	rec.Close(now)

	if placeholder {
		err = c.store.Insert(ctx, rec)
	} else {
		err = c.store.Update(ctx, rec)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("close session: %w", err)
	}

	outcome := "closed"
	if placeholder {
		outcome = "placeholder"
	}
	c.audit.Log(auditEvent(EventLogout, principal, rec, outcome, nil))
	return Outcome{Record: rec, Placeholder: placeholder}, nil
}

// OtherDeviceLogout closes every active session of the principal except the
// requesting device's. When the requesting device has no record an active
// placeholder is written for it first.
func (c *Correlator) OtherDeviceLogout(ctx context.Context, principal models.Principal, meta Meta) (Outcome, error) {
	start := time.Now()
	out, err := c.otherDeviceLogout(ctx, principal, meta)
	recordEvent(string(EventOtherDeviceLogout), out, err, start)
	return out, err
}

func (c *Correlator) otherDeviceLogout(ctx context.Context, principal models.Principal, meta Meta) (Outcome, error) {
	now := c.clock.Now()
	owner := models.OwnerOf(principal)

	current, placeholder, err := c.currentSession(ctx, principal, meta, now)
	if err != nil {
		return Outcome{}, err
	}
	if placeholder {
		if err := c.store.Insert(ctx, current); err != nil {
			return Outcome{}, fmt.Errorf("insert current session: %w", err)
		}
	}

	patch := ledger.ClosePatch(now)
	patch.ClearedByUser = ledger.Bool(true)
	n, err := c.store.UpdateWhere(ctx, ledger.For(owner).Active().Excluding(current.ID), patch)
	if err != nil {
		return Outcome{}, fmt.Errorf("clear other sessions: %w", err)
	}

	ev := auditEvent(EventOtherDeviceLogout, principal, current, "cleared", nil)
	ev.Details = map[string]string{"cleared": fmt.Sprintf("%d", n)}
	c.audit.Log(ev)

	return Outcome{Record: current, Placeholder: placeholder, Cleared: n}, nil
}

// currentSession finds the latest successful record of the requesting
// device, falling back to IP address and user agent. When nothing matches
// it returns an unsaved active placeholder and true.
func (c *Correlator) currentSession(ctx context.Context, principal models.Principal, meta Meta, now time.Time) (*models.AuthenticationRecord, bool, error) {
	owner := models.OwnerOf(principal)
	dev := deviceOf(meta)
	successful := ledger.For(owner).Successful()

	rec, err := c.first(ctx, successful.FromDevice(dev.id))
	if err != nil {
		return nil, false, fmt.Errorf("find session by device: %w", err)
	}
	if rec != nil {
		return rec, false, nil
	}

	rec, err = c.first(ctx, successful.FromIP(meta.Request.IP).WithUserAgent(dev.userAgent))
	if err != nil {
		return nil, false, fmt.Errorf("find session by ip: %w", err)
	}
	if rec != nil {
		return rec, false, nil
	}

	p := models.NewPlaceholder(owner, now)
	p.IPAddress = meta.Request.IP
	p.UserAgent = dev.userAgent
	p.DeviceID = dev.id
	p.DeviceName = dev.name
	return p, true, nil
}
