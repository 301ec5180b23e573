// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package correlator

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/authtrail/internal/config"
	"github.com/tomtom215/authtrail/internal/ledger"
	"github.com/tomtom215/authtrail/internal/logging"
	"github.com/tomtom215/authtrail/internal/metrics"
	"github.com/tomtom215/authtrail/internal/models"
	"github.com/tomtom215/authtrail/internal/notify"
)

// failedDeviceWindow is how far back a failed login on the device makes a
// successful login worth a new-device notification.
const failedDeviceWindow = 24 * time.Hour

// Login records a successful login. A repeated login from a device that
// already has a recent active session only refreshes that session.
func (c *Correlator) Login(ctx context.Context, principal models.Principal, meta Meta) (Outcome, error) {
	start := time.Now()
	out, err := c.login(ctx, principal, meta)
	recordEvent(string(EventLogin), out, err, start)
	return out, err
}

func (c *Correlator) login(ctx context.Context, principal models.Principal, meta Meta) (Outcome, error) {
	now := c.clock.Now()
	owner := models.OwnerOf(principal)
	dev := deviceOf(meta)
	byDevice := ledger.For(owner).FromDevice(dev.id)

	known, err := c.knownDevice(ctx, byDevice, now)
	if err != nil {
		return Outcome{}, err
	}

	hadFailed, err := c.store.Count(ctx, byDevice.Failed().Since(now.Add(-failedDeviceWindow)))
	if err != nil {
		return Outcome{}, fmt.Errorf("count failed logins on device: %w", err)
	}

	newPrincipal := now.Sub(principal.CreatedAt()) < c.cfg.Notifications.NewUserThreshold

	if c.cfg.Session.PreventRestorationLogging {
		since := now.Add(-c.cfg.Session.RestorationWindow)
		existing, err := c.first(ctx, byDevice.Active().Since(since))
		if err != nil {
			return Outcome{}, fmt.Errorf("find active session: %w", err)
		}
		if existing != nil {
			existing.Touch(now)
			if err := c.store.Update(ctx, existing); err != nil {
				return Outcome{}, fmt.Errorf("refresh session: %w", err)
			}
			c.audit.Log(auditEvent(EventLogin, principal, existing, "restored", nil))
			return Outcome{Record: existing, Restored: true}, nil
		}
	}

	findings, err := c.engine.Detect(ctx, principal, now)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("principal", owner.String()).Msg("Suspicious activity detection failed")
	}

	rec := &models.AuthenticationRecord{
		OwnerType:       owner.Type,
		OwnerID:         owner.ID,
		IPAddress:       meta.Request.IP,
		UserAgent:       dev.userAgent,
		DeviceID:        dev.id,
		DeviceName:      dev.name,
		IsTrusted:       known != nil && known.IsTrusted,
		LoginAt:         models.TimePtr(now),
		LoginSuccessful: true,
		LastActivityAt:  models.TimePtr(now),
		Location:        c.location(ctx, meta),
	}
	if err := rec.MarkSuspicious(findings); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to record findings")
		findings = nil
	}

	if err := c.store.Insert(ctx, rec); err != nil {
		return Outcome{}, fmt.Errorf("insert login record: %w", err)
	}
	c.audit.Log(auditEvent(EventLogin, principal, rec, "recorded", findings))

	newDevice := (known == nil || hadFailed > 0) && !newPrincipal
	payload := notify.Payload{Record: rec, Findings: findings}

	if newDevice {
		c.sendNotification(ctx, principal, notify.KindNewDevice, c.cfg.Notifications.NewDevice, "new_device:", payload)
	}
	if len(findings) > 0 {
		c.sendNotification(ctx, principal, notify.KindSuspiciousActivity, c.cfg.Notifications.SuspiciousActivity, "suspicious_activity:", payload)
	}

	c.sendWebhook(ctx, notify.EventLogin, rec, principal)
	if len(findings) > 0 {
		c.sendWebhook(ctx, notify.EventSuspicious, rec, principal)
	}
	if newDevice {
		c.sendWebhook(ctx, notify.EventNewDevice, rec, principal)
	}

	return Outcome{Record: rec, Findings: findings}, nil
}

// knownDevice returns the latest successful record for the device that
// satisfies the known-device policy, or nil.
func (c *Correlator) knownDevice(ctx context.Context, byDevice ledger.Query, now time.Time) (*models.AuthenticationRecord, error) {
	successful := byDevice.Successful()

	if c.cfg.Session.KnownDevicePolicy != config.KnownDevicePolicyActiveOrRecent {
		rec, err := c.first(ctx, successful)
		if err != nil {
			return nil, fmt.Errorf("find known device: %w", err)
		}
		return rec, nil
	}

	recs, err := c.store.Find(ctx, successful)
	if err != nil {
		return nil, fmt.Errorf("find known device: %w", err)
	}
	since := now.Add(-c.cfg.Session.KnownDeviceWindow)
	for _, r := range recs {
		if r.IsActive() || (r.LoginAt != nil && !r.LoginAt.Before(since)) {
			return r, nil
		}
	}
	return nil, nil
}

// sendNotification sends kind when enabled and the per-principal rate limit
// allows it. Failures are logged and counted.
func (c *Correlator) sendNotification(ctx context.Context, principal models.Principal, kind notify.Kind, nc config.NotificationConfig, keyPrefix string, payload notify.Payload) {
	if !nc.Enabled || c.notifier == nil {
		return
	}
	log := logging.Ctx(ctx)

	key := keyPrefix + principal.PrincipalID()
	allowed, err := c.limiter.ShouldSend(ctx, key, nc.RateLimit, nc.RateLimitDecay)
	if err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("Notification rate limit check failed")
		metrics.RecordNotification(string(kind), "error")
		return
	}
	if !allowed {
		log.Debug().Str("kind", string(kind)).Str("key", key).Msg("Notification rate limited")
		metrics.RecordNotification(string(kind), "rate_limited")
		return
	}

	if err := c.notifier.Send(ctx, principal, kind, payload); err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("Failed to send notification")
		metrics.RecordNotification(string(kind), "failed")
		return
	}
	metrics.RecordNotification(string(kind), "sent")
}

func (c *Correlator) sendWebhook(ctx context.Context, event string, rec *models.AuthenticationRecord, principal models.Principal) {
	if c.webhooks == nil {
		return
	}
	c.webhooks.Send(ctx, event, rec, principal)
}

func recordEvent(kind string, out Outcome, err error, start time.Time) {
	outcome := "recorded"
	switch {
	case err != nil:
		outcome = "error"
	case out.Restored:
		outcome = "restored"
	case out.Record == nil:
		outcome = "ignored"
	case out.Placeholder:
		outcome = "placeholder"
	}
	metrics.RecordEvent(kind, outcome, time.Since(start))
}

func auditEvent(kind EventKind, principal models.Principal, rec *models.AuthenticationRecord, outcome string, findings []models.Finding) *logging.AuditEvent {
	ev := &logging.AuditEvent{
		Event:     string(kind),
		Principal: models.OwnerOf(principal).String(),
		Email:     models.EmailOf(principal),
		Outcome:   outcome,
		Findings:  models.FindingTypes(findings),
	}
	if rec != nil {
		ev.RecordID = rec.ID
		ev.DeviceID = rec.DeviceID
		ev.IPAddress = rec.IPAddress
		ev.UserAgent = rec.UserAgent
		ev.Success = rec.LoginSuccessful
	}
	return ev
}
