// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package correlator

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/authtrail/internal/logging"
	"github.com/tomtom215/authtrail/internal/models"
	"github.com/tomtom215/authtrail/internal/notify"
)

// FailedLogin records a failed login attempt and flags it when the recent
// failures of the principal reach the threshold.
func (c *Correlator) FailedLogin(ctx context.Context, principal models.Principal, meta Meta) (Outcome, error) {
	start := time.Now()
	out, err := c.failedLogin(ctx, principal, meta)
	recordEvent(string(EventFailed), out, err, start)
	return out, err
}

func (c *Correlator) failedLogin(ctx context.Context, principal models.Principal, meta Meta) (Outcome, error) {
	now := c.clock.Now()
	owner := models.OwnerOf(principal)
	dev := deviceOf(meta)

	rec := &models.AuthenticationRecord{
		OwnerType:  owner.Type,
		OwnerID:    owner.ID,
		IPAddress:  meta.Request.IP,
		UserAgent:  dev.userAgent,
		DeviceID:   dev.id,
		DeviceName: dev.name,
		LoginAt:    models.TimePtr(now),
		Location:   c.location(ctx, meta),
	}
	if err := c.store.Insert(ctx, rec); err != nil {
		return Outcome{}, fmt.Errorf("insert failed login record: %w", err)
	}

	// The record is durable from here on. Later store errors are logged and
	// the event still succeeds, so a redelivery cannot insert it twice.
	log := logging.Ctx(ctx)

	// The count includes the record just written.
	var findings []models.Finding
	count, err := c.failed.CountRecent(ctx, owner, now)
	if err != nil {
		log.Error().Err(err).Str("principal", owner.String()).Msg("Failed to count recent failed logins")
	} else if f := c.failed.Finding(count); f != nil {
		findings = []models.Finding{*f}
		if err := rec.MarkSuspicious(findings); err != nil {
			log.Error().Err(err).Msg("Failed to record findings")
			findings = nil
		} else if err := c.store.Update(ctx, rec); err != nil {
			log.Error().Err(err).Int64("record_id", rec.ID).Msg("Failed to mark failed login suspicious")
		}
	}
	c.audit.Log(auditEvent(EventFailed, principal, rec, "recorded", findings))

	if len(findings) > 0 {
		log.Warn().
			Str("principal", owner.String()).
			Int("count", count).
			Msg("Multiple failed logins")
	}

	payload := notify.Payload{Record: rec, Findings: findings}
	c.sendNotification(ctx, principal, notify.KindFailedLogin, c.cfg.Notifications.FailedLogin, "failed_login:", payload)
	if len(findings) > 0 {
		c.sendNotification(ctx, principal, notify.KindSuspiciousActivity, c.cfg.Notifications.SuspiciousActivity, "suspicious_activity:", payload)
	}

	c.sendWebhook(ctx, notify.EventFailed, rec, principal)
	if rec.IsSuspicious {
		c.sendWebhook(ctx, notify.EventSuspicious, rec, principal)
	}

	return Outcome{Record: rec, Findings: findings}, nil
}
