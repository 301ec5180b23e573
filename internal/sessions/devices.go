// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/authtrail/internal/ledger"
	"github.com/tomtom215/authtrail/internal/models"
)

// Device is one device a principal has logged in from, described by its
// most recent successful login.
type Device struct {
	ID          string     `json:"device_id"`
	Name        string     `json:"device_name,omitempty"`
	IPAddress   string     `json:"ip_address,omitempty"`
	UserAgent   string     `json:"user_agent,omitempty"`
	Trusted     bool       `json:"is_trusted"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// Devices lists the principal's devices, most recently used first.
func (m *Manager) Devices(ctx context.Context, p models.Principal) ([]Device, error) {
	recs, err := m.store.Find(ctx, ledger.For(models.OwnerOf(p)).Successful().WithDevice())
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	seen := make(map[string]struct{}, len(recs))
	devices := make([]Device, 0, len(recs))
	for _, r := range recs {
		if _, ok := seen[r.DeviceID]; ok {
			continue
		}
		seen[r.DeviceID] = struct{}{}
		devices = append(devices, Device{
			ID:          r.DeviceID,
			Name:        r.DeviceName,
			IPAddress:   r.IPAddress,
			UserAgent:   r.UserAgent,
			Trusted:     r.IsTrusted,
			LastLoginAt: r.LoginAt,
		})
	}
	return devices, nil
}

func (m *Manager) patchDevice(ctx context.Context, p models.Principal, deviceID string, patch ledger.Patch) (int, error) {
	if deviceID == "" {
		return 0, ErrNotFound
	}
	n, err := m.store.UpdateWhere(ctx, ledger.For(models.OwnerOf(p)).FromDevice(deviceID), patch)
	if err != nil {
		return n, fmt.Errorf("update device %s: %w", deviceID, err)
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

// TrustDevice marks every record of the device trusted and returns how many
// records changed.
func (m *Manager) TrustDevice(ctx context.Context, p models.Principal, deviceID string) (int, error) {
	return m.patchDevice(ctx, p, deviceID, ledger.Patch{IsTrusted: ledger.Bool(true)})
}

// UntrustDevice clears the trusted flag on every record of the device.
func (m *Manager) UntrustDevice(ctx context.Context, p models.Principal, deviceID string) (int, error) {
	return m.patchDevice(ctx, p, deviceID, ledger.Patch{IsTrusted: ledger.Bool(false)})
}

// RenameDevice sets the device name on every record of the device.
func (m *Manager) RenameDevice(ctx context.Context, p models.Principal, deviceID, name string) (int, error) {
	return m.patchDevice(ctx, p, deviceID, ledger.Patch{DeviceName: &name})
}

// IsDeviceTrusted reports whether any record of the device is trusted.
func (m *Manager) IsDeviceTrusted(ctx context.Context, p models.Principal, deviceID string) (bool, error) {
	if deviceID == "" {
		return false, nil
	}
	n, err := m.store.Count(ctx, ledger.For(models.OwnerOf(p)).FromDevice(deviceID).Trusted())
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
