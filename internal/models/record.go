// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package models

import (
	"fmt"
	"strings"
	"time"
)

// AuthenticationRecord is one login or failed-login attempt. Logout, trust
// and suspicion updates mutate the record in place.
//
// Invariants maintained by the helpers below:
//   - failed records never carry LogoutAt or LastActivityAt
//   - LastActivityAt is set while the session is active and frozen to
//     LogoutAt once closed
//   - IsSuspicious implies a non-empty SuspiciousReason
type AuthenticationRecord struct {
	ID        int64  `json:"id" bson:"_id"`
	OwnerType string `json:"authenticatable_type" bson:"authenticatable_type"`
	OwnerID   string `json:"authenticatable_id" bson:"authenticatable_id"`

	IPAddress  string `json:"ip_address,omitempty" bson:"ip_address,omitempty"`
	UserAgent  string `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	DeviceID   string `json:"device_id,omitempty" bson:"device_id,omitempty"`
	DeviceName string `json:"device_name,omitempty" bson:"device_name,omitempty"`
	IsTrusted  bool   `json:"is_trusted" bson:"is_trusted"`

	LoginAt         *time.Time `json:"login_at,omitempty" bson:"login_at,omitempty"`
	LoginSuccessful bool       `json:"login_successful" bson:"login_successful"`
	LogoutAt        *time.Time `json:"logout_at,omitempty" bson:"logout_at,omitempty"`
	LastActivityAt  *time.Time `json:"last_activity_at,omitempty" bson:"last_activity_at,omitempty"`
	ClearedByUser   bool       `json:"cleared_by_user" bson:"cleared_by_user"`

	Location *Location `json:"location,omitempty" bson:"location,omitempty"`

	IsSuspicious     bool   `json:"is_suspicious" bson:"is_suspicious"`
	SuspiciousReason string `json:"suspicious_reason,omitempty" bson:"suspicious_reason,omitempty"`
}

// Owner returns the polymorphic owner key of the record.
func (r *AuthenticationRecord) Owner() OwnerKey {
	return OwnerKey{Type: r.OwnerType, ID: r.OwnerID}
}

// IsActive reports whether the record is a successful login that has not
// been logged out.
func (r *AuthenticationRecord) IsActive() bool {
	return r.LoginSuccessful && r.LogoutAt == nil
}

// Close ends the session at the given time, freezing LastActivityAt to the
// logout time. Failed records are left untouched.
func (r *AuthenticationRecord) Close(at time.Time) {
	if !r.LoginSuccessful {
		return
	}
	t := at
	r.LogoutAt = &t
	r.LastActivityAt = &t
}

// NewPlaceholder builds an active record for a logout event that matched no
// existing session. It has no login time; callers close it as needed.
func NewPlaceholder(owner OwnerKey, at time.Time) *AuthenticationRecord {
	t := at
	return &AuthenticationRecord{
		OwnerType:       owner.Type,
		OwnerID:         owner.ID,
		LoginSuccessful: true,
		LastActivityAt:  &t,
	}
}

// Touch moves LastActivityAt forward for an active session.
func (r *AuthenticationRecord) Touch(at time.Time) {
	if !r.IsActive() {
		return
	}
	t := at
	r.LastActivityAt = &t
}

// MarkSuspicious flags the record with the given findings. An empty list is
// ignored; calling again on a flagged record replaces the reason.
func (r *AuthenticationRecord) MarkSuspicious(findings []Finding) error {
	if len(findings) == 0 {
		return nil
	}
	reason, err := EncodeFindings(findings)
	if err != nil {
		return fmt.Errorf("encode findings: %w", err)
	}
	r.IsSuspicious = true
	r.SuspiciousReason = reason
	return nil
}

// Findings decodes SuspiciousReason. Free text written by older versions
// comes back as a single legacy finding.
func (r *AuthenticationRecord) Findings() []Finding {
	if strings.TrimSpace(r.SuspiciousReason) == "" {
		return nil
	}
	return DecodeFindings(r.SuspiciousReason)
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (r *AuthenticationRecord) Clone() *AuthenticationRecord {
	c := *r
	c.LoginAt = cloneTime(r.LoginAt)
	c.LogoutAt = cloneTime(r.LogoutAt)
	c.LastActivityAt = cloneTime(r.LastActivityAt)
	if r.Location != nil {
		loc := *r.Location
		c.Location = &loc
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// Location is the resolved geolocation of a login.
type Location struct {
	// Default is set by resolvers that fell back to a default location.
	Default     bool   `json:"default" bson:"default"`
	City        string `json:"city,omitempty" bson:"city,omitempty"`
	State       string `json:"state,omitempty" bson:"state,omitempty"`
	Country     string `json:"country,omitempty" bson:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty" bson:"country_code,omitempty"`
}

// String renders "City, State, Country" skipping empty parts.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{l.City, l.State, l.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
