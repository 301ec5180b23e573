// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

var testTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestAuthenticationRecord_IsActive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		record AuthenticationRecord
		want   bool
	}{
		{"successful without logout", AuthenticationRecord{LoginSuccessful: true}, true},
		{"successful with logout", AuthenticationRecord{LoginSuccessful: true, LogoutAt: TimePtr(testTime)}, false},
		{"failed", AuthenticationRecord{LoginSuccessful: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.IsActive(); got != tt.want {
				t.Errorf("IsActive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthenticationRecord_Close(t *testing.T) {
	t.Parallel()

	t.Run("successful record freezes activity to logout", func(t *testing.T) {
		r := &AuthenticationRecord{LoginSuccessful: true, LastActivityAt: TimePtr(testTime.Add(-time.Hour))}
		r.Close(testTime)

		if r.LogoutAt == nil || !r.LogoutAt.Equal(testTime) {
			t.Fatalf("LogoutAt = %v, want %v", r.LogoutAt, testTime)
		}
		if r.LastActivityAt == nil || !r.LastActivityAt.Equal(*r.LogoutAt) {
			t.Errorf("LastActivityAt = %v, want %v", r.LastActivityAt, r.LogoutAt)
		}
		if r.IsActive() {
			t.Error("closed record should not be active")
		}
	})

	t.Run("failed record is untouched", func(t *testing.T) {
		r := &AuthenticationRecord{LoginSuccessful: false}
		r.Close(testTime)
		if r.LogoutAt != nil || r.LastActivityAt != nil {
			t.Errorf("failed record got logout=%v activity=%v", r.LogoutAt, r.LastActivityAt)
		}
	})
}

func TestAuthenticationRecord_Touch(t *testing.T) {
	t.Parallel()

	active := &AuthenticationRecord{LoginSuccessful: true}
	active.Touch(testTime)
	if active.LastActivityAt == nil || !active.LastActivityAt.Equal(testTime) {
		t.Errorf("active LastActivityAt = %v, want %v", active.LastActivityAt, testTime)
	}

	closed := &AuthenticationRecord{LoginSuccessful: true}
	closed.Close(testTime)
	closed.Touch(testTime.Add(time.Hour))
	if !closed.LastActivityAt.Equal(testTime) {
		t.Errorf("closed LastActivityAt moved to %v", closed.LastActivityAt)
	}
}

func TestAuthenticationRecord_MarkSuspicious(t *testing.T) {
	t.Parallel()

	r := &AuthenticationRecord{}
	if err := r.MarkSuspicious(nil); err != nil {
		t.Fatalf("MarkSuspicious(nil) error = %v", err)
	}
	if r.IsSuspicious {
		t.Fatal("empty findings should not mark the record")
	}

	findings := []Finding{{Type: FindingMultipleFailedLogins, Count: 5, Message: "5 failed login attempts in the last hour"}}
	if err := r.MarkSuspicious(findings); err != nil {
		t.Fatalf("MarkSuspicious() error = %v", err)
	}
	if !r.IsSuspicious || r.SuspiciousReason == "" {
		t.Fatalf("record not marked: %+v", r)
	}

	// Marking again is safe and keeps the invariant.
	if err := r.MarkSuspicious(findings); err != nil {
		t.Fatalf("second MarkSuspicious() error = %v", err)
	}
	got := r.Findings()
	if len(got) != 1 || got[0].Count != 5 {
		t.Errorf("Findings() = %+v", got)
	}
}

func TestAuthenticationRecord_Findings(t *testing.T) {
	t.Parallel()

	hour := 0
	tests := []struct {
		name   string
		reason string
		want   []FindingType
	}{
		{"empty", "", nil},
		{"legacy text", "Suspicious activity detected", []FindingType{FindingLegacy}},
		{"structured", mustEncode(t, []Finding{
			{Type: FindingRapidLocationChange, Countries: []string{"US", "DE"}},
			{Type: FindingUnusualLoginTime, Hour: &hour},
		}), []FindingType{FindingRapidLocationChange, FindingUnusualLoginTime}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &AuthenticationRecord{SuspiciousReason: tt.reason}
			got := r.Findings()
			if len(got) != len(tt.want) {
				t.Fatalf("Findings() = %+v, want types %v", got, tt.want)
			}
			for i := range got {
				if got[i].Type != tt.want[i] {
					t.Errorf("finding %d type = %s, want %s", i, got[i].Type, tt.want[i])
				}
			}
		})
	}
}

func TestFinding_HourZeroSurvivesEncoding(t *testing.T) {
	t.Parallel()

	hour := 0
	encoded := mustEncode(t, []Finding{{Type: FindingUnusualLoginTime, Hour: &hour, Message: "Login at unusual time: 0:00"}})
	if !strings.Contains(encoded, `"hour":0`) {
		t.Fatalf("encoded finding lost hour 0: %s", encoded)
	}
	decoded := DecodeFindings(encoded)
	if decoded[0].Hour == nil || *decoded[0].Hour != 0 {
		t.Errorf("decoded hour = %v", decoded[0].Hour)
	}
}

func TestAuthenticationRecord_Clone(t *testing.T) {
	t.Parallel()

	orig := &AuthenticationRecord{
		ID:       7,
		LoginAt:  TimePtr(testTime),
		Location: &Location{Country: "US"},
	}
	c := orig.Clone()
	*c.LoginAt = testTime.Add(time.Hour)
	c.Location.Country = "DE"

	if !orig.LoginAt.Equal(testTime) {
		t.Error("clone shares LoginAt pointer")
	}
	if orig.Location.Country != "US" {
		t.Error("clone shares Location pointer")
	}
}

func TestAuthenticationRecord_JSONFieldNames(t *testing.T) {
	t.Parallel()

	r := AuthenticationRecord{ID: 1, OwnerType: "user", OwnerID: "42", LoginSuccessful: true, LoginAt: TimePtr(testTime)}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, field := range []string{`"authenticatable_type":"user"`, `"authenticatable_id":"42"`, `"login_successful":true`, `"login_at"`} {
		if !strings.Contains(string(b), field) {
			t.Errorf("JSON %s missing %s", b, field)
		}
	}
	if strings.Contains(string(b), "logout_at") {
		t.Errorf("nil logout_at should be omitted: %s", b)
	}
}

func TestLocation_String(t *testing.T) {
	t.Parallel()

	var nilLoc *Location
	if nilLoc.String() != "" {
		t.Error("nil location should render empty")
	}
	loc := &Location{City: "Lyon", Country: "France"}
	if got := loc.String(); got != "Lyon, France" {
		t.Errorf("String() = %q", got)
	}
}

func TestNewPlaceholder(t *testing.T) {
	t.Parallel()

	owner := OwnerKey{Type: "user", ID: "1"}
	p := NewPlaceholder(owner, testTime)
	if p.Owner() != owner {
		t.Errorf("Owner() = %v, want %v", p.Owner(), owner)
	}
	if !p.IsActive() || p.LoginAt != nil {
		t.Errorf("placeholder should be active without login time: %+v", p)
	}
	p.Close(testTime)
	if p.IsActive() {
		t.Error("closed placeholder still active")
	}
}

func TestSubject_ImplementsPrincipal(t *testing.T) {
	t.Parallel()

	var p Principal = Subject{Type: "user", ID: "9", EmailAddress: "a@example.com", Created: testTime}
	if OwnerOf(p).String() != "user:9" {
		t.Errorf("OwnerOf() = %s", OwnerOf(p))
	}
	if EmailOf(p) != "a@example.com" {
		t.Errorf("EmailOf() = %s", EmailOf(p))
	}
}

func mustEncode(t *testing.T, findings []Finding) string {
	t.Helper()
	s, err := EncodeFindings(findings)
	if err != nil {
		t.Fatalf("EncodeFindings() error = %v", err)
	}
	return s
}
