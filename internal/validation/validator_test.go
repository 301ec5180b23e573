// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package validation

import (
	"errors"
	"strings"
	"testing"
)

type testOwner struct {
	ID    string `json:"id" validate:"required"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

type testRequest struct {
	Kind  string    `json:"kind" validate:"required,oneof=login failed"`
	IP    string    `json:"ip,omitempty" validate:"omitempty,ip"`
	Name  string    `json:"name" validate:"omitempty,min=2,max=4"`
	Limit int       `json:"limit" validate:"omitempty,max=100"`
	Owner testOwner `json:"owner"`
}

func TestValidateStruct(t *testing.T) {
	valid := testRequest{Kind: "login", IP: "203.0.113.1", Owner: testOwner{ID: "1", Email: "a@example.com"}}

	tests := []struct {
		name    string
		mutate  func(*testRequest)
		field   string
		message string
	}{
		{"valid", func(*testRequest) {}, "", ""},
		{"missing kind", func(r *testRequest) { r.Kind = "" }, "kind", "kind is required"},
		{"bad kind", func(r *testRequest) { r.Kind = "reset" }, "kind", "kind must be one of: login failed"},
		{"bad ip", func(r *testRequest) { r.IP = "not-an-ip" }, "ip", "ip must be a valid IP address"},
		{"short name", func(r *testRequest) { r.Name = "a" }, "name", "name must be at least 2 characters"},
		{"long name", func(r *testRequest) { r.Name = "abcdef" }, "name", "name must be at most 4 characters"},
		{"limit", func(r *testRequest) { r.Limit = 500 }, "limit", "limit must be at most 100"},
		{"nested required", func(r *testRequest) { r.Owner.ID = "" }, "owner.id", "owner.id is required"},
		{"nested email", func(r *testRequest) { r.Owner.Email = "nope" }, "owner.email", "owner.email must be a valid email address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			err := ValidateStruct(&req)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() error = %v, want nil", err)
				}
				return
			}

			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("ValidateStruct() error = %v, want *Error", err)
			}
			fields := verr.Fields()
			if len(fields) != 1 {
				t.Fatalf("fields = %d, want 1: %v", len(fields), err)
			}
			if fields[0].Field() != tt.field {
				t.Errorf("Field() = %q, want %q", fields[0].Field(), tt.field)
			}
			if fields[0].Error() != tt.message {
				t.Errorf("message = %q, want %q", fields[0].Error(), tt.message)
			}
		})
	}
}

func TestValidateStruct_MultipleErrors(t *testing.T) {
	err := ValidateStruct(&testRequest{IP: "x"})
	if err == nil {
		t.Fatal("ValidateStruct() error = nil")
	}
	msg := err.Error()
	for _, want := range []string{"kind is required", "ip must be a valid IP address", "owner.id is required"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() returned different instances")
	}
}
