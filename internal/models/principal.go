// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package models

import "time"

// Principal is an entity whose authentication events are tracked.
// Anything that can report an id, a type tag and a creation time qualifies.
type Principal interface {
	PrincipalID() string
	PrincipalType() string
	CreatedAt() time.Time
}

// Emailer is implemented by principals that expose an email address.
type Emailer interface {
	Email() string
}

// OwnerKey identifies the owner of a record (type tag + id).
type OwnerKey struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// OwnerOf returns the owner key of a principal.
func OwnerOf(p Principal) OwnerKey {
	return OwnerKey{Type: p.PrincipalType(), ID: p.PrincipalID()}
}

// String formats the key as "type:id".
func (k OwnerKey) String() string {
	return k.Type + ":" + k.ID
}

// IsZero reports whether the key is empty.
func (k OwnerKey) IsZero() bool {
	return k.Type == "" && k.ID == ""
}

// EmailOf returns the principal's email, or "" if it has none.
func EmailOf(p Principal) string {
	if e, ok := p.(Emailer); ok {
		return e.Email()
	}
	return ""
}

// Subject is a plain Principal used when principals arrive over the bus or
// the HTTP API rather than from an in-process user model.
type Subject struct {
	Type         string    `json:"type" validate:"required"`
	ID           string    `json:"id" validate:"required"`
	EmailAddress string    `json:"email,omitempty" validate:"omitempty,email"`
	Created      time.Time `json:"created_at"`
}

// PrincipalID implements Principal.
func (s Subject) PrincipalID() string { return s.ID }

// PrincipalType implements Principal.
func (s Subject) PrincipalType() string { return s.Type }

// CreatedAt implements Principal.
func (s Subject) CreatedAt() time.Time { return s.Created }

// Email implements Emailer.
func (s Subject) Email() string { return s.EmailAddress }
