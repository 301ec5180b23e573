// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package ledger

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/tomtom215/authtrail/internal/models"
)

// ErrNotFound is returned when no record matches.
var ErrNotFound = errors.New("authentication record not found")

// Field names a column for CountDistinct.
type Field string

const (
	FieldDeviceID  Field = "device_id"
	FieldIPAddress Field = "ip_address"
)

// Store is the persistence contract for authentication records.
//
// Insert and Update are atomic per record. UpdateWhere applies the patch row
// by row and is not atomic across rows; concurrent writers to the same row
// resolve last-writer-wins.
type Store interface {
	// Insert stores a new record and assigns its ID.
	Insert(ctx context.Context, rec *models.AuthenticationRecord) error

	// Update replaces a stored record. The owner is never rewritten.
	// Returns ErrNotFound when no record has rec.ID.
	Update(ctx context.Context, rec *models.AuthenticationRecord) error

	// Get returns the record with id or ErrNotFound.
	Get(ctx context.Context, id int64) (*models.AuthenticationRecord, error)

	// Find returns matching records, most recent first: login_at
	// descending with missing login times last, then id descending.
	Find(ctx context.Context, q Query) ([]*models.AuthenticationRecord, error)

	// First returns the first record Find would return, or ErrNotFound.
	First(ctx context.Context, q Query) (*models.AuthenticationRecord, error)

	// Count returns the number of matching records.
	Count(ctx context.Context, q Query) (int, error)

	// CountDistinct counts distinct non-empty values of field among the
	// matching records.
	CountDistinct(ctx context.Context, q Query, field Field) (int, error)

	// UpdateWhere applies p to every matching record and returns how many
	// records were updated.
	UpdateWhere(ctx context.Context, q Query, p Patch) (int, error)

	Close() error
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	LogoutAt       *time.Time
	LastActivityAt *time.Time
	ClearedByUser  *bool
	IsTrusted      *bool
	DeviceName     *string
}

// Apply writes the patch onto r. Session timestamps are only applied to
// successful records so failed attempts never gain a logout.
func (p Patch) Apply(r *models.AuthenticationRecord) {
	if r.LoginSuccessful {
		if p.LogoutAt != nil {
			t := *p.LogoutAt
			r.LogoutAt = &t
		}
		if p.LastActivityAt != nil {
			t := *p.LastActivityAt
			r.LastActivityAt = &t
		}
	}
	if p.ClearedByUser != nil {
		r.ClearedByUser = *p.ClearedByUser
	}
	if p.IsTrusted != nil {
		r.IsTrusted = *p.IsTrusted
	}
	if p.DeviceName != nil {
		r.DeviceName = *p.DeviceName
	}
}

// ClosePatch ends sessions at t, freezing last activity to the logout time.
func ClosePatch(t time.Time) Patch {
	return Patch{LogoutAt: &t, LastActivityAt: &t}
}

// Bool returns a pointer to v for Patch fields.
func Bool(v bool) *bool {
	return &v
}

// SortRecords orders records the way Find must return them.
func SortRecords(recs []*models.AuthenticationRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		switch {
		case a.LoginAt == nil && b.LoginAt != nil:
			return false
		case a.LoginAt != nil && b.LoginAt == nil:
			return true
		case a.LoginAt != nil && b.LoginAt != nil && !a.LoginAt.Equal(*b.LoginAt):
			return a.LoginAt.After(*b.LoginAt)
		}
		return a.ID > b.ID
	})
}

// distinctValue returns the value of field on r.
func distinctValue(r *models.AuthenticationRecord, field Field) string {
	switch field {
	case FieldDeviceID:
		return r.DeviceID
	case FieldIPAddress:
		return r.IPAddress
	}
	return ""
}

// countDistinct counts distinct non-empty values of field.
func countDistinct(recs []*models.AuthenticationRecord, field Field) int {
	seen := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		if v := distinctValue(r, field); v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

// applyLimit truncates recs to the query limit.
func applyLimit(recs []*models.AuthenticationRecord, q Query) []*models.AuthenticationRecord {
	if q.limit > 0 && len(recs) > q.limit {
		return recs[:q.limit]
	}
	return recs
}

// updateEach applies p record by record through s. Used by backends whose
// native bulk update cannot express Patch.Apply.
func updateEach(ctx context.Context, s Store, q Query, p Patch) (int, error) {
	recs, err := s.Find(ctx, q.Limit(0))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range recs {
		p.Apply(r)
		if err := s.Update(ctx, r); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}
