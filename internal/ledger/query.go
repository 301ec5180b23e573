// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package ledger

import (
	"time"

	"github.com/tomtom215/authtrail/internal/models"
)

// Query selects authentication records. Filters compose conjunctively and
// each builder method returns a modified copy, so a base query can be shared:
//
//	base := ledger.For(owner).FromDevice(id)
//	known, err := store.First(ctx, base.Successful())
//	failed, err := store.Count(ctx, base.Failed().Since(dayAgo))
//
// Matches is the reference semantics every Store backend must reproduce.
type Query struct {
	owner      *models.OwnerKey
	successful *bool
	suspicious bool
	trusted    bool
	active     bool
	deviceID   *string
	ip         *string
	userAgent  *string
	since      *time.Time
	location   bool
	withDevice bool
	excludeID  int64
	limit      int
}

// For starts a query scoped to owner.
func For(owner models.OwnerKey) Query {
	return Query{}.For(owner)
}

// All starts an unscoped query.
func All() Query {
	return Query{}
}

// For restricts to records owned by owner.
func (q Query) For(owner models.OwnerKey) Query {
	q.owner = &owner
	return q
}

// Successful restricts to successful logins.
func (q Query) Successful() Query {
	v := true
	q.successful = &v
	return q
}

// Failed restricts to failed logins.
func (q Query) Failed() Query {
	v := false
	q.successful = &v
	return q
}

// Suspicious restricts to records flagged suspicious.
func (q Query) Suspicious() Query {
	q.suspicious = true
	return q
}

// Trusted restricts to records on trusted devices.
func (q Query) Trusted() Query {
	q.trusted = true
	return q
}

// Active restricts to successful records without a logout.
func (q Query) Active() Query {
	q.active = true
	return q
}

// FromDevice restricts to a device id.
func (q Query) FromDevice(deviceID string) Query {
	q.deviceID = &deviceID
	return q
}

// FromIP restricts to an IP address.
func (q Query) FromIP(ip string) Query {
	q.ip = &ip
	return q
}

// WithUserAgent restricts to a stored user agent.
func (q Query) WithUserAgent(ua string) Query {
	q.userAgent = &ua
	return q
}

// Since restricts to records with login_at >= t. Records without a login
// time never match.
func (q Query) Since(t time.Time) Query {
	q.since = &t
	return q
}

// Recent restricts to records logged in within the last days days of now.
func (q Query) Recent(days int, now time.Time) Query {
	return q.Since(now.AddDate(0, 0, -days))
}

// HasLocation restricts to records with a resolved location.
func (q Query) HasLocation() Query {
	q.location = true
	return q
}

// WithDevice restricts to records carrying a device id.
func (q Query) WithDevice() Query {
	q.withDevice = true
	return q
}

// Excluding drops the record with the given id.
func (q Query) Excluding(id int64) Query {
	q.excludeID = id
	return q
}

// Limit caps the number of records returned by Find. Count, CountDistinct
// and UpdateWhere ignore it.
func (q Query) Limit(n int) Query {
	q.limit = n
	return q
}

// Owner returns the owner filter, if set.
func (q Query) Owner() (models.OwnerKey, bool) {
	if q.owner == nil {
		return models.OwnerKey{}, false
	}
	return *q.owner, true
}

// Matches reports whether r satisfies every filter of q.
func (q Query) Matches(r *models.AuthenticationRecord) bool {
	if q.owner != nil && (r.OwnerType != q.owner.Type || r.OwnerID != q.owner.ID) {
		return false
	}
	if q.successful != nil && r.LoginSuccessful != *q.successful {
		return false
	}
	if q.suspicious && !r.IsSuspicious {
		return false
	}
	if q.trusted && !r.IsTrusted {
		return false
	}
	if q.active && !r.IsActive() {
		return false
	}
	if q.deviceID != nil && r.DeviceID != *q.deviceID {
		return false
	}
	if q.ip != nil && r.IPAddress != *q.ip {
		return false
	}
	if q.userAgent != nil && r.UserAgent != *q.userAgent {
		return false
	}
	if q.since != nil && (r.LoginAt == nil || r.LoginAt.Before(*q.since)) {
		return false
	}
	if q.location && r.Location == nil {
		return false
	}
	if q.withDevice && r.DeviceID == "" {
		return false
	}
	if q.excludeID != 0 && r.ID == q.excludeID {
		return false
	}
	return true
}
