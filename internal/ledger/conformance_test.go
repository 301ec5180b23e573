// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/authtrail/internal/models"
)

// storeFactory returns a fresh, empty Store for one subtest.
type storeFactory func(t *testing.T) Store

var (
	alice = models.OwnerKey{Type: "user", ID: "1"}
	bob   = models.OwnerKey{Type: "user", ID: "2"}
	// same numeric id, different owner type
	adminOne = models.OwnerKey{Type: "admin", ID: "1"}

	baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newRecord(owner models.OwnerKey, successful bool, loginAt time.Time) *models.AuthenticationRecord {
	rec := &models.AuthenticationRecord{
		OwnerType:       owner.Type,
		OwnerID:         owner.ID,
		IPAddress:       "203.0.113.10",
		UserAgent:       "Mozilla/5.0 Firefox/128.0",
		DeviceID:        "device-a",
		LoginAt:         models.TimePtr(loginAt),
		LoginSuccessful: successful,
	}
	if successful {
		rec.LastActivityAt = models.TimePtr(loginAt)
	}
	return rec
}

func mustInsert(t *testing.T, s Store, rec *models.AuthenticationRecord) *models.AuthenticationRecord {
	t.Helper()
	if err := s.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("Insert() did not assign an id")
	}
	return rec
}

// runStoreConformance exercises the Store contract against any backend.
func runStoreConformance(t *testing.T, newStore storeFactory) {
	t.Run("InsertAssignsIncreasingIDs", func(t *testing.T) {
		s := newStore(t)
		a := mustInsert(t, s, newRecord(alice, true, baseTime))
		b := mustInsert(t, s, newRecord(alice, true, baseTime))
		if b.ID <= a.ID {
			t.Errorf("ids not increasing: %d then %d", a.ID, b.ID)
		}
	})

	t.Run("GetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord(alice, true, baseTime)
		rec.DeviceName = "Firefox on Linux"
		rec.Location = &models.Location{City: "Berlin", Country: "Germany", CountryCode: "DE"}
		mustInsert(t, s, rec)

		got, err := s.Get(context.Background(), rec.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Owner() != alice {
			t.Errorf("Owner = %v, want %v", got.Owner(), alice)
		}
		if got.DeviceName != rec.DeviceName || got.IPAddress != rec.IPAddress {
			t.Errorf("Get() = %+v, want fields of %+v", got, rec)
		}
		if got.LoginAt == nil || !got.LoginAt.Equal(baseTime) {
			t.Errorf("LoginAt = %v, want %v", got.LoginAt, baseTime)
		}
		if got.Location == nil || got.Location.City != "Berlin" {
			t.Errorf("Location = %+v, want Berlin", got.Location)
		}
		if got.LogoutAt != nil {
			t.Errorf("LogoutAt = %v, want nil", got.LogoutAt)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Get(context.Background(), 999); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("UpdateKeepsOwner", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := mustInsert(t, s, newRecord(alice, true, baseTime))

		rec.OwnerID = "hijacked"
		rec.IsTrusted = true
		rec.Close(baseTime.Add(time.Hour))
		if err := s.Update(ctx, rec); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		got, err := s.Get(ctx, rec.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Owner() != alice {
			t.Errorf("owner rewritten to %v", got.Owner())
		}
		if !got.IsTrusted {
			t.Error("IsTrusted not persisted")
		}
		if got.LogoutAt == nil || !got.LogoutAt.Equal(baseTime.Add(time.Hour)) {
			t.Errorf("LogoutAt = %v", got.LogoutAt)
		}
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord(alice, true, baseTime)
		rec.ID = 4242
		if err := s.Update(context.Background(), rec); !errors.Is(err, ErrNotFound) {
			t.Errorf("Update() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("FindOrdering", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		older := mustInsert(t, s, newRecord(alice, true, baseTime.Add(-time.Hour)))
		newer := mustInsert(t, s, newRecord(alice, true, baseTime))
		tieLow := mustInsert(t, s, newRecord(alice, true, baseTime.Add(-2*time.Hour)))
		tieHigh := mustInsert(t, s, newRecord(alice, true, baseTime.Add(-2*time.Hour)))
		placeholder := models.NewPlaceholder(alice, baseTime)
		mustInsert(t, s, placeholder)

		recs, err := s.Find(ctx, For(alice))
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		want := []int64{newer.ID, older.ID, tieHigh.ID, tieLow.ID, placeholder.ID}
		if len(recs) != len(want) {
			t.Fatalf("Find() returned %d records, want %d", len(recs), len(want))
		}
		for i, id := range want {
			if recs[i].ID != id {
				t.Errorf("position %d: id = %d, want %d", i, recs[i].ID, id)
			}
		}
	})

	t.Run("FindLimitAndFirst", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustInsert(t, s, newRecord(alice, true, baseTime.Add(-time.Hour)))
		latest := mustInsert(t, s, newRecord(alice, true, baseTime))

		recs, err := s.Find(ctx, For(alice).Limit(1))
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if len(recs) != 1 || recs[0].ID != latest.ID {
			t.Errorf("Find(limit 1) = %v, want latest", recs)
		}

		first, err := s.First(ctx, For(alice))
		if err != nil {
			t.Fatalf("First() error = %v", err)
		}
		if first.ID != latest.ID {
			t.Errorf("First() id = %d, want %d", first.ID, latest.ID)
		}

		if _, err := s.First(ctx, For(bob)); !errors.Is(err, ErrNotFound) {
			t.Errorf("First() on empty = %v, want ErrNotFound", err)
		}
	})

	t.Run("OwnerIsolation", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustInsert(t, s, newRecord(alice, true, baseTime))
		mustInsert(t, s, newRecord(adminOne, true, baseTime))
		mustInsert(t, s, newRecord(bob, true, baseTime))

		for _, owner := range []models.OwnerKey{alice, adminOne, bob} {
			n, err := s.Count(ctx, For(owner))
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if n != 1 {
				t.Errorf("Count(%v) = %d, want 1", owner, n)
			}
		}

		n, err := s.Count(ctx, All())
		if err != nil {
			t.Fatalf("Count(All) error = %v", err)
		}
		if n != 3 {
			t.Errorf("Count(All) = %d, want 3", n)
		}
	})

	t.Run("Filters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		ok := mustInsert(t, s, newRecord(alice, true, baseTime))

		failed := newRecord(alice, false, baseTime.Add(-time.Minute))
		failed.DeviceID = "device-b"
		failed.IPAddress = "198.51.100.7"
		mustInsert(t, s, failed)

		suspicious := newRecord(alice, true, baseTime.Add(-48*time.Hour))
		if err := suspicious.MarkSuspicious([]models.Finding{{Type: models.FindingMultipleFailedLogins, Message: "x", Count: 5}}); err != nil {
			t.Fatal(err)
		}
		suspicious.IsTrusted = true
		suspicious.Location = &models.Location{Country: "France"}
		suspicious.Close(baseTime.Add(-47 * time.Hour))
		mustInsert(t, s, suspicious)

		noDevice := newRecord(alice, true, baseTime.Add(-time.Hour))
		noDevice.DeviceID = ""
		noDevice.UserAgent = ""
		mustInsert(t, s, noDevice)

		tests := []struct {
			name string
			q    Query
			want int
		}{
			{"successful", For(alice).Successful(), 3},
			{"failed", For(alice).Failed(), 1},
			{"suspicious", For(alice).Suspicious(), 1},
			{"trusted", For(alice).Trusted(), 1},
			{"active", For(alice).Active(), 2},
			{"device a", For(alice).FromDevice("device-a"), 2},
			{"device b failed", For(alice).FromDevice("device-b").Failed(), 1},
			{"empty device", For(alice).FromDevice(""), 1},
			{"ip", For(alice).FromIP("198.51.100.7"), 1},
			{"user agent", For(alice).WithUserAgent("Mozilla/5.0 Firefox/128.0"), 3},
			{"empty user agent", For(alice).WithUserAgent(""), 1},
			{"since inclusive", For(alice).Since(baseTime.Add(-time.Minute)), 2},
			{"recent 1 day", For(alice).Recent(1, baseTime), 3},
			{"has location", For(alice).HasLocation(), 1},
			{"with device", For(alice).WithDevice(), 3},
			{"empty device with device", For(alice).FromDevice("").WithDevice(), 0},
			{"excluding", For(alice).Active().Excluding(ok.ID), 1},
			{"limit ignored by count", For(alice).Limit(1), 4},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				n, err := s.Count(ctx, tt.q)
				if err != nil {
					t.Fatalf("Count() error = %v", err)
				}
				if n != tt.want {
					t.Errorf("Count() = %d, want %d", n, tt.want)
				}

				recs, err := s.Find(ctx, tt.q.Limit(0))
				if err != nil {
					t.Fatalf("Find() error = %v", err)
				}
				for _, r := range recs {
					if !tt.q.Matches(r) {
						t.Errorf("Find() returned record %d that Matches rejects", r.ID)
					}
				}
			})
		}
	})

	t.Run("CountDistinct", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, dev := range []string{"d1", "d1", "d2", ""} {
			rec := newRecord(alice, true, baseTime)
			rec.DeviceID = dev
			mustInsert(t, s, rec)
		}
		other := newRecord(alice, true, baseTime)
		other.DeviceID = "d3"
		other.IPAddress = "198.51.100.1"
		mustInsert(t, s, other)

		n, err := s.CountDistinct(ctx, For(alice), FieldDeviceID)
		if err != nil {
			t.Fatalf("CountDistinct() error = %v", err)
		}
		if n != 3 {
			t.Errorf("CountDistinct(device) = %d, want 3", n)
		}

		n, err = s.CountDistinct(ctx, For(alice), FieldIPAddress)
		if err != nil {
			t.Fatalf("CountDistinct() error = %v", err)
		}
		if n != 2 {
			t.Errorf("CountDistinct(ip) = %d, want 2", n)
		}
	})

	t.Run("UpdateWhere", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		keep := mustInsert(t, s, newRecord(alice, true, baseTime))
		other := mustInsert(t, s, newRecord(alice, true, baseTime.Add(-time.Hour)))
		failed := mustInsert(t, s, newRecord(alice, false, baseTime.Add(-time.Hour)))
		mustInsert(t, s, newRecord(bob, true, baseTime))

		at := baseTime.Add(time.Minute)
		p := ClosePatch(at)
		p.ClearedByUser = Bool(true)
		n, err := s.UpdateWhere(ctx, For(alice).Excluding(keep.ID), p)
		if err != nil {
			t.Fatalf("UpdateWhere() error = %v", err)
		}
		if n != 2 {
			t.Errorf("UpdateWhere() = %d, want 2", n)
		}

		got, _ := s.Get(ctx, other.ID)
		if !got.ClearedByUser || got.LogoutAt == nil || !got.LogoutAt.Equal(at) {
			t.Errorf("other = %+v, want cleared and logged out at %v", got, at)
		}
		if got.LastActivityAt == nil || !got.LastActivityAt.Equal(at) {
			t.Errorf("other LastActivityAt = %v, want frozen at %v", got.LastActivityAt, at)
		}

		gotFailed, _ := s.Get(ctx, failed.ID)
		if gotFailed.LogoutAt != nil || gotFailed.LastActivityAt != nil {
			t.Errorf("failed record gained session timestamps: %+v", gotFailed)
		}

		gotKeep, _ := s.Get(ctx, keep.ID)
		if !gotKeep.IsActive() || gotKeep.ClearedByUser {
			t.Errorf("excluded record modified: %+v", gotKeep)
		}

		active, _ := s.Count(ctx, For(bob).Active())
		if active != 1 {
			t.Errorf("bob active = %d, want 1", active)
		}
	})

	t.Run("ReturnedRecordsAreCopies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := mustInsert(t, s, newRecord(alice, true, baseTime))
		rec.DeviceName = "mutated after insert"

		got, _ := s.Get(ctx, rec.ID)
		if got.DeviceName != "" {
			t.Errorf("store shares state with caller: DeviceName = %q", got.DeviceName)
		}
		got.IsTrusted = true

		again, _ := s.Get(ctx, rec.ID)
		if again.IsTrusted {
			t.Error("mutating a returned record changed the store")
		}
	})
}
