// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package ledger

import (
	"context"
	"sync"

	"github.com/tomtom215/authtrail/internal/models"
)

// MemoryStore keeps records in process memory. Records are cloned on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[int64]*models.AuthenticationRecord
	nextID  int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[int64]*models.AuthenticationRecord)}
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, rec *models.AuthenticationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	rec.ID = s.nextID
	s.records[rec.ID] = rec.Clone()
	return nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, rec *models.AuthenticationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[rec.ID]
	if !ok {
		return ErrNotFound
	}
	c := rec.Clone()
	c.OwnerType, c.OwnerID = existing.OwnerType, existing.OwnerID
	s.records[rec.ID] = c
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id int64) (*models.AuthenticationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

// Find implements Store.
func (s *MemoryStore) Find(_ context.Context, q Query) ([]*models.AuthenticationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return applyLimit(s.match(q), q), nil
}

// First implements Store.
func (s *MemoryStore) First(ctx context.Context, q Query) (*models.AuthenticationRecord, error) {
	recs, err := s.Find(ctx, q.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs[0], nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context, q Query) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.records {
		if q.Matches(r) {
			n++
		}
	}
	return n, nil
}

// CountDistinct implements Store.
func (s *MemoryStore) CountDistinct(_ context.Context, q Query, field Field) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countDistinct(s.match(q), field), nil
}

// UpdateWhere implements Store.
func (s *MemoryStore) UpdateWhere(_ context.Context, q Query, p Patch) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.records {
		if q.Matches(r) {
			p.Apply(r)
			n++
		}
	}
	return n, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

// match returns sorted clones of matching records. Caller holds mu.
func (s *MemoryStore) match(q Query) []*models.AuthenticationRecord {
	var out []*models.AuthenticationRecord
	for _, r := range s.records {
		if q.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	SortRecords(out)
	return out
}
