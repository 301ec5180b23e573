// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/authtrail/internal/models"
)

// Key layout:
//
//	record:<id, 20 digits>                         -> JSON record
//	owner:<type>\x00<id>\x00<record id, 20 digits> -> empty (index)
//	seq:record                                     -> badger sequence
const (
	badgerRecordPrefix = "record:"
	badgerOwnerPrefix  = "owner:"
	badgerSequenceKey  = "seq:record"
)

// BadgerStore persists records in BadgerDB as JSON values with an owner
// index. Each mutation runs in one transaction.
type BadgerStore struct {
	db    *badger.DB
	seq   *badger.Sequence
	owned bool

	// mu serializes writers so index maintenance never conflicts.
	mu sync.Mutex
}

// NewBadgerStore wraps an open BadgerDB.
func NewBadgerStore(db *badger.DB) (*BadgerStore, error) {
	seq, err := db.GetSequence([]byte(badgerSequenceKey), 100)
	if err != nil {
		return nil, fmt.Errorf("get record sequence: %w", err)
	}
	return &BadgerStore{db: db, seq: seq}, nil
}

// OpenBadgerStore opens a dedicated BadgerDB at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for ledger: %w", err)
	}
	s, err := NewBadgerStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

func recordKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", badgerRecordPrefix, id))
}

func ownerPrefix(owner models.OwnerKey) []byte {
	return []byte(badgerOwnerPrefix + owner.Type + "\x00" + owner.ID + "\x00")
}

func ownerKey(owner models.OwnerKey, id int64) []byte {
	return append(ownerPrefix(owner), fmt.Sprintf("%020d", id)...)
}

// Insert implements Store.
func (s *BadgerStore) Insert(_ context.Context, rec *models.AuthenticationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("next record id: %w", err)
	}
	id := int64(n) + 1

	c := rec.Clone()
	c.ID = id
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(recordKey(id), data); err != nil {
			return err
		}
		return txn.Set(ownerKey(c.Owner(), id), nil)
	})
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	rec.ID = id
	return nil
}

// Update implements Store.
func (s *BadgerStore) Update(_ context.Context, rec *models.AuthenticationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		return updateInTxn(txn, rec)
	})
}

func updateInTxn(txn *badger.Txn, rec *models.AuthenticationRecord) error {
	existing, err := getInTxn(txn, rec.ID)
	if err != nil {
		return err
	}
	c := rec.Clone()
	c.OwnerType, c.OwnerID = existing.OwnerType, existing.OwnerID

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return txn.Set(recordKey(rec.ID), data)
}

func getInTxn(txn *badger.Txn, id int64) (*models.AuthenticationRecord, error) {
	item, err := txn.Get(recordKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec models.AuthenticationRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("decode record %d: %w", id, err)
	}
	return &rec, nil
}

// Get implements Store.
func (s *BadgerStore) Get(_ context.Context, id int64) (*models.AuthenticationRecord, error) {
	var rec *models.AuthenticationRecord
	err := s.db.View(func(txn *badger.Txn) error {
		r, err := getInTxn(txn, id)
		rec = r
		return err
	})
	return rec, err
}

// scan collects matching records. With an owner filter only the owner index
// is walked.
func (s *BadgerStore) scan(txn *badger.Txn, q Query) ([]*models.AuthenticationRecord, error) {
	var out []*models.AuthenticationRecord

	if owner, ok := q.Owner(); ok {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := ownerPrefix(owner)
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var id int64
			if _, err := fmt.Sscanf(string(it.Item().Key()[len(prefix):]), "%d", &id); err != nil {
				continue
			}
			rec, err := getInTxn(txn, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if q.Matches(rec) {
				out = append(out, rec)
			}
		}
		return out, nil
	}

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(badgerRecordPrefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		var rec models.AuthenticationRecord
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		if q.Matches(&rec) {
			r := rec
			out = append(out, &r)
		}
	}
	return out, nil
}

// Find implements Store.
func (s *BadgerStore) Find(_ context.Context, q Query) ([]*models.AuthenticationRecord, error) {
	var out []*models.AuthenticationRecord
	err := s.db.View(func(txn *badger.Txn) error {
		recs, err := s.scan(txn, q)
		out = recs
		return err
	})
	if err != nil {
		return nil, err
	}
	SortRecords(out)
	return applyLimit(out, q), nil
}

// First implements Store.
func (s *BadgerStore) First(ctx context.Context, q Query) (*models.AuthenticationRecord, error) {
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
func (s *BadgerStore) Count(ctx context.Context, q Query) (int, error) {
	recs, err := s.Find(ctx, q.Limit(0))
	return len(recs), err
}

// CountDistinct implements Store.
func (s *BadgerStore) CountDistinct(ctx context.Context, q Query, field Field) (int, error) {
	recs, err := s.Find(ctx, q.Limit(0))
	if err != nil {
		return 0, err
	}
	return countDistinct(recs, field), nil
}

// UpdateWhere implements Store.
func (s *BadgerStore) UpdateWhere(_ context.Context, q Query, p Patch) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		recs, err := s.scan(txn, q)
		if err != nil {
			return err
		}
		for _, r := range recs {
			p.Apply(r)
			if err := updateInTxn(txn, r); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Close releases the sequence and, if owned, the database.
func (s *BadgerStore) Close() error {
	err := s.seq.Release()
	if s.owned {
		if cerr := s.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// RunValueLogGC reclaims value log space; see badger.DB.RunValueLogGC.
func (s *BadgerStore) RunValueLogGC(discardRatio float64) error {
	return s.db.RunValueLogGC(discardRatio)
}
