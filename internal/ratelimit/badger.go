// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package ratelimit

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps counters in BadgerDB with native TTL expiry. Increment
// runs in one read-write transaction, so concurrent increments within the
// process either serialize or fail with badger.ErrConflict.
type BadgerStore struct {
	db     *badger.DB
	prefix []byte
	owned  bool
}

// NewBadgerStore wraps an already open BadgerDB (shared with other
// components). prefix defaults to "ratelimit:".
func NewBadgerStore(db *badger.DB, prefix string) *BadgerStore {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &BadgerStore{db: db, prefix: []byte(prefix)}
}

// OpenBadgerStore opens a dedicated BadgerDB at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for rate limits: %w", err)
	}
	s := NewBadgerStore(db, "")
	s.owned = true
	return s, nil
}

func (s *BadgerStore) makeKey(key string) []byte {
	k := make([]byte, 0, len(s.prefix)+len(key))
	k = append(k, s.prefix...)
	return append(k, key...)
}

// Get implements CounterStore.
func (s *BadgerStore) Get(_ context.Context, key string) (int64, error) {
	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		n, err := readCount(txn, s.makeKey(key))
		count = n
		return err
	})
	return count, err
}

// Increment implements CounterStore.
func (s *BadgerStore) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	var count int64
	k := s.makeKey(key)
	err := s.db.Update(func(txn *badger.Txn) error {
		n, err := readCount(txn, k)
		if err != nil {
			return err
		}
		count = n + 1

		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(count))
		return txn.SetEntry(badger.NewEntry(k, buf).WithTTL(ttl))
	})
	return count, err
}

// Delete implements CounterStore.
func (s *BadgerStore) Delete(_ context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(s.makeKey(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
}

// Close closes the database if this store opened it.
func (s *BadgerStore) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

func readCount(txn *badger.Txn, key []byte) (int64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var count int64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt counter value for %s", key)
		}
		count = int64(binary.BigEndian.Uint64(val))
		return nil
	})
	return count, err
}

// RunValueLogGC reclaims value log space; see badger.DB.RunValueLogGC.
func (s *BadgerStore) RunValueLogGC(discardRatio float64) error {
	return s.db.RunValueLogGC(discardRatio)
}
