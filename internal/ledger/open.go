// Authtrail - Authentication Event Correlation and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authtrail

package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/authtrail/internal/config"
	"github.com/tomtom215/authtrail/internal/metrics"
	"github.com/tomtom215/authtrail/internal/models"
)

// Open builds the Store selected by cfg, instrumented with ledger metrics.
func Open(ctx context.Context, cfg config.LedgerConfig) (Store, error) {
	var (
		s   Store
		err error
	)

	switch cfg.Driver {
	case config.LedgerDriverMemory:
		s = NewMemoryStore()
	case config.LedgerDriverBadger, "":
		s, err = OpenBadgerStore(cfg.Path)
	case config.LedgerDriverDuckDB:
		s, err = OpenDuckDBStore(ctx, cfg.Path)
	case config.LedgerDriverMongo:
		s, err = OpenMongoStore(ctx, cfg.URI, cfg.Database, cfg.Collection)
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	driver := cfg.Driver
	if driver == "" {
		driver = config.LedgerDriverBadger
	}
	return Instrument(s, driver), nil
}

// Instrument wraps s so every call is timed and counted under driver.
func Instrument(s Store, driver string) Store {
	return &instrumentedStore{next: s, driver: driver}
}

// Unwrap returns the store wrapped by Instrument, or s itself.
func Unwrap(s Store) Store {
	if is, ok := s.(*instrumentedStore); ok {
		return is.next
	}
	return s
}

type instrumentedStore struct {
	next   Store
	driver string
}

// observe records one operation. ErrNotFound is an answer, not a failure.
func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	metrics.RecordLedgerOperation(s.driver, op, time.Since(start), err)
}

func (s *instrumentedStore) Insert(ctx context.Context, rec *models.AuthenticationRecord) error {
	start := time.Now()
	err := s.next.Insert(ctx, rec)
	s.observe("insert", start, err)
	return err
}

func (s *instrumentedStore) Update(ctx context.Context, rec *models.AuthenticationRecord) error {
	start := time.Now()
	err := s.next.Update(ctx, rec)
	s.observe("update", start, err)
	return err
}

func (s *instrumentedStore) Get(ctx context.Context, id int64) (*models.AuthenticationRecord, error) {
	start := time.Now()
	rec, err := s.next.Get(ctx, id)
	s.observe("get", start, err)
	return rec, err
}

func (s *instrumentedStore) Find(ctx context.Context, q Query) ([]*models.AuthenticationRecord, error) {
	start := time.Now()
	recs, err := s.next.Find(ctx, q)
	s.observe("find", start, err)
	return recs, err
}

func (s *instrumentedStore) First(ctx context.Context, q Query) (*models.AuthenticationRecord, error) {
	start := time.Now()
	rec, err := s.next.First(ctx, q)
	s.observe("first", start, err)
	return rec, err
}

func (s *instrumentedStore) Count(ctx context.Context, q Query) (int, error) {
	start := time.Now()
	n, err := s.next.Count(ctx, q)
	s.observe("count", start, err)
	return n, err
}

func (s *instrumentedStore) CountDistinct(ctx context.Context, q Query, field Field) (int, error) {
	start := time.Now()
	n, err := s.next.CountDistinct(ctx, q, field)
	s.observe("count_distinct", start, err)
	return n, err
}

func (s *instrumentedStore) UpdateWhere(ctx context.Context, q Query, p Patch) (int, error) {
	start := time.Now()
	n, err := s.next.UpdateWhere(ctx, q, p)
	s.observe("update_where", start, err)
	return n, err
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}
