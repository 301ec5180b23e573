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

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tomtom215/authtrail/internal/models"
)

// MongoStore persists records in a MongoDB collection. Integer ids come
// from a counters collection so records keep the same id shape as the
// other backends.
type MongoStore struct {
	c        *mongo.Collection
	counters *mongo.Collection
	client   *mongo.Client
}

// NewMongoStore uses collection in db.
func NewMongoStore(db *mongo.Database, collection string) *MongoStore {
	return &MongoStore{
		c:        db.Collection(collection),
		counters: db.Collection("counters"),
	}
}

// OpenMongoStore connects to uri and ensures indexes.
func OpenMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := NewMongoStore(client.Database(database), collection)
	s.client = client
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return s, nil
}

// EnsureIndexes creates indexes for efficient querying.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// Per-owner history (latest-first)
		{
			Keys: bson.D{
				{Key: "authenticatable_type", Value: 1},
				{Key: "authenticatable_id", Value: 1},
				{Key: "login_at", Value: -1},
			},
			Options: options.Index().SetName("idx_authlog_owner_login"),
		},
		// Device lookups for restoration and known-device checks
		{
			Keys: bson.D{
				{Key: "authenticatable_type", Value: 1},
				{Key: "authenticatable_id", Value: 1},
				{Key: "device_id", Value: 1},
			},
			Options: options.Index().SetName("idx_authlog_owner_device"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

func (s *MongoStore) nextID(ctx context.Context) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": s.c.Name()},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

// Insert implements Store.
func (s *MongoStore) Insert(ctx context.Context, rec *models.AuthenticationRecord) error {
	id, err := s.nextID(ctx)
	if err != nil {
		return fmt.Errorf("next record id: %w", err)
	}
	c := rec.Clone()
	c.ID = id
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	rec.ID = id
	return nil
}

// Update implements Store.
func (s *MongoStore) Update(ctx context.Context, rec *models.AuthenticationRecord) error {
	existing, err := s.Get(ctx, rec.ID)
	if err != nil {
		return err
	}
	c := rec.Clone()
	c.OwnerType, c.OwnerID = existing.OwnerType, existing.OwnerID

	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": rec.ID}, c)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, id int64) (*models.AuthenticationRecord, error) {
	var rec models.AuthenticationRecord
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Find implements Store. Missing login_at sorts lowest, which puts those
// records last in descending order.
func (s *MongoStore) Find(ctx context.Context, q Query) ([]*models.AuthenticationRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "login_at", Value: -1}, {Key: "_id", Value: -1}})
	if q.limit > 0 {
		opts.SetLimit(int64(q.limit))
	}

	cur, err := s.c.Find(ctx, mongoFilter(q), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var records []*models.AuthenticationRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// First implements Store.
func (s *MongoStore) First(ctx context.Context, q Query) (*models.AuthenticationRecord, error) {
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
func (s *MongoStore) Count(ctx context.Context, q Query) (int, error) {
	n, err := s.c.CountDocuments(ctx, mongoFilter(q))
	return int(n), err
}

// CountDistinct implements Store.
func (s *MongoStore) CountDistinct(ctx context.Context, q Query, field Field) (int, error) {
	values, err := s.c.Distinct(ctx, string(field), mongoFilter(q))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, v := range values {
		if str, ok := v.(string); ok && str != "" {
			n++
		}
	}
	return n, nil
}

// UpdateWhere implements Store.
func (s *MongoStore) UpdateWhere(ctx context.Context, q Query, p Patch) (int, error) {
	return updateEach(ctx, s, q, p)
}

// Close disconnects the client if this store opened it.
func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// mongoFilter translates a Query. Empty strings are stored as missing
// fields (omitempty), so equality on "" becomes a null match.
func mongoFilter(q Query) bson.M {
	var conds bson.A

	eqString := func(field, v string) {
		if v == "" {
			conds = append(conds, bson.M{field: nil})
		} else {
			conds = append(conds, bson.M{field: v})
		}
	}

	if q.owner != nil {
		conds = append(conds, bson.M{
			"authenticatable_type": q.owner.Type,
			"authenticatable_id":   q.owner.ID,
		})
	}
	if q.successful != nil {
		conds = append(conds, bson.M{"login_successful": *q.successful})
	}
	if q.suspicious {
		conds = append(conds, bson.M{"is_suspicious": true})
	}
	if q.trusted {
		conds = append(conds, bson.M{"is_trusted": true})
	}
	if q.active {
		conds = append(conds, bson.M{"login_successful": true, "logout_at": nil})
	}
	if q.deviceID != nil {
		eqString("device_id", *q.deviceID)
	}
	if q.ip != nil {
		eqString("ip_address", *q.ip)
	}
	if q.userAgent != nil {
		eqString("user_agent", *q.userAgent)
	}
	if q.since != nil {
		conds = append(conds, bson.M{"login_at": bson.M{"$gte": *q.since}})
	}
	if q.location {
		conds = append(conds, bson.M{"location": bson.M{"$ne": nil}})
	}
	if q.withDevice {
		conds = append(conds, bson.M{"device_id": bson.M{"$nin": bson.A{nil, ""}}})
	}
	if q.excludeID != 0 {
		conds = append(conds, bson.M{"_id": bson.M{"$ne": q.excludeID}})
	}

	if len(conds) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": conds}
}
