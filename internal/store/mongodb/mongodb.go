// Package mongodb is an alternate Store driver for deployments where the sync
// core runs against a shared document store instead of a per-device file
// (kiosk mode). It keeps the same three-region layout: one cache document,
// one pending collection, one settings collection.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kbadiane/chemstock/internal/domain/models"
	"github.com/kbadiane/chemstock/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store implements store.Store backed by MongoDB collections.
type Store struct {
	client *mongo.Client
	dbName string
	ttl    time.Duration

	cacheMu    sync.RWMutex
	pendingMu  sync.RWMutex
	settingsMu sync.RWMutex

	now func() time.Time
}

type cacheDocument struct {
	Key       string                  `bson:"_id"`
	Data      []models.ChemicalRecord `bson:"data"`
	Timestamp time.Time               `bson:"timestamp"`
}

type pendingDocument struct {
	ID       string                `bson:"_id"`
	Chemical models.ChemicalRecord `bson:"chemical"`
	QueuedAt time.Time             `bson:"timestamp"`
	Seq      int64                 `bson:"seq"`
}

type settingDocument struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

// New connects to MongoDB and verifies the connection with a ping.
func New(ctx context.Context, uri, dbName string, ttl time.Duration) (*Store, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w: %w", models.ErrStorage, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w: %w", models.ErrStorage, err)
	}

	return &Store{
		client: client,
		dbName: dbName,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.client.Database(s.dbName).Collection(name)
}

func (s *Store) PutCache(ctx context.Context, records []models.ChemicalRecord) error {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	doc := cacheDocument{
		Key:       store.CacheKey,
		Data:      records,
		Timestamp: s.now().UTC(),
	}

	_, err := s.collection("cache").ReplaceOne(ctx,
		bson.M{"_id": store.CacheKey}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put cache: %w: %w", models.ErrStorage, err)
	}
	return nil
}

func (s *Store) GetCache(ctx context.Context) (*models.CacheEntry, error) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	var doc cacheDocument
	err := s.collection("cache").FindOne(ctx, bson.M{"_id": store.CacheKey}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache: %w: %w", models.ErrStorage, err)
	}

	return &models.CacheEntry{Records: doc.Data, Timestamp: doc.Timestamp}, nil
}

func (s *Store) IsCacheValid(ctx context.Context) (bool, error) {
	entry, err := s.GetCache(ctx)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	return s.now().Sub(entry.Timestamp) < s.ttl, nil
}

func (s *Store) ClearCache(ctx context.Context) error {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if _, err := s.collection("cache").DeleteOne(ctx, bson.M{"_id": store.CacheKey}); err != nil {
		return fmt.Errorf("clear cache: %w: %w", models.ErrStorage, err)
	}
	return nil
}

func (s *Store) EnqueuePending(ctx context.Context, record models.ChemicalRecord) (models.PendingItem, error) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	item := models.PendingItem{
		ID:       uuid.NewString(),
		Record:   record,
		QueuedAt: s.now().UTC(),
	}

	doc := pendingDocument{
		ID:       item.ID,
		Chemical: item.Record,
		QueuedAt: item.QueuedAt,
		Seq:      s.now().UnixNano(),
	}

	if _, err := s.collection("pending").InsertOne(ctx, doc); err != nil {
		return models.PendingItem{}, fmt.Errorf("enqueue pending: %w: %w", models.ErrStorage, err)
	}
	return item, nil
}

func (s *Store) ListPending(ctx context.Context) ([]models.PendingItem, error) {
	s.pendingMu.RLock()
	defer s.pendingMu.RUnlock()

	cursor, err := s.collection("pending").Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list pending: %w: %w", models.ErrStorage, err)
	}
	defer cursor.Close(ctx)

	var items []models.PendingItem
	for cursor.Next(ctx) {
		var doc pendingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode pending document: %w: %w", models.ErrStorage, err)
		}
		items = append(items, models.PendingItem{ID: doc.ID, Record: doc.Chemical, QueuedAt: doc.QueuedAt})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list pending: %w: %w", models.ErrStorage, err)
	}
	return items, nil
}

func (s *Store) RemovePending(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	if _, err := s.collection("pending").DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("remove pending: %w: %w", models.ErrStorage, err)
	}
	return nil
}

func (s *Store) ClearPending(ctx context.Context) error {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	if _, err := s.collection("pending").DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear pending: %w: %w", models.ErrStorage, err)
	}
	return nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()

	var doc settingDocument
	err := s.collection("settings").FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w: %w", key, models.ErrStorage, err)
	}
	return doc.Value, true, nil
}

func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	_, err := s.collection("settings").ReplaceOne(ctx,
		bson.M{"_id": key}, settingDocument{Key: key, Value: value}, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put setting %s: %w: %w", key, models.ErrStorage, err)
	}
	return nil
}

// Close disconnects from the MongoDB cluster.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("close mongodb store: %w: %w", models.ErrStorage, err)
	}
	return nil
}
