// Package sqlite is the default Store driver, backed by a single SQLite file
// opened in WAL mode. Each region maps to its own table and is guarded by its
// own lock.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/kbadiane/chemstock/internal/domain/models"
	"github.com/kbadiane/chemstock/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store implements store.Store on top of database/sql with the sqlite3 driver.
type Store struct {
	db     *sql.DB
	ttl    time.Duration
	logger *zap.Logger

	cacheMu    sync.RWMutex
	pendingMu  sync.RWMutex
	settingsMu sync.RWMutex

	now func() time.Time
}

// cachePayload mirrors the persisted cache region layout.
type cachePayload struct {
	Data      []models.ChemicalRecord `json:"data"`
	Timestamp string                  `json:"timestamp"`
}

// pendingPayload mirrors one persisted pending-queue row.
type pendingPayload struct {
	Chemical  models.ChemicalRecord `json:"chemical"`
	Timestamp string                `json:"timestamp"`
}

// New opens (or creates) the database at path and runs the schema migration.
// Use ":memory:" for an ephemeral store in tests.
func New(path string, ttl time.Duration, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w: %w", models.ErrStorage, err)
	}

	s := &Store{
		db:     db,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("sqlite store ready", zap.String("path", path), zap.Duration("cache_ttl", ttl))
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pending (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate sqlite store: %w: %w", models.ErrStorage, err)
	}
	return nil
}

// PutCache replaces the snapshot in one statement; the timestamp is the write
// instant, which for this store is only ever a successful-fetch instant.
func (s *Store) PutCache(ctx context.Context, records []models.ChemicalRecord) error {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	payload, err := json.Marshal(cachePayload{
		Data:      records,
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("encode cache payload: %w: %w", models.ErrStorage, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cache (key, payload) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload`,
		store.CacheKey, string(payload))
	if err != nil {
		return fmt.Errorf("put cache: %w: %w", models.ErrStorage, err)
	}
	return nil
}

func (s *Store) GetCache(ctx context.Context) (*models.CacheEntry, error) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM cache WHERE key = ?`, store.CacheKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache: %w: %w", models.ErrStorage, err)
	}

	var payload cachePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode cache payload: %w: %w", models.ErrStorage, err)
	}

	ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("decode cache timestamp: %w: %w", models.ErrStorage, err)
	}

	return &models.CacheEntry{Records: payload.Data, Timestamp: ts}, nil
}

// IsCacheValid applies the single staleness policy: the snapshot must exist
// and be younger than the validity window. There is no per-record TTL.
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

	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache WHERE key = ?`, store.CacheKey); err != nil {
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

	payload, err := json.Marshal(pendingPayload{
		Chemical:  item.Record,
		Timestamp: item.QueuedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return models.PendingItem{}, fmt.Errorf("encode pending payload: %w: %w", models.ErrStorage, err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO pending (id, payload) VALUES (?, ?)`, item.ID, string(payload)); err != nil {
		return models.PendingItem{}, fmt.Errorf("enqueue pending: %w: %w", models.ErrStorage, err)
	}
	return item, nil
}

func (s *Store) ListPending(ctx context.Context) ([]models.PendingItem, error) {
	s.pendingMu.RLock()
	defer s.pendingMu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, payload FROM pending ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w: %w", models.ErrStorage, err)
	}
	defer rows.Close()

	var items []models.PendingItem
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan pending row: %w: %w", models.ErrStorage, err)
		}

		var payload pendingPayload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return nil, fmt.Errorf("decode pending payload: %w: %w", models.ErrStorage, err)
		}

		queuedAt, err := time.Parse(time.RFC3339Nano, payload.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("decode pending timestamp: %w: %w", models.ErrStorage, err)
		}

		items = append(items, models.PendingItem{ID: id, Record: payload.Chemical, QueuedAt: queuedAt})
	}
	if err := rows.Err(); err != nil {
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

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf(`DELETE FROM pending WHERE id IN (%s)`, placeholders)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("remove pending: %w: %w", models.ErrStorage, err)
	}
	return nil
}

func (s *Store) ClearPending(ctx context.Context) error {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending`); err != nil {
		return fmt.Errorf("clear pending: %w: %w", models.ErrStorage, err)
	}
	return nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w: %w", key, models.ErrStorage, err)
	}
	return value, true, nil
}

func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("put setting %s: %w: %w", key, models.ErrStorage, err)
	}
	return nil
}

// Close flushes and closes the underlying database handle.
func (s *Store) Close(ctx context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite store: %w: %w", models.ErrStorage, err)
	}
	return nil
}
