// Package store defines the durable local persistence contract shared by the
// sync coordinator and the HTTP layer. Implementations keep three regions: the
// cached inventory snapshot, the FIFO queue of unsynced local writes, and flat
// settings. All operations must survive a process restart.
package store

import (
	"context"

	"github.com/kbadiane/chemstock/internal/domain/models"
)

// CacheKey is the single key under which the inventory snapshot is stored.
const CacheKey = "cached_chemicals"

// Store is the source of truth for offline state. Cache and pending-queue
// operations are atomic with respect to each other; the two regions are
// guarded independently so a slow cache write never blocks queue reads.
type Store interface {
	// PutCache atomically replaces the snapshot with records stamped at the
	// current instant.
	PutCache(ctx context.Context, records []models.ChemicalRecord) error

	// GetCache returns the last stored snapshot, or (nil, nil) when no
	// snapshot exists yet.
	GetCache(ctx context.Context) (*models.CacheEntry, error)

	// IsCacheValid reports whether a snapshot exists and is younger than the
	// configured validity window.
	IsCacheValid(ctx context.Context) (bool, error)

	// ClearCache removes the snapshot entirely.
	ClearCache(ctx context.Context) error

	// EnqueuePending appends the record to the queue and returns the stored
	// item. The item is durable before the call returns.
	EnqueuePending(ctx context.Context, record models.ChemicalRecord) (models.PendingItem, error)

	// ListPending returns queued items in insertion order. Reading does not
	// modify the queue.
	ListPending(ctx context.Context) ([]models.PendingItem, error)

	// RemovePending deletes only the items with the given IDs, leaving the
	// rest queued for retry.
	RemovePending(ctx context.Context, ids []string) error

	// ClearPending empties the queue. Call only after the remote side has
	// confirmed acceptance of every item.
	ClearPending(ctx context.Context) error

	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error

	Close(ctx context.Context) error
}
