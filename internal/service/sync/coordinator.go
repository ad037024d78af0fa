// Package sync orchestrates the cache-first and network-first retrieval
// policies over the local store and the remote client, and drains the
// pending-write queue.
package sync

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kbadiane/chemstock/internal/domain/models"
	"github.com/kbadiane/chemstock/internal/remote"
	"github.com/kbadiane/chemstock/internal/store"
)

// Source tells the caller where a result came from.
type Source string

const (
	SourceNetwork Source = "network"
	SourceCache   Source = "cache"
)

// FetchResult is a retrieval outcome. Stale is set when the records were
// served from a cache older than the validity window; staleness is never
// hidden from the caller.
type FetchResult struct {
	Records   []models.ChemicalRecord `json:"chemicals"`
	Source    Source                  `json:"source"`
	Stale     bool                    `json:"stale"`
	FetchedAt time.Time               `json:"fetched_at"`
}

// SyncResult summarizes one drain of the pending queue.
type SyncResult struct {
	Submitted int  `json:"submitted"`
	Accepted  int  `json:"accepted"`
	Remaining int  `json:"remaining"`
	Drained   bool `json:"drained"`
}

// Status is a point-in-time health snapshot for the HTTP layer.
type Status struct {
	CachePresent bool   `json:"cache_present"`
	CacheFresh   bool   `json:"cache_fresh"`
	PendingCount int    `json:"pending_count"`
	Online       bool   `json:"online"`
	LastSync     string `json:"last_sync,omitempty"`
}

// Coordinator decides whether callers get cached, fetched, or merged data and
// when to attempt reconciliation with the remote source. All methods are
// idempotent and safe to call repeatedly.
type Coordinator struct {
	store  store.Store
	remote remote.Client
	logger *zap.Logger

	refreshTimeout  time.Duration
	refreshInFlight atomic.Bool

	now func() time.Time
}

// NewCoordinator wires a new coordinator instance.
func NewCoordinator(st store.Store, rc remote.Client, refreshTimeout time.Duration, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if refreshTimeout <= 0 {
		refreshTimeout = 30 * time.Second
	}
	return &Coordinator{
		store:          st,
		remote:         rc,
		logger:         logger,
		refreshTimeout: refreshTimeout,
		now:            time.Now,
	}
}

// FetchChemicals is the network-first strategy. On success the snapshot is
// written through to the local store and the last-sync setting is stamped. On
// failure the cached snapshot is served as a fallback, even when stale; with
// no usable cache the call fails with ErrNoData wrapping the network cause.
func (c *Coordinator) FetchChemicals(ctx context.Context) (*FetchResult, error) {
	records, fetchErr := c.remote.FetchAll(ctx)
	if fetchErr == nil {
		if err := c.store.PutCache(ctx, records); err != nil {
			// The caller already has fresh data; a failed write-through only
			// costs the next offline session.
			c.logger.Error("cache write-through failed", zap.Error(err))
		} else if err := c.store.PutSetting(ctx, models.SettingLastSync, c.now().UTC().Format(time.RFC3339)); err != nil {
			c.logger.Error("last-sync stamp failed", zap.Error(err))
		}

		return &FetchResult{
			Records:   records,
			Source:    SourceNetwork,
			FetchedAt: c.now(),
		}, nil
	}

	c.logger.Warn("remote fetch failed, trying cache fallback", zap.Error(fetchErr))

	entry, err := c.store.GetCache(ctx)
	if err != nil {
		return nil, fmt.Errorf("cache fallback: %w", err)
	}
	if entry == nil || len(entry.Records) == 0 {
		return nil, fmt.Errorf("fetch chemicals: %w: %w", models.ErrNoData, fetchErr)
	}

	valid, err := c.store.IsCacheValid(ctx)
	if err != nil {
		// Validity is only a freshness hint at this point; the snapshot
		// itself was readable.
		c.logger.Error("cache validity check failed", zap.Error(err))
	}

	return &FetchResult{
		Records:   entry.Records,
		Source:    SourceCache,
		Stale:     !valid,
		FetchedAt: entry.Timestamp,
	}, nil
}

// FetchChemicalsWithCache is the cache-first strategy. A valid cache is
// returned immediately and a background refresh is kicked off purely for its
// side effect on the store. An invalid or absent cache delegates to
// FetchChemicals synchronously.
func (c *Coordinator) FetchChemicalsWithCache(ctx context.Context) (*FetchResult, error) {
	valid, err := c.store.IsCacheValid(ctx)
	if err != nil {
		return nil, fmt.Errorf("cache validity check: %w", err)
	}

	if !valid {
		return c.FetchChemicals(ctx)
	}

	entry, err := c.store.GetCache(ctx)
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	if entry == nil {
		// Raced with an explicit cache clear; fall through to the network.
		return c.FetchChemicals(ctx)
	}

	c.triggerBackgroundRefresh()

	return &FetchResult{
		Records:   entry.Records,
		Source:    SourceCache,
		FetchedAt: entry.Timestamp,
	}, nil
}

// triggerBackgroundRefresh starts a detached refresh task. The caller already
// has a response, so the outcome is only logged. At most one refresh runs at
// a time.
func (c *Coordinator) triggerBackgroundRefresh() {
	if !c.refreshInFlight.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer c.refreshInFlight.Store(false)
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("background refresh panicked", zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
		defer cancel()

		if _, err := c.FetchChemicals(ctx); err != nil {
			c.logger.Debug("background refresh failed", zap.Error(err))
			return
		}
		c.logger.Debug("background refresh completed")
	}()
}

// AddChemical validates a manual entry and queues it for upload.
func (c *Coordinator) AddChemical(ctx context.Context, record models.ChemicalRecord) (models.PendingItem, error) {
	if err := record.Validate(); err != nil {
		return models.PendingItem{}, err
	}
	return c.store.EnqueuePending(ctx, record)
}

// ListPending exposes the queued local entries so callers can merge them into
// a rendered inventory. Queued records stay distinct from the snapshot; they
// are unsynced until a drain confirms them.
func (c *Coordinator) ListPending(ctx context.Context) ([]models.PendingItem, error) {
	return c.store.ListPending(ctx)
}

// SyncPending drains the queue. An empty queue succeeds without touching the
// network. Only acknowledged items are removed; anything else stays queued so
// a retry is safe and cannot duplicate already-accepted items.
func (c *Coordinator) SyncPending(ctx context.Context) (*SyncResult, error) {
	items, err := c.store.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}

	if len(items) == 0 {
		return &SyncResult{Drained: true}, nil
	}

	report, err := c.remote.SubmitPending(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("submit pending: %w", err)
	}

	if report.AllAccepted() {
		if err := c.store.ClearPending(ctx); err != nil {
			return nil, fmt.Errorf("clear pending after drain: %w", err)
		}
		if err := c.store.PutSetting(ctx, models.SettingLastSync, c.now().UTC().Format(time.RFC3339)); err != nil {
			c.logger.Error("last-sync stamp failed", zap.Error(err))
		}

		c.logger.Info("pending queue drained", zap.Int("items", len(items)))
		return &SyncResult{
			Submitted: len(items),
			Accepted:  len(items),
			Drained:   true,
		}, nil
	}

	if err := c.store.RemovePending(ctx, report.Accepted); err != nil {
		return nil, fmt.Errorf("remove accepted pending: %w", err)
	}

	for _, failure := range report.Failed {
		c.logger.Warn("pending item not accepted",
			zap.String("id", failure.ID), zap.Error(failure.Err))
	}

	return &SyncResult{
		Submitted: len(items),
		Accepted:  len(report.Accepted),
		Remaining: len(report.Failed),
	}, nil
}

// ClearCache drops the snapshot; the next retrieval must go to the network.
func (c *Coordinator) ClearCache(ctx context.Context) error {
	return c.store.ClearCache(ctx)
}

// GetSetting reads one preference value.
func (c *Coordinator) GetSetting(ctx context.Context, key string) (string, bool, error) {
	return c.store.GetSetting(ctx, key)
}

// PutSetting stores one preference value.
func (c *Coordinator) PutSetting(ctx context.Context, key, value string) error {
	return c.store.PutSetting(ctx, key, value)
}

// Status reports cache freshness, queue depth and advisory connectivity.
func (c *Coordinator) Status(ctx context.Context) (*Status, error) {
	entry, err := c.store.GetCache(ctx)
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}

	fresh, err := c.store.IsCacheValid(ctx)
	if err != nil {
		return nil, fmt.Errorf("cache validity check: %w", err)
	}

	items, err := c.store.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}

	lastSync, _, err := c.store.GetSetting(ctx, models.SettingLastSync)
	if err != nil {
		return nil, fmt.Errorf("read last-sync setting: %w", err)
	}

	return &Status{
		CachePresent: entry != nil,
		CacheFresh:   fresh,
		PendingCount: len(items),
		Online:       c.remote.CheckConnectivity(ctx),
		LastSync:     lastSync,
	}, nil
}
