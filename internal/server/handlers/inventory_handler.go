package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kbadiane/chemstock/internal/domain/models"
	syncsvc "github.com/kbadiane/chemstock/internal/service/sync"
)

// InventoryHandler adapts the sync coordinator to HTTP. It is the process
// equivalent of the mobile screens: list, manual entry, sync and settings.
type InventoryHandler struct {
	coordinator *syncsvc.Coordinator
	logger      *zap.Logger
}

// NewInventoryHandler constructs the HTTP handler adapter.
func NewInventoryHandler(coordinator *syncsvc.Coordinator, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{coordinator: coordinator, logger: logger}
}

// List serves the inventory. Defaults to cache-first; ?refresh=1 forces the
// network-first path. Cache-served stale data is flagged in the response body
// so callers can render an offline indicator.
func (h *InventoryHandler) List(c *gin.Context) {
	var (
		result *syncsvc.FetchResult
		err    error
	)

	if c.Query("refresh") == "1" {
		result, err = h.coordinator.FetchChemicals(c.Request.Context())
	} else {
		result, err = h.coordinator.FetchChemicalsWithCache(c.Request.Context())
	}

	if err != nil {
		switch {
		case errors.Is(err, models.ErrNoData):
			h.logger.Warn("no data available", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no connectivity and no cached data, retry later"})
		case errors.Is(err, models.ErrStorage):
			h.logger.Error("local store failure", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "local storage unavailable"})
		default:
			h.logger.Error("failed listing chemicals", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "unable to load inventory"})
		}
		return
	}

	// Merge unsynced local entries into the response without folding them
	// into the snapshot itself.
	pending, err := h.coordinator.ListPending(c.Request.Context())
	if err != nil {
		h.logger.Error("pending listing failed", zap.Error(err))
		pending = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"chemicals":  result.Records,
		"source":     result.Source,
		"stale":      result.Stale,
		"fetched_at": result.FetchedAt,
		"pending":    pending,
	})
}

// Create queues a manual inventory entry for upload.
func (h *InventoryHandler) Create(c *gin.Context) {
	var record models.ChemicalRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		h.logger.Warn("invalid chemical payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	item, err := h.coordinator.AddChemical(c.Request.Context(), record)
	if err != nil {
		if errors.Is(err, models.ErrParse) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed queueing chemical", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to queue entry"})
		return
	}

	c.JSON(http.StatusAccepted, item)
}

// Sync drains the pending queue on demand.
func (h *InventoryHandler) Sync(c *gin.Context) {
	result, err := h.coordinator.SyncPending(c.Request.Context())
	if err != nil {
		h.logger.Error("pending sync failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "sync failed, queued items were kept"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ClearCache drops the cached snapshot.
func (h *InventoryHandler) ClearCache(c *gin.Context) {
	if err := h.coordinator.ClearCache(c.Request.Context()); err != nil {
		h.logger.Error("cache clear failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to clear cache"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSetting returns one preference value.
func (h *InventoryHandler) GetSetting(c *gin.Context) {
	key := c.Param("key")

	value, found, err := h.coordinator.GetSetting(c.Request.Context(), key)
	if err != nil {
		h.logger.Error("setting read failed", zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to read setting"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "setting not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

// PutSetting stores one preference value.
func (h *InventoryHandler) PutSetting(c *gin.Context) {
	key := c.Param("key")

	var body struct {
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.coordinator.PutSetting(c.Request.Context(), key, body.Value); err != nil {
		h.logger.Error("setting write failed", zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to store setting"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Health reports cache freshness, queue depth and advisory connectivity.
func (h *InventoryHandler) Health(c *gin.Context) {
	status, err := h.coordinator.Status(c.Request.Context())
	if err != nil {
		h.logger.Error("status check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "degraded"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "sync": status})
}
