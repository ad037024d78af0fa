package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbadiane/chemstock/internal/config"
	"github.com/kbadiane/chemstock/internal/remote"
	"github.com/kbadiane/chemstock/internal/server/handlers"
	"github.com/kbadiane/chemstock/internal/server/router"
	syncsvc "github.com/kbadiane/chemstock/internal/service/sync"
	"github.com/kbadiane/chemstock/internal/store/sqlite"
)

const remoteBody = `{
	"record": {
		"chemicals": [
			{
				"product_name": "Acetone",
				"cas_number": "67-64-1",
				"manufacturer_name": "Sigma-Aldrich",
				"current_stock_quantity": 5.0,
				"unit": "L"
			}
		]
	}
}`

// newTestServer wires the real stack: sqlite store, resty remote client
// against an httptest endpoint, coordinator, gin router.
func newTestServer(t *testing.T, remoteHandler http.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(remoteHandler)
	t.Cleanup(upstream.Close)

	st, err := sqlite.New(filepath.Join(t.TempDir(), "chemstock.db"), 24*time.Hour, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	client := remote.NewClient(config.RemoteConfig{
		APIURL:       upstream.URL,
		PingURL:      upstream.URL,
		FetchTimeout: 2 * time.Second,
		ProbeTimeout: time.Second,
	}, nil)

	coordinator := syncsvc.NewCoordinator(st, client, 2*time.Second, nil)
	return router.New(handlers.NewInventoryHandler(coordinator, nil), nil)
}

func TestListChemicals(t *testing.T) {
	engine := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(remoteBody))
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/chemicals", nil)
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result syncsvc.FetchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Records, 1)
	assert.Equal(t, "Acetone", result.Records[0].ProductName)
	assert.Equal(t, syncsvc.SourceNetwork, result.Source)
	assert.False(t, result.Stale)
}

func TestListChemicalsIncludesQueuedEntries(t *testing.T) {
	engine := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(remoteBody))
	})

	body := `{"product_name": "Toluene", "cas_number": "108-88-3", "manufacturer_name": "Fisher", "unit": "L"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chemicals", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/chemicals", nil)
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		Chemicals []json.RawMessage `json:"chemicals"`
		Pending   []struct {
			ID       string `json:"id"`
			Chemical struct {
				ProductName string `json:"product_name"`
			} `json:"chemical"`
		} `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Len(t, listing.Chemicals, 1)
	require.Len(t, listing.Pending, 1)
	assert.Equal(t, "Toluene", listing.Pending[0].Chemical.ProductName)
}

func TestListChemicalsNoDataIsServiceUnavailable(t *testing.T) {
	engine := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/chemicals", nil)
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateQueuesPendingEntry(t *testing.T) {
	engine := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(remoteBody))
	})

	body := `{
		"product_name": "Toluene",
		"cas_number": "108-88-3",
		"manufacturer_name": "Fisher",
		"current_stock_quantity": 2.5,
		"unit": "L"
	}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chemicals", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var item struct {
		ID       string `json:"id"`
		Chemical struct {
			ProductName string `json:"product_name"`
		} `json:"chemical"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "Toluene", item.Chemical.ProductName)
}

func TestCreateRejectsIncompleteRecord(t *testing.T) {
	engine := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chemicals", strings.NewReader(`{"product_name": "No CAS"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSyncEndpointDrainsQueue(t *testing.T) {
	engine := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			return
		}
		_, _ = w.Write([]byte(remoteBody))
	})

	body := `{"product_name": "Toluene", "cas_number": "108-88-3", "manufacturer_name": "Fisher", "unit": "L"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chemicals", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil)
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result syncsvc.SyncResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Drained)
	assert.Equal(t, 1, result.Accepted)
}

func TestSettingsRoundTripOverHTTP(t *testing.T) {
	engine := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings/dark_mode", nil)
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/v1/settings/dark_mode", strings.NewReader(`{"value": "true"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/settings/dark_mode", nil)
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var setting struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &setting))
	assert.Equal(t, "dark_mode", setting.Key)
	assert.Equal(t, "true", setting.Value)
}

func TestHealthEndpoint(t *testing.T) {
	engine := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(remoteBody))
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var health struct {
		Status string `json:"status"`
		Sync   struct {
			CachePresent bool `json:"cache_present"`
			PendingCount int  `json:"pending_count"`
			Online       bool `json:"online"`
		} `json:"sync"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.Sync.Online)
}