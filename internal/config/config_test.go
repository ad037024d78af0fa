package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REMOTE_API_URL", "https://inventory.example.com/chemicals")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Remote.FetchTimeout)
	assert.Equal(t, 3*time.Second, cfg.Remote.ProbeTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, cfg.Remote.APIURL, cfg.Remote.PingURL, "ping url defaults to the api url")
}

func TestLoadRequiresRemoteURL(t *testing.T) {
	t.Setenv("REMOTE_API_URL", "")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("REMOTE_API_URL", "https://inventory.example.com/chemicals")
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
}

func TestLoadMongoDriverNeedsURI(t *testing.T) {
	t.Setenv("REMOTE_API_URL", "https://inventory.example.com/chemicals")
	t.Setenv("STORE_DRIVER", DriverMongo)
	t.Setenv("MONGODB_URI", "")

	_, err := Load("")
	require.Error(t, err)

	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverMongo, cfg.Store.Driver)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("REMOTE_API_URL", "https://inventory.example.com/chemicals")
	t.Setenv("CACHE_TTL", "one-day")

	_, err := Load("")
	require.Error(t, err)
}
