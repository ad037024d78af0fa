package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Store driver names accepted by STORE_DRIVER.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config represents the full application configuration surface.
type Config struct {
	Server  ServerConfig
	Remote  RemoteConfig
	Store   StoreConfig
	Cache   CacheConfig
	Refresh RefreshConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// RemoteConfig describes the remote inventory endpoint.
type RemoteConfig struct {
	// APIURL receives the GET for the full snapshot and the POST per
	// pending item.
	APIURL string
	// PingURL is the advisory reachability probe target. Defaults to APIURL.
	PingURL      string
	FetchTimeout time.Duration
	ProbeTimeout time.Duration
}

// StoreConfig selects and configures the local persistence driver.
type StoreConfig struct {
	Driver      string
	SQLitePath  string
	MongoURI    string
	MongoDBName string
}

// CacheConfig holds the snapshot validity window.
type CacheConfig struct {
	TTL time.Duration
}

// RefreshConfig holds background refresh scheduler settings.
type RefreshConfig struct {
	CronSchedule string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	fetchTimeout, err := durationWithDefault("REMOTE_FETCH_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	probeTimeout, err := durationWithDefault("REMOTE_PROBE_TIMEOUT", 3*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := durationWithDefault("CACHE_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Remote: RemoteConfig{
			APIURL:       os.Getenv("REMOTE_API_URL"),
			PingURL:      os.Getenv("REMOTE_PING_URL"),
			FetchTimeout: fetchTimeout,
			ProbeTimeout: probeTimeout,
		},
		Store: StoreConfig{
			Driver:      getenvWithDefault("STORE_DRIVER", DriverSQLite),
			SQLitePath:  getenvWithDefault("SQLITE_PATH", "chemstock.db"),
			MongoURI:    os.Getenv("MONGODB_URI"),
			MongoDBName: getenvWithDefault("MONGODB_DB_NAME", "chemstock"),
		},
		Cache: CacheConfig{
			TTL: cacheTTL,
		},
		Refresh: RefreshConfig{
			CronSchedule: getenvWithDefault("REFRESH_CRON_SCHEDULE", "*/30 * * * *"),
		},
	}

	if cfg.Remote.PingURL == "" {
		cfg.Remote.PingURL = cfg.Remote.APIURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Remote.APIURL == "" {
		return errors.New("REMOTE_API_URL must be provided")
	}

	if c.Remote.FetchTimeout <= 0 || c.Remote.ProbeTimeout <= 0 {
		return errors.New("remote timeouts must be positive")
	}

	if c.Cache.TTL <= 0 {
		return errors.New("CACHE_TTL must be positive")
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("SQLITE_PATH must be provided for the sqlite driver")
		}
	case DriverMongo:
		if c.Store.MongoURI == "" {
			return errors.New("MONGODB_URI must be provided for the mongo driver")
		}
		if c.Store.MongoDBName == "" {
			return errors.New("MONGODB_DB_NAME must not be empty")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	if c.Refresh.CronSchedule == "" {
		return errors.New("REFRESH_CRON_SCHEDULE must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return value, nil
}
