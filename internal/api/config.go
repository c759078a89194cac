package api

import (
	"os"
	"time"
)

// Config holds the scribe-sync server configuration, loaded from
// environment variables.
type Config struct {
	ListenAddr      string
	DBPath          string
	ShutdownTimeout time.Duration
	LogFormat       string // "json" (default) or "text"
	LogLevel        string // "debug", "info" (default), "warn", "error"
	MaxBodyBytes    int64
	MaxBatch        int // operations accepted per sync exchange
}

// LoadConfig reads configuration from environment variables with
// sensible defaults.
func LoadConfig() Config {
	cfg := Config{
		ListenAddr:      ":8787",
		DBPath:          "./data/scribe-sync.db",
		ShutdownTimeout: 30 * time.Second,
		LogFormat:       "json",
		LogLevel:        "info",
		MaxBodyBytes:    10 << 20,
		MaxBatch:        1000,
	}

	if v := os.Getenv("SCRIBE_SYNC_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("SCRIBE_SYNC_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("SCRIBE_SYNC_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("SCRIBE_SYNC_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("SCRIBE_SYNC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}
