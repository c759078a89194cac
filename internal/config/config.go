// Package config reads scribe's global settings from
// ~/.config/scribe/config.json with SCRIBE_* environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SyncSettings holds sync engine tuning. All durations are strings parsed
// with time.ParseDuration so the file stays human-editable.
type SyncSettings struct {
	URL           string `json:"url,omitempty"`
	Auto          *bool  `json:"auto,omitempty"`           // nil = default true
	Interval      string `json:"interval,omitempty"`       // periodic sync, default "5m"
	Settle        string `json:"settle,omitempty"`         // post-reconnect wait, default "2s"
	ProbeInterval string `json:"probe_interval,omitempty"` // default "30s"
}

// DraftSettings holds draft autosave tuning.
type DraftSettings struct {
	Debounce string `json:"debounce,omitempty"` // quiet window, default "2s"
}

// Config is the global scribe config.
type Config struct {
	Sync   SyncSettings  `json:"sync"`
	Drafts DraftSettings `json:"drafts"`
}

const defaultServerURL = "http://localhost:8787"

// Defaults for the engine's timing knobs.
const (
	DefaultSyncInterval  = 300 * time.Second
	DefaultSettle        = 2 * time.Second
	DefaultProbeInterval = 30 * time.Second
	DefaultDraftDebounce = 2 * time.Second
)

// Dir returns ~/.config/scribe, creating it if necessary.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "scribe")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// Load reads the global config, returning zero values when the file does
// not exist.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the global config.
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// ServerURL returns the sync server URL.
// Priority: SCRIBE_SYNC_URL env > config.json > default.
func ServerURL() string {
	if v := os.Getenv("SCRIBE_SYNC_URL"); v != "" {
		return v
	}
	cfg, err := Load()
	if err == nil && cfg.Sync.URL != "" {
		return cfg.Sync.URL
	}
	return defaultServerURL
}

// AutoSync returns whether mutations kick an immediate sync attempt.
// Priority: SCRIBE_AUTO_SYNC env > config.json > true.
func AutoSync() bool {
	if v := parseBoolEnv("SCRIBE_AUTO_SYNC"); v != nil {
		return *v
	}
	cfg, err := Load()
	if err == nil && cfg.Sync.Auto != nil {
		return *cfg.Sync.Auto
	}
	return true
}

// SyncInterval returns the periodic reconciliation interval.
// Priority: SCRIBE_SYNC_INTERVAL env > config.json > 5m.
func SyncInterval() time.Duration {
	return durationSetting("SCRIBE_SYNC_INTERVAL", func(c *Config) string { return c.Sync.Interval }, DefaultSyncInterval)
}

// Settle returns the post-reconnection settle delay.
// Priority: SCRIBE_SYNC_SETTLE env > config.json > 2s.
func Settle() time.Duration {
	return durationSetting("SCRIBE_SYNC_SETTLE", func(c *Config) string { return c.Sync.Settle }, DefaultSettle)
}

// ProbeInterval returns the periodic reachability probe interval.
// Priority: SCRIBE_PROBE_INTERVAL env > config.json > 30s.
func ProbeInterval() time.Duration {
	return durationSetting("SCRIBE_PROBE_INTERVAL", func(c *Config) string { return c.Sync.ProbeInterval }, DefaultProbeInterval)
}

// DraftDebounce returns the draft autosave quiet window.
// Priority: SCRIBE_DRAFT_DEBOUNCE env > config.json > 2s.
func DraftDebounce() time.Duration {
	return durationSetting("SCRIBE_DRAFT_DEBOUNCE", func(c *Config) string { return c.Drafts.Debounce }, DefaultDraftDebounce)
}

func durationSetting(envKey string, field func(*Config) string, def time.Duration) time.Duration {
	if v := os.Getenv(envKey); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	cfg, err := Load()
	if err == nil {
		if raw := field(cfg); raw != "" {
			if d, err := time.ParseDuration(raw); err == nil {
				return d
			}
		}
	}
	return def
}

// parseBoolEnv returns nil if env not set, pointer to bool if set.
func parseBoolEnv(envKey string) *bool {
	v := strings.ToLower(os.Getenv(envKey))
	switch v {
	case "1", "true":
		b := true
		return &b
	case "0", "false":
		b := false
		return &b
	}
	return nil
}
