// Package daemon holds the long-running process configuration: where the
// API listens, where the ledger database lives, and the economy tunables.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full daemon configuration, loadable from a TOML file.
type Config struct {
	API     APIConfig     `toml:"api"`
	Store   StoreConfig   `toml:"store"`
	Economy EconomyConfig `toml:"economy"`
}

// APIConfig controls the HTTP listener.
type APIConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

// StoreConfig controls the SQLite ledger store.
type StoreConfig struct {
	Path string `toml:"path"`
}

// EconomyConfig holds the engine tunables.
type EconomyConfig struct {
	CompletedWindow string `toml:"completed_window"` // Go duration, e.g. "72h"
	RecentLimit     int    `toml:"recent_limit"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:          "127.0.0.1",
			Port:          8090,
			EnableMetrics: true,
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		Economy: EconomyConfig{
			CompletedWindow: "72h",
			RecentLimit:     50,
		},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "guildpoints.db"
	}
	return filepath.Join(home, ".guildpoints", "guildpoints.db")
}

// LoadConfig reads the TOML file at path on top of the defaults. A missing
// file is not an error: the defaults apply unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot run with.
func (c Config) Validate() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if _, err := time.ParseDuration(c.Economy.CompletedWindow); err != nil {
		return fmt.Errorf("economy.completed_window: %w", err)
	}
	if c.Economy.RecentLimit < 1 {
		return fmt.Errorf("economy.recent_limit must be positive")
	}
	return nil
}

// Window parses the configured board display window, falling back to the
// default on a bad value.
func (c EconomyConfig) Window() time.Duration {
	d, err := time.ParseDuration(c.CompletedWindow)
	if err != nil || d <= 0 {
		return 72 * time.Hour
	}
	return d
}

// ListenAddr returns the host:port the API should bind.
func (c APIConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
