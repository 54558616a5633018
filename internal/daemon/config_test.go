package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8090 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8090)
	}
	if !cfg.API.EnableMetrics {
		t.Error("API.EnableMetrics should be true by default")
	}
	if cfg.Store.Path == "" {
		t.Error("Store.Path should have a default")
	}
	if cfg.Economy.CompletedWindow != "72h" {
		t.Errorf("Economy.CompletedWindow = %q, want %q", cfg.Economy.CompletedWindow, "72h")
	}
	if cfg.Economy.RecentLimit != 50 {
		t.Errorf("Economy.RecentLimit = %d, want %d", cfg.Economy.RecentLimit, 50)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config fails validation: %v", err)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("missing file changed defaults: port = %d", cfg.API.Port)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[api]
host = "0.0.0.0"
port = 9100
enable_metrics = false

[store]
path = "/tmp/points.db"

[economy]
completed_window = "24h"
recent_limit = 20
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Host != "0.0.0.0" || cfg.API.Port != 9100 || cfg.API.EnableMetrics {
		t.Errorf("api section = %+v", cfg.API)
	}
	if cfg.Store.Path != "/tmp/points.db" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if cfg.Economy.Window() != 24*time.Hour {
		t.Errorf("Window() = %v, want 24h", cfg.Economy.Window())
	}
	if cfg.Economy.RecentLimit != 20 {
		t.Errorf("Economy.RecentLimit = %d, want 20", cfg.Economy.RecentLimit)
	}
	if cfg.API.ListenAddr() != "0.0.0.0:9100" {
		t.Errorf("ListenAddr() = %q", cfg.API.ListenAddr())
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad port", "[api]\nport = 0\n"},
		{"empty store path", "[store]\npath = \"\"\n"},
		{"bad window", "[economy]\ncompleted_window = \"soon\"\n"},
		{"bad limit", "[economy]\nrecent_limit = 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("WriteFile() error: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("LoadConfig() accepted invalid config")
			}
		})
	}
}

func TestWindowFallsBackOnGarbage(t *testing.T) {
	c := EconomyConfig{CompletedWindow: "whenever"}
	if got := c.Window(); got != 72*time.Hour {
		t.Errorf("Window() = %v, want 72h fallback", got)
	}
}
