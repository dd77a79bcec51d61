package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q, want localhost:6379", cfg.Redis.Addr)
	}
	if cfg.Sync.DriftThresholdMs != 1500 {
		t.Errorf("DriftThresholdMs = %d, want 1500", cfg.Sync.DriftThresholdMs)
	}
	if cfg.Sync.HeartbeatMs != 3000 {
		t.Errorf("HeartbeatMs = %d, want 3000", cfg.Sync.HeartbeatMs)
	}
	if cfg.Presence.RefreshMs != 30000 || cfg.Presence.TimeoutMs != 60000 {
		t.Errorf("presence defaults = %d/%d, want 30000/60000",
			cfg.Presence.RefreshMs, cfg.Presence.TimeoutMs)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Sync.DriftThresholdMs = 500
	cfg.ApplyDefaults()

	if cfg.Sync.DriftThresholdMs != 500 {
		t.Errorf("DriftThresholdMs = %d, want 500 (explicit value overwritten)", cfg.Sync.DriftThresholdMs)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AUXROOM_REDIS_ADDR", "redis.example:6380")
	t.Setenv("AUXROOM_DRIFT_THRESHOLD_MS", "2000")
	t.Setenv("AUXROOM_NAME", "dj-env")

	cfg := &Config{}
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)

	if cfg.Redis.Addr != "redis.example:6380" {
		t.Errorf("Redis.Addr = %q, want env override", cfg.Redis.Addr)
	}
	if cfg.Sync.DriftThresholdMs != 2000 {
		t.Errorf("DriftThresholdMs = %d, want 2000", cfg.Sync.DriftThresholdMs)
	}
	if cfg.Identity.Name != "dj-env" {
		t.Errorf("Identity.Name = %q, want dj-env", cfg.Identity.Name)
	}
}

func TestLoadFrom(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[redis]
addr = "10.0.0.1:6379"

[sync]
heartbeat_ms = 1000

[identity]
name = "dj-file"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Redis.Addr != "10.0.0.1:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.Sync.HeartbeatMs != 1000 {
		t.Errorf("HeartbeatMs = %d, want 1000", cfg.Sync.HeartbeatMs)
	}
	// Unset fields still get defaults.
	if cfg.Sync.DriftThresholdMs != 1500 {
		t.Errorf("DriftThresholdMs = %d, want default 1500", cfg.Sync.DriftThresholdMs)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"empty redis addr", func(c *Config) { c.Redis.Addr = "" }, true},
		{"negative drift", func(c *Config) { c.Sync.DriftThresholdMs = -1 }, true},
		{"zero heartbeat", func(c *Config) { c.Sync.HeartbeatMs = 0 }, true},
		{"timeout below refresh", func(c *Config) { c.Presence.TimeoutMs = 10 }, true},
		{"bad theme", func(c *Config) { c.TUI.Theme = "neon" }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, true},
	}

	for _, tc := range testCases {
		cfg := Default()
		tc.mutate(cfg)
		err := cfg.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: Validate() err = %v, wantErr %t", tc.name, err, tc.wantErr)
		}
	}
}
