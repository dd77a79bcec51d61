package config

import "time"

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Sync: SyncConfig{
			DriftThresholdMs: 1500,
			HeartbeatMs:      3000,
			SeekThrottleMs:   250,
		},
		Presence: PresenceConfig{
			RefreshMs: 30000,
			TimeoutMs: 60000,
		},
		TUI: TUIConfig{
			Theme:           "mocha",
			RefreshInterval: 1000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	d := Default()

	if c.Redis.Addr == "" {
		c.Redis.Addr = d.Redis.Addr
	}

	if c.Sync.DriftThresholdMs == 0 {
		c.Sync.DriftThresholdMs = d.Sync.DriftThresholdMs
	}
	if c.Sync.HeartbeatMs == 0 {
		c.Sync.HeartbeatMs = d.Sync.HeartbeatMs
	}
	if c.Sync.SeekThrottleMs == 0 {
		c.Sync.SeekThrottleMs = d.Sync.SeekThrottleMs
	}

	if c.Presence.RefreshMs == 0 {
		c.Presence.RefreshMs = d.Presence.RefreshMs
	}
	if c.Presence.TimeoutMs == 0 {
		c.Presence.TimeoutMs = d.Presence.TimeoutMs
	}

	if c.TUI.Theme == "" {
		c.TUI.Theme = d.TUI.Theme
	}
	if c.TUI.RefreshInterval == 0 {
		c.TUI.RefreshInterval = d.TUI.RefreshInterval
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// DriftThreshold returns the drift threshold as a duration.
func (c *Config) DriftThreshold() time.Duration {
	return time.Duration(c.Sync.DriftThresholdMs) * time.Millisecond
}

// Heartbeat returns the host publish interval as a duration.
func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.Sync.HeartbeatMs) * time.Millisecond
}

// SeekThrottle returns the minimum interval between outbound seeks.
func (c *Config) SeekThrottle() time.Duration {
	return time.Duration(c.Sync.SeekThrottleMs) * time.Millisecond
}

// PresenceRefresh returns the self presence refresh interval.
func (c *Config) PresenceRefresh() time.Duration {
	return time.Duration(c.Presence.RefreshMs) * time.Millisecond
}

// PresenceTimeout returns the window after which other users are considered
// inactive.
func (c *Config) PresenceTimeout() time.Duration {
	return time.Duration(c.Presence.TimeoutMs) * time.Millisecond
}
