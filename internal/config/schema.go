package config

// Config is the root configuration structure.
type Config struct {
	Redis    RedisConfig    `toml:"redis"`
	Sync     SyncConfig     `toml:"sync"`
	Presence PresenceConfig `toml:"presence"`
	Identity IdentityConfig `toml:"identity"`
	TUI      TUIConfig      `toml:"tui"`
	Log      LogConfig      `toml:"log"`
}

// RedisConfig holds connection settings for the transport backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// SyncConfig holds playback synchronization tunables.
type SyncConfig struct {
	DriftThresholdMs int `toml:"drift_threshold_ms"`
	HeartbeatMs      int `toml:"heartbeat_ms"`
	SeekThrottleMs   int `toml:"seek_throttle_ms"`
}

// PresenceConfig holds membership liveness tunables.
type PresenceConfig struct {
	RefreshMs int `toml:"refresh_ms"`
	TimeoutMs int `toml:"timeout_ms"`
}

// IdentityConfig holds the local display identity.
type IdentityConfig struct {
	Name string `toml:"name"`
}

// TUIConfig holds terminal UI settings.
type TUIConfig struct {
	Theme           string `toml:"theme"`
	RefreshInterval int    `toml:"refresh_interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}
