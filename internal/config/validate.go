package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Redis.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("redis: %w", err))
	}
	if err := c.Sync.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sync: %w", err))
	}
	if err := c.Presence.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("presence: %w", err))
	}
	if err := c.TUI.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tui: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks RedisConfig for errors.
func (c *RedisConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.DB < 0 {
		return errors.New("db must be non-negative")
	}
	return nil
}

// Validate checks SyncConfig for errors.
func (c *SyncConfig) Validate() error {
	if c.DriftThresholdMs < 0 {
		return errors.New("drift_threshold_ms must be non-negative")
	}
	if c.HeartbeatMs <= 0 {
		return errors.New("heartbeat_ms must be positive")
	}
	if c.SeekThrottleMs < 0 {
		return errors.New("seek_throttle_ms must be non-negative")
	}
	return nil
}

// Validate checks PresenceConfig for errors.
func (c *PresenceConfig) Validate() error {
	if c.RefreshMs <= 0 {
		return errors.New("refresh_ms must be positive")
	}
	if c.TimeoutMs <= c.RefreshMs {
		return errors.New("timeout_ms must be greater than refresh_ms")
	}
	return nil
}

// Validate checks TUIConfig for errors.
func (c *TUIConfig) Validate() error {
	switch c.Theme {
	case "", "mocha", "macchiato", "frappe", "latte":
		// valid
	default:
		return fmt.Errorf("invalid theme: %s (must be mocha, macchiato, frappe, or latte)", c.Theme)
	}
	if c.RefreshInterval < 0 {
		return errors.New("refresh_interval must be non-negative")
	}
	return nil
}

// Validate checks LogConfig for errors.
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Level)
	}
	return nil
}
