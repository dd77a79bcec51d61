package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Load reads configuration from standard locations with environment overrides.
// Search order: ~/.auxroomrc, $XDG_CONFIG_HOME/auxroom/config.toml,
// ~/.config/auxroom/config.toml
func Load() (*Config, error) {
	cfg := &Config{}

	path := findConfigFile()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// ConfigDir returns the directory used for auxroom state files.
func ConfigDir() (string, error) {
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		xdgConfig = filepath.Join(home, ".config")
	}
	return filepath.Join(xdgConfig, "auxroom"), nil
}

// findConfigFile returns the first existing config file path.
func findConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	paths := []string{
		filepath.Join(home, ".auxroomrc"),
	}

	if dir, err := ConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "config.toml"))
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AUXROOM_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("AUXROOM_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("AUXROOM_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = i
		}
	}

	if v := os.Getenv("AUXROOM_NAME"); v != "" {
		cfg.Identity.Name = v
	}

	if v := os.Getenv("AUXROOM_DRIFT_THRESHOLD_MS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Sync.DriftThresholdMs = i
		}
	}
	if v := os.Getenv("AUXROOM_HEARTBEAT_MS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Sync.HeartbeatMs = i
		}
	}

	if v := os.Getenv("AUXROOM_TUI_THEME"); v != "" {
		cfg.TUI.Theme = v
	}

	if v := os.Getenv("AUXROOM_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("AUXROOM_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}
