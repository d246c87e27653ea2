// Package config loads daybook settings from a YAML file with environment
// overrides on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/daybook/internal/constants"
)

// Config holds all daybook configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Live     LiveConfig     `yaml:"live"`
	Logging  LoggingConfig  `yaml:"logging"`
	Backup   BackupConfig   `yaml:"backup"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path                string `yaml:"path"`
	BusyTimeout         string `yaml:"busy_timeout"`
	DestructiveFallback bool   `yaml:"destructive_fallback"`
	SeedCategories      bool   `yaml:"seed_categories"`
}

// LiveConfig configures live listings.
type LiveConfig struct {
	Debounce string `yaml:"debounce"`
	// WatchFile follows writes made by other processes.
	WatchFile bool   `yaml:"watch_file"`
	Settle    string `yaml:"settle"`
}

type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	Dir   string `yaml:"dir"`
	// Level is one of debug, info, warn or error.
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type BackupConfig struct {
	// Auto takes a backup before destructive commands.
	Auto bool `yaml:"auto"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dir := DefaultDir()
	return &Config{
		Database: DatabaseConfig{
			Path:                filepath.Join(dir, constants.DefaultDBName),
			BusyTimeout:         constants.DefaultBusyTimeout.String(),
			DestructiveFallback: constants.DefaultDestructiveFallback,
			SeedCategories:      constants.DefaultSeedCategories,
		},
		Live: LiveConfig{
			Debounce:  constants.DefaultLiveDebounce.String(),
			WatchFile: true,
			Settle:    "100ms",
		},
		Logging: LoggingConfig{
			Dir:        filepath.Join(dir, "logs"),
			Level:      "warn",
			MaxSizeMB:  constants.DefaultLogMaxSizeMB,
			MaxBackups: constants.DefaultLogMaxBackups,
			MaxAgeDays: constants.DefaultLogMaxAgeDays,
		},
		Backup: BackupConfig{
			Auto: true,
		},
	}
}

// DefaultDir returns the expanded default configuration directory.
func DefaultDir() string {
	return ExpandPath(constants.DefaultConfigDir)
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), constants.DefaultConfigName)
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ExpandPath(path))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	cfg.Logging.Dir = ExpandPath(cfg.Logging.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv(constants.EnvDBPath); path != "" {
		c.Database.Path = path
	}
	if v, ok := envBool(constants.EnvDebug); ok {
		c.Logging.Debug = v
	}
	if v, ok := envBool(constants.EnvDestructiveFallback); ok {
		c.Database.DestructiveFallback = v
	}
}

// envBool reports the parsed value of a boolean variable. Unset, empty and
// unparseable values are ignored.
func envBool(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database path must not be empty")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q: want debug, info, warn or error", c.Logging.Level)
	}
	for name, raw := range map[string]string{
		"database.busy_timeout": c.Database.BusyTimeout,
		"live.debounce":         c.Live.Debounce,
		"live.settle":           c.Live.Settle,
	} {
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
		if d < 0 {
			return fmt.Errorf("invalid %s %q: must not be negative", name, raw)
		}
	}
	return nil
}

// GetBusyTimeout returns the SQLite busy timeout.
func (c *Config) GetBusyTimeout() time.Duration {
	return parseDuration(c.Database.BusyTimeout, constants.DefaultBusyTimeout)
}

// GetDebounce returns the quiet period live listings wait for before
// requerying.
func (c *Config) GetDebounce() time.Duration {
	return parseDuration(c.Live.Debounce, constants.DefaultLiveDebounce)
}

// GetSettle returns how long file changes must be quiet before live
// listings are notified.
func (c *Config) GetSettle() time.Duration {
	return parseDuration(c.Live.Settle, 100*time.Millisecond)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
