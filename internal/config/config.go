// Package config loads resmon settings from an optional YAML file with
// environment overrides for logging.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	MinIntervalMS     = 500
	MaxIntervalMS     = 5000
	DefaultIntervalMS = 1000

	// DefaultDatabase is relative to the working directory.
	DefaultDatabase = "resource_monitor.db"
	DefaultLogLevel = "info"

	EnvLogLevel     = "RESMON_LOG_LEVEL"
	EnvCleanLogFile = "RESMON_CLEAN_LOG_FILE"
)

// Config holds resmon settings.
type Config struct {
	// IntervalMS is the sampling interval in milliseconds, within [500, 5000].
	IntervalMS int `yaml:"interval_ms"`
	// Database is the path of the SQLite sample store.
	Database string `yaml:"database"`
	// LogLevel is a zap level name ("debug", "info", "warn", "error").
	LogLevel string `yaml:"log_level"`
	// CleanLogFile truncates the log file at startup.
	CleanLogFile bool `yaml:"clean_log_file"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		IntervalMS: DefaultIntervalMS,
		Database:   DefaultDatabase,
		LogLevel:   DefaultLogLevel,
	}
}

// Load reads the config at path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyEnv()
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.IntervalMS == 0 {
		c.IntervalMS = DefaultIntervalMS
	}
	c.IntervalMS = lo.Clamp(c.IntervalMS, MinIntervalMS, MaxIntervalMS)
	if strings.TrimSpace(c.Database) == "" {
		c.Database = DefaultDatabase
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

func (c *Config) applyEnv() {
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.LogLevel = level
	}
	if clean := strings.ToLower(os.Getenv(EnvCleanLogFile)); clean != "" {
		c.CleanLogFile = clean == "1" || clean == "true"
	}
}

// Interval returns IntervalMS as a duration, clamped to the allowed range.
func (c Config) Interval() time.Duration {
	return time.Duration(lo.Clamp(c.IntervalMS, MinIntervalMS, MaxIntervalMS)) * time.Millisecond
}

// Level parses LogLevel, falling back to info when it is not a valid level.
func (c Config) Level() zap.AtomicLevel {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		level = zap.NewAtomicLevel()
	}
	return level
}
