// Package config handles prism configuration loading and management.
package config

import (
	"fmt"
)

// Config holds all prism settings.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Store   StoreConfig   `yaml:"store"`
	Resolve ResolveConfig `yaml:"resolve"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// StoreConfig holds build persistence settings.
type StoreConfig struct {
	// Path is the SQLite database resolved builds are written to. Empty
	// disables persistence.
	Path string `yaml:"path"`
}

// ResolveConfig holds scene resolution settings.
type ResolveConfig struct {
	LoadWorkers int       `yaml:"load_workers"` // concurrent mesh loads
	MeshRoot    string    `yaml:"mesh_root"`    // prefix for relative mesh dirs
	SampleTimes []float64 `yaml:"sample_times"` // times reported for animated models
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			LogFile:    "",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Store: StoreConfig{
			Path: "",
		},
		Resolve: ResolveConfig{
			LoadWorkers: 8,
			SampleTimes: []float64{0, 1},
		},
	}
}

// Validate checks values a file or flag may have set badly.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	if c.Resolve.LoadWorkers < 1 {
		return fmt.Errorf("resolve.load_workers: must be at least 1, got %d", c.Resolve.LoadWorkers)
	}
	return nil
}
