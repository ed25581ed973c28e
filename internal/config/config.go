// Package config loads service configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all service settings.
//
// Precedence, lowest to highest: defaults, YAML file, environment.
type Config struct {
	// DBPath is the SQLite database file holding the activity log and
	// snapshots.
	DBPath string `yaml:"db_path" env:"SNAPVIEW_DB_PATH"`

	// Listen is the HTTP listen address for the ingestion/query API.
	Listen string `yaml:"listen" env:"SNAPVIEW_LISTEN"`

	// InactivityTimeout is how long an agent may stay silent before its
	// session ends and a snapshot trigger fires.
	InactivityTimeout time.Duration `yaml:"inactivity_timeout" env:"SNAPVIEW_INACTIVITY_TIMEOUT"`

	// SnapshotRetention bounds how many superseded snapshots are kept.
	SnapshotRetention int `yaml:"snapshot_retention" env:"SNAPVIEW_SNAPSHOT_RETENTION"`

	// PageSize is the default page size for activity range queries.
	PageSize int `yaml:"page_size" env:"SNAPVIEW_PAGE_SIZE"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:            "snapview.db",
		Listen:            ":8080",
		InactivityTimeout: 5 * time.Minute,
		SnapshotRetention: 5,
		PageSize:          500,
	}
}

// Load reads configuration from the YAML file at path (skipped if path is
// empty or the file does not exist), then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Optional file; defaults and env still apply.
		case err != nil:
			return Config{}, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.InactivityTimeout <= 0 {
		return fmt.Errorf("inactivity_timeout must be positive, got %s", c.InactivityTimeout)
	}
	if c.SnapshotRetention < 1 {
		return fmt.Errorf("snapshot_retention must be at least 1, got %d", c.SnapshotRetention)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page_size must be at least 1, got %d", c.PageSize)
	}
	return nil
}
