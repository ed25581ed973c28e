package cli

import (
	"github.com/halyardlabs/snapview/internal/config"
	"github.com/halyardlabs/snapview/internal/store"
)

// loadConfig resolves the effective configuration for a command: YAML file,
// environment overrides, then the --db flag on top.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	return cfg, nil
}

// openStore opens the configured database for a command.
// Callers own closing the returned store.
func openStore(opts *RootOptions) (*store.Store, config.Config, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, config.Config{}, err
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, config.Config{}, WrapExitError(ExitCommandError, "open database", err)
	}
	return s, cfg, nil
}
