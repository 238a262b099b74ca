package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tapedeck/tapedeck/internal/shared"
	"github.com/tapedeck/tapedeck/internal/store"
	"github.com/urfave/cli/v3"
)

// Setup creates the configuration file from the embedded template and
// initializes local storage.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing storage", "path", config.Storage.Path)

	kv, err := store.OpenSQLite(config.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer kv.Close()

	r.writePlain("✓ Configuration ready at %s\n", configPath)
	r.writePlain("✓ Storage ready at %s\n\n", config.Storage.Path)
	r.writePlain("Next steps:\n")
	r.writePlain("1. Set credentials.dropbox.app_key in %s\n", configPath)
	r.writePlain("2. Run 'tapedeck auth login' to sign in\n")

	return nil
}
