package main

import (
	"context"
	"os"

	"github.com/tapedeck/tapedeck/internal/auth"
	"github.com/tapedeck/tapedeck/internal/dropbox"
	"github.com/tapedeck/tapedeck/internal/models"
	"github.com/tapedeck/tapedeck/internal/playlists"
	"github.com/tapedeck/tapedeck/internal/shared"
	"github.com/tapedeck/tapedeck/internal/store"
	"github.com/tapedeck/tapedeck/internal/transport"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	var kv store.Store
	kv, err := store.OpenSQLite(config.Storage.Path)
	if err != nil {
		logger.Warnf("failed to open store at %s, falling back to memory: %v", config.Storage.Path, err)
		kv = store.NewMemoryStore()
	}
	defer kv.Close()

	runner := NewRunner(RunnerOpts{
		Config: config,
		Store:  kv,
		Logger: logger,
	})

	if config.Credentials.Dropbox.AppKey != "" {
		session, err := auth.NewSession(auth.SessionOpts{
			Dropbox:      config.Credentials.Dropbox,
			TokenStore:   auth.NewTokenStore(kv),
			SessionStore: store.NewMemoryStore(),
			Logger:       logger,
		})
		if err != nil {
			logger.Fatalf("failed to create auth session: %v", err)
		}

		limiter := transport.NewLimiter(transport.Opts{
			Refresher: session,
			Logger:    logger,
		})

		client := dropbox.NewClient(dropbox.ClientOpts{
			Dropbox:     config.Credentials.Dropbox,
			Limiter:     limiter,
			Credentials: session,
			Logger:      logger,
		})
		session.SetValidator(client)

		engine, err := playlists.NewEngine(playlists.EngineOpts{
			Store:   kv,
			Gateway: client,
			Auth:    session,
			Logger:  logger,
			DefaultSettings: models.SyncSettings{
				Enabled:  config.Sync.Enabled,
				AutoSync: config.Sync.AutoSync,
			},
		})
		if err != nil {
			logger.Fatalf("failed to create playlist engine: %v", err)
		}

		runner.session = session
		runner.client = client
		runner.engine = engine
	}

	app := &cli.Command{
		Name:     "tapedeck",
		Usage:    "Browse a Dropbox music library and sync playlists",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
