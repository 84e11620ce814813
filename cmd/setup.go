package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/spotx/internal/shared"
	"github.com/desertthunder/spotx/internal/ui"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, applies --backend, and migrates the database.
//
// The sqlite database is migrated for every backend since it also holds the security event log.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			return err
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		if config, err = shared.LoadConfig(configPath); err != nil {
			return err
		}
		r.logger.Info("config file created", "path", configPath)
	}

	if backend := cmd.String("backend"); backend != "" && backend != config.Storage.Backend {
		config.Storage.Backend = backend
		if err := config.Validate(); err != nil {
			return err
		}
		if err := shared.SaveConfig(configPath, config); err != nil {
			return err
		}
		r.logger.Info("storage backend updated", "backend", backend)
	}

	dbPath := shared.ExpandPath(config.Storage.Path)
	r.logger.Info("initializing database", "path", dbPath)

	db, err := shared.OpenMigrated(dbPath)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrStorage, err)
	}
	defer db.Close()

	r.writePlain("%s\n", ui.Styles.Done("Setup complete"))
	r.writePlain("Config:   %s\n", configPath)
	r.writePlain("Storage:  %s\n", config.Storage.Backend)
	r.writePlain("Database: %s\n", dbPath)
	r.writePlainln("Next: run 'spotx auth login' to connect your Spotify account.")
	return nil
}
