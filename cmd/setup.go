package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/vinyl/internal/shared"
	"github.com/desertthunder/vinyl/internal/store"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the template when it is missing and migrates the sqlite session
// store when that driver is selected.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("config file exists", "path", configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.logger.Info("config file created", "path", configPath)
	}

	config, err := r.loadConfig(configPath)
	if err != nil {
		return err
	}

	if config.Store.Driver != "sqlite" {
		r.logger.Info("setup complete", "store", storeName(config.Store))
		return nil
	}

	r.logger.Info("initializing session database", "path", config.Store.SQLitePath)
	s, err := store.OpenSQLite(ctx, config.Store.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to migrate session database: %w", err)
	}
	defer s.Close()

	r.logger.Infof("setup complete for database: %v", config.Store.SQLitePath)
	return nil
}

func storeName(conf shared.StoreConfig) string {
	switch {
	case conf.Driver != "":
		return conf.Driver
	case conf.RedisURL != "":
		return "redis"
	default:
		return "memory"
	}
}
