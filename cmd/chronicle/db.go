package main

import (
	"context"
	"fmt"

	"chronicle/internal/config"
	"chronicle/internal/store"
	"chronicle/internal/store/postgres"
	"chronicle/internal/store/sqlite"
)

func openDB(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return postgres.New(ctx, cfg.Database.DSN, cfg.Database.Dimensions)
	case "sqlite":
		return sqlite.New(ctx, cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}
