package backend

import (
	"context"
	"fmt"

	"consultcrm/internal/ledger"
	"consultcrm/internal/ledger/memory"
	applog "consultcrm/internal/log"
	"consultcrm/internal/storage"
	"consultcrm/internal/storage/postgres"
)

// Open validates cfg and returns the matching store. The caller owns it and
// must Close it.
func Open(ctx context.Context, cfg Config, logger *applog.Logger) (ledger.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentBackend)

	switch cfg.Type {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", cfg.SQLitePath)
		return repo, nil

	case Postgres:
		repo, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		logger.InfoContext(ctx, "Initialized Postgres backend")
		return repo, nil

	default:
		dir := cfg.DataDir
		if dir == "" {
			dir = "data"
		}
		store, err := memory.NewFromFiles(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to load seed data from %s: %w", dir, err)
		}
		logger.InfoContext(ctx, "Initialized memory backend", "data_dir", dir)
		return store, nil
	}
}
