package quota

import (
	"context"
	"fmt"

	"adprint/internal/infra"
	"adprint/internal/storage"
)

// Open builds the store selected by cfg.QuotaStore. The returned close func
// releases any database handle and is safe to call once.
func Open(ctx context.Context, cfg *infra.Config, logger infra.Logger) (Store, func(), error) {
	noop := func() {}
	switch cfg.QuotaStore {
	case infra.QuotaStoreMemory:
		return NewMemoryStore(0), noop, nil

	case infra.QuotaStoreFile, "":
		files, err := storage.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, noop, err
		}
		return NewFileStore(files, cfg.QuotaKey), noop, nil

	case infra.QuotaStoreSQLite:
		store, err := OpenSQLite(ctx, cfg.SQLitePath, cfg.QuotaKey)
		if err != nil {
			return nil, noop, err
		}
		return store, func() { _ = store.Close() }, nil

	case infra.QuotaStorePostgres:
		if cfg.RunMigrations {
			if err := infra.Migrate(cfg.DatabaseURL, logger); err != nil {
				return nil, noop, fmt.Errorf("quota: migrate: %w", err)
			}
		}
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, noop, err
		}
		runner := infra.NewSQLRunner(pool, logger)
		return NewPostgresStore(runner, cfg.QuotaKey), pool.Close, nil

	default:
		return nil, noop, fmt.Errorf("quota: unsupported store %q", cfg.QuotaStore)
	}
}
