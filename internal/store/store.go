package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/flowreg/internal/config"
	"github.com/roach88/flowreg/internal/registry"
	"github.com/roach88/flowreg/internal/store/memory"
	"github.com/roach88/flowreg/internal/store/postgres"
	"github.com/roach88/flowreg/internal/store/sqlite"
)

// Store is the aggregate persistence interface every backend implements.
type Store interface {
	registry.Transactor

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close releases the backend's connections.
	Close() error
}

var (
	_ Store = (*sqlite.Store)(nil)
	_ Store = (*postgres.Store)(nil)
	_ Store = (*memory.Store)(nil)
)

// Open opens the backend selected by cfg. The caller must Close it.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case config.BackendSQLite:
		driver, err := sqlite.ParseDriver(cfg.SQLite.Driver)
		if err != nil {
			return nil, err
		}
		s, err := sqlite.Open(cfg.SQLite.Path, sqlite.WithDriver(driver), sqlite.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil

	case config.BackendPostgres:
		s, err := postgres.Open(ctx, cfg.Postgres.DSN, postgres.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil

	case config.BackendMemory:
		return memory.New(memory.WithLogger(logger)), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
