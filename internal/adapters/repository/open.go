// Package repository picks the ElectionStore implementation for a config.
package repository

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vncsmyrnk/election/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/election/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/election/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/election/internal/config"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the store selected by cfg.StoreDriver and a closer for its
// underlying resources. Postgres migrations are applied on open.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.ElectionStore, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		connStr := postgres.ConnString(
			cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresHost,
			cfg.PostgresPort, cfg.PostgresDB, cfg.PostgresSSLMode,
		)
		db, err := postgres.Open(ctx, connStr)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("using postgres store", "host", cfg.PostgresHost, "db", cfg.PostgresDB)
		return postgres.NewStore(db), db, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil

	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		return memory.New(), nopCloser{}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
