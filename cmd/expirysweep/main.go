package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/vncsmyrnk/election/internal/adapters/repository"
	"github.com/vncsmyrnk/election/internal/config"
	"github.com/vncsmyrnk/election/internal/core/services"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}

	var timeout time.Duration
	flag.StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "Store driver (postgres, sqlite)")
	flag.StringVar(&cfg.PostgresHost, "db-host", cfg.PostgresHost, "Database host")
	flag.StringVar(&cfg.PostgresPort, "db-port", cfg.PostgresPort, "Database port")
	flag.StringVar(&cfg.PostgresUser, "db-user", cfg.PostgresUser, "Database user")
	flag.StringVar(&cfg.PostgresPassword, "db-pass", cfg.PostgresPassword, "Database password")
	flag.StringVar(&cfg.PostgresDB, "db-name", cfg.PostgresDB, "Database name")
	flag.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite database file")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Job timeout")
	flag.Parse()

	logger := cfg.NewLogger("expiry-sweep")
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, v ...any) {
		logger.Debug(fmt.Sprintf(format, v...))
	})); err != nil {
		logger.Error("failed to set GOMAXPROCS", "error", err)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	// Keep the job from hanging on a stuck store.
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	store, closer, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closer.Close()

	svc := services.New(store, services.Options{Logger: logger})

	logger.Info("starting expiry sweep")
	closed, err := svc.Sweep.CloseExpiredElections(ctx)
	if err != nil {
		logger.Error("expiry sweep finished with errors", "closed", closed, "error", err)
		closer.Close()
		os.Exit(1)
	}
	logger.Info("expiry sweep completed", "closed", closed)
}
