package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/vncsmyrnk/election/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/election/internal/config"
)

// usage: migrations up | down | <migration name>, e.g. "create_votes.up"
func main() {
	if len(os.Args) < 2 {
		log.Fatal("a migration name, \"up\" or \"down\" is required.")
	}
	migrationName := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	connStr := postgres.ConnString(
		cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresHost,
		cfg.PostgresPort, cfg.PostgresDB, cfg.PostgresSSLMode,
	)
	db, err := postgres.Open(ctx, connStr)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	switch migrationName {
	case "up":
		err = postgres.Migrate(ctx, db)
	case "down":
		err = postgres.Rollback(ctx, db)
	default:
		err = postgres.RunMigration(ctx, db, migrationName)
	}
	if err != nil {
		log.Fatalf("Failed to execute migration: %v", err)
	}

	fmt.Println("Migration executed successfully.")
}
