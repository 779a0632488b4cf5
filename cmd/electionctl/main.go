package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vncsmyrnk/election/internal/adapters/repository"
	"github.com/vncsmyrnk/election/internal/config"
	"github.com/vncsmyrnk/election/internal/core/ports"
	"github.com/vncsmyrnk/election/internal/core/services"
)

const programName = "electionctl"

type storeOpener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.ElectionStore, io.Closer, error)

// app is the state shared by every subcommand once the root pre-run has
// opened the store.
type app struct {
	open   storeOpener
	cfg    *config.Config
	svc    *services.Services
	closer io.Closer

	storeDriver string
	sqlitePath  string
	debug       bool
}

func (a *app) print(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Administer elections directly against the store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cmd.Flags().Changed("store") {
				cfg.StoreDriver = a.storeDriver
			}
			if cmd.Flags().Changed("sqlite-path") {
				cfg.SQLitePath = a.sqlitePath
			}
			if a.debug {
				cfg.LogLevel = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			if a.debug {
				logger = cfg.NewLogger(programName)
			}

			store, closer, err := a.open(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.closer = closer
			a.svc = services.New(store, services.Options{Logger: logger})
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if a.closer != nil {
				return a.closer.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.storeDriver, "store", config.DriverPostgres, "store driver: postgres, sqlite or memory")
	rootCmd.PersistentFlags().StringVar(&a.sqlitePath, "sqlite-path", "", "SQLite database file")
	rootCmd.PersistentFlags().BoolVarP(&a.debug, "debug", "D", false, "enable debug logging")

	rootCmd.AddCommand(electionsCommand(a))
	rootCmd.AddCommand(candidatesCommand(a))
	rootCmd.AddCommand(resultsCommand(a))
	rootCmd.AddCommand(fraudCommand(a))
	rootCmd.AddCommand(tickCommand(a))
	rootCmd.AddCommand(sweepCommand(a))
	return rootCmd
}

func main() {
	a := &app{open: repository.Open}
	if err := newRootCommand(a).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
