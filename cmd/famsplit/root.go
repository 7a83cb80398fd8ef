package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mmynk/famsplit/internal/config"
	"github.com/mmynk/famsplit/internal/server"
	"github.com/mmynk/famsplit/internal/storage/sqlite"
	"github.com/mmynk/famsplit/pkg/logging"
)

// execute runs the CLI and returns the process exit code.
func execute() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	rootCmd := &cobra.Command{
		Use:           "famsplit",
		Short:         "Household bill splitting server",
		Long:          "famsplit publishes recurring family bills, splits them across members and notifies everyone.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running the bare binary serves.
		RunE: serve.RunE,
	}

	rootCmd.AddCommand(serve, newMigrateCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Setup(cfg.LogLevel)

			srv, err := server.New(cfg, slog.Default())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logging.Setup(os.Getenv("FAMSPLIT_LOG_LEVEL"))

			if dbPath == "" {
				cfg, err := config.LoadStorage()
				if err != nil {
					return err
				}
				dbPath = cfg.DBPath
			}

			// Opening the store applies pending migrations.
			store, err := sqlite.New(dbPath)
			if err != nil {
				return fmt.Errorf("migrate %s: %w", dbPath, err)
			}
			slog.Info("Migrations applied", "database", dbPath)
			return store.Close()
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "database path (default: FAMSPLIT_DB_PATH)")
	return cmd
}
