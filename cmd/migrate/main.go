package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/payhuk02/emarzona/internal/config"
	"github.com/payhuk02/emarzona/internal/logging"
	"github.com/payhuk02/emarzona/internal/repository/postgres"
	"github.com/payhuk02/emarzona/internal/repository/sqlstore"
)

var (
	cfg    *config.Config
	logger zerolog.Logger
	source string
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
		Long: `Apply or roll back the marketplace schema.

Examples:
  migrate up              # Apply pending Postgres migrations and create
                          # the sqlite/mysql persistence tables if selected
  migrate down --steps 1  # Revert the last Postgres migration`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			logger, _, err = logging.New(cfg.Logging)
			return err
		},
	}
	rootCmd.PersistentFlags().StringVar(&source, "source", "file://migrations", "migration source URL")

	rootCmd.AddCommand(upCmd(), downCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Info().Str("host", cfg.Database.Host).Int("port", cfg.Database.Port).Msg("migrating catalog database")
			if err := postgres.RunMigrations(cfg.Database.DSN(), source, logger); err != nil {
				return err
			}

			switch cfg.Persistence.Driver {
			case config.DriverSQLite, config.DriverMySQL:
				ctx := context.Background()
				store, err := sqlstore.Open(ctx, cfg.Persistence.Driver, cfg.Persistence.DSN)
				if err != nil {
					return err
				}
				defer store.Close()
				if err := store.Migrate(ctx); err != nil {
					return err
				}
				logger.Info().Str("driver", cfg.Persistence.Driver).Msg("persistence tables ready")
			}
			return nil
		},
	}
}

func downCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			return postgres.RollbackMigrations(cfg.Database.DSN(), source, steps, logger)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert")

	return cmd
}
