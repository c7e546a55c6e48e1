package main

import (
	"context"
	"fmt"
	"time"

	"github.com/concordtech/contact-api/config"
	"github.com/concordtech/contact-api/internal/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const migrationTimeout = 5 * time.Minute

func newMigrateCmd(logger *log.Logger) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert the submissions schema",
		Long: `Runs the SQL migrations for DATABASE_DRIVER (postgres or sqlite).

Migrations are embedded in the binary; set MIGRATIONS_DIR to use a directory instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd.Context(), logger, "up", config.MigrateUp)
		},
	}

	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigration(cmd.Context(), logger, "up", config.MigrateUp)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert every applied migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigration(cmd.Context(), logger, "down", config.MigrateDown)
			},
		},
	)

	return migrateCmd
}

type migrateFunc func(ctx context.Context, logger *log.Logger, db *gorm.DB, cfg *config.DBConfig) error

func runMigration(parent context.Context, logger *log.Logger, direction string, apply migrateFunc) error {
	if parent == nil {
		parent = context.Background()
	}

	dbCfg := config.NewDBConfig()
	db, err := config.NewDatabase(logger, dbCfg)
	if err != nil {
		logger.Error("Failed to connect to database for migration", "error", err.Error())
		return err
	}

	ctx, cancel := context.WithTimeout(parent, migrationTimeout)
	defer cancel()

	// The migration driver closes the connection when it finishes.
	if err := apply(ctx, logger, db, dbCfg); err != nil {
		logger.Error("Database migration failed", "direction", direction, "error", err.Error())
		return fmt.Errorf("migrate %s: %w", direction, err)
	}

	logger.Info("Database migrations completed", "direction", direction)
	return nil
}
