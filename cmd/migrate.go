package cmd

import (
	"fmt"

	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrate(database.MigrateUp, "migrate up: ok"),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the last migration",
	RunE:  runMigrate(database.MigrateDown, "migrate down: ok"),
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print migration status",
	RunE:  runMigrate(database.MigrateStatus, "migrate status: ok"),
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

func runMigrate(fn func(databaseURL string, log *zap.Logger) error, done string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		if err := fn(cfg.DatabaseURL(), log); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info(done)
		return nil
	}
}
