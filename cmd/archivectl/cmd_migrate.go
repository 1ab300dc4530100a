package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/majibrin/birinbolawa/internal/database"
)

var migrateDryRun bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Applies every versioned migration not yet recorded in schema_migrations.
Databases created before verified_at or reference_code existed are brought
forward in place.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "list pending migrations without applying them")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	_, log, err := openDatabase()
	if err != nil {
		return err
	}
	defer log.Sync()

	pending, err := database.PendingMigrations(database.GetDB())
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
		return nil
	}

	for _, migration := range pending {
		fmt.Fprintf(cmd.OutOrStdout(), "pending %03d_%s\n", migration.Version, migration.Name)
	}
	if migrateDryRun {
		return nil
	}

	applied, err := database.Migrate(database.GetDB())
	if err != nil {
		return err
	}

	log.Info("Migrations applied", zap.Int("count", applied))
	fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s)\n", applied)
	return nil
}
