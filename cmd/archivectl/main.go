// archivectl is the operator CLI for the heritage archive: schema
// migrations, schema checks, exports and password hashing.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/majibrin/birinbolawa/internal/config"
	"github.com/majibrin/birinbolawa/internal/database"
	"github.com/majibrin/birinbolawa/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "archivectl",
	Short:         "Operate the Birin Bolawa heritage archive",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd, schemaCheckCmd, exportCmd, hashPasswordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openDatabase connects using only the database part of the configuration
func openDatabase() (*config.Config, *zap.Logger, error) {
	cfg := config.Read()
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, nil, err
	}

	log, err := logger.NewLogger(cfg.Server.Environment)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if err := database.Connect(cfg.Database.Driver, cfg.DatabaseDSN(), log); err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
