package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/majibrin/birinbolawa/internal/database"
	"github.com/majibrin/birinbolawa/internal/repository"
	"github.com/majibrin/birinbolawa/internal/services"
)

var (
	exportStatus string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write submissions to a JSON file",
	Long: `Exports submissions in the same format as the dashboard download.
Without --out the file is named <site>-submissions-<YYYY-MM-DD>.json; use
--out - to write to stdout.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportStatus, "status", services.StatusFilterAll, "pending, verified, rejected or all")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, log, err := openDatabase()
	if err != nil {
		return err
	}
	defer log.Sync()

	review := services.NewReviewService(repository.NewRepository(database.GetDB()), nil, cfg.App.SiteSlug, log)
	export, err := review.Export(cmd.Context(), exportStatus)
	if err != nil {
		return err
	}

	if exportOut == "-" {
		_, err := cmd.OutOrStdout().Write(append(export.Data, '\n'))
		return err
	}

	path := exportOut
	if path == "" {
		path = export.Filename
	}
	if err := os.WriteFile(path, export.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d submission(s) to %s\n", export.Count, path)
	return nil
}
