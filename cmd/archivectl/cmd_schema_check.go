package main

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/majibrin/birinbolawa/internal/config"
)

var submissionColumns = []string{
	"id",
	"reference_code",
	"title",
	"description",
	"category",
	"contributor_name",
	"contributor_age",
	"contributor_relation",
	"contact_info",
	"estimated_period",
	"location_details",
	"media_urls",
	"status",
	"created_at",
	"verified_at",
}

var schemaCheckCmd = &cobra.Command{
	Use:   "schema-check",
	Short: "Compare the live Postgres submissions table with the expected columns",
	Long: `Connects straight to Postgres and lists the columns of the submissions
table. Exits non-zero when any expected column is missing, which usually
means "archivectl migrate" has not been run.`,
	Args: cobra.NoArgs,
	RunE: runSchemaCheck,
}

func runSchemaCheck(cmd *cobra.Command, args []string) error {
	cfg := config.Read()
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("schema-check needs DB_DRIVER=postgres, got %q", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1`, "submissions")
	if err != nil {
		return fmt.Errorf("failed to read columns: %w", err)
	}
	defer rows.Close()

	var actual []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to read columns: %w", err)
		}
		actual = append(actual, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read columns: %w", err)
	}

	if len(actual) == 0 {
		return fmt.Errorf("table submissions does not exist")
	}

	missing, extra := diffColumns(submissionColumns, actual)
	for _, column := range extra {
		fmt.Fprintf(cmd.OutOrStdout(), "extra column: %s\n", column)
	}
	if len(missing) > 0 {
		for _, column := range missing {
			fmt.Fprintf(cmd.OutOrStdout(), "missing column: %s\n", column)
		}
		return fmt.Errorf("submissions is missing %d column(s), run archivectl migrate", len(missing))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "submissions has all %d expected columns\n", len(submissionColumns))
	return nil
}

// diffColumns returns the expected columns absent from actual and the actual
// columns nobody expects, both sorted.
func diffColumns(expected, actual []string) (missing, extra []string) {
	have := make(map[string]bool, len(actual))
	for _, column := range actual {
		have[column] = true
	}
	want := make(map[string]bool, len(expected))
	for _, column := range expected {
		want[column] = true
		if !have[column] {
			missing = append(missing, column)
		}
	}
	for _, column := range actual {
		if !want[column] {
			extra = append(extra, column)
		}
	}

	sort.Strings(missing)
	sort.Strings(extra)
	return missing, extra
}
