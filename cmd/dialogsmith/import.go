package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dialogsmith/internal/config"
	"dialogsmith/internal/ingest"
)

var importFull bool

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy the dialogue CSV into the configured database",
		RunE:  runImport,
	}
	cmd.Flags().BoolVar(&importFull, "full", false, "Re-import even if the CSV is unchanged")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Source.CSV == "" {
		return fmt.Errorf("source.csv is not configured")
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	result, err := ingest.Run(ctx, cfg.Source.CSV, db, ingest.Options{Full: importFull})
	if err != nil {
		return err
	}

	if result.Skipped {
		fmt.Fprintf(os.Stdout, "%s unchanged, skipped (%d rows).\n", result.Path, result.Rows)
		return nil
	}
	fmt.Fprintln(os.Stdout, "Import complete.")
	fmt.Fprintf(os.Stdout, "  Rows stored:  %d\n", result.Rows)
	fmt.Fprintf(os.Stdout, "  Nodes loaded: %d\n", result.Nodes)
	printWarnings(result.Warnings)
	return nil
}
