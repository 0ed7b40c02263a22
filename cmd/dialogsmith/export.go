package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dialogsmith/internal/config"
	"dialogsmith/internal/graphdb"
)

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export the dialogue graph to neo4j for visualization",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri is not configured")
	}

	g, err := loadGraph(ctx, cfg, nil)
	if err != nil {
		return err
	}

	client, err := graphdb.NewClient(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	if err := client.EnsureIndexes(ctx); err != nil {
		return err
	}
	result, err := client.Export(ctx, cfg.Project, g)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "Export complete.")
	fmt.Fprintf(os.Stdout, "  Nodes:        %d\n", result.Nodes)
	fmt.Fprintf(os.Stdout, "  Edges:        %d\n", result.Edges)
	fmt.Fprintf(os.Stdout, "  Placeholders: %d\n", result.Placeholders)
	return nil
}
