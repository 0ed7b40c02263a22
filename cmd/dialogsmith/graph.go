package main

import (
	"context"
	"fmt"
	"os"

	"dialogsmith/internal/config"
	"dialogsmith/internal/dialog"
	"dialogsmith/internal/engine"
)

// loadGraph reads the configured source and reports load events to sink.
func loadGraph(ctx context.Context, cfg *config.ProjectConfig, sink engine.Sink) (*dialog.Graph, error) {
	var rows []dialog.Row
	if fromDB {
		db, err := openDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		defer db.Close(ctx)

		rows, err = db.LoadNodes(ctx)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("no dialogue rows in %s; run import first", cfg.Source.DSN)
		}
	} else {
		if cfg.Source.CSV == "" {
			return nil, fmt.Errorf("source.csv is not configured")
		}
		f, err := os.Open(cfg.Source.CSV)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", cfg.Source.CSV, err)
		}
		defer f.Close()

		rows, err = dialog.ReadCSV(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", cfg.Source.CSV, err)
		}
	}
	return engine.LoadGraph(rows, sink)
}

// startNode resolves the node a session begins at: the flag, then start_id,
// then the smallest id in the graph.
func startNode(cfg *config.ProjectConfig, g *dialog.Graph, flag int) int {
	if flag > 0 {
		return flag
	}
	if cfg.StartID > 0 {
		return cfg.StartID
	}
	if ids := g.IDs(); len(ids) > 0 {
		return ids[0]
	}
	return 0
}

func printWarnings(warnings []dialog.Warning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(os.Stdout, "\nWarnings (%d):\n", len(warnings))
	for _, w := range warnings {
		fmt.Fprintf(os.Stdout, "  - row %d: %s (%s)\n", w.Row, w.Message, w.Kind)
	}
}
