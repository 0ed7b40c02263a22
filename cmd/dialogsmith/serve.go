package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"dialogsmith/internal/config"
	"dialogsmith/internal/engine"
	"dialogsmith/internal/mcp"
	"dialogsmith/internal/store"
)

func serveCmd() *cobra.Command {
	var journal bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP playback server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(journal)
		},
	}
	cmd.Flags().BoolVar(&journal, "journal", false, "Record session events in the database")
	return cmd
}

// playbackHost holds what the network front ends share.
type playbackHost struct {
	cfg     *config.ProjectConfig
	logger  *slog.Logger
	manager *engine.Manager
	db      store.Store
	start   int
	close   func()
}

func newPlaybackHost(ctx context.Context, journal bool) (*playbackHost, error) {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return nil, err
	}
	vars, err := cfg.DeclaredVariables()
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := openSessionLog(cfg)
	if err != nil {
		return nil, err
	}
	sink := engine.LogSink(logger)

	g, err := loadGraph(ctx, cfg, sink)
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	h := &playbackHost{
		cfg:    cfg,
		logger: logger,
		manager: engine.NewManager(g,
			engine.WithSeed(cfg.Seed),
			engine.WithVariables(vars),
			engine.WithSink(sink),
		),
		start: startNode(cfg, g, 0),
	}
	if journal {
		h.db, err = openDB(ctx, cfg)
		if err != nil {
			_ = closeLog()
			return nil, err
		}
	}
	h.close = func() {
		if h.db != nil {
			_ = h.db.Close(context.Background())
		}
		_ = closeLog()
	}
	return h, nil
}

func runServe(journal bool) error {
	ctx := context.Background()

	host, err := newPlaybackHost(ctx, journal)
	if err != nil {
		return err
	}
	defer host.close()

	var j mcp.Journal
	if host.db != nil {
		j = host.db
	}
	server := mcp.NewServer(host.manager, j, host.start, version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
