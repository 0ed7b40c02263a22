package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"dialogsmith/internal/wsplay"
)

func wsCmd() *cobra.Command {
	var journal bool
	var addr string
	cmd := &cobra.Command{
		Use:   "ws",
		Short: "Serve playback sessions over WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWS(addr, journal)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default serve.addr)")
	cmd.Flags().BoolVar(&journal, "journal", false, "Record session events in the database")
	return cmd
}

func runWS(addr string, journal bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	host, err := newPlaybackHost(ctx, journal)
	if err != nil {
		return err
	}
	defer host.close()

	if addr == "" {
		addr = host.cfg.Serve.Addr
	}
	var j wsplay.Journal
	if host.db != nil {
		j = host.db
	}

	mux := http.NewServeMux()
	mux.Handle("/play", wsplay.NewHandler(host.manager, j, host.start, host.logger))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	fmt.Fprintf(os.Stdout, "Serving playback on ws://%s/play\n", addr)
	host.logger.Info("websocket server started", "addr", addr)

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
