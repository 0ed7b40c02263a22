package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dialogsmith/internal/config"
)

func journalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "journal [session-id]",
		Short: "List recorded sessions, or print one session's events",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runJournalList()
			}
			return runJournalShow(args[0])
		},
	}
}

func runJournalList() error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return err
	}
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	sessions, err := db.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stdout, "No sessions recorded.")
		return nil
	}
	for _, s := range sessions {
		status := "open"
		if s.Ended {
			status = "ended"
		}
		fmt.Fprintf(os.Stdout, "%s  %s  %3d events  %s\n", s.Session, s.FirstAt.Local().Format(time.DateTime), s.Events, status)
	}
	return nil
}

func runJournalShow(session string) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return err
	}
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	entries, err := db.ListSessionEvents(ctx, session)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no events recorded for session %s", session)
	}
	for _, entry := range entries {
		fmt.Fprintf(os.Stdout, "%4d  %s  %s\n", entry.Seq, entry.RecordedAt.Local().Format(time.TimeOnly), entry.Event)
	}
	return nil
}
