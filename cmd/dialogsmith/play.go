package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dialogsmith/internal/config"
	"dialogsmith/internal/engine"
	"dialogsmith/internal/store"
)

type playOptions struct {
	start   int
	seed    uint64
	timeout time.Duration
	journal bool
}

func playCmd() *cobra.Command {
	var opts playOptions
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the dialogue in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts)
		},
	}
	cmd.Flags().IntVar(&opts.start, "start", 0, "Start node (default start_id, then the lowest id)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "Random seed for text selection (default from config, 0 for random)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Cancel if no choice is made within this long")
	cmd.Flags().BoolVar(&opts.journal, "journal", false, "Record the session's events in the database")
	return cmd
}

func runPlay(opts playOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return err
	}
	vars, err := cfg.DeclaredVariables()
	if err != nil {
		return err
	}

	logger, closeLog, err := openSessionLog(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	sink := engine.LogSink(logger)

	g, err := loadGraph(ctx, cfg, sink)
	if err != nil {
		return err
	}
	if n := len(g.Warnings()); n > 0 {
		fmt.Fprintf(os.Stdout, "Loaded with %d warning(s); run validate for details.\n\n", n)
	}

	var journal func([]engine.Event) error
	if opts.journal {
		db, err := openDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close(context.Background())
		journal = journalWriter(db)
	}

	seed := opts.seed
	if seed == 0 {
		seed = cfg.Seed
	}
	session, events, err := engine.Start(g, startNode(cfg, g, opts.start),
		engine.WithSeed(seed),
		engine.WithVariables(vars),
		engine.WithSink(sink),
	)
	if err != nil {
		return err
	}

	p := &player{out: os.Stdout, timeout: opts.timeout, journal: journal}
	if err := p.play(ctx, session, events, readLines(os.Stdin)); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\nSession %s (seed %d)\n", session.ID(), session.Seed())
	return nil
}

func journalWriter(db store.Store) func([]engine.Event) error {
	return func(events []engine.Event) error {
		return db.AppendEvents(context.Background(), events)
	}
}

func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// player drives a session from console input. End of input, an interrupt or
// an expired timeout cancel the session.
type player struct {
	out     io.Writer
	timeout time.Duration
	journal func([]engine.Event) error
}

func (p *player) play(ctx context.Context, session *engine.Session, events []engine.Event, lines <-chan string) error {
	if err := p.step(events); err != nil {
		return err
	}
	for !session.Done() {
		line, ok := p.await(ctx, lines)
		if !ok {
			fmt.Fprintln(p.out)
			events, err := session.Cancel()
			if err != nil {
				return err
			}
			if err := p.step(events); err != nil {
				return err
			}
			continue
		}

		line = strings.TrimSpace(line)
		switch strings.ToLower(line) {
		case "q", "quit", "exit":
			events, err := session.Cancel()
			if err != nil {
				return err
			}
			if err := p.step(events); err != nil {
				return err
			}
			continue
		}

		n, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintf(p.out, "Enter a choice number, or q to quit.\n> ")
			continue
		}
		events, err := session.Submit(n - 1)
		if errors.Is(err, engine.ErrInvalidChoice) {
			fmt.Fprintf(p.out, "No choice %d.\n> ", n)
			continue
		}
		if err != nil {
			return err
		}
		if err := p.step(events); err != nil {
			return err
		}
	}
	return nil
}

func (p *player) await(ctx context.Context, lines <-chan string) (string, bool) {
	var expired <-chan time.Time
	if p.timeout > 0 {
		timer := time.NewTimer(p.timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case line, ok := <-lines:
		return line, ok
	case <-expired:
		fmt.Fprint(p.out, "\n(timed out)")
		return "", false
	case <-ctx.Done():
		return "", false
	}
}

func (p *player) step(events []engine.Event) error {
	printEvents(p.out, events)
	if p.journal == nil || len(events) == 0 {
		return nil
	}
	if err := p.journal(events); err != nil {
		return fmt.Errorf("journaling events: %w", err)
	}
	return nil
}

func printEvents(out io.Writer, events []engine.Event) {
	for _, e := range events {
		switch e.Kind {
		case engine.KindTextShown:
			fmt.Fprintf(out, "%s (%s): %s\n", e.Line.Speaker, e.Line.Emotion, e.Line.Text)
		case engine.KindEffectFailed:
			fmt.Fprintf(out, "  ! effect %q failed: %s\n", e.Statement, e.Message)
		case engine.KindConditionFailed:
			fmt.Fprintf(out, "  ! condition %q failed: %s\n", e.Statement, e.Message)
		case engine.KindDanglingReference:
			fmt.Fprintf(out, "  ! node %d does not exist\n", e.NodeID)
		case engine.KindChoicesOffered:
			for _, c := range e.Choices {
				fmt.Fprintf(out, "  %d. %s\n", c.Index+1, c.Text)
			}
			fmt.Fprint(out, "> ")
		case engine.KindBranchEnded:
			fmt.Fprintf(out, "-- end (%s) --\n", e.Reason)
		}
	}
}
