package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dialogsmith/internal/config"
)

func edgesCmd() *cobra.Command {
	var start int
	cmd := &cobra.Command{
		Use:   "edges",
		Short: "List transitions between nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdges(cmd.Flags().Changed("start"), start)
		},
	}
	cmd.Flags().IntVar(&start, "start", 0, "Only list edges reachable from this node")
	return cmd
}

func runEdges(restrict bool, start int) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return err
	}
	g, err := loadGraph(ctx, cfg, nil)
	if err != nil {
		return err
	}

	var reachable map[int]bool
	if restrict {
		reachable = make(map[int]bool)
		for _, id := range g.Reachable(startNode(cfg, g, start)) {
			reachable[id] = true
		}
	}

	count := 0
	for _, e := range g.Edges() {
		if reachable != nil && !reachable[e.From] {
			continue
		}
		label := e.Text
		if e.Auto {
			label = "(auto)"
		}
		fmt.Fprintf(os.Stdout, "%4d -> %-4d %s", e.From, e.To, label)
		if e.Condition != "" {
			fmt.Fprintf(os.Stdout, " [%s]", e.Condition)
		}
		if e.Effect != "" {
			fmt.Fprintf(os.Stdout, " {%s}", e.Effect)
		}
		if e.Dangling {
			fmt.Fprint(os.Stdout, "  DANGLING")
		}
		fmt.Fprintln(os.Stdout)
		count++
	}
	if count == 0 {
		fmt.Fprintln(os.Stdout, "No edges found.")
	}
	if reachable != nil {
		fmt.Fprintf(os.Stdout, "\n%d of %d nodes reachable.\n", len(reachable), g.Len())
	}
	return nil
}
