package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dialogsmith/internal/config"
	"dialogsmith/internal/grammar"
)

func nodesCmd() *cobra.Command {
	var speaker string
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List dialogue nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNodes(speaker)
		},
	}
	cmd.Flags().StringVar(&speaker, "speaker", "", "Filter by speaker")
	return cmd
}

func runNodes(speaker string) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return err
	}
	g, err := loadGraph(ctx, cfg, nil)
	if err != nil {
		return err
	}

	count := 0
	for _, id := range g.IDs() {
		node, _ := g.Node(id)
		if speaker != "" && !strings.EqualFold(node.Speaker, speaker) {
			continue
		}
		text := "-"
		if len(node.TextPool) > 0 {
			text = truncate(node.TextPool[0].Text, 48)
		}
		marker := ""
		if node.IsTerminal() {
			marker = " [end]"
		}
		fmt.Fprintf(os.Stdout, "%4d  %-12s %-10s %d choice(s)  %s%s\n", node.ID, node.Speaker, node.Emotion, len(node.Choices), text, marker)
		count++
	}
	if count == 0 {
		fmt.Fprintln(os.Stdout, "No nodes found.")
	}
	return nil
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid node id %q", args[0])
			}
			return runShow(id)
		},
	}
}

func runShow(id int) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return err
	}
	g, err := loadGraph(ctx, cfg, nil)
	if err != nil {
		return err
	}
	node, ok := g.Node(id)
	if !ok {
		return fmt.Errorf("node %d not found", id)
	}

	fmt.Fprintf(os.Stdout, "Node %d\n", node.ID)
	fmt.Fprintf(os.Stdout, "  Speaker: %s\n", node.Speaker)
	fmt.Fprintf(os.Stdout, "  Emotion: %s\n", node.Emotion)
	if node.Audio != "" {
		fmt.Fprintf(os.Stdout, "  Audio:   %s\n", node.Audio)
	}
	if node.Effect != "" {
		fmt.Fprintf(os.Stdout, "  Effect:  %s\n", node.Effect)
	}

	if len(node.TextPool) > 0 {
		total := grammar.TotalWeight(node.TextPool)
		fmt.Fprintln(os.Stdout, "  Text:")
		for _, entry := range node.TextPool {
			fmt.Fprintf(os.Stdout, "    %5.1f%%  %s\n", 100*entry.Weight/total, entry.Text)
		}
	}

	if len(node.Choices) == 0 {
		fmt.Fprintln(os.Stdout, "  Terminal node.")
		return nil
	}
	fmt.Fprintln(os.Stdout, "  Choices:")
	for i, c := range node.Choices {
		fmt.Fprintf(os.Stdout, "    %d. %s\n", i+1, grammar.FormatChoice(c))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
