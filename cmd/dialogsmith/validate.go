package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"dialogsmith/internal/config"
	"dialogsmith/internal/validate"
)

func validateCmd() *cobra.Command {
	var start int
	var showInfo bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run consistency checks against the dialogue graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(start, showInfo)
		},
	}
	cmd.Flags().IntVar(&start, "start", 0, "Start node for the reachability check (default start_id)")
	cmd.Flags().BoolVar(&showInfo, "info", false, "Also print informational findings")
	return cmd
}

func runValidate(start int, showInfo bool) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return err
	}
	vars, err := cfg.DeclaredVariables()
	if err != nil {
		return err
	}

	g, err := loadGraph(ctx, cfg, nil)
	if err != nil {
		return err
	}

	report, err := validate.Run(g, validate.Options{Start: startNode(cfg, g, start), Variables: vars})
	if err != nil {
		return err
	}

	var errorIssues, warnIssues, infoIssues []validate.Issue
	for _, issue := range report.Issues {
		switch issue.Severity {
		case validate.SeverityError:
			errorIssues = append(errorIssues, issue)
		case validate.SeverityWarn:
			warnIssues = append(warnIssues, issue)
		case validate.SeverityInfo:
			infoIssues = append(infoIssues, issue)
		}
	}
	if !showInfo {
		infoIssues = nil
	}

	if len(errorIssues) == 0 && len(warnIssues) == 0 && len(infoIssues) == 0 {
		fmt.Fprintln(os.Stdout, "No issues found.")
		return nil
	}

	sections := []struct {
		title  string
		issues []validate.Issue
	}{
		{"Errors", errorIssues},
		{"Warnings", warnIssues},
		{"Info", infoIssues},
	}
	printed := false
	for _, section := range sections {
		if len(section.issues) == 0 {
			continue
		}
		if printed {
			fmt.Fprintln(os.Stdout, "")
		}
		fmt.Fprintf(os.Stdout, "%s (%d):\n", section.title, len(section.issues))
		printIssues(os.Stdout, section.issues)
		printed = true
	}

	if report.HasErrors() {
		return fmt.Errorf("validation found errors")
	}
	return nil
}

func printIssues(out io.Writer, issues []validate.Issue) {
	for _, issue := range issues {
		location := "graph"
		switch {
		case issue.NodeID != 0 && issue.Row != 0:
			location = fmt.Sprintf("node %d (row %d)", issue.NodeID, issue.Row)
		case issue.NodeID != 0:
			location = fmt.Sprintf("node %d", issue.NodeID)
		case issue.Row != 0:
			location = fmt.Sprintf("row %d", issue.Row)
		}
		fmt.Fprintf(out, "  - %s: %s (%s)\n", location, issue.Message, issue.Code)
	}
}
