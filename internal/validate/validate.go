// Package validate lints a loaded dialogue graph without playing it.
package validate

import (
	"errors"
	"fmt"
	"sort"

	"dialogsmith/internal/dialog"
	"dialogsmith/internal/eval"
	"dialogsmith/internal/state"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
	SeverityInfo  Severity = "info"
)

const (
	codeRowSkipped        = "row_skipped"
	codeParseFallback     = "parse_fallback"
	codeDanglingReference = "dangling_reference"
	codeMissingStart      = "missing_start"
	codeUnreachable       = "unreachable_node"
	codeInvalidCondition  = "invalid_condition"
	codeInvalidEffect     = "invalid_effect"
	codeAllConditional    = "player_choices_all_conditional"
	codeAutoCycle         = "auto_cycle"
	codeEmptyText         = "empty_text"
)

type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	NodeID   int      `json:"node_id,omitempty"`
	Row      int      `json:"row,omitempty"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

// Count returns how many issues have the given severity.
func (r *Report) Count(severity Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			n++
		}
	}
	return n
}

func (r *Report) HasErrors() bool { return r.Count(SeverityError) > 0 }

type Options struct {
	// Start enables the reachability check when positive.
	Start     int
	Variables map[string]state.Value
}

// Run checks g. Issues are ordered by node id, then by check.
func Run(g *dialog.Graph, opts Options) (*Report, error) {
	if g == nil {
		return nil, fmt.Errorf("graph is required")
	}
	base, err := state.New(opts.Variables)
	if err != nil {
		return nil, fmt.Errorf("declared variables: %w", err)
	}

	issues := make([]Issue, 0)
	issues = append(issues, loadIssues(g)...)

	for _, id := range g.IDs() {
		node, _ := g.Node(id)
		issues = append(issues, checkNode(node, base)...)
	}

	if opts.Start > 0 {
		issues = append(issues, checkReachability(g, opts.Start)...)
	}
	issues = append(issues, checkAutoCycles(g)...)

	sort.SliceStable(issues, func(i, j int) bool { return issues[i].NodeID < issues[j].NodeID })
	return &Report{Issues: issues}, nil
}

func loadIssues(g *dialog.Graph) []Issue {
	var issues []Issue
	for _, w := range g.Warnings() {
		issue := Issue{Severity: SeverityWarn, Message: w.Message, NodeID: w.NodeID, Row: w.Row}
		switch w.Kind {
		case dialog.WarnRowSkipped:
			issue.Severity = SeverityError
			issue.Code = codeRowSkipped
		case dialog.WarnDanglingReference:
			issue.Code = codeDanglingReference
		default:
			issue.Code = codeParseFallback
		}
		issues = append(issues, issue)
	}
	return issues
}

func checkNode(node *dialog.Node, base *state.GameState) []Issue {
	var issues []Issue
	if node.Effect != "" {
		if err := eval.CheckEffect(base, node.Effect); err != nil {
			issues = append(issues, effectIssue(node.ID, "node effect", err))
		}
	}

	conditional := 0
	visible := 0
	for i, c := range node.Choices {
		if err := eval.CheckCondition(c.Condition); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeInvalidCondition,
				Message:  fmt.Sprintf("choice %d: %v", i+1, err),
				NodeID:   node.ID,
			})
		}
		if c.Effect != "" {
			if err := eval.CheckEffect(base, c.Effect); err != nil {
				issues = append(issues, effectIssue(node.ID, fmt.Sprintf("choice %d effect", i+1), err))
			}
		}
		if !c.IsAuto() {
			visible++
			if c.Condition != "" {
				conditional++
			}
		}
	}

	if node.IsPlayer() && visible > 0 && conditional == visible {
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeAllConditional,
			Message:  "every choice is conditional; the node may offer nothing",
			NodeID:   node.ID,
		})
	}
	if len(node.TextPool) == 0 && !node.IsTerminal() && !node.IsPlayer() {
		issues = append(issues, Issue{
			Severity: SeverityInfo,
			Code:     codeEmptyText,
			Message:  "node has choices but nothing to say",
			NodeID:   node.ID,
		})
	}
	return issues
}

func effectIssue(nodeID int, where string, err error) Issue {
	var effErr *eval.EffectError
	msg := err.Error()
	if errors.As(err, &effErr) {
		msg = effErr.Err.Error()
	}
	return Issue{
		Severity: SeverityError,
		Code:     codeInvalidEffect,
		Message:  fmt.Sprintf("%s: %s", where, msg),
		NodeID:   nodeID,
	}
}

func checkReachability(g *dialog.Graph, start int) []Issue {
	if _, ok := g.Node(start); !ok {
		return []Issue{{
			Severity: SeverityError,
			Code:     codeMissingStart,
			Message:  fmt.Sprintf("start node %d does not exist", start),
		}}
	}
	reachable := make(map[int]bool)
	for _, id := range g.Reachable(start) {
		reachable[id] = true
	}
	var issues []Issue
	for _, id := range g.IDs() {
		if !reachable[id] {
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codeUnreachable,
				Message:  fmt.Sprintf("not reachable from node %d", start),
				NodeID:   id,
			})
		}
	}
	return issues
}

// checkAutoCycles finds loops a session would walk without ever stopping
// for the player: chains of all-auto nodes that come back on themselves.
func checkAutoCycles(g *dialog.Graph) []Issue {
	next := func(id int) (int, bool) {
		node, ok := g.Node(id)
		if !ok || !node.AllAuto() || node.Choices[0].Ends() {
			return 0, false
		}
		return node.Choices[0].NextID, true
	}

	reported := make(map[int]bool)
	var issues []Issue
	for _, id := range g.IDs() {
		seen := map[int]bool{}
		cur := id
		looped := false
		for {
			if seen[cur] {
				looped = true
				break
			}
			seen[cur] = true
			n, ok := next(cur)
			if !ok {
				break
			}
			cur = n
		}
		if !looped || reported[cur] {
			continue
		}
		// cur lies on the cycle; mark every member so it is reported once
		member := cur
		for {
			reported[member] = true
			member, _ = next(member)
			if member == cur {
				break
			}
		}
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     codeAutoCycle,
			Message:  "automatic transitions loop without player input",
			NodeID:   cur,
		})
	}
	return issues
}
