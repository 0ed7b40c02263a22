package mcp

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"dialogsmith/internal/dialog"
	"dialogsmith/internal/engine"
	"dialogsmith/internal/validate"
)

type ListNodesInput struct {
	Speaker string `json:"speaker,omitempty" jsonschema:"restrict to a speaker"`
}

type GetNodeInput struct {
	ID int `json:"id" jsonschema:"node id"`
}

type ValidateGraphInput struct {
	Start int `json:"start,omitempty" jsonschema:"start node for the reachability check"`
}

type StartSessionInput struct {
	Start int    `json:"start,omitempty" jsonschema:"node to start at"`
	Seed  uint64 `json:"seed,omitempty" jsonschema:"random seed, 0 for a random one"`
}

type SubmitChoiceInput struct {
	Session string `json:"session" jsonschema:"session id"`
	Index   int    `json:"index" jsonschema:"0-based index into the offered choices"`
}

type SessionInput struct {
	Session string `json:"session" jsonschema:"session id"`
}

type NodeSummaryOutput struct {
	ID       int    `json:"id"`
	Speaker  string `json:"speaker"`
	Emotion  string `json:"emotion"`
	Player   bool   `json:"player"`
	Terminal bool   `json:"terminal"`
	Choices  int    `json:"choices"`
}

type ListNodesOutput struct {
	Nodes []NodeSummaryOutput `json:"nodes"`
}

type TextOutput struct {
	Weight float64 `json:"weight"`
	Text   string  `json:"text"`
}

type ChoiceOutput struct {
	Index     int    `json:"index"`
	Text      string `json:"text,omitempty"`
	NextID    int    `json:"next_id,omitempty"`
	Condition string `json:"condition,omitempty"`
	Effect    string `json:"effect,omitempty"`
	Auto      bool   `json:"auto"`
}

type NodeOutput struct {
	ID      int            `json:"id"`
	Speaker string         `json:"speaker"`
	Emotion string         `json:"emotion"`
	Audio   string         `json:"audio,omitempty"`
	Effect  string         `json:"effect,omitempty"`
	Texts   []TextOutput   `json:"texts"`
	Choices []ChoiceOutput `json:"choices"`
}

type IssueOutput struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	NodeID   int    `json:"node_id,omitempty"`
	Row      int    `json:"row,omitempty"`
}

type ValidateGraphOutput struct {
	Errors   int           `json:"errors"`
	Warnings int           `json:"warnings"`
	Issues   []IssueOutput `json:"issues"`
}

type PlaybackOutput struct {
	Session engine.View    `json:"session"`
	Events  []engine.Event `json:"events"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_nodes",
		Description: "List dialogue nodes in id order",
	}, s.handleListNodes)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_node",
		Description: "Retrieve a node with its text pool and choices",
	}, s.handleGetNode)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "validate_graph",
		Description: "Lint the loaded graph",
	}, s.handleValidateGraph)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "start_session",
		Description: "Start a playback session and run it to the first choice",
	}, s.handleStartSession)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "submit_choice",
		Description: "Select one of the offered choices",
	}, s.handleSubmitChoice)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "cancel_session",
		Description: "End a session without applying any effect",
	}, s.handleCancelSession)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_state",
		Description: "Return a session's position, offered choices and game state",
	}, s.handleGetState)
}

func (s *Server) handleListNodes(ctx context.Context, req *sdk.CallToolRequest, input ListNodesInput) (*sdk.CallToolResult, ListNodesOutput, error) {
	g := s.manager.Graph()
	output := make([]NodeSummaryOutput, 0, g.Len())
	for _, id := range g.IDs() {
		node, _ := g.Node(id)
		if input.Speaker != "" && !strings.EqualFold(node.Speaker, input.Speaker) {
			continue
		}
		output = append(output, NodeSummaryOutput{
			ID:       node.ID,
			Speaker:  node.Speaker,
			Emotion:  string(node.Emotion),
			Player:   node.IsPlayer(),
			Terminal: node.IsTerminal(),
			Choices:  len(node.Choices),
		})
	}
	return nil, ListNodesOutput{Nodes: output}, nil
}

func (s *Server) handleGetNode(ctx context.Context, req *sdk.CallToolRequest, input GetNodeInput) (*sdk.CallToolResult, NodeOutput, error) {
	if input.ID <= 0 {
		return nil, NodeOutput{}, fmt.Errorf("id is required")
	}
	node, ok := s.manager.Graph().Node(input.ID)
	if !ok {
		return nil, NodeOutput{}, fmt.Errorf("node %d not found", input.ID)
	}
	return nil, nodeOutputFromGraph(node), nil
}

func (s *Server) handleValidateGraph(ctx context.Context, req *sdk.CallToolRequest, input ValidateGraphInput) (*sdk.CallToolResult, ValidateGraphOutput, error) {
	start := input.Start
	if start == 0 {
		start = s.start
	}
	report, err := validate.Run(s.manager.Graph(), validate.Options{Start: start})
	if err != nil {
		return nil, ValidateGraphOutput{}, err
	}

	output := ValidateGraphOutput{
		Errors:   report.Count(validate.SeverityError),
		Warnings: report.Count(validate.SeverityWarn),
		Issues:   make([]IssueOutput, 0, len(report.Issues)),
	}
	for _, issue := range report.Issues {
		output.Issues = append(output.Issues, IssueOutput{
			Severity: string(issue.Severity),
			Code:     issue.Code,
			Message:  issue.Message,
			NodeID:   issue.NodeID,
			Row:      issue.Row,
		})
	}
	return nil, output, nil
}

func (s *Server) handleStartSession(ctx context.Context, req *sdk.CallToolRequest, input StartSessionInput) (*sdk.CallToolResult, PlaybackOutput, error) {
	start := input.Start
	if start == 0 {
		start = s.start
	}
	var opts []engine.Option
	if input.Seed != 0 {
		opts = append(opts, engine.WithSeed(input.Seed))
	}
	view, events, err := s.manager.Start(start, opts...)
	if err != nil {
		return nil, PlaybackOutput{}, err
	}
	return s.playback(ctx, view, events)
}

func (s *Server) handleSubmitChoice(ctx context.Context, req *sdk.CallToolRequest, input SubmitChoiceInput) (*sdk.CallToolResult, PlaybackOutput, error) {
	if input.Session == "" {
		return nil, PlaybackOutput{}, fmt.Errorf("session is required")
	}
	view, events, err := s.manager.Submit(input.Session, input.Index)
	if err != nil {
		return nil, PlaybackOutput{}, err
	}
	return s.playback(ctx, view, events)
}

func (s *Server) handleCancelSession(ctx context.Context, req *sdk.CallToolRequest, input SessionInput) (*sdk.CallToolResult, PlaybackOutput, error) {
	if input.Session == "" {
		return nil, PlaybackOutput{}, fmt.Errorf("session is required")
	}
	view, events, err := s.manager.Cancel(input.Session)
	if err != nil {
		return nil, PlaybackOutput{}, err
	}
	return s.playback(ctx, view, events)
}

func (s *Server) handleGetState(ctx context.Context, req *sdk.CallToolRequest, input SessionInput) (*sdk.CallToolResult, engine.View, error) {
	if input.Session == "" {
		return nil, engine.View{}, fmt.Errorf("session is required")
	}
	view, err := s.manager.Get(input.Session)
	if err != nil {
		return nil, engine.View{}, err
	}
	return nil, view, nil
}

// playback journals a step and forgets the session once its branch ended.
func (s *Server) playback(ctx context.Context, view engine.View, events []engine.Event) (*sdk.CallToolResult, PlaybackOutput, error) {
	if events == nil {
		events = []engine.Event{}
	}
	if view.Done {
		_ = s.manager.Remove(view.ID)
	}
	if s.journal != nil && len(events) > 0 {
		if err := s.journal.AppendEvents(ctx, events); err != nil {
			return nil, PlaybackOutput{}, fmt.Errorf("journaling session %s: %w", view.ID, err)
		}
	}
	return nil, PlaybackOutput{Session: view, Events: events}, nil
}

func nodeOutputFromGraph(node *dialog.Node) NodeOutput {
	texts := make([]TextOutput, 0, len(node.TextPool))
	for _, entry := range node.TextPool {
		texts = append(texts, TextOutput{Weight: entry.Weight, Text: entry.Text})
	}
	choices := make([]ChoiceOutput, 0, len(node.Choices))
	for i, c := range node.Choices {
		choices = append(choices, ChoiceOutput{
			Index:     i,
			Text:      c.Text,
			NextID:    c.NextID,
			Condition: c.Condition,
			Effect:    c.Effect,
			Auto:      c.IsAuto(),
		})
	}
	return NodeOutput{
		ID:      node.ID,
		Speaker: node.Speaker,
		Emotion: string(node.Emotion),
		Audio:   node.Audio,
		Effect:  node.Effect,
		Texts:   texts,
		Choices: choices,
	}
}
