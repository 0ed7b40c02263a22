package mcp

import (
	"context"
	"errors"
	"testing"

	"dialogsmith/internal/dialog"
	"dialogsmith/internal/engine"
)

type mockJournal struct {
	events []engine.Event
	err    error
}

func (m *mockJournal) AppendEvents(ctx context.Context, events []engine.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, events...)
	return nil
}

func testServer(t *testing.T, journal Journal) *Server {
	t.Helper()
	g, err := dialog.Load([]dialog.Row{
		{ID: "1", Speaker: "Anna", TextPool: "Evening.", PlayerChoices: "➔2"},
		{ID: "2", Speaker: "Player", TextPool: "-", PlayerChoices: "Ask about the ship ➔3 [HasFlag('Ship')]|Leave ➔4"},
		{ID: "3", Speaker: "Anna", TextPool: "She sails at dawn.", PlayerChoices: "➔4"},
		{ID: "4", Speaker: "Anna", TextPool: "Goodbye.", PlayerChoices: "-"},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return NewServer(engine.NewManager(g, engine.WithSeed(7)), journal, 1, "test")
}

func TestListNodes(t *testing.T) {
	server := testServer(t, nil)

	_, output, err := server.handleListNodes(context.Background(), nil, ListNodesInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Nodes) != 4 || output.Nodes[0].ID != 1 || !output.Nodes[1].Player || !output.Nodes[3].Terminal {
		t.Fatalf("unexpected list output: %+v", output)
	}

	_, output, err = server.handleListNodes(context.Background(), nil, ListNodesInput{Speaker: "player"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Nodes) != 1 || output.Nodes[0].ID != 2 {
		t.Fatalf("unexpected filtered output: %+v", output)
	}
}

func TestGetNode(t *testing.T) {
	server := testServer(t, nil)

	_, output, err := server.handleGetNode(context.Background(), nil, GetNodeInput{ID: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Choices) != 2 || output.Choices[0].Condition != "HasFlag('Ship')" || output.Choices[1].NextID != 4 {
		t.Fatalf("unexpected node output: %+v", output)
	}
}

func TestGetNode_NotFound(t *testing.T) {
	server := testServer(t, nil)

	if _, _, err := server.handleGetNode(context.Background(), nil, GetNodeInput{ID: 99}); err == nil {
		t.Fatalf("expected error")
	}
	if _, _, err := server.handleGetNode(context.Background(), nil, GetNodeInput{}); err == nil {
		t.Fatalf("expected error for missing id")
	}
}

func TestValidateGraph(t *testing.T) {
	server := testServer(t, nil)

	_, output, err := server.handleValidateGraph(context.Background(), nil, ValidateGraphInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Errors != 0 {
		t.Fatalf("unexpected issues: %+v", output.Issues)
	}
}

func TestPlayback(t *testing.T) {
	journal := &mockJournal{}
	server := testServer(t, journal)
	ctx := context.Background()

	_, started, err := server.handleStartSession(ctx, nil, StartSessionInput{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Session.ID == "" || started.Session.Current != 2 || started.Session.Done {
		t.Fatalf("unexpected session: %+v", started.Session)
	}
	if len(started.Session.Offered) != 1 || started.Session.Offered[0].Text != "Leave" {
		t.Fatalf("unexpected offered choices: %+v", started.Session.Offered)
	}

	if _, _, err := server.handleSubmitChoice(ctx, nil, SubmitChoiceInput{Session: started.Session.ID, Index: 5}); !errors.Is(err, engine.ErrInvalidChoice) {
		t.Fatalf("expected ErrInvalidChoice, got %v", err)
	}

	_, submitted, err := server.handleSubmitChoice(ctx, nil, SubmitChoiceInput{Session: started.Session.ID, Index: 0})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !submitted.Session.Done || submitted.Session.Reason != engine.ReasonNoChoices {
		t.Fatalf("unexpected session after submit: %+v", submitted.Session)
	}

	if submitted.Session.Current != 4 {
		t.Fatalf("current = %d, want 4", submitted.Session.Current)
	}
	if _, _, err := server.handleGetState(ctx, nil, SessionInput{Session: started.Session.ID}); !errors.Is(err, engine.ErrSessionNotFound) {
		t.Fatalf("ended session still registered: %v", err)
	}

	if len(journal.events) != len(started.Events)+len(submitted.Events) {
		t.Fatalf("journaled %d events, want %d", len(journal.events), len(started.Events)+len(submitted.Events))
	}
}

func TestCancelSession(t *testing.T) {
	server := testServer(t, nil)
	ctx := context.Background()

	_, started, err := server.handleStartSession(ctx, nil, StartSessionInput{Start: 2})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	_, cancelled, err := server.handleCancelSession(ctx, nil, SessionInput{Session: started.Session.ID})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Session.Reason != engine.ReasonCancelled {
		t.Fatalf("reason = %q", cancelled.Session.Reason)
	}
	if ids := server.manager.IDs(); len(ids) != 0 {
		t.Fatalf("cancelled session still registered: %v", ids)
	}
}

func TestGetStateWhileAwaiting(t *testing.T) {
	server := testServer(t, nil)
	ctx := context.Background()

	_, started, err := server.handleStartSession(ctx, nil, StartSessionInput{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	_, view, err := server.handleGetState(ctx, nil, SessionInput{Session: started.Session.ID})
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if view.Current != 2 || view.Done {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestUnknownSession(t *testing.T) {
	server := testServer(t, nil)

	_, _, err := server.handleSubmitChoice(context.Background(), nil, SubmitChoiceInput{Session: "nope"})
	if !errors.Is(err, engine.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, _, err := server.handleGetState(context.Background(), nil, SessionInput{}); err == nil {
		t.Fatalf("expected error for missing session")
	}
}

func TestPlayback_JournalError(t *testing.T) {
	server := testServer(t, &mockJournal{err: errors.New("disk full")})

	if _, _, err := server.handleStartSession(context.Background(), nil, StartSessionInput{}); err == nil {
		t.Fatalf("expected journal error")
	}
}
