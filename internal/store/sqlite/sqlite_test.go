package sqlite

import (
	"context"
	"reflect"
	"testing"
	"time"

	"dialogsmith/internal/dialog"
	"dialogsmith/internal/engine"
	"dialogsmith/internal/store"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	client, err := New(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close(ctx) })
	client.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	if err := client.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return client
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	client := testClient(t)
	if err := client.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second ensure schema: %v", err)
	}
}

func TestReplaceAndLoadNodes(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)

	first := []dialog.Row{
		{Line: 2, ID: "1", Speaker: "Anna", TextPool: "Hi|2*Hello", PlayerChoices: "➔2", Emotion: "Happy"},
		{Line: 3, ID: "2", Speaker: "Player", TextPool: "-", PlayerChoices: "Bye ➔", Effects: "SetFlag('met')"},
	}
	if err := client.ReplaceNodes(ctx, store.Source{Path: "d.csv", Hash: "abc"}, first); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := client.LoadNodes(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, first) {
		t.Fatalf("rows = %+v, want %+v", got, first)
	}

	second := first[:1]
	if err := client.ReplaceNodes(ctx, store.Source{Path: "d.csv", Hash: "def"}, second); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ = client.LoadNodes(ctx)
	if len(got) != 1 {
		t.Fatalf("rows after replace = %d", len(got))
	}

	src, err := client.GetSource(ctx, "d.csv")
	if err != nil || src == nil {
		t.Fatalf("source = %v, %v", src, err)
	}
	if src.Hash != "def" || src.Rows != 1 || !src.ImportedAt.Equal(client.now()) {
		t.Fatalf("source = %+v", src)
	}
	if missing, err := client.GetSource(ctx, "other.csv"); err != nil || missing != nil {
		t.Fatalf("missing source = %v, %v", missing, err)
	}
}

func TestJournal(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)

	batch := []engine.Event{
		{Kind: engine.KindNodeEntered, Session: "a", NodeID: 1},
		{Kind: engine.KindTextShown, Session: "a", NodeID: 1, Line: &engine.Line{Speaker: "Anna", Text: "Hi"}},
		{Kind: engine.KindNodeEntered, Session: "b", NodeID: 4},
	}
	if err := client.AppendEvents(ctx, batch); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := client.AppendEvents(ctx, []engine.Event{{Kind: engine.KindBranchEnded, Session: "a", NodeID: 1, Reason: engine.ReasonNoChoices}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := client.ListSessionEvents(ctx, "a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d", len(entries))
	}
	for i, entry := range entries {
		if entry.Seq != i+1 {
			t.Fatalf("entry %d seq = %d", i, entry.Seq)
		}
	}
	if entries[1].Event.Line == nil || entries[1].Event.Line.Text != "Hi" {
		t.Fatalf("payload = %+v", entries[1].Event)
	}
	if entries[2].Event.Reason != engine.ReasonNoChoices {
		t.Fatalf("reason = %s", entries[2].Event.Reason)
	}

	sessions, err := client.ListSessions(ctx)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].Session != "a" || sessions[0].Events != 3 || !sessions[0].Ended || sessions[1].Ended {
		t.Fatalf("sessions = %+v", sessions)
	}

	if err := client.AppendEvents(ctx, []engine.Event{{Kind: engine.KindNodeEntered}}); err == nil {
		t.Fatal("expected error for event without session")
	}
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "memory", input: "sqlite://:memory:", expected: ":memory:"},
		{name: "absolute", input: "sqlite:///var/lib/d.db", expected: "/var/lib/d.db"},
		{name: "relative", input: "sqlite://data/d.db", expected: "./data/d.db"},
		{name: "dot relative", input: "sqlite://./d.db", expected: "./d.db"},
		{name: "escaped with query", input: "sqlite://my%20d.db?_pragma=busy_timeout(5000)", expected: "./my d.db?_pragma=busy_timeout(5000)"},
		{name: "wrong scheme", input: "postgres://x", wantErr: true},
		{name: "empty path", input: "sqlite://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDSN(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseDSN(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDSN(%q): %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("parseDSN(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("-- comment\nCREATE TABLE a (x INT);\n\nCREATE INDEX i ON a (x);\n")
	if len(got) != 2 {
		t.Fatalf("statements = %q", got)
	}
}
