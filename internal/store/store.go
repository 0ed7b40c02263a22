package store

import (
	"context"
	"time"

	"dialogsmith/internal/dialog"
	"dialogsmith/internal/engine"
)

// Store persists the dialogue rows and the session journal.
type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	ReplaceNodes(ctx context.Context, src Source, rows []dialog.Row) error
	LoadNodes(ctx context.Context) ([]dialog.Row, error)
	GetSource(ctx context.Context, path string) (*Source, error)

	AppendEvents(ctx context.Context, events []engine.Event) error
	ListSessionEvents(ctx context.Context, session string) ([]JournalEntry, error)
	ListSessions(ctx context.Context) ([]SessionSummary, error)
}

// Source records the file the node table was last imported from.
type Source struct {
	Path       string
	Hash       string
	Rows       int
	ImportedAt time.Time
}

type JournalEntry struct {
	Session    string
	Seq        int
	Event      engine.Event
	RecordedAt time.Time
}

type SessionSummary struct {
	Session string
	Events  int
	FirstAt time.Time
	LastAt  time.Time
	Ended   bool
}
