package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"dialogsmith/internal/engine"
)

// Journal receives the events of every session step. It may be nil.
type Journal interface {
	AppendEvents(ctx context.Context, events []engine.Event) error
}

type Server struct {
	manager *engine.Manager
	journal Journal
	start   int
	mcp     *sdk.Server
}

// NewServer exposes manager's graph and sessions as tools. start is the node
// a session begins at when the caller does not name one.
func NewServer(manager *engine.Manager, journal Journal, start int, version string) *Server {
	s := &Server{
		manager: manager,
		journal: journal,
		start:   start,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "dialogsmith",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
