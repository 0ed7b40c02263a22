// Package wsplay serves playback sessions over a WebSocket. Each connection
// owns at most one live session; closing the connection cancels it.
package wsplay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"dialogsmith/internal/engine"
)

const (
	msgStart  = "start"
	msgSubmit = "submit"
	msgCancel = "cancel"
	msgState  = "state"

	msgStep  = "step"
	msgError = "error"
)

// Journal receives the events of every session step.
type Journal interface {
	AppendEvents(ctx context.Context, events []engine.Event) error
}

type inboundMessage struct {
	Type  string `json:"type"`
	Start int    `json:"start,omitempty"`
	Seed  uint64 `json:"seed,omitempty"`
	Index int    `json:"index"`
}

type outboundMessage struct {
	Type    string         `json:"type"`
	Session *engine.View   `json:"session,omitempty"`
	Events  []engine.Event `json:"events,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type Handler struct {
	manager  *engine.Manager
	journal  Journal
	start    int
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler serves sessions from manager. journal may be nil.
func NewHandler(manager *engine.Manager, journal Journal, start int, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		manager: manager,
		journal: journal,
		start:   start,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := h.start
	if raw := r.URL.Query().Get("start"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			http.Error(w, "invalid start node", http.StatusBadRequest)
			return
		}
		start = id
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &connection{handler: h, conn: conn, start: start}
	defer c.release(r.Context())

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read ended", "error", err)
			}
			return
		}
		if err := c.handle(r.Context(), msg); err != nil {
			h.logger.Warn("websocket write failed", "session", c.session, "error", err)
			return
		}
	}
}

type connection struct {
	handler *Handler
	conn    *websocket.Conn
	start   int
	session string
}

func (c *connection) handle(ctx context.Context, msg inboundMessage) error {
	m := c.handler.manager

	var (
		view   engine.View
		events []engine.Event
		err    error
	)
	switch msg.Type {
	case msgStart:
		c.release(ctx)
		start := msg.Start
		if start == 0 {
			start = c.start
		}
		var opts []engine.Option
		if msg.Seed != 0 {
			opts = append(opts, engine.WithSeed(msg.Seed))
		}
		view, events, err = m.Start(start, opts...)
		if err == nil {
			c.session = view.ID
		}
	case msgSubmit:
		if c.session == "" {
			return c.fail(errors.New("no session started"))
		}
		view, events, err = m.Submit(c.session, msg.Index)
	case msgCancel:
		if c.session == "" {
			return c.fail(errors.New("no session started"))
		}
		view, events, err = m.Cancel(c.session)
	case msgState:
		if c.session == "" {
			return c.fail(errors.New("no session started"))
		}
		view, err = m.Get(c.session)
	default:
		return c.fail(errors.New("unknown message type " + strconv.Quote(msg.Type)))
	}
	if err != nil {
		return c.fail(err)
	}

	if c.handler.journal != nil && len(events) > 0 {
		if err := c.handler.journal.AppendEvents(ctx, events); err != nil {
			c.handler.logger.Error("journal append failed", "session", view.ID, "error", err)
		}
	}
	return c.conn.WriteJSON(outboundMessage{Type: msgStep, Session: &view, Events: events})
}

func (c *connection) fail(err error) error {
	return c.conn.WriteJSON(outboundMessage{Type: msgError, Error: err.Error()})
}

// release cancels a still running session and forgets it.
func (c *connection) release(ctx context.Context) {
	if c.session == "" {
		return
	}
	m := c.handler.manager
	if view, err := m.Get(c.session); err == nil && !view.Done {
		if _, events, err := m.Cancel(c.session); err == nil && c.handler.journal != nil {
			if err := c.handler.journal.AppendEvents(ctx, events); err != nil {
				c.handler.logger.Error("journal append failed", "session", c.session, "error", err)
			}
		}
	}
	_ = m.Remove(c.session)
	c.session = ""
}
