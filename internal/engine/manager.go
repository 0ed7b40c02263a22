package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"dialogsmith/internal/dialog"
	"dialogsmith/internal/state"
)

var ErrSessionNotFound = errors.New("session not found")

// View is a point-in-time copy of a session.
type View struct {
	ID      string         `json:"id"`
	Current int            `json:"current"`
	Done    bool           `json:"done"`
	Reason  EndReason      `json:"reason,omitempty"`
	Seed    uint64         `json:"seed,omitempty"`
	Offered []Offered      `json:"offered"`
	State   state.Snapshot `json:"state"`
}

func viewOf(s *Session) View {
	offered := s.Offered()
	if offered == nil {
		offered = []Offered{}
	}
	return View{
		ID:      s.id,
		Current: s.current,
		Done:    s.done,
		Reason:  s.reason,
		Seed:    s.seed,
		Offered: offered,
		State:   s.state.Snapshot(),
	}
}

type entry struct {
	mu      sync.Mutex
	session *Session
}

// Manager runs many sessions over one shared graph.
type Manager struct {
	graph *dialog.Graph
	opts  []Option

	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewManager applies opts to every session it starts.
func NewManager(g *dialog.Graph, opts ...Option) *Manager {
	return &Manager{graph: g, opts: opts, sessions: make(map[string]*entry)}
}

func (m *Manager) Graph() *dialog.Graph { return m.graph }

// Start begins a session. Per-call options follow the manager's.
func (m *Manager) Start(startID int, opts ...Option) (View, []Event, error) {
	all := append(append([]Option(nil), m.opts...), opts...)
	s, events, err := Start(m.graph, startID, all...)
	if err != nil {
		return View{}, nil, err
	}
	m.mu.Lock()
	m.sessions[s.id] = &entry{session: s}
	m.mu.Unlock()
	return viewOf(s), events, nil
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e, nil
}

func (m *Manager) with(id string, fn func(s *Session) ([]Event, error)) (View, []Event, error) {
	e, err := m.lookup(id)
	if err != nil {
		return View{}, nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	events, err := fn(e.session)
	return viewOf(e.session), events, err
}

func (m *Manager) Submit(id string, index int) (View, []Event, error) {
	return m.with(id, func(s *Session) ([]Event, error) { return s.Submit(index) })
}

func (m *Manager) Cancel(id string) (View, []Event, error) {
	return m.with(id, func(s *Session) ([]Event, error) { return s.Cancel() })
}

func (m *Manager) Get(id string) (View, error) {
	view, _, err := m.with(id, func(*Session) ([]Event, error) { return nil, nil })
	return view, err
}

// Remove forgets a session.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	return nil
}

// IDs lists live session ids in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
