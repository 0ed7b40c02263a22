// Package engine walks a dialogue graph as a suspend/resume state machine.
// A session advances on its own until it reaches a player decision, then
// waits for Submit or Cancel.
package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"dialogsmith/internal/dialog"
	"dialogsmith/internal/eval"
	"dialogsmith/internal/grammar"
	"dialogsmith/internal/state"
)

// DefaultStepLimit bounds consecutive unattended transitions.
const DefaultStepLimit = 1000

var (
	ErrInvalidChoice = errors.New("invalid choice index")
	ErrSessionEnded  = errors.New("session has ended")
	ErrNoGraph       = errors.New("graph is required")
)

type config struct {
	seed      uint64
	source    Source
	sink      Sink
	vars      map[string]state.Value
	stepLimit int
	id        string
}

type Option func(*config)

// WithSeed makes text selection reproducible.
func WithSeed(seed uint64) Option { return func(c *config) { c.seed = seed } }

// WithSource replaces the random source entirely.
func WithSource(src Source) Option { return func(c *config) { c.source = src } }

func WithSink(sink Sink) Option { return func(c *config) { c.sink = sink } }

// WithVariables declares variables beyond the default set.
func WithVariables(vars map[string]state.Value) Option {
	return func(c *config) { c.vars = vars }
}

func WithStepLimit(n int) Option { return func(c *config) { c.stepLimit = n } }

// WithID fixes the session id instead of generating one.
func WithID(id string) Option { return func(c *config) { c.id = id } }

// Session is one playback of a graph. It is not safe for concurrent use;
// Manager serializes access for hosts that share sessions.
type Session struct {
	id        string
	graph     *dialog.Graph
	state     *state.GameState
	eval      *eval.Evaluator
	src       Source
	seed      uint64
	sink      Sink
	stepLimit int

	current int
	offered []Offered
	done    bool
	reason  EndReason
}

// Start creates a session at startID and runs it to the first decision or
// the end of the branch.
func Start(g *dialog.Graph, startID int, opts ...Option) (*Session, []Event, error) {
	if g == nil {
		return nil, nil, ErrNoGraph
	}
	cfg := config{stepLimit: DefaultStepLimit}
	for _, opt := range opts {
		opt(&cfg)
	}

	st, err := state.New(cfg.vars)
	if err != nil {
		return nil, nil, fmt.Errorf("new state: %w", err)
	}

	s := &Session{
		id:        cfg.id,
		graph:     g,
		state:     st,
		eval:      eval.New(st),
		src:       cfg.source,
		seed:      cfg.seed,
		sink:      cfg.sink,
		stepLimit: cfg.stepLimit,
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.src == nil {
		s.src, s.seed = NewSource(cfg.seed)
	}
	if s.sink == nil {
		s.sink = discard{}
	}
	if s.stepLimit <= 0 {
		s.stepLimit = DefaultStepLimit
	}

	var out []Event
	s.run(startID, &out)
	return s, out, nil
}

func (s *Session) ID() string { return s.id }

// Seed is the seed of the default source, 0 when a custom source was given.
func (s *Session) Seed() uint64 { return s.seed }

func (s *Session) State() *state.GameState { return s.state }

// Current is the node the session is at or ended on.
func (s *Session) Current() int { return s.current }

func (s *Session) Done() bool { return s.done }

func (s *Session) Reason() EndReason { return s.reason }

// Offered returns the choices awaiting a selection.
func (s *Session) Offered() []Offered {
	return append([]Offered(nil), s.offered...)
}

// Submit takes the offered choice at index. An out of range index leaves the
// session waiting at the same decision.
func (s *Session) Submit(index int) ([]Event, error) {
	if s.done {
		return nil, ErrSessionEnded
	}
	if index < 0 || index >= len(s.offered) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidChoice, index, len(s.offered))
	}
	node, _ := s.graph.Node(s.current)
	picked := s.offered[index]
	choice := node.Choices[picked.Source]
	s.offered = nil

	var out []Event
	s.emit(&out, Event{Kind: KindChoiceSelected, NodeID: s.current, Selection: &Selection{Index: index, NextID: choice.NextID}})
	s.applyEffect(&out, choice.Effect)
	if choice.Ends() {
		s.end(&out, ReasonEndOfBranch)
		return out, nil
	}
	s.run(choice.NextID, &out)
	return out, nil
}

// Cancel ends the branch without applying anything.
func (s *Session) Cancel() ([]Event, error) {
	if s.done {
		return nil, ErrSessionEnded
	}
	s.offered = nil
	var out []Event
	s.end(&out, ReasonCancelled)
	return out, nil
}

func (s *Session) run(next int, out *[]Event) {
	steps := 0
	for {
		s.current = next
		node, ok := s.graph.Node(next)
		if !ok {
			s.emit(out, Event{Kind: KindDanglingReference, NodeID: next, Message: fmt.Sprintf("node %d does not exist", next)})
			s.end(out, ReasonDanglingReference)
			return
		}

		s.emit(out, Event{Kind: KindNodeEntered, NodeID: node.ID})
		s.applyEffect(out, node.Effect)
		if i, ok := Sample(node.TextPool, s.src); ok {
			s.emit(out, Event{Kind: KindTextShown, NodeID: node.ID, Line: &Line{
				Speaker: node.Speaker,
				Emotion: node.Emotion,
				Text:    node.TextPool[i].Text,
				Audio:   node.Audio,
			}})
		}

		if node.IsTerminal() {
			s.end(out, ReasonNoChoices)
			return
		}

		if node.IsPlayer() && !node.AllAuto() {
			s.offered = s.offer(out, node)
			if len(s.offered) == 0 {
				s.end(out, ReasonNoAvailableChoices)
				return
			}
			s.emit(out, Event{Kind: KindChoicesOffered, NodeID: node.ID, Choices: s.Offered()})
			return
		}

		index, ok := s.unattended(out, node)
		if !ok {
			s.end(out, ReasonNoAvailableChoices)
			return
		}
		if steps++; steps > s.stepLimit {
			s.end(out, ReasonAutoStepLimit)
			return
		}
		choice := node.Choices[index]
		s.emit(out, Event{Kind: KindChoiceSelected, NodeID: node.ID, Selection: &Selection{Index: index, NextID: choice.NextID, Auto: true}})
		s.applyEffect(out, choice.Effect)
		if choice.Ends() {
			s.end(out, ReasonEndOfBranch)
			return
		}
		next = choice.NextID
	}
}

// offer filters the node's visible choices by their conditions.
func (s *Session) offer(out *[]Event, node *dialog.Node) []Offered {
	var offered []Offered
	for i, c := range node.Choices {
		if c.IsAuto() || !s.check(out, node.ID, c) {
			continue
		}
		offered = append(offered, Offered{
			Index:     len(offered),
			Source:    i,
			Text:      c.Text,
			NextID:    c.NextID,
			Condition: c.Condition,
			Effect:    c.Effect,
		})
	}
	return offered
}

// unattended picks the first choice that holds. On an all-auto node that is
// always the first choice.
func (s *Session) unattended(out *[]Event, node *dialog.Node) (int, bool) {
	for i, c := range node.Choices {
		if c.IsAuto() || s.check(out, node.ID, c) {
			return i, true
		}
	}
	return 0, false
}

func (s *Session) check(out *[]Event, nodeID int, c grammar.Choice) bool {
	held, err := s.eval.Check(c.Condition)
	if err != nil {
		s.emit(out, Event{Kind: KindConditionFailed, NodeID: nodeID, Statement: c.Condition, Message: err.Error()})
	}
	return held
}

func (s *Session) applyEffect(out *[]Event, effect string) {
	if grammar.IsEmpty(effect) {
		return
	}
	if err := s.eval.Apply(effect); err != nil {
		s.emit(out, Event{Kind: KindEffectFailed, NodeID: s.current, Statement: effect, Message: err.Error()})
		return
	}
	s.emit(out, Event{Kind: KindEffectApplied, NodeID: s.current, Statement: effect})
}

func (s *Session) end(out *[]Event, reason EndReason) {
	s.done = true
	s.reason = reason
	s.emit(out, Event{Kind: KindBranchEnded, NodeID: s.current, Reason: reason})
}

func (s *Session) emit(out *[]Event, e Event) {
	e.Session = s.id
	*out = append(*out, e)
	s.sink.Emit(e)
}
