package dialog

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"dialogsmith/internal/grammar"
)

var (
	ErrDuplicateID = errors.New("duplicate node id")
	ErrUnreadable  = errors.New("unreadable source")
)

// LoadError aborts graph construction. Code is ErrDuplicateID or ErrUnreadable.
type LoadError struct {
	Code    error
	Row     int
	ID      int
	Message string
}

func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString(e.Code.Error())
	if e.ID > 0 {
		fmt.Fprintf(&b, " %d", e.ID)
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, " (row %d)", e.Row)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	return b.String()
}

func (e *LoadError) Unwrap() error { return e.Code }

type WarningKind string

const (
	WarnRowSkipped        WarningKind = "row_skipped"
	WarnParseFallback     WarningKind = "parse_fallback"
	WarnDanglingReference WarningKind = "dangling_reference"
)

// Warning is a non-fatal load finding.
type Warning struct {
	Kind    WarningKind
	Row     int
	NodeID  int
	Message string
}

func (w Warning) String() string {
	if w.NodeID > 0 {
		return fmt.Sprintf("row %d node %d: %s: %s", w.Row, w.NodeID, w.Kind, w.Message)
	}
	return fmt.Sprintf("row %d: %s: %s", w.Row, w.Kind, w.Message)
}

// Graph is a read-only mapping from id to node and may be shared between
// sessions.
type Graph struct {
	nodes    map[int]*Node
	ids      []int
	warnings []Warning
}

// Load builds a graph from rows. A row with a bad id or an unusable body is
// skipped with a warning; a duplicate id fails the whole load.
func Load(rows []Row) (*Graph, error) {
	g := &Graph{nodes: make(map[int]*Node, len(rows))}
	rowOf := make(map[int]int, len(rows))

	for i, row := range rows {
		line := row.Line
		if line == 0 {
			line = i + 1
		}
		node, warnings, ok := parseRow(row, line)
		g.warnings = append(g.warnings, warnings...)
		if !ok {
			continue
		}
		if _, dup := g.nodes[node.ID]; dup {
			return nil, &LoadError{
				Code:    ErrDuplicateID,
				Row:     line,
				ID:      node.ID,
				Message: fmt.Sprintf("first defined on row %d", rowOf[node.ID]),
			}
		}
		g.nodes[node.ID] = node
		rowOf[node.ID] = line
		g.ids = append(g.ids, node.ID)
	}
	sort.Ints(g.ids)

	for _, id := range g.ids {
		for i, c := range g.nodes[id].Choices {
			if c.Ends() {
				continue
			}
			if _, ok := g.nodes[c.NextID]; !ok {
				g.warnings = append(g.warnings, Warning{
					Kind:    WarnDanglingReference,
					Row:     rowOf[id],
					NodeID:  id,
					Message: fmt.Sprintf("choice %d leads to missing node %d", i+1, c.NextID),
				})
			}
		}
	}
	return g, nil
}

func parseRow(row Row, line int) (*Node, []Warning, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(row.ID))
	if err != nil || id <= 0 {
		return nil, []Warning{{Kind: WarnRowSkipped, Row: line, Message: fmt.Sprintf("invalid id %q", row.ID)}}, false
	}

	node := &Node{ID: id, Speaker: strings.TrimSpace(row.Speaker)}
	var warnings []Warning
	fallback := func(format string, args ...any) {
		warnings = append(warnings, Warning{Kind: WarnParseFallback, Row: line, NodeID: id, Message: fmt.Sprintf(format, args...)})
	}
	skip := func(format string, args ...any) (*Node, []Warning, bool) {
		warnings = append(warnings, Warning{Kind: WarnRowSkipped, Row: line, NodeID: id, Message: fmt.Sprintf(format, args...)})
		return nil, warnings, false
	}

	pool, fallbacks := grammar.ParseTextPool(row.TextPool)
	for _, f := range fallbacks {
		fallback("text pool %s", f)
	}
	node.TextPool = pool

	choices, errs := grammar.ParseChoices(row.PlayerChoices)
	if len(errs) > 0 {
		if node.IsPlayer() {
			return skip("malformed choices: %v", errors.Join(errs...))
		}
		for _, err := range errs {
			fallback("dropped %v", err)
		}
	}
	node.Choices = choices

	if len(node.TextPool) == 0 && len(node.Choices) == 0 {
		return skip("node has no text and no choices")
	}

	if !grammar.IsEmpty(row.Effects) {
		node.Effect = strings.TrimSpace(row.Effects)
		if _, err := grammar.ParseEffect(node.Effect); err != nil {
			fallback("node effect will fail: %v", err)
		}
	}

	emotion, ok := ParseEmotion(row.Emotion)
	if !ok {
		fallback("unknown emotion %q, using %s", row.Emotion, EmotionNeutral)
	}
	node.Emotion = emotion

	if !grammar.IsEmpty(row.Audio) {
		node.Audio = strings.TrimSpace(row.Audio)
	}
	return node, warnings, true
}

// Node looks up a node by id.
func (g *Graph) Node(id int) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// IDs returns all node ids in ascending order.
func (g *Graph) IDs() []int {
	return append([]int(nil), g.ids...)
}

func (g *Graph) Len() int { return len(g.ids) }

func (g *Graph) Warnings() []Warning {
	return append([]Warning(nil), g.warnings...)
}

// NextID returns the smallest id above every existing one.
func (g *Graph) NextID() int {
	if len(g.ids) == 0 {
		return 1
	}
	return g.ids[len(g.ids)-1] + 1
}

// Edge is one choice transition. Dangling edges point at a missing node.
type Edge struct {
	From      int    `json:"from"`
	To        int    `json:"to"`
	Index     int    `json:"index"`
	Text      string `json:"text,omitempty"`
	Condition string `json:"condition,omitempty"`
	Effect    string `json:"effect,omitempty"`
	Auto      bool   `json:"auto"`
	Dangling  bool   `json:"dangling,omitempty"`
}

// Edges lists every transition that leads to a node id, ordered by source
// id and choice index.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, id := range g.ids {
		for i, c := range g.nodes[id].Choices {
			if c.Ends() {
				continue
			}
			_, ok := g.nodes[c.NextID]
			edges = append(edges, Edge{
				From:      id,
				To:        c.NextID,
				Index:     i,
				Text:      c.Text,
				Condition: c.Condition,
				Effect:    c.Effect,
				Auto:      c.IsAuto(),
				Dangling:  !ok,
			})
		}
	}
	return edges
}

// Reachable returns the ids reachable from start, start included, in
// ascending order. Conditions are ignored.
func (g *Graph) Reachable(start int) []int {
	if _, ok := g.nodes[start]; !ok {
		return nil
	}
	seen := map[int]bool{start: true}
	queue := []int{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, c := range g.nodes[id].Choices {
			if c.Ends() || seen[c.NextID] {
				continue
			}
			if _, ok := g.nodes[c.NextID]; !ok {
				continue
			}
			seen[c.NextID] = true
			queue = append(queue, c.NextID)
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
