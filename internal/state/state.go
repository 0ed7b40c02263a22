// Package state holds the flags and variables a dialogue session plays
// against. Values change only inside Update, which commits atomically.
package state

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

const (
	SanityVar = "Sanity"
	SanityMin = 0
	SanityMax = 100
)

var (
	ErrUnknownVariable = errors.New("unknown variable")
	ErrTypeMismatch    = errors.New("type mismatch")
)

// Kind distinguishes numeric from boolean values.
type Kind int

const (
	KindNumber Kind = iota
	KindBool
)

func (k Kind) String() string {
	if k == KindBool {
		return "bool"
	}
	return "number"
}

// Value is a variable's current value.
type Value struct {
	Kind Kind
	Num  float64
	Bool bool
}

func Num(n float64) Value { return Value{Kind: KindNumber, Num: n} }

func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Any returns the value as a float64 or bool.
func (v Value) Any() any {
	if v.Kind == KindBool {
		return v.Bool
	}
	return v.Num
}

func (v Value) String() string {
	if v.Kind == KindBool {
		return strconv.FormatBool(v.Bool)
	}
	return strconv.FormatFloat(v.Num, 'g', -1, 64)
}

// Defaults returns the variables every session starts with.
func Defaults() map[string]Value {
	return map[string]Value{
		"Reputation": Num(0),
		SanityVar:    Num(100),
		"Night":      Num(1),
		"IsAtDock":   Bool(true),
		"Confidence": Num(0),
	}
}

// GameState is owned by a single session and is not safe for concurrent use.
type GameState struct {
	flags     map[string]struct{}
	vars      map[string]Value
	inventory []string
}

// New returns a state seeded with Defaults plus any extra declared
// variables. Extra entries override a default only when the kinds agree.
func New(extra map[string]Value) (*GameState, error) {
	vars := Defaults()
	for name, value := range extra {
		if current, ok := vars[name]; ok && current.Kind != value.Kind {
			return nil, fmt.Errorf("declaring %s as %s: %w", name, value.Kind, ErrTypeMismatch)
		}
		vars[name] = value
	}
	return &GameState{flags: make(map[string]struct{}), vars: vars}, nil
}

// MustNew is New for callers with no declared variables.
func MustNew() *GameState {
	s, err := New(nil)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *GameState) HasFlag(name string) bool {
	_, ok := s.flags[name]
	return ok
}

func (s *GameState) Var(name string) (Value, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Flags returns the set flags in sorted order.
func (s *GameState) Flags() []string {
	flags := make([]string, 0, len(s.flags))
	for flag := range s.flags {
		flags = append(flags, flag)
	}
	sort.Strings(flags)
	return flags
}

// VarNames returns the declared variable names in sorted order.
func (s *GameState) VarNames() []string {
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *GameState) Inventory() []string {
	return append([]string(nil), s.inventory...)
}

// Clone returns an independent copy.
func (s *GameState) Clone() *GameState {
	c := &GameState{
		flags:     make(map[string]struct{}, len(s.flags)),
		vars:      make(map[string]Value, len(s.vars)),
		inventory: append([]string(nil), s.inventory...),
	}
	for flag := range s.flags {
		c.flags[flag] = struct{}{}
	}
	for name, value := range s.vars {
		c.vars[name] = value
	}
	return c
}

// Snapshot is a plain view of a state for events and transport.
type Snapshot struct {
	Flags     []string       `json:"flags"`
	Variables map[string]any `json:"variables"`
	Inventory []string       `json:"inventory"`
}

func (s *GameState) Snapshot() Snapshot {
	vars := make(map[string]any, len(s.vars))
	for name, value := range s.vars {
		vars[name] = value.Any()
	}
	inventory := s.Inventory()
	if inventory == nil {
		inventory = []string{}
	}
	return Snapshot{Flags: s.Flags(), Variables: vars, Inventory: inventory}
}

func (s *GameState) String() string {
	parts := make([]string, 0, len(s.vars))
	for _, name := range s.VarNames() {
		parts = append(parts, name+"="+s.vars[name].String())
	}
	return fmt.Sprintf("flags=%v vars=%v inventory=%v", s.Flags(), parts, s.inventory)
}

// Update runs fn against a staged copy and commits it only when fn returns
// nil, so a failing mutation leaves the state untouched.
func (s *GameState) Update(fn func(tx *Txn) error) error {
	staged := s.Clone()
	if err := fn(&Txn{s: staged}); err != nil {
		return err
	}
	*s = *staged
	return nil
}

// Txn is the mutation handle passed to Update.
type Txn struct {
	s *GameState
}

func (tx *Txn) HasFlag(name string) bool { return tx.s.HasFlag(name) }

func (tx *Txn) Var(name string) (Value, bool) { return tx.s.Var(name) }

func (tx *Txn) SetFlag(name string) {
	tx.s.flags[name] = struct{}{}
}

// Set replaces an existing variable. The variable must be declared and keep
// its kind.
func (tx *Txn) Set(name string, value Value) error {
	current, ok := tx.s.vars[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}
	if current.Kind != value.Kind {
		return fmt.Errorf("%s is %s, got %s: %w", name, current.Kind, value.Kind, ErrTypeMismatch)
	}
	tx.s.vars[name] = value
	return nil
}

// Add increments a numeric variable.
func (tx *Txn) Add(name string, delta float64) error {
	current, ok := tx.s.vars[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}
	if current.Kind != KindNumber {
		return fmt.Errorf("%s is %s: %w", name, current.Kind, ErrTypeMismatch)
	}
	tx.s.vars[name] = Num(current.Num + delta)
	return nil
}

// AddSanity adds delta to Sanity and clamps the result to [SanityMin, SanityMax].
func (tx *Txn) AddSanity(delta float64) error {
	if err := tx.Add(SanityVar, delta); err != nil {
		return err
	}
	v := tx.s.vars[SanityVar].Num
	tx.s.vars[SanityVar] = Num(min(max(v, SanityMin), SanityMax))
	return nil
}
