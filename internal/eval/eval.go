// Package eval checks choice conditions and applies effects against a game
// state. Nothing outside the closed grammar is ever executed.
package eval

import (
	"errors"
	"fmt"

	"dialogsmith/internal/grammar"
	"dialogsmith/internal/state"
)

// ConditionError reports a condition that failed to parse or evaluate.
// Such a condition counts as false.
type ConditionError struct {
	Source string
	Err    error
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("condition %q: %v", e.Source, e.Err)
}

func (e *ConditionError) Unwrap() error { return e.Err }

// EffectError reports an effect that was rejected. The state is unchanged.
type EffectError struct {
	Source string
	Err    error
}

func (e *EffectError) Error() string {
	return fmt.Sprintf("effect %q: %v", e.Source, e.Err)
}

func (e *EffectError) Unwrap() error { return e.Err }

// Evaluator binds conditions and effects to one game state.
type Evaluator struct {
	state *state.GameState
	cache map[string]Condition
}

func New(s *state.GameState) *Evaluator {
	return &Evaluator{state: s, cache: make(map[string]Condition)}
}

func (e *Evaluator) State() *state.GameState { return e.state }

// Check evaluates a condition. The empty condition holds. A condition that
// cannot be parsed or evaluated does not hold and is returned as a
// *ConditionError.
func (e *Evaluator) Check(src string) (bool, error) {
	if grammar.IsEmpty(src) {
		return true, nil
	}
	cond, ok := e.cache[src]
	if !ok {
		var err error
		cond, err = ParseCondition(src)
		if err != nil {
			return false, &ConditionError{Source: src, Err: err}
		}
		e.cache[src] = cond
	}
	held, err := cond.Eval(e.state)
	if err != nil {
		return false, &ConditionError{Source: src, Err: err}
	}
	return held, nil
}

// Apply runs every statement of an effect or none of them.
func (e *Evaluator) Apply(src string) error {
	return apply(e.state, src)
}

// CheckEffect reports whether an effect would apply to s, leaving s as is.
func CheckEffect(s *state.GameState, src string) error {
	return apply(s.Clone(), src)
}

// CheckCondition reports whether a condition parses.
func CheckCondition(src string) error {
	if grammar.IsEmpty(src) {
		return nil
	}
	if _, err := ParseCondition(src); err != nil {
		return &ConditionError{Source: src, Err: err}
	}
	return nil
}

func apply(s *state.GameState, src string) error {
	stmts, err := grammar.ParseEffect(src)
	if err != nil {
		return &EffectError{Source: src, Err: err}
	}
	if len(stmts) == 0 {
		return nil
	}
	err = s.Update(func(tx *state.Txn) error {
		for _, stmt := range stmts {
			if err := applyStatement(tx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &EffectError{Source: src, Err: err}
	}
	return nil
}

func applyStatement(tx *state.Txn, stmt grammar.Statement) error {
	if stmt.IsCall() {
		switch stmt.Name {
		case grammar.BuiltinSetFlag:
			tx.SetFlag(stmt.Arg)
			return nil
		case grammar.BuiltinAddSanity:
			return tx.AddSanity(stmt.Value.Number)
		}
		return fmt.Errorf("%w: %s", grammar.ErrUnknownBuiltin, stmt.Name)
	}

	switch stmt.Op {
	case "=":
		return tx.Set(stmt.Name, toValue(stmt.Value))
	case "+=":
		return tx.Add(stmt.Name, stmt.Value.Number)
	case "-=":
		return tx.Add(stmt.Name, -stmt.Value.Number)
	}
	return fmt.Errorf("%w: operator %s", grammar.ErrEffectSyntax, stmt.Op)
}

func toValue(lit grammar.Literal) state.Value {
	if lit.IsBool {
		return state.Bool(lit.Bool)
	}
	return state.Num(lit.Number)
}

// IsSyntax reports whether err came from malformed source rather than from
// the state it was applied to.
func IsSyntax(err error) bool {
	return errors.Is(err, ErrConditionSyntax) ||
		errors.Is(err, grammar.ErrEffectSyntax) ||
		errors.Is(err, grammar.ErrUnknownBuiltin)
}
