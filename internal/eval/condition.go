package eval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"dialogsmith/internal/state"
)

var ErrConditionSyntax = errors.New("invalid condition")

// View is the read side of a game state.
type View interface {
	HasFlag(name string) bool
	Var(name string) (state.Value, bool)
}

// Condition is a compiled guard expression.
type Condition interface {
	Eval(v View) (bool, error)
	String() string
}

// ParseCondition compiles the closed condition grammar:
//
//	expr    := and ( ('||' | 'or') and )*
//	and     := unary ( ('&&' | 'and') unary )*
//	unary   := ('!' | 'not') unary | primary
//	primary := '(' expr ')' | bool | 'HasFlag' '(' name ')'
//	         | Variable [ op literal ]
//
// An empty source compiles to a condition that is always true.
func ParseCondition(src string) (Condition, error) {
	if strings.TrimSpace(src) == "" {
		return literal(true), nil
	}
	tokens, err := lex(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConditionSyntax, err)
	}
	p := &parser{tokens: tokens}
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected %q", tok.text)
	}
	return cond, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return fmt.Errorf("%w at %d: %s", ErrConditionSyntax, tok.pos, fmt.Sprintf(format, args...))
}

func (p *parser) isKeyword(words ...string) bool {
	tok := p.peek()
	for _, word := range words {
		if (tok.kind == tokOp || tok.kind == tokIdent) && tok.text == word {
			return true
		}
	}
	return false
}

func (p *parser) parseOr() (Condition, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("||", "or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orCond{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Condition, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("&&", "and") {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andCond{left, right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Condition, error) {
	if p.isKeyword("!", "not") {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notCond{inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Condition, error) {
	tok := p.next()
	switch tok.kind {
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, p.errorf(closing, "expected )")
		}
		return inner, nil
	case tokIdent:
		switch tok.text {
		case "true", "True":
			return literal(true), nil
		case "false", "False":
			return literal(false), nil
		case "HasFlag":
			return p.parseHasFlag()
		}
		return p.parseComparison(tok.text)
	default:
		return nil, p.errorf(tok, "unexpected %q", tok.text)
	}
}

func (p *parser) parseHasFlag() (Condition, error) {
	if tok := p.next(); tok.kind != tokLParen {
		return nil, p.errorf(tok, "expected ( after HasFlag")
	}
	arg := p.next()
	if arg.kind != tokString && arg.kind != tokIdent {
		return nil, p.errorf(arg, "expected flag name")
	}
	if arg.text == "" {
		return nil, p.errorf(arg, "empty flag name")
	}
	if tok := p.next(); tok.kind != tokRParen {
		return nil, p.errorf(tok, "expected )")
	}
	return hasFlag(arg.text), nil
}

var comparisons = map[string]bool{"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

func (p *parser) parseComparison(name string) (Condition, error) {
	if p.peek().kind == tokLParen {
		return nil, p.errorf(p.peek(), "%s is not a callable", name)
	}
	op := p.peek()
	if op.kind != tokOp || !comparisons[op.text] {
		return boolVar(name), nil
	}
	p.next()

	value, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return comparison{name: name, op: op.text, value: value}, nil
}

func (p *parser) parseLiteral() (state.Value, error) {
	tok := p.next()
	negative := false
	if tok.kind == tokOp && tok.text == "-" {
		negative = true
		tok = p.next()
	}
	switch {
	case tok.kind == tokNumber:
		n, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return state.Value{}, p.errorf(tok, "invalid number %q", tok.text)
		}
		if negative {
			n = -n
		}
		return state.Num(n), nil
	case !negative && tok.kind == tokIdent && (tok.text == "true" || tok.text == "True"):
		return state.Bool(true), nil
	case !negative && tok.kind == tokIdent && (tok.text == "false" || tok.text == "False"):
		return state.Bool(false), nil
	default:
		return state.Value{}, p.errorf(tok, "expected number or boolean literal")
	}
}

type literal bool

func (l literal) Eval(View) (bool, error) { return bool(l), nil }

func (l literal) String() string { return strconv.FormatBool(bool(l)) }

type hasFlag string

func (h hasFlag) Eval(v View) (bool, error) { return v.HasFlag(string(h)), nil }

func (h hasFlag) String() string { return fmt.Sprintf("HasFlag('%s')", string(h)) }

type boolVar string

func (b boolVar) Eval(v View) (bool, error) {
	value, ok := v.Var(string(b))
	if !ok {
		return false, fmt.Errorf("%w: %s", state.ErrUnknownVariable, string(b))
	}
	if value.Kind != state.KindBool {
		return false, fmt.Errorf("%s is %s: %w", string(b), value.Kind, state.ErrTypeMismatch)
	}
	return value.Bool, nil
}

func (b boolVar) String() string { return string(b) }

type comparison struct {
	name  string
	op    string
	value state.Value
}

func (c comparison) Eval(v View) (bool, error) {
	current, ok := v.Var(c.name)
	if !ok {
		return false, fmt.Errorf("%w: %s", state.ErrUnknownVariable, c.name)
	}
	if current.Kind != c.value.Kind {
		return false, fmt.Errorf("%s is %s, compared with %s: %w", c.name, current.Kind, c.value.Kind, state.ErrTypeMismatch)
	}
	if current.Kind == state.KindBool {
		switch c.op {
		case "==":
			return current.Bool == c.value.Bool, nil
		case "!=":
			return current.Bool != c.value.Bool, nil
		}
		return false, fmt.Errorf("%s on bool %s: %w", c.op, c.name, state.ErrTypeMismatch)
	}
	a, b := current.Num, c.value.Num
	switch c.op {
	case "==":
		return a == b, nil
	case "!=":
		return a != b, nil
	case "<":
		return a < b, nil
	case "<=":
		return a <= b, nil
	case ">":
		return a > b, nil
	default:
		return a >= b, nil
	}
}

func (c comparison) String() string { return fmt.Sprintf("%s %s %s", c.name, c.op, c.value) }

type notCond struct{ inner Condition }

func (n notCond) Eval(v View) (bool, error) {
	ok, err := n.inner.Eval(v)
	return !ok && err == nil, err
}

func (n notCond) String() string { return "!" + n.inner.String() }

type andCond struct{ left, right Condition }

func (a andCond) Eval(v View) (bool, error) {
	ok, err := a.left.Eval(v)
	if err != nil || !ok {
		return false, err
	}
	return a.right.Eval(v)
}

func (a andCond) String() string { return "(" + a.left.String() + " && " + a.right.String() + ")" }

type orCond struct{ left, right Condition }

func (o orCond) Eval(v View) (bool, error) {
	ok, err := o.left.Eval(v)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	return o.right.Eval(v)
}

func (o orCond) String() string { return "(" + o.left.String() + " || " + o.right.String() + ")" }
