package grammar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Built-in effect calls.
const (
	BuiltinSetFlag   = "SetFlag"
	BuiltinAddSanity = "AddSanity"
)

var (
	ErrEffectSyntax   = errors.New("invalid effect statement")
	ErrUnknownBuiltin = errors.New("unknown built-in")
)

// Literal is a number or boolean constant.
type Literal struct {
	IsBool bool
	Bool   bool
	Number float64
}

// Number returns a numeric literal.
func Number(n float64) Literal { return Literal{Number: n} }

// Bool returns a boolean literal.
func Bool(b bool) Literal { return Literal{IsBool: true, Bool: b} }

func (l Literal) String() string {
	if l.IsBool {
		return strconv.FormatBool(l.Bool)
	}
	return strconv.FormatFloat(l.Number, 'g', -1, 64)
}

// ParseLiteral accepts true/false (either case of the first letter) and
// decimal numbers.
func ParseLiteral(s string) (Literal, bool) {
	switch s {
	case "true", "True":
		return Bool(true), true
	case "false", "False":
		return Bool(false), true
	}
	if !looksNumeric(s) {
		return Literal{}, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Literal{}, false
	}
	return Number(n), true
}

// Statement is one parsed effect statement. Calls have an empty Op; Arg holds
// the flag name for SetFlag and Value the delta for AddSanity. Assignments
// carry the target variable in Name, Op in {=, +=, -=} and the literal in Value.
type Statement struct {
	Name  string
	Op    string
	Arg   string
	Value Literal
}

// IsCall reports whether the statement is a built-in call.
func (s Statement) IsCall() bool { return s.Op == "" }

func (s Statement) String() string {
	switch {
	case s.Name == BuiltinSetFlag && s.IsCall():
		return fmt.Sprintf("SetFlag('%s')", s.Arg)
	case s.IsCall():
		return fmt.Sprintf("%s(%s)", s.Name, s.Value)
	default:
		return fmt.Sprintf("%s %s %s", s.Name, s.Op, s.Value)
	}
}

// ParseEffect decodes an effect field: one or more statements separated by
// top-level `;` or `,`. An empty field yields no statements.
func ParseEffect(raw string) ([]Statement, error) {
	if IsEmpty(raw) {
		return nil, nil
	}

	var stmts []Statement
	for _, part := range splitTopLevel(raw, ";,", true) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		stmt, err := parseStatement(part)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if len(stmts) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEffectSyntax, raw)
	}
	return stmts, nil
}

// FormatEffect renders statements in canonical form.
func FormatEffect(stmts []Statement) string {
	parts := make([]string, 0, len(stmts))
	for _, stmt := range stmts {
		parts = append(parts, stmt.String())
	}
	return strings.Join(parts, "; ")
}

func parseStatement(s string) (Statement, error) {
	name, rest := leadingIdent(s)
	if name == "" {
		return Statement{}, fmt.Errorf("%w: %q", ErrEffectSyntax, s)
	}
	rest = strings.TrimSpace(rest)

	if strings.HasPrefix(rest, "(") {
		end := matchClose(rest)
		if end < 0 || strings.TrimSpace(rest[end+1:]) != "" {
			return Statement{}, fmt.Errorf("%w: %q", ErrEffectSyntax, s)
		}
		return parseCall(name, strings.TrimSpace(rest[1:end]), s)
	}

	var op string
	for _, candidate := range []string{"+=", "-=", "="} {
		if strings.HasPrefix(rest, candidate) {
			op = candidate
			break
		}
	}
	if op == "" || strings.HasPrefix(rest, "==") {
		return Statement{}, fmt.Errorf("%w: %q", ErrEffectSyntax, s)
	}

	lit, ok := ParseLiteral(strings.TrimSpace(rest[len(op):]))
	if !ok || (lit.IsBool && op != "=") {
		return Statement{}, fmt.Errorf("%w: %q", ErrEffectSyntax, s)
	}
	return Statement{Name: name, Op: op, Value: lit}, nil
}

func parseCall(name, arg, src string) (Statement, error) {
	switch name {
	case BuiltinSetFlag:
		flag, ok := FlagName(arg)
		if !ok {
			return Statement{}, fmt.Errorf("%w: %q", ErrEffectSyntax, src)
		}
		return Statement{Name: name, Arg: flag}, nil
	case BuiltinAddSanity:
		lit, ok := ParseLiteral(arg)
		if !ok || lit.IsBool {
			return Statement{}, fmt.Errorf("%w: %q", ErrEffectSyntax, src)
		}
		return Statement{Name: name, Arg: arg, Value: lit}, nil
	default:
		return Statement{}, fmt.Errorf("%w: %s", ErrUnknownBuiltin, name)
	}
}

// FlagName accepts a quoted string or a bare identifier as a flag name.
func FlagName(arg string) (string, bool) {
	if len(arg) >= 2 && (arg[0] == '\'' || arg[0] == '"') && arg[len(arg)-1] == arg[0] {
		inner := arg[1 : len(arg)-1]
		if inner == "" || strings.ContainsAny(inner, `'"`) {
			return "", false
		}
		return inner, true
	}
	if name, rest := leadingIdent(arg); name != "" && rest == "" {
		return name, true
	}
	return "", false
}

func leadingIdent(s string) (string, string) {
	end := 0
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			end = i + len(string(r))
			continue
		}
		break
	}
	return s[:end], s[end:]
}

// IsIdent reports whether s is a complete identifier.
func IsIdent(s string) bool {
	name, rest := leadingIdent(s)
	return name != "" && rest == ""
}
