package grammar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Arrow separates a choice's display text from its transition target.
const Arrow = '➔'

// choiceSpecial are the runes that force display text to be quoted.
const choiceSpecial = "|➔[]{}()"

var (
	ErrNoArrow      = errors.New("missing ➔ transition marker")
	ErrBadTarget    = errors.New("invalid transition target")
	ErrUnbalanced   = errors.New("unbalanced bracket")
	ErrDuplicate    = errors.New("duplicate block")
	ErrTrailingText = errors.New("unexpected text after target")
)

// Choice is one parsed choice descriptor:
// `[text] ➔ [next_id] [ '[' condition ']' ] [ '{' effect '}' ]`.
// NextID 0 means the choice ends the branch.
type Choice struct {
	Text      string
	NextID    int
	Condition string
	Effect    string
}

// IsAuto reports whether the choice only routes control flow: it has no
// visible text and no guard. An auto choice may still carry an effect.
func (c Choice) IsAuto() bool {
	return c.Text == "" && c.Condition == ""
}

// Ends reports whether taking the choice ends the branch.
func (c Choice) Ends() bool {
	return c.NextID == 0
}

// ParseChoice decodes a single choice descriptor.
func ParseChoice(raw string) (Choice, error) {
	s := strings.TrimSpace(raw)
	arrow := indexTopLevel(s, Arrow, false)
	if arrow < 0 {
		return Choice{}, fmt.Errorf("choice %q: %w", raw, ErrNoArrow)
	}

	c := Choice{Text: unquote(strings.TrimSpace(s[:arrow]), choiceSpecial)}
	rest := strings.TrimLeft(s[arrow+len(string(Arrow)):], " \t")

	n := 0
	for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
		n++
	}
	if n > 0 {
		id, err := strconv.Atoi(rest[:n])
		if err != nil {
			return Choice{}, fmt.Errorf("choice %q: %w", raw, ErrBadTarget)
		}
		c.NextID = id
		rest = rest[n:]
	}

	var haveCondition, haveEffect bool
	for {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			break
		}
		switch rest[0] {
		case '[', '{':
			end := matchClose(rest)
			if end < 0 {
				return Choice{}, fmt.Errorf("choice %q: %w", raw, ErrUnbalanced)
			}
			body := strings.TrimSpace(rest[1:end])
			if rest[0] == '[' {
				if haveCondition {
					return Choice{}, fmt.Errorf("choice %q: %w: condition", raw, ErrDuplicate)
				}
				haveCondition = true
				c.Condition = body
			} else {
				if haveEffect {
					return Choice{}, fmt.Errorf("choice %q: %w: effect", raw, ErrDuplicate)
				}
				haveEffect = true
				c.Effect = body
			}
			rest = rest[end+1:]
		default:
			if n == 0 && !haveCondition && !haveEffect {
				return Choice{}, fmt.Errorf("choice %q: %w", raw, ErrBadTarget)
			}
			return Choice{}, fmt.Errorf("choice %q: %w: %q", raw, ErrTrailingText, rest)
		}
	}
	return c, nil
}

// ChoiceError reports a malformed descriptor inside a choice list.
type ChoiceError struct {
	Entry int
	Err   error
}

func (e *ChoiceError) Error() string {
	return fmt.Sprintf("choice %d: %v", e.Entry+1, e.Err)
}

func (e *ChoiceError) Unwrap() error { return e.Err }

// ParseChoices decodes a `|`-separated list of descriptors. Valid entries are
// returned in order; each malformed entry yields a *ChoiceError.
func ParseChoices(raw string) ([]Choice, []error) {
	if IsEmpty(raw) {
		return nil, nil
	}

	var choices []Choice
	var errs []error
	for i, part := range splitChoices(raw) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		choice, err := ParseChoice(part)
		if err != nil {
			errs = append(errs, &ChoiceError{Entry: i, Err: err})
			continue
		}
		choices = append(choices, choice)
	}
	return choices, errs
}

// splitChoices splits a choice list on `|`. Brackets only nest after an
// entry's arrow, so display text may hold unbalanced ones like ":(".
func splitChoices(s string) []string {
	var parts []string
	start, depth, targeted := 0, 0, false
	walk(s, false, func(i int, r rune, _ int) bool {
		switch {
		case r == Arrow && depth == 0:
			targeted = true
		case !targeted:
		case r == '(' || r == '[' || r == '{':
			depth++
		case r == ')' || r == ']' || r == '}':
			if depth > 0 {
				depth--
			}
		}
		if r == '|' && depth == 0 {
			parts = append(parts, s[start:i])
			start = i + 1
			targeted = false
		}
		return true
	})
	return append(parts, s[start:])
}

// FormatChoice renders a choice in canonical descriptor form.
func FormatChoice(c Choice) string {
	var b strings.Builder
	if c.Text != "" {
		b.WriteString(quoteIfNeeded(c.Text, choiceSpecial))
		b.WriteByte(' ')
	}
	b.WriteRune(Arrow)
	if c.NextID > 0 {
		b.WriteString(strconv.Itoa(c.NextID))
	}
	if c.Condition != "" {
		b.WriteString(" [" + c.Condition + "]")
	}
	if c.Effect != "" {
		b.WriteString(" {" + c.Effect + "}")
	}
	return b.String()
}

// FormatChoices renders a choice list joined by `|`.
func FormatChoices(choices []Choice) string {
	parts := make([]string, 0, len(choices))
	for _, c := range choices {
		parts = append(parts, FormatChoice(c))
	}
	return strings.Join(parts, "|")
}
