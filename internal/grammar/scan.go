package grammar

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// quoteBoundary lists the runes after which a quote character opens a quoted
// span. Anywhere else (e.g. "don't") it is an ordinary character.
const quoteBoundary = "([{,=!&|<>*;➔"

func opensQuote(s string, i int) bool {
	if i == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsSpace(prev) || strings.ContainsRune(quoteBoundary, prev)
}

// quoteEnd lists the runes that may follow a closing single quote.
const quoteEnd = ")]},;|&=!<>*➔.?:"

// closesQuote reports whether the single quote ending just before end sits at
// a word boundary. In "Tell 'em" the apostrophe never closes anything.
func closesQuote(s string, end int) bool {
	if end == len(s) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(s[end:])
	return unicode.IsSpace(next) || strings.ContainsRune(quoteEnd, next)
}

// skipQuoted returns the offset just past the quoted span starting at i, or i
// when the quote at i does not open a closed span. A single quote only pairs
// with the next one when that one ends a word.
func skipQuoted(s string, i int) int {
	if !opensQuote(s, i) {
		return i
	}
	j := strings.IndexByte(s[i+1:], s[i])
	if j < 0 {
		return i
	}
	end := i + j + 2
	if s[i] == '\'' && !closesQuote(s, end) {
		return i
	}
	return end
}

// walk visits every rune of s that is outside a quoted span. depth is the
// bracket nesting level around the rune; brackets are only tracked when
// nested is set. Openers are reported at the outer level, closers after the
// level drops. fn returns false to stop the walk.
func walk(s string, nested bool, fn func(i int, r rune, depth int) bool) {
	depth := 0
	for i := 0; i < len(s); {
		if c := s[i]; c == '"' || c == '\'' {
			if end := skipQuoted(s, i); end > i {
				i = end
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		d := depth
		if nested {
			switch r {
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				if depth > 0 {
					depth--
				}
				d = depth
			}
		}
		if !fn(i, r, d) {
			return
		}
		i += size
	}
}

// splitTopLevel splits s on any rune of seps that sits outside quotes (and
// outside brackets when nested is set).
func splitTopLevel(s string, seps string, nested bool) []string {
	var parts []string
	start := 0
	walk(s, nested, func(i int, r rune, depth int) bool {
		if depth == 0 && strings.ContainsRune(seps, r) {
			parts = append(parts, s[start:i])
			start = i + utf8.RuneLen(r)
		}
		return true
	})
	return append(parts, s[start:])
}

func indexTopLevel(s string, target rune, nested bool) int {
	idx := -1
	walk(s, nested, func(i int, r rune, depth int) bool {
		if depth == 0 && r == target {
			idx = i
			return false
		}
		return true
	})
	return idx
}

var closers = map[byte]rune{'(': ')', '[': ']', '{': '}'}

// matchClose returns the offset of the bracket closing the one at s[0], or -1
// when it is unbalanced or closed by the wrong kind.
func matchClose(s string) int {
	want, ok := closers[s[0]]
	if !ok {
		return -1
	}
	idx := -1
	walk(s, true, func(i int, r rune, depth int) bool {
		if i == 0 || depth != 0 {
			return true
		}
		switch r {
		case ')', ']', '}':
			if r == want {
				idx = i
			}
			return false
		}
		return true
	})
	return idx
}

// IsEmpty reports whether a raw field is one of the "no value" markers.
func IsEmpty(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return trimmed == "" || trimmed == "-"
}

// unquote strips surrounding double quotes only when they protect one of
// the special delimiters. A plainly quoted utterance keeps its quotes.
func unquote(s, special string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' && strings.ContainsAny(s[1:len(s)-1], special) {
		return s[1 : len(s)-1]
	}
	return s
}

func quoteIfNeeded(s, special string) string {
	if strings.ContainsAny(s, special) {
		return `"` + s + `"`
	}
	return s
}

func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	digits := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			digits = true
		case r == '+', r == '-', r == 'e', r == 'E':
		default:
			return false
		}
	}
	return digits
}
