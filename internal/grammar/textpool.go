package grammar

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultWeight is used for entries without an explicit weight and for
// entries whose weight could not be used.
const DefaultWeight = 1.0

// textSpecial are the runes that force a text entry to be quoted.
const textSpecial = "|*"

// TextEntry is one weighted alternative of a node's text pool.
type TextEntry struct {
	Weight float64
	Text   string
}

// Fallback describes a part of a field that degraded to its documented
// default instead of failing.
type Fallback struct {
	Entry   int
	Message string
}

func (f Fallback) String() string {
	return fmt.Sprintf("entry %d: %s", f.Entry+1, f.Message)
}

// ParseTextPool decodes `entry ( '|' entry )*` where entry is
// `[weight '*'] text`. It never fails: malformed weights become
// DefaultWeight and empty entries are dropped, each reported as a Fallback.
func ParseTextPool(raw string) ([]TextEntry, []Fallback) {
	if IsEmpty(raw) {
		return nil, nil
	}

	var entries []TextEntry
	var fallbacks []Fallback
	for i, part := range splitTopLevel(raw, "|", false) {
		entry, msg := parseTextEntry(part)
		if msg != "" {
			fallbacks = append(fallbacks, Fallback{Entry: i, Message: msg})
		}
		if entry.Text == "" {
			fallbacks = append(fallbacks, Fallback{Entry: i, Message: "empty entry dropped"})
			continue
		}
		entries = append(entries, entry)
	}
	return entries, fallbacks
}

func parseTextEntry(raw string) (TextEntry, string) {
	entry := strings.TrimSpace(raw)
	star := indexTopLevel(entry, '*', false)
	if star < 0 {
		return TextEntry{Weight: DefaultWeight, Text: unquote(entry, textSpecial)}, ""
	}

	prefix := strings.TrimSpace(entry[:star])
	if !looksNumeric(prefix) {
		return TextEntry{Weight: DefaultWeight, Text: unquote(entry, textSpecial)}, ""
	}

	text := unquote(strings.TrimSpace(entry[star+1:]), textSpecial)
	weight, err := strconv.ParseFloat(prefix, 64)
	if err != nil || weight <= 0 || math.IsInf(weight, 0) || math.IsNaN(weight) {
		return TextEntry{Weight: DefaultWeight, Text: text}, fmt.Sprintf("invalid weight %q, using %g", prefix, DefaultWeight)
	}
	return TextEntry{Weight: weight, Text: text}, ""
}

// FormatTextPool renders entries in canonical `weight*text` form, omitting
// the weight when it equals DefaultWeight.
func FormatTextPool(entries []TextEntry) string {
	parts := make([]string, 0, len(entries))
	for _, entry := range entries {
		text := quoteIfNeeded(entry.Text, textSpecial)
		if entry.Weight == DefaultWeight {
			parts = append(parts, text)
			continue
		}
		parts = append(parts, strconv.FormatFloat(entry.Weight, 'g', -1, 64)+"*"+text)
	}
	return strings.Join(parts, "|")
}

// TotalWeight sums the weights of a pool.
func TotalWeight(entries []TextEntry) float64 {
	total := 0.0
	for _, entry := range entries {
		total += entry.Weight
	}
	return total
}
