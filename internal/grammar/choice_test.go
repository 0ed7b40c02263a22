package grammar

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Choice
		auto     bool
	}{
		{
			name:     "text and target",
			input:    "Go ➔2",
			expected: Choice{Text: "Go", NextID: 2},
		},
		{
			name:     "condition",
			input:    "Go ➔2 [HasFlag('Key')]",
			expected: Choice{Text: "Go", NextID: 2, Condition: "HasFlag('Key')"},
		},
		{
			name:     "effect before condition",
			input:    "Pay ➔7 {Reputation += 1} [Reputation > 2]",
			expected: Choice{Text: "Pay", NextID: 7, Condition: "Reputation > 2", Effect: "Reputation += 1"},
		},
		{
			name:     "bare arrow is auto",
			input:    "➔",
			expected: Choice{},
			auto:     true,
		},
		{
			name:     "arrow and id is auto",
			input:    "➔12",
			expected: Choice{NextID: 12},
			auto:     true,
		},
		{
			name:     "auto with effect",
			input:    "➔3 {SetFlag('met')}",
			expected: Choice{NextID: 3, Effect: "SetFlag('met')"},
			auto:     true,
		},
		{
			name:     "no target ends branch",
			input:    "Leave ➔ [Night > 1]",
			expected: Choice{Text: "Leave", Condition: "Night > 1"},
		},
		{
			name:     "brackets nest and quotes protect",
			input:    "Ask ➔4 [HasFlag(']') || (Sanity < 50)]",
			expected: Choice{Text: "Ask", NextID: 4, Condition: "HasFlag(']') || (Sanity < 50)"},
		},
		{
			name:     "quoted text keeps arrow",
			input:    `"Point ➔ there" ➔5`,
			expected: Choice{Text: "Point ➔ there", NextID: 5},
		},
		{
			name:     "space after arrow tolerated",
			input:    "Wait ➔ 9",
			expected: Choice{Text: "Wait", NextID: 9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			choice, err := ParseChoice(tt.input)
			if err != nil {
				t.Fatalf("ParseChoice(%q): %v", tt.input, err)
			}
			if !reflect.DeepEqual(choice, tt.expected) {
				t.Fatalf("ParseChoice(%q) = %#v, want %#v", tt.input, choice, tt.expected)
			}
			if choice.IsAuto() != tt.auto {
				t.Fatalf("expected IsAuto=%v", tt.auto)
			}
		})
	}
}

func TestParseChoiceErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{name: "no arrow", input: "Just text", want: ErrNoArrow},
		{name: "non numeric target", input: "Go ➔abc", want: ErrBadTarget},
		{name: "trailing after id", input: "Go ➔2x", want: ErrTrailingText},
		{name: "unbalanced condition", input: "Go ➔2 [HasFlag('a')", want: ErrUnbalanced},
		{name: "two conditions", input: "Go ➔2 [a] [b]", want: ErrDuplicate},
		{name: "mismatched closer", input: "Go ➔2 [a}", want: ErrUnbalanced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChoice(tt.input)
			if !errors.Is(err, tt.want) {
				t.Fatalf("ParseChoice(%q) error = %v, want %v", tt.input, err, tt.want)
			}
		})
	}
}

func TestParseChoices(t *testing.T) {
	t.Run("pipes inside conditions do not split", func(t *testing.T) {
		choices, errs := ParseChoices("Yes ➔2 [Night > 1 || HasFlag('x')]|No ➔3|➔4")
		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		if len(choices) != 3 {
			t.Fatalf("expected 3 choices, got %#v", choices)
		}
		if choices[0].Condition != "Night > 1 || HasFlag('x')" {
			t.Fatalf("unexpected condition %q", choices[0].Condition)
		}
		if !choices[2].IsAuto() {
			t.Fatalf("expected last choice to be auto")
		}
	})

	t.Run("malformed entries reported with position", func(t *testing.T) {
		choices, errs := ParseChoices("Ok ➔2|broken|Fine ➔3")
		if len(choices) != 2 {
			t.Fatalf("expected 2 valid choices, got %d", len(choices))
		}
		if len(errs) != 1 {
			t.Fatalf("expected 1 error, got %v", errs)
		}
		var choiceErr *ChoiceError
		if !errors.As(errs[0], &choiceErr) || choiceErr.Entry != 1 {
			t.Fatalf("expected ChoiceError for entry 1, got %v", errs[0])
		}
		if !errors.Is(errs[0], ErrNoArrow) {
			t.Fatalf("expected ErrNoArrow, got %v", errs[0])
		}
	})

	t.Run("word initial apostrophes do not quote", func(t *testing.T) {
		tests := []struct {
			input string
			want  []Choice
		}{
			{
				input: "Tell 'em ➔2|Leave 'em ➔3",
				want:  []Choice{{Text: "Tell 'em", NextID: 2}, {Text: "Leave 'em", NextID: 3}},
			},
			{
				input: "'Tis late ➔2|'Cause I said so ➔3 [HasFlag('x')]",
				want:  []Choice{{Text: "'Tis late", NextID: 2}, {Text: "'Cause I said so", NextID: 3, Condition: "HasFlag('x')"}},
			},
			{
				input: "Say 'aye' ➔4|No ➔5",
				want:  []Choice{{Text: "Say 'aye'", NextID: 4}, {Text: "No", NextID: 5}},
			},
		}
		for _, tt := range tests {
			got, errs := ParseChoices(tt.input)
			if len(errs) != 0 {
				t.Fatalf("ParseChoices(%q) errors: %v", tt.input, errs)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ParseChoices(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		}
	})

	t.Run("unbalanced brackets in text do not swallow the list", func(t *testing.T) {
		tests := []struct {
			input string
			want  []Choice
		}{
			{
				input: "Sigh :( ➔2|Leave ➔3",
				want:  []Choice{{Text: "Sigh :(", NextID: 2}, {Text: "Leave", NextID: 3}},
			},
			{
				input: "1) Go ➔2 [Night > 1 || HasFlag('x')]|2) Stay ➔",
				want:  []Choice{{Text: "1) Go", NextID: 2, Condition: "Night > 1 || HasFlag('x')"}, {Text: "2) Stay"}},
			},
		}
		for _, tt := range tests {
			got, errs := ParseChoices(tt.input)
			if len(errs) != 0 {
				t.Fatalf("ParseChoices(%q) errors: %v", tt.input, errs)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ParseChoices(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		}
	})

	t.Run("dash is empty", func(t *testing.T) {
		choices, errs := ParseChoices("-")
		if choices != nil || errs != nil {
			t.Fatalf("expected nothing, got %v %v", choices, errs)
		}
	})
}

func TestFormatChoiceRoundTrip(t *testing.T) {
	choices := []Choice{
		{Text: "Go", NextID: 2},
		{Text: "Go", NextID: 2, Condition: "HasFlag('Key')"},
		{Text: "Bribe", NextID: 8, Condition: "Reputation >= 3 && !HasFlag('caught')", Effect: "Reputation -= 3; SetFlag('bribed')"},
		{},
		{NextID: 5},
		{NextID: 6, Effect: "AddSanity(-5)"},
		{Condition: "IsAtDock", NextID: 1},
		{Text: "Left|Right", NextID: 3},
		{Text: "Say (quietly) hi", NextID: 4},
		{Text: "End here"},
		{Text: `"Halt!"`, NextID: 9},
	}

	for _, want := range choices {
		formatted := FormatChoice(want)
		t.Run(formatted, func(t *testing.T) {
			got, err := ParseChoice(formatted)
			if err != nil {
				t.Fatalf("reparse %q: %v", formatted, err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("round trip of %q = %#v, want %#v", formatted, got, want)
			}
			if got.IsAuto() != want.IsAuto() {
				t.Fatalf("auto flag changed")
			}
		})
	}

	t.Run("list", func(t *testing.T) {
		formatted := FormatChoices(choices)
		got, errs := ParseChoices(formatted)
		if len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		if !reflect.DeepEqual(got, choices) {
			t.Fatalf("list round trip mismatch:\n%#v\n%#v", got, choices)
		}
	})
}
