package grammar

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseEffect(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Statement
	}{
		{
			name:     "set flag quoted",
			input:    "SetFlag('MetKeeper')",
			expected: []Statement{{Name: "SetFlag", Arg: "MetKeeper"}},
		},
		{
			name:     "set flag double quoted",
			input:    `SetFlag("Saw the light")`,
			expected: []Statement{{Name: "SetFlag", Arg: "Saw the light"}},
		},
		{
			name:     "set flag bare",
			input:    "SetFlag(Key)",
			expected: []Statement{{Name: "SetFlag", Arg: "Key"}},
		},
		{
			name:     "add sanity negative",
			input:    "AddSanity(-10)",
			expected: []Statement{{Name: "AddSanity", Arg: "-10", Value: Number(-10)}},
		},
		{
			name:     "assignment",
			input:    "Reputation = 5",
			expected: []Statement{{Name: "Reputation", Op: "=", Value: Number(5)}},
		},
		{
			name:     "increment",
			input:    "Night+=1",
			expected: []Statement{{Name: "Night", Op: "+=", Value: Number(1)}},
		},
		{
			name:     "decrement fractional",
			input:    "Confidence -= 0.5",
			expected: []Statement{{Name: "Confidence", Op: "-=", Value: Number(0.5)}},
		},
		{
			name:     "boolean assignment python style",
			input:    "IsAtDock = False",
			expected: []Statement{{Name: "IsAtDock", Op: "=", Value: Bool(false)}},
		},
		{
			name:  "sequence",
			input: "SetFlag('a'); Reputation += 2, AddSanity(5)",
			expected: []Statement{
				{Name: "SetFlag", Arg: "a"},
				{Name: "Reputation", Op: "+=", Value: Number(2)},
				{Name: "AddSanity", Arg: "5", Value: Number(5)},
			},
		},
		{
			name:     "separator inside quotes",
			input:    "SetFlag('a;b,c')",
			expected: []Statement{{Name: "SetFlag", Arg: "a;b,c"}},
		},
		{
			name:  "empty",
			input: "-",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts, err := ParseEffect(tt.input)
			if err != nil {
				t.Fatalf("ParseEffect(%q): %v", tt.input, err)
			}
			if !reflect.DeepEqual(stmts, tt.expected) {
				t.Fatalf("ParseEffect(%q) = %#v, want %#v", tt.input, stmts, tt.expected)
			}
		})
	}
}

func TestParseEffectRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{name: "arbitrary call", input: "os.system('rm')", want: ErrEffectSyntax},
		{name: "unknown builtin", input: "Teleport(3)", want: ErrUnknownBuiltin},
		{name: "comparison is not an effect", input: "Sanity == 3", want: ErrEffectSyntax},
		{name: "expression literal", input: "Sanity = Sanity + 1", want: ErrEffectSyntax},
		{name: "increment by bool", input: "Night += true", want: ErrEffectSyntax},
		{name: "add sanity non numeric", input: "AddSanity(lots)", want: ErrEffectSyntax},
		{name: "set flag empty", input: "SetFlag('')", want: ErrEffectSyntax},
		{name: "trailing tokens", input: "SetFlag('a') extra", want: ErrEffectSyntax},
		{name: "nan literal", input: "Sanity = NaN", want: ErrEffectSyntax},
		{name: "only separators", input: ";;", want: ErrEffectSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseEffect(tt.input); !errors.Is(err, tt.want) {
				t.Fatalf("ParseEffect(%q) error = %v, want %v", tt.input, err, tt.want)
			}
		})
	}
}

func TestFormatEffectRoundTrip(t *testing.T) {
	input := "SetFlag(\"a b\"), AddSanity(-3); Reputation -= 2; IsAtDock = true"
	stmts, err := ParseEffect(input)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	canonical := FormatEffect(stmts)
	if canonical != "SetFlag('a b'); AddSanity(-3); Reputation -= 2; IsAtDock = true" {
		t.Fatalf("unexpected canonical form %q", canonical)
	}
	again, err := ParseEffect(canonical)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if !reflect.DeepEqual(again, stmts) {
		t.Fatalf("round trip mismatch: %#v vs %#v", again, stmts)
	}
}
