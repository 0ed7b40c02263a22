package engine

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"dialogsmith/internal/dialog"
	"dialogsmith/internal/grammar"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

func mustLoad(t *testing.T, rows ...dialog.Row) *dialog.Graph {
	t.Helper()
	g, err := dialog.Load(rows)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return g
}

func kinds(events []Event) []Kind {
	out := make([]Kind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func count(events []Event, kind Kind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func harbor(t *testing.T) *dialog.Graph {
	return mustLoad(t,
		dialog.Row{ID: "1", Speaker: "Anna", TextPool: "Evening.", PlayerChoices: "➔2"},
		dialog.Row{ID: "2", Speaker: "Player", TextPool: "-", PlayerChoices: "Go ➔3 [HasFlag('Key')]|Search ➔2 {SetFlag('Key')}|Leave ➔"},
		dialog.Row{ID: "3", Speaker: "Anna", TextPool: "The door opens.", PlayerChoices: "-", Effects: "AddSanity(-10)"},
	)
}

func TestTerminalNode(t *testing.T) {
	g := mustLoad(t, dialog.Row{ID: "1", Speaker: "Anna", TextPool: "Bye.", PlayerChoices: "-"})
	s, events, err := Start(g, 1, WithSeed(1))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	want := []Kind{KindNodeEntered, KindTextShown, KindBranchEnded}
	if got := kinds(events); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if !s.Done() || s.Reason() != ReasonNoChoices {
		t.Fatalf("done=%v reason=%s", s.Done(), s.Reason())
	}
	if events[1].Line.Text != "Bye." {
		t.Fatalf("text = %q", events[1].Line.Text)
	}
	if _, err := s.Submit(0); !errors.Is(err, ErrSessionEnded) {
		t.Fatalf("Submit after end = %v, want ErrSessionEnded", err)
	}
}

func TestConditionGatesOffer(t *testing.T) {
	s, events, err := Start(harbor(t), 1, WithSeed(7))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.Done() {
		t.Fatal("session ended before the player decision")
	}
	if count(events, KindChoiceSelected) != 1 {
		t.Fatalf("auto transition missing: %v", kinds(events))
	}
	offered := s.Offered()
	if len(offered) != 2 || offered[0].Text != "Search" || offered[1].Text != "Leave" {
		t.Fatalf("offered = %+v", offered)
	}

	if _, err := s.Submit(2); !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("Submit(2) = %v, want ErrInvalidChoice", err)
	}
	if s.Current() != 2 || len(s.Offered()) != 2 {
		t.Fatal("invalid selection moved the session")
	}

	events, err = s.Submit(0)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if count(events, KindEffectApplied) != 1 {
		t.Fatalf("effect not applied: %v", kinds(events))
	}
	offered = s.Offered()
	if len(offered) != 3 || offered[0].Text != "Go" || offered[0].NextID != 3 {
		t.Fatalf("offered after flag = %+v", offered)
	}

	events, err = s.Submit(0)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	end, ok := Ended(events)
	if !ok || end.Reason != ReasonNoChoices || end.NodeID != 3 {
		t.Fatalf("end = %+v", end)
	}
	if v, _ := s.State().Var("Sanity"); v.Num != 90 {
		t.Fatalf("Sanity = %v, want 90", v.Num)
	}
}

func TestSubmitEndsBranch(t *testing.T) {
	s, _, _ := Start(harbor(t), 2, WithSeed(3))
	events, err := s.Submit(1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if end, _ := Ended(events); end.Reason != ReasonEndOfBranch {
		t.Fatalf("reason = %s, want end_of_branch", end.Reason)
	}
}

func TestDanglingReference(t *testing.T) {
	g := mustLoad(t,
		dialog.Row{ID: "1", Speaker: "Player", TextPool: "Where?", PlayerChoices: "North ➔9"},
	)
	s, _, _ := Start(g, 1, WithSeed(1))
	events, err := s.Submit(0)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	want := []Kind{KindChoiceSelected, KindDanglingReference, KindBranchEnded}
	if got := kinds(events); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if s.Reason() != ReasonDanglingReference {
		t.Fatalf("reason = %s", s.Reason())
	}

	_, events, _ = Start(g, 42)
	if end, _ := Ended(events); end.Reason != ReasonDanglingReference {
		t.Fatalf("missing start reason = %s", end.Reason)
	}
}

func TestCancel(t *testing.T) {
	s, _, _ := Start(harbor(t), 1, WithSeed(1))
	events, err := s.Cancel()
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if end, _ := Ended(events); end.Reason != ReasonCancelled {
		t.Fatalf("reason = %s", end.Reason)
	}
	if count(events, KindEffectApplied) != 0 {
		t.Fatal("cancel applied an effect")
	}
	if _, err := s.Cancel(); !errors.Is(err, ErrSessionEnded) {
		t.Fatalf("second cancel = %v", err)
	}
}

func TestFailures(t *testing.T) {
	g := mustLoad(t,
		dialog.Row{ID: "1", Speaker: "Anna", TextPool: "Hm.", PlayerChoices: "➔2", Effects: "Unknown = 5"},
		dialog.Row{ID: "2", Speaker: "Player", TextPool: "-", PlayerChoices: "Broken ➔1 [Reputation >]|Fine ➔"},
	)
	s, events, err := Start(g, 1, WithSeed(1))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if count(events, KindEffectFailed) != 1 || count(events, KindTextShown) != 1 {
		t.Fatalf("events = %v", kinds(events))
	}
	if count(events, KindConditionFailed) != 1 {
		t.Fatalf("condition failure not reported: %v", kinds(events))
	}
	if offered := s.Offered(); len(offered) != 1 || offered[0].Text != "Fine" {
		t.Fatalf("offered = %+v", offered)
	}
}

func TestNoAvailableChoices(t *testing.T) {
	g := mustLoad(t,
		dialog.Row{ID: "1", Speaker: "Player", TextPool: "Locked.", PlayerChoices: "Open ➔1 [HasFlag('Key')]"},
	)
	s, _, _ := Start(g, 1)
	if s.Reason() != ReasonNoAvailableChoices {
		t.Fatalf("reason = %s", s.Reason())
	}
}

func TestNonPlayerFollowsFirstHoldingChoice(t *testing.T) {
	g := mustLoad(t,
		dialog.Row{ID: "1", Speaker: "Anna", TextPool: "Hm.", PlayerChoices: "Stay ➔2 [Night > 1]|Go ➔3"},
		dialog.Row{ID: "2", Speaker: "Anna", TextPool: "Late.", PlayerChoices: "-"},
		dialog.Row{ID: "3", Speaker: "Anna", TextPool: "Early.", PlayerChoices: "-"},
	)
	s, _, _ := Start(g, 1)
	if s.Current() != 3 {
		t.Fatalf("current = %d, want 3", s.Current())
	}
}

func TestAutoStepLimit(t *testing.T) {
	g := mustLoad(t,
		dialog.Row{ID: "1", Speaker: "Anna", TextPool: "Round.", PlayerChoices: "➔2"},
		dialog.Row{ID: "2", Speaker: "Anna", TextPool: "And round.", PlayerChoices: "➔1"},
	)
	s, events, _ := Start(g, 1, WithStepLimit(5))
	if s.Reason() != ReasonAutoStepLimit {
		t.Fatalf("reason = %s", s.Reason())
	}
	if n := count(events, KindChoiceSelected); n != 5 {
		t.Fatalf("transitions = %d, want 5", n)
	}
}

func TestSampleBoundaries(t *testing.T) {
	pool := []grammar.TextEntry{{Weight: 3, Text: "A"}, {Weight: 1, Text: "B"}}
	tests := []struct {
		draw float64
		want int
	}{
		{0, 0},
		{0.5, 0},
		{0.75, 0},
		{0.76, 1},
		{0.999, 1},
	}
	for _, tt := range tests {
		got, ok := Sample(pool, fixedSource(tt.draw))
		if !ok || got != tt.want {
			t.Errorf("Sample(draw=%v) = %d, want %d", tt.draw, got, tt.want)
		}
	}
	if _, ok := Sample(nil, fixedSource(0)); ok {
		t.Fatal("Sample on empty pool reported ok")
	}
}

func TestSampleConverges(t *testing.T) {
	pool := []grammar.TextEntry{{Weight: 3, Text: "A"}, {Weight: 1, Text: "B"}}
	src, _ := NewSource(42)
	const n = 40000
	counts := [2]int{}
	for range n {
		i, _ := Sample(pool, src)
		counts[i]++
	}
	ratio := float64(counts[0]) / float64(counts[1])
	if math.Abs(ratio-3) > 0.2 {
		t.Fatalf("ratio = %.3f, want about 3", ratio)
	}
}

func TestSeedReproducible(t *testing.T) {
	g := mustLoad(t, dialog.Row{ID: "1", Speaker: "Anna", TextPool: "A|B|C|D|E", PlayerChoices: "-"})
	texts := func(seed uint64) []string {
		var out []string
		for range 20 {
			_, events, _ := Start(g, 1, WithSeed(seed))
			out = append(out, events[1].Line.Text)
			seed++
		}
		return out
	}
	if a, b := texts(99), texts(99); !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed diverged: %v vs %v", a, b)
	}
}

func TestSinkReceivesEvents(t *testing.T) {
	var got []Event
	sink := SinkFunc(func(e Event) { got = append(got, e) })
	s, events, _ := Start(harbor(t), 1, WithSink(sink), WithID("fixed"))
	if !reflect.DeepEqual(got, events) {
		t.Fatalf("sink saw %v, returned %v", kinds(got), kinds(events))
	}
	if s.ID() != "fixed" || got[0].Session != "fixed" {
		t.Fatalf("session id = %q / %q", s.ID(), got[0].Session)
	}
}

func TestLoadGraph(t *testing.T) {
	var got []Event
	sink := SinkFunc(func(e Event) { got = append(got, e) })

	_, err := LoadGraph([]dialog.Row{
		{ID: "1", Speaker: "Anna", TextPool: "Hi", PlayerChoices: "-"},
		{ID: "1", Speaker: "Anna", TextPool: "Hi", PlayerChoices: "-"},
	}, sink)
	if !errors.Is(err, dialog.ErrDuplicateID) {
		t.Fatalf("err = %v", err)
	}
	if len(got) != 1 || got[0].Kind != KindLoadError || got[0].NodeID != 1 {
		t.Fatalf("events = %+v", got)
	}

	got = nil
	g, err := LoadGraph([]dialog.Row{{ID: "1", Speaker: "Anna", TextPool: "Hi", PlayerChoices: "➔5"}}, sink)
	if err != nil || g == nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].Kind != KindLoadWarning {
		t.Fatalf("events = %+v", got)
	}
}
