// Package dialog builds the dialogue graph from tabular rows.
package dialog

import (
	"strconv"

	"golang.org/x/text/cases"

	"dialogsmith/internal/grammar"
)

// PlayerSpeaker marks nodes whose choices are offered to the player.
const PlayerSpeaker = "Player"

type Emotion string

const (
	EmotionNeutral    Emotion = "Neutral"
	EmotionHappy      Emotion = "Happy"
	EmotionSad        Emotion = "Sad"
	EmotionAngry      Emotion = "Angry"
	EmotionSurprised  Emotion = "Surprised"
	EmotionFearful    Emotion = "Fearful"
	EmotionDisgusted  Emotion = "Disgusted"
	EmotionWorried    Emotion = "Worried"
	EmotionHopeful    Emotion = "Hopeful"
	EmotionThoughtful Emotion = "Thoughtful"
)

// Emotions lists the closed label set in display order.
var Emotions = []Emotion{
	EmotionNeutral, EmotionHappy, EmotionSad, EmotionAngry, EmotionSurprised,
	EmotionFearful, EmotionDisgusted, EmotionWorried, EmotionHopeful, EmotionThoughtful,
}

var emotionByFold = func() map[string]Emotion {
	fold := cases.Fold()
	m := make(map[string]Emotion, len(Emotions))
	for _, e := range Emotions {
		m[fold.String(string(e))] = e
	}
	return m
}()

// ParseEmotion matches a label case-insensitively. Empty input is Neutral;
// anything else outside the set is Neutral with ok == false.
func ParseEmotion(raw string) (Emotion, bool) {
	if grammar.IsEmpty(raw) {
		return EmotionNeutral, true
	}
	e, ok := emotionByFold[cases.Fold().String(raw)]
	if !ok {
		return EmotionNeutral, false
	}
	return e, true
}

// Node is one immutable dialogue unit.
type Node struct {
	ID       int
	Speaker  string
	TextPool []grammar.TextEntry
	Choices  []grammar.Choice
	Effect   string
	Emotion  Emotion
	Audio    string
}

// IsPlayer reports whether the node awaits player input.
func (n *Node) IsPlayer() bool { return n.Speaker == PlayerSpeaker }

// IsTerminal reports whether the node has no outgoing choices.
func (n *Node) IsTerminal() bool { return len(n.Choices) == 0 }

// AllAuto reports whether every choice routes without player input.
func (n *Node) AllAuto() bool {
	if len(n.Choices) == 0 {
		return false
	}
	for _, c := range n.Choices {
		if !c.IsAuto() {
			return false
		}
	}
	return true
}

// Row renders the node back to its tabular form.
func (n *Node) Row() Row {
	return Row{
		ID:            strconv.Itoa(n.ID),
		Speaker:       n.Speaker,
		TextPool:      orDash(grammar.FormatTextPool(n.TextPool)),
		PlayerChoices: orDash(grammar.FormatChoices(n.Choices)),
		Effects:       orDash(n.Effect),
		Emotion:       string(n.Emotion),
		Audio:         orDash(n.Audio),
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
