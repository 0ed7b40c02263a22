package engine

import (
	"fmt"

	"dialogsmith/internal/dialog"
)

type Kind string

const (
	KindNodeEntered       Kind = "node_entered"
	KindTextShown         Kind = "text_shown"
	KindChoicesOffered    Kind = "choices_offered"
	KindChoiceSelected    Kind = "choice_selected"
	KindEffectApplied     Kind = "effect_applied"
	KindEffectFailed      Kind = "effect_failed"
	KindConditionFailed   Kind = "condition_failed"
	KindDanglingReference Kind = "dangling_reference"
	KindBranchEnded       Kind = "branch_ended"
	KindLoadWarning       Kind = "load_warning"
	KindLoadError         Kind = "load_error"
)

// EndReason explains why a branch ended.
type EndReason string

const (
	ReasonNoChoices          EndReason = "no_choices"
	ReasonEndOfBranch        EndReason = "end_of_branch"
	ReasonDanglingReference  EndReason = "dangling_reference"
	ReasonCancelled          EndReason = "cancelled"
	ReasonNoAvailableChoices EndReason = "no_available_choices"
	ReasonAutoStepLimit      EndReason = "auto_step_limit"
)

// Line is the text shown for a node.
type Line struct {
	Speaker string         `json:"speaker"`
	Emotion dialog.Emotion `json:"emotion"`
	Text    string         `json:"text"`
	Audio   string         `json:"audio,omitempty"`
}

// Offered is one selectable choice. Index is its position in the offered
// list, Source its position in the node's choice list.
type Offered struct {
	Index     int    `json:"index"`
	Source    int    `json:"source"`
	Text      string `json:"text"`
	NextID    int    `json:"next_id,omitempty"`
	Condition string `json:"condition,omitempty"`
	Effect    string `json:"effect,omitempty"`
}

// Selection records a taken choice. NextID 0 ends the branch.
type Selection struct {
	Index  int  `json:"index"`
	NextID int  `json:"next_id,omitempty"`
	Auto   bool `json:"auto,omitempty"`
}

// Event is one entry of the structured stream a session emits. Only the
// fields relevant to Kind are set.
type Event struct {
	Kind      Kind       `json:"kind"`
	Session   string     `json:"session,omitempty"`
	NodeID    int        `json:"node_id,omitempty"`
	Line      *Line      `json:"line,omitempty"`
	Choices   []Offered  `json:"choices,omitempty"`
	Selection *Selection `json:"selection,omitempty"`
	Statement string     `json:"statement,omitempty"`
	Reason    EndReason  `json:"reason,omitempty"`
	Row       int        `json:"row,omitempty"`
	Message   string     `json:"message,omitempty"`
}

func (e Event) String() string {
	switch e.Kind {
	case KindTextShown:
		return fmt.Sprintf("%s node=%d %s (%s): %s", e.Kind, e.NodeID, e.Line.Speaker, e.Line.Emotion, e.Line.Text)
	case KindChoicesOffered:
		return fmt.Sprintf("%s node=%d count=%d", e.Kind, e.NodeID, len(e.Choices))
	case KindChoiceSelected:
		return fmt.Sprintf("%s node=%d index=%d next=%d", e.Kind, e.NodeID, e.Selection.Index, e.Selection.NextID)
	case KindEffectApplied, KindEffectFailed, KindConditionFailed:
		return fmt.Sprintf("%s node=%d %q %s", e.Kind, e.NodeID, e.Statement, e.Message)
	case KindBranchEnded:
		return fmt.Sprintf("%s node=%d reason=%s", e.Kind, e.NodeID, e.Reason)
	case KindLoadWarning, KindLoadError:
		return fmt.Sprintf("%s row=%d %s", e.Kind, e.Row, e.Message)
	default:
		return fmt.Sprintf("%s node=%d", e.Kind, e.NodeID)
	}
}

// Ended returns the BranchEnded event in events, if any.
func Ended(events []Event) (Event, bool) {
	for _, e := range events {
		if e.Kind == KindBranchEnded {
			return e, true
		}
	}
	return Event{}, false
}
