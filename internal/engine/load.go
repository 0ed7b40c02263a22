package engine

import (
	"errors"

	"dialogsmith/internal/dialog"
)

// LoadGraph builds a graph and reports its warnings, or the load error, to
// sink.
func LoadGraph(rows []dialog.Row, sink Sink) (*dialog.Graph, error) {
	if sink == nil {
		sink = discard{}
	}
	g, err := dialog.Load(rows)
	if err != nil {
		e := Event{Kind: KindLoadError, Message: err.Error()}
		var loadErr *dialog.LoadError
		if errors.As(err, &loadErr) {
			e.Row = loadErr.Row
			e.NodeID = loadErr.ID
		}
		sink.Emit(e)
		return nil, err
	}
	for _, w := range g.Warnings() {
		sink.Emit(Event{Kind: KindLoadWarning, Row: w.Row, NodeID: w.NodeID, Message: string(w.Kind) + ": " + w.Message})
	}
	return g, nil
}
