package engine

import (
	"context"
	"log/slog"
)

// Sink receives every event a session or load emits.
type Sink interface {
	Emit(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

type discard struct{}

func (discard) Emit(Event) {}

// Sinks fans out to several sinks in order.
func Sinks(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(e)
			}
		}
	})
}

// LogSink writes one record per event.
func LogSink(logger *slog.Logger) Sink {
	return SinkFunc(func(e Event) {
		attrs := []slog.Attr{slog.String("kind", string(e.Kind))}
		if e.Session != "" {
			attrs = append(attrs, slog.String("session", e.Session))
		}
		if e.NodeID != 0 {
			attrs = append(attrs, slog.Int("node", e.NodeID))
		}
		if e.Line != nil {
			attrs = append(attrs,
				slog.String("speaker", e.Line.Speaker),
				slog.String("emotion", string(e.Line.Emotion)),
				slog.String("text", e.Line.Text),
			)
			if e.Line.Audio != "" {
				attrs = append(attrs, slog.String("audio", e.Line.Audio))
			}
		}
		if len(e.Choices) > 0 {
			texts := make([]string, 0, len(e.Choices))
			for _, c := range e.Choices {
				texts = append(texts, c.Text)
			}
			attrs = append(attrs, slog.Any("choices", texts))
		}
		if e.Selection != nil {
			attrs = append(attrs, slog.Int("index", e.Selection.Index), slog.Int("next", e.Selection.NextID))
		}
		if e.Statement != "" {
			attrs = append(attrs, slog.String("statement", e.Statement))
		}
		if e.Reason != "" {
			attrs = append(attrs, slog.String("reason", string(e.Reason)))
		}
		if e.Row != 0 {
			attrs = append(attrs, slog.Int("row", e.Row))
		}
		if e.Message != "" {
			attrs = append(attrs, slog.String("detail", e.Message))
		}
		logger.LogAttrs(context.Background(), levelOf(e.Kind), string(e.Kind), attrs...)
	})
}

func levelOf(kind Kind) slog.Level {
	switch kind {
	case KindLoadError:
		return slog.LevelError
	case KindEffectFailed, KindConditionFailed, KindDanglingReference, KindLoadWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
