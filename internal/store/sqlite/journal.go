package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dialogsmith/internal/engine"
	"dialogsmith/internal/store"
)

// AppendEvents numbers events per session after the last stored one.
func (c *Client) AppendEvents(ctx context.Context, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	next := make(map[string]int)
	recordedAt := c.now().UTC().Format(time.RFC3339Nano)
	for _, e := range events {
		if e.Session == "" {
			return fmt.Errorf("event %s has no session", e.Kind)
		}
		seq, ok := next[e.Session]
		if !ok {
			if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM session_events WHERE session = ?`, e.Session).Scan(&seq); err != nil {
				return fmt.Errorf("reading sequence: %w", err)
			}
		}
		seq++
		next[e.Session] = seq

		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding event: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO session_events (session, seq, kind, node_id, payload, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
			e.Session, seq, string(e.Kind), e.NodeID, string(payload), recordedAt); err != nil {
			return fmt.Errorf("inserting event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing events: %w", err)
	}
	return nil
}

func (c *Client) ListSessionEvents(ctx context.Context, session string) ([]store.JournalEntry, error) {
	rows, err := c.db.QueryContext(ctx, `
SELECT seq, payload, recorded_at FROM session_events WHERE session = ? ORDER BY seq`, session)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []store.JournalEntry
	for rows.Next() {
		var entry store.JournalEntry
		var payload, recordedAt string
		if err := rows.Scan(&entry.Seq, &payload, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &entry.Event); err != nil {
			return nil, fmt.Errorf("decoding event %d: %w", entry.Seq, err)
		}
		entry.Session = session
		entry.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return out, nil
}

func (c *Client) ListSessions(ctx context.Context) ([]store.SessionSummary, error) {
	rows, err := c.db.QueryContext(ctx, `
SELECT session, COUNT(*), MIN(recorded_at), MAX(recorded_at),
       SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END)
FROM session_events GROUP BY session ORDER BY MIN(recorded_at), session`, string(engine.KindBranchEnded))
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var out []store.SessionSummary
	for rows.Next() {
		var s store.SessionSummary
		var first, last string
		var ended int
		if err := rows.Scan(&s.Session, &s.Events, &first, &last, &ended); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		s.FirstAt, _ = time.Parse(time.RFC3339Nano, first)
		s.LastAt, _ = time.Parse(time.RFC3339Nano, last)
		s.Ended = ended > 0
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return out, nil
}
