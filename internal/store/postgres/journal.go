package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"dialogsmith/internal/engine"
	"dialogsmith/internal/store"
)

func (c *Client) AppendEvents(ctx context.Context, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	next := make(map[string]int)
	for _, e := range events {
		if e.Session == "" {
			return fmt.Errorf("event %s has no session", e.Kind)
		}
		seq, ok := next[e.Session]
		if !ok {
			if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM session_events WHERE session = $1`, e.Session).Scan(&seq); err != nil {
				return fmt.Errorf("reading sequence: %w", err)
			}
		}
		seq++
		next[e.Session] = seq

		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding event: %w", err)
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO session_events (session, seq, kind, node_id, payload) VALUES ($1, $2, $3, $4, $5)`,
			e.Session, seq, string(e.Kind), e.NodeID, payload); err != nil {
			return fmt.Errorf("inserting event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing events: %w", err)
	}
	return nil
}

func (c *Client) ListSessionEvents(ctx context.Context, session string) ([]store.JournalEntry, error) {
	rows, err := c.pool.Query(ctx, `
SELECT seq, payload, recorded_at FROM session_events WHERE session = $1 ORDER BY seq`, session)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []store.JournalEntry
	for rows.Next() {
		entry := store.JournalEntry{Session: session}
		var payload []byte
		if err := rows.Scan(&entry.Seq, &payload, &entry.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		if err := json.Unmarshal(payload, &entry.Event); err != nil {
			return nil, fmt.Errorf("decoding event %d: %w", entry.Seq, err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return out, nil
}

func (c *Client) ListSessions(ctx context.Context) ([]store.SessionSummary, error) {
	rows, err := c.pool.Query(ctx, `
SELECT session, COUNT(*), MIN(recorded_at), MAX(recorded_at), BOOL_OR(kind = $1)
FROM session_events GROUP BY session ORDER BY MIN(recorded_at), session`, string(engine.KindBranchEnded))
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var out []store.SessionSummary
	for rows.Next() {
		var s store.SessionSummary
		if err := rows.Scan(&s.Session, &s.Events, &s.FirstAt, &s.LastAt, &s.Ended); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return out, nil
}
