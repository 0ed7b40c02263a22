package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	// Sent as one simple-protocol batch, which postgres runs in an implicit
	// transaction.
	ddl := `
CREATE TABLE IF NOT EXISTS dialog_rows (
    position       INTEGER PRIMARY KEY,
    line           INTEGER NOT NULL DEFAULT 0,
    node_id        TEXT NOT NULL,
    speaker        TEXT NOT NULL DEFAULT '',
    text_pool      TEXT NOT NULL DEFAULT '',
    player_choices TEXT NOT NULL DEFAULT '',
    effects        TEXT NOT NULL DEFAULT '',
    emotion        TEXT NOT NULL DEFAULT '',
    audio          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sources (
    path        TEXT PRIMARY KEY,
    hash        TEXT NOT NULL,
    row_count   INTEGER NOT NULL DEFAULT 0,
    imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS session_events (
    id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    session     TEXT NOT NULL,
    seq         INTEGER NOT NULL,
    kind        TEXT NOT NULL,
    node_id     INTEGER NOT NULL DEFAULT 0,
    payload     JSONB NOT NULL DEFAULT '{}',
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT uq_session_seq UNIQUE (session, seq)
);

CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events (session);
CREATE INDEX IF NOT EXISTS idx_session_events_kind ON session_events (kind);
CREATE INDEX IF NOT EXISTS idx_dialog_rows_node ON dialog_rows (node_id);
`
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("executing DDL: %w", err)
	}
	return nil
}
