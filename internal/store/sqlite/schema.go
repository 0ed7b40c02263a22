package sqlite

import (
	"context"
	"fmt"
	"strings"
)

const ddl = `
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
	imported_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS session_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session     TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	node_id     INTEGER NOT NULL DEFAULT 0,
	payload     TEXT NOT NULL DEFAULT '{}',
	recorded_at TEXT NOT NULL,
	CONSTRAINT uq_session_seq UNIQUE (session, seq)
);

-- journal lookups are always per session
CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events (session);
CREATE INDEX IF NOT EXISTS idx_session_events_kind ON session_events (kind);
CREATE INDEX IF NOT EXISTS idx_dialog_rows_node ON dialog_rows (node_id);
`

func (c *Client) EnsureSchema(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(ddl) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}
	return nil
}

func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(stripped, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}

	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}
