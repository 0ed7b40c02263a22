package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dialogsmith/internal/dialog"
	"dialogsmith/internal/store"
)

// ReplaceNodes swaps the whole row table and records the source in one
// transaction.
func (c *Client) ReplaceNodes(ctx context.Context, src store.Source, rows []dialog.Row) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM dialog_rows`); err != nil {
		return fmt.Errorf("clearing rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO dialog_rows (position, line, node_id, speaker, text_pool, player_choices, effects, emotion, audio)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, i, row.Line, row.ID, row.Speaker, row.TextPool,
			row.PlayerChoices, row.Effects, row.Emotion, row.Audio); err != nil {
			return fmt.Errorf("inserting row %d: %w", i+1, err)
		}
	}

	importedAt := src.ImportedAt
	if importedAt.IsZero() {
		importedAt = c.now()
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO sources (path, hash, row_count, imported_at) VALUES (?, ?, ?, ?)
ON CONFLICT (path) DO UPDATE SET hash = excluded.hash, row_count = excluded.row_count, imported_at = excluded.imported_at`,
		src.Path, src.Hash, len(rows), importedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("recording source: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rows: %w", err)
	}
	return nil
}

func (c *Client) LoadNodes(ctx context.Context) ([]dialog.Row, error) {
	rows, err := c.db.QueryContext(ctx, `
SELECT line, node_id, speaker, text_pool, player_choices, effects, emotion, audio
FROM dialog_rows ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying rows: %w", err)
	}
	defer rows.Close()

	var out []dialog.Row
	for rows.Next() {
		var r dialog.Row
		if err := rows.Scan(&r.Line, &r.ID, &r.Speaker, &r.TextPool, &r.PlayerChoices, &r.Effects, &r.Emotion, &r.Audio); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

// GetSource returns nil when the path was never imported.
func (c *Client) GetSource(ctx context.Context, path string) (*store.Source, error) {
	var src store.Source
	var importedAt string
	err := c.db.QueryRowContext(ctx, `SELECT path, hash, row_count, imported_at FROM sources WHERE path = ?`, path).
		Scan(&src.Path, &src.Hash, &src.Rows, &importedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying source: %w", err)
	}
	src.ImportedAt, _ = time.Parse(time.RFC3339Nano, importedAt)
	return &src, nil
}
