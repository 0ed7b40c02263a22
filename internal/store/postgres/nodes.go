package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"dialogsmith/internal/dialog"
	"dialogsmith/internal/store"
)

func (c *Client) ReplaceNodes(ctx context.Context, src store.Source, rows []dialog.Row) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM dialog_rows`); err != nil {
		return fmt.Errorf("clearing rows: %w", err)
	}

	batch := &pgx.Batch{}
	for i, row := range rows {
		batch.Queue(`
INSERT INTO dialog_rows (position, line, node_id, speaker, text_pool, player_choices, effects, emotion, audio)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			i, row.Line, row.ID, row.Speaker, row.TextPool, row.PlayerChoices, row.Effects, row.Emotion, row.Audio)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting rows: %w", err)
	}

	importedAt := src.ImportedAt
	if importedAt.IsZero() {
		importedAt = time.Now()
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO sources (path, hash, row_count, imported_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (path) DO UPDATE SET hash = EXCLUDED.hash, row_count = EXCLUDED.row_count, imported_at = EXCLUDED.imported_at`,
		src.Path, src.Hash, len(rows), importedAt); err != nil {
		return fmt.Errorf("recording source: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing rows: %w", err)
	}
	return nil
}

func (c *Client) LoadNodes(ctx context.Context) ([]dialog.Row, error) {
	rows, err := c.pool.Query(ctx, `
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

func (c *Client) GetSource(ctx context.Context, path string) (*store.Source, error) {
	var src store.Source
	err := c.pool.QueryRow(ctx, `SELECT path, hash, row_count, imported_at FROM sources WHERE path = $1`, path).
		Scan(&src.Path, &src.Hash, &src.Rows, &src.ImportedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying source: %w", err)
	}
	return &src, nil
}
