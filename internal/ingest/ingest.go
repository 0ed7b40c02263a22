// Package ingest copies a dialogue CSV into the store, skipping sources
// whose content has not changed since the last import.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"dialogsmith/internal/dialog"
	"dialogsmith/internal/store"
)

type Store interface {
	EnsureSchema(ctx context.Context) error
	GetSource(ctx context.Context, path string) (*store.Source, error)
	ReplaceNodes(ctx context.Context, src store.Source, rows []dialog.Row) error
}

type Options struct {
	Full bool
}

type Result struct {
	Path     string
	Hash     string
	Rows     int
	Nodes    int
	Skipped  bool
	Warnings []dialog.Warning
}

// Run imports path. A source that fails to load as a graph is not written.
func Run(ctx context.Context, path string, db Store, options Options) (*Result, error) {
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	result := &Result{Path: path, Hash: computeHash(data)}

	if !options.Full {
		existing, err := db.GetSource(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("get source hash: %w", err)
		}
		if existing != nil && existing.Hash == result.Hash {
			result.Skipped = true
			result.Rows = existing.Rows
			return result, nil
		}
	}

	rows, err := dialog.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	g, err := dialog.Load(rows)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	if err := db.ReplaceNodes(ctx, store.Source{Path: path, Hash: result.Hash}, rows); err != nil {
		return nil, fmt.Errorf("storing rows: %w", err)
	}
	result.Rows = len(rows)
	result.Nodes = g.Len()
	result.Warnings = g.Warnings()
	return result, nil
}

func computeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
