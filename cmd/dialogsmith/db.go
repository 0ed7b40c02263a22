package main

import (
	"context"
	"fmt"
	"strings"

	"dialogsmith/internal/config"
	"dialogsmith/internal/store"
	"dialogsmith/internal/store/postgres"
	"dialogsmith/internal/store/sqlite"
)

func openDB(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	dsn := cfg.Source.DSN
	var (
		db  store.Store
		err error
	)
	switch {
	case dsn == "":
		return nil, fmt.Errorf("source.dsn is not configured")
	case strings.HasPrefix(dsn, "sqlite://"):
		db, err = sqlite.New(ctx, dsn)
	default:
		db, err = postgres.New(ctx, dsn)
	}
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		_ = db.Close(ctx)
		return nil, err
	}
	return db, nil
}
