package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dialogsmith/internal/config"
)

// openSessionLog creates logs/session_<timestamp>.log and a JSON logger
// writing to it.
func openSessionLog(cfg *config.ProjectConfig) (*slog.Logger, func() error, error) {
	if err := os.MkdirAll(cfg.Log.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log dir: %w", err)
	}
	path := filepath.Join(cfg.Log.Dir, "session_"+time.Now().Format("20060102_150405")+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening session log: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	logger = logger.With("project", cfg.Project)
	return logger, f.Close, nil
}
