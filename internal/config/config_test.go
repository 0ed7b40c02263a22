package config

import (
	"os"
	"path/filepath"
	"testing"

	"dialogsmith/internal/grammar"
	"dialogsmith/internal/state"
)

func TestLoadProjectConfig(t *testing.T) {
	t.Run("valid config loads", func(t *testing.T) {
		cfg, err := LoadProjectConfig(filepath.Join("testdata", "valid_config.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Project != "harbor" || cfg.Seed != 42 || cfg.StartID != 1 {
			t.Fatalf("unexpected config: %+v", cfg)
		}
		if cfg.Serve.Addr != "localhost:8080" || cfg.Neo4j.Database != "neo4j" {
			t.Fatalf("defaults not applied: %+v", cfg)
		}
		vars, err := cfg.DeclaredVariables()
		if err != nil {
			t.Fatalf("variables: %v", err)
		}
		if vars["Gold"] != state.Num(10) || vars["Fog"] != state.Bool(true) || vars["Tide"] != state.Num(0.5) {
			t.Fatalf("variables = %v", vars)
		}
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("DIALOGSMITH_CSV", "other.csv")
		t.Setenv("DIALOGSMITH_LOG_LEVEL", "warn")
		t.Setenv("DIALOGSMITH_SEED", "7")
		cfg, err := LoadProjectConfig(filepath.Join("testdata", "valid_config.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Source.CSV != "other.csv" || cfg.Log.Level != "warn" || cfg.Seed != 7 {
			t.Fatalf("overrides not applied: %+v", cfg)
		}
	})

	t.Run("bad env seed", func(t *testing.T) {
		t.Setenv("DIALOGSMITH_SEED", "soon")
		if _, err := LoadProjectConfig(filepath.Join("testdata", "valid_config.yaml")); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("env supplies source", func(t *testing.T) {
		t.Setenv("DIALOGSMITH_DSN", "sqlite://:memory:")
		path := writeTempConfig(t, "project: test\nversion: 1\n")
		cfg, err := LoadProjectConfig(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Log.Dir != "logs" || cfg.Log.Level != "info" {
			t.Fatalf("defaults not applied: %+v", cfg.Log)
		}
	})

	failures := []struct {
		name     string
		contents string
	}{
		{"missing project name", "version: 1\nsource:\n  csv: d.csv\n"},
		{"wrong version", "project: test\nversion: 2\nsource:\n  csv: d.csv\n"},
		{"no source", "project: test\nversion: 1\n"},
		{"bad dsn scheme", "project: test\nversion: 1\nsource:\n  dsn: mysql://x\n"},
		{"negative start", "project: test\nversion: 1\nstart_id: -1\nsource:\n  csv: d.csv\n"},
		{"bad log level", "project: test\nversion: 1\nlog:\n  level: loud\nsource:\n  csv: d.csv\n"},
		{"string variable", "project: test\nversion: 1\nsource:\n  csv: d.csv\nvariables:\n  Name: anna\n"},
		{"variable shadows with other kind", "project: test\nversion: 1\nsource:\n  csv: d.csv\nvariables:\n  Sanity: true\n"},
		{"variable not identifier", "project: test\nversion: 1\nsource:\n  csv: d.csv\nvariables:\n  \"has space\": 1\n"},
		{"invalid yaml", "project: [\n"},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempConfig(t, tt.contents)
			if _, err := LoadProjectConfig(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	t.Run("file not found", func(t *testing.T) {
		if _, err := LoadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestTemplateLoads(t *testing.T) {
	path := writeTempConfig(t, Template("demo", "dialogue.csv"))
	cfg, err := LoadProjectConfig(path)
	if err != nil {
		t.Fatalf("template does not load: %v", err)
	}
	if cfg.Project != "demo" || cfg.Source.CSV != "dialogue.csv" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestDeclaredVariablesMatchEffectNames(t *testing.T) {
	for _, name := range []string{"Gold", "_hidden", "Größe", "Tide2"} {
		cfg := &ProjectConfig{Variables: map[string]any{name: 1}}
		if _, err := cfg.DeclaredVariables(); err != nil {
			t.Fatalf("DeclaredVariables(%q): %v", name, err)
		}
		if _, err := grammar.ParseEffect(name + " += 1"); err != nil {
			t.Fatalf("effect on %q rejected: %v", name, err)
		}
	}
	for _, name := range []string{"2fast", "has space", "a-b"} {
		cfg := &ProjectConfig{Variables: map[string]any{name: 1}}
		if _, err := cfg.DeclaredVariables(); err == nil {
			t.Fatalf("DeclaredVariables(%q): expected error", name)
		}
		if _, err := grammar.ParseEffect(name + " += 1"); err == nil {
			t.Fatalf("effect on %q accepted", name)
		}
	}
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}
