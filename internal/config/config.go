package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"dialogsmith/internal/grammar"
	"dialogsmith/internal/state"
)

// DefaultPath is where commands look for the project file.
const DefaultPath = "dialogsmith.yaml"

type ProjectConfig struct {
	Project   string         `yaml:"project"`
	Version   int            `yaml:"version"`
	Source    SourceConfig   `yaml:"source"`
	StartID   int            `yaml:"start_id"`
	Seed      uint64         `yaml:"seed"`
	Log       LogConfig      `yaml:"log"`
	Neo4j     Neo4jConfig    `yaml:"neo4j"`
	Serve     ServeConfig    `yaml:"serve"`
	Variables map[string]any `yaml:"variables"`
}

type SourceConfig struct {
	CSV string `yaml:"csv"`
	DSN string `yaml:"dsn"`
}

type LogConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// overrides are read from the environment after the project file.
type overrides struct {
	CSV           string `env:"DIALOGSMITH_CSV"`
	DSN           string `env:"DIALOGSMITH_DSN"`
	LogDir        string `env:"DIALOGSMITH_LOG_DIR"`
	LogLevel      string `env:"DIALOGSMITH_LOG_LEVEL"`
	ServeAddr     string `env:"DIALOGSMITH_SERVE_ADDR"`
	Seed          string `env:"DIALOGSMITH_SEED"`
	Neo4jPassword string `env:"DIALOGSMITH_NEO4J_PASSWORD"`
}

// LoadDotEnv loads a .env file from the working directory if there is one.
func LoadDotEnv() {
	_ = godotenv.Load()
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}
	applyDefaults(&cfg)

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

func applyEnv(cfg *ProjectConfig) error {
	var o overrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Source.CSV, o.CSV)
	set(&cfg.Source.DSN, o.DSN)
	set(&cfg.Log.Dir, o.LogDir)
	set(&cfg.Log.Level, o.LogLevel)
	set(&cfg.Serve.Addr, o.ServeAddr)
	set(&cfg.Neo4j.Password, o.Neo4jPassword)
	if o.Seed != "" {
		seed, err := strconv.ParseUint(o.Seed, 10, 64)
		if err != nil {
			return fmt.Errorf("DIALOGSMITH_SEED: %w", err)
		}
		cfg.Seed = seed
	}
	return nil
}

func applyDefaults(cfg *ProjectConfig) {
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = "logs"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Serve.Addr == "" {
		cfg.Serve.Addr = "localhost:8080"
	}
	if cfg.Neo4j.Database == "" {
		cfg.Neo4j.Database = "neo4j"
	}
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if strings.TrimSpace(cfg.Source.CSV) == "" && strings.TrimSpace(cfg.Source.DSN) == "" {
		return fmt.Errorf("source csv or dsn is required")
	}
	if dsn := cfg.Source.DSN; dsn != "" &&
		!strings.HasPrefix(dsn, "sqlite://") && !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return fmt.Errorf("unsupported dsn scheme: %s", dsn)
	}
	if cfg.StartID < 0 {
		return fmt.Errorf("start_id must not be negative: %d", cfg.StartID)
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", cfg.Log.Level)
	}
	if _, err := cfg.DeclaredVariables(); err != nil {
		return err
	}
	return nil
}

// DeclaredVariables converts the variables section to state values. A
// variable may not redeclare a built-in one with a different kind.
func (cfg *ProjectConfig) DeclaredVariables() (map[string]state.Value, error) {
	if len(cfg.Variables) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(cfg.Variables))
	for name := range cfg.Variables {
		names = append(names, name)
	}
	sort.Strings(names)

	vars := make(map[string]state.Value, len(names))
	for _, name := range names {
		if !grammar.IsIdent(name) {
			return nil, fmt.Errorf("variable %q is not an identifier", name)
		}
		switch v := cfg.Variables[name].(type) {
		case bool:
			vars[name] = state.Bool(v)
		case int:
			vars[name] = state.Num(float64(v))
		case float64:
			vars[name] = state.Num(v)
		default:
			return nil, fmt.Errorf("variable %s must be a number or boolean, got %T", name, v)
		}
	}
	if _, err := state.New(vars); err != nil {
		return nil, fmt.Errorf("variables: %w", err)
	}
	return vars, nil
}

// Template is the project file written by init.
func Template(project, csvPath string) string {
	return fmt.Sprintf(`project: %s
version: 1

source:
  csv: %s
  dsn: sqlite://dialogsmith.db

start_id: 1
seed: 0

log:
  dir: logs
  level: info

neo4j:
  uri: bolt://localhost:7687
  username: neo4j
  password: changeme
  database: neo4j

serve:
  addr: localhost:8080

variables:
  Gold: 0
`, project, csvPath)
}
