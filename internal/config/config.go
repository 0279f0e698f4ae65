// Package config loads the deploypilot configuration: a YAML file for
// structure, a .env file for credentials, and environment variables as the
// final override.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Web       WebConfig       `yaml:"web"`
	Agent     AgentConfig     `yaml:"agent"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Store     StoreConfig     `yaml:"store"`
	Limits    LimitsConfig    `yaml:"limits"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Addr  string `yaml:"addr"`
	Token string `yaml:"token"`
}

type WebConfig struct {
	Addr       string `yaml:"addr"`
	APIBaseURL string `yaml:"api_base_url"`
	HistoryDB  string `yaml:"history_db"`
}

type AgentConfig struct {
	Model         string `yaml:"model"`
	APIKey        string `yaml:"-"` // from .env or environment only, never YAML
	BaseURL       string `yaml:"base_url"`
	MaxIterations int    `yaml:"max_iterations"`
	MaxTokens     int    `yaml:"max_tokens"`
}

type WorkspaceConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig selects the task registry backend. Backend "memory" is the
// default single process registry; "redis" shares tasks across processes.
type StoreConfig struct {
	Backend  string `yaml:"backend"`
	RedisURL string `yaml:"redis_url"`
}

type LimitsConfig struct {
	SubmitsPerMinute  int `yaml:"submits_per_minute"`
	ToolCallsPerTask  int `yaml:"tool_calls_per_task"`
	ToolWindowSeconds int `yaml:"tool_window_seconds"`
}

// ToolWindow returns the rate limit window as a duration.
func (l LimitsConfig) ToolWindow() time.Duration {
	if l.ToolWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(l.ToolWindowSeconds) * time.Second
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: "0.0.0.0:5000"},
		Web: WebConfig{
			Addr:       "0.0.0.0:8080",
			APIBaseURL: "http://localhost:5000",
		},
		Agent: AgentConfig{
			MaxIterations: 20,
			MaxTokens:     4096,
		},
		Workspace: WorkspaceConfig{Path: "workspace"},
		Store:     StoreConfig{Backend: "memory"},
		Limits: LimitsConfig{
			ToolCallsPerTask:  30,
			ToolWindowSeconds: 60,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the YAML config at path, layering it over defaults. A missing
// file is not an error: defaults plus environment apply. The .env file next
// to the config (or the working directory) is loaded first so YAML never
// holds credentials.
func Load(path string) (*Config, error) {
	loadDotenv(path)

	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotenv pulls in .env without overriding variables already set in the
// process environment. Errors are ignored: the file is optional.
func loadDotenv(configPath string) {
	candidates := []string{".env"}
	if dir := filepath.Dir(configPath); dir != "." && dir != "" {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// applyEnv overlays environment variables on top of file values.
func applyEnv(cfg *Config) {
	cfg.Agent.APIKey = os.Getenv("ANTHROPIC_API_KEY")

	if v := os.Getenv("DEPLOYPILOT_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DEPLOYPILOT_TOKEN"); v != "" {
		cfg.Server.Token = v
	}
	if v := os.Getenv("DEPLOYPILOT_API_URL"); v != "" {
		cfg.Web.APIBaseURL = v
	}
	if v := os.Getenv("DEPLOYPILOT_WORKSPACE"); v != "" {
		cfg.Workspace.Path = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Store.RedisURL = v
	}
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "", "memory":
	case "redis":
		if c.Store.RedisURL == "" {
			return fmt.Errorf("store backend is redis but no redis_url configured")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// ResolvePath picks the config file: the explicit flag value if given,
// otherwise DEPLOYPILOT_CONFIG, otherwise config.yaml in the working
// directory.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("DEPLOYPILOT_CONFIG"); env != "" {
		return env
	}
	return "config.yaml"
}
