// Package config loads the service configuration from a YAML file with
// environment-variable fallbacks for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "500ms"
// or "2m", or from plain integer nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Std converts to time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration document.
type Config struct {
	Listen   string         `yaml:"listen"`
	LogLevel string         `yaml:"log_level"`
	Store    StoreConfig    `yaml:"store"`
	Executor ExecutorConfig `yaml:"executor"`
	Browser  BrowserConfig  `yaml:"browser"`
	Engine   EngineConfig   `yaml:"engine"`
	Notify   NotifyConfig   `yaml:"notify"`
}

// StoreConfig selects and configures the datastore backend.
type StoreConfig struct {
	// Backend is "sqlite" or "memory".
	Backend string `yaml:"backend"`
	// Path is the SQLite database file; ":memory:" for ephemeral.
	Path string `yaml:"path"`
}

// ExecutorConfig selects and configures the model provider.
type ExecutorConfig struct {
	// Provider is "anthropic" or "openai".
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	// APIKey falls back to ANTHROPIC_API_KEY / OPENAI_API_KEY.
	APIKey        string `yaml:"api_key"`
	MaxIterations int    `yaml:"max_iterations"`
}

// BrowserConfig tunes the remote browser provider.
type BrowserConfig struct {
	ActionTimeout Duration `yaml:"action_timeout"`
	ContentLimit  int      `yaml:"content_limit"`
}

// EngineConfig tunes the execution pipeline.
type EngineConfig struct {
	HistoryLimit  int      `yaml:"history_limit"`
	ProbeAttempts int      `yaml:"probe_attempts"`
	ProbeBackoff  Duration `yaml:"probe_backoff"`
}

// NotifyConfig configures the completion webhook. An empty URL disables
// notification.
type NotifyConfig struct {
	WebhookURL string   `yaml:"webhook_url"`
	Timeout    Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Listen:   ":8080",
		LogLevel: "info",
		Store:    StoreConfig{Backend: "sqlite", Path: "planmesh.db"},
		Executor: ExecutorConfig{Provider: "anthropic", MaxIterations: 12},
		Browser:  BrowserConfig{ActionTimeout: Duration(60 * time.Second), ContentLimit: 50000},
		Engine:   EngineConfig{HistoryLimit: 10, ProbeAttempts: 3, ProbeBackoff: Duration(2 * time.Second)},
		Notify:   NotifyConfig{Timeout: Duration(15 * time.Second)},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Executor.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("unknown executor provider %q", c.Executor.Provider)
	}
	return nil
}

// ResolveAPIKey returns the configured key or the provider's conventional
// environment variable.
func (c *ExecutorConfig) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	switch c.Provider {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}
