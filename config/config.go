// Package config loads kernel configuration from a YAML file and
// SKILLMESH_ prefixed environment variables.
//
// Environment variables use "__" to separate nesting levels, so
// SKILLMESH_COMPLETION__API_KEY sets completion.api_key.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hupe1980/skillmesh/logging"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "SKILLMESH_"

// Config is the root configuration.
type Config struct {
	Log        LogConfig        `koanf:"log"`
	Completion CompletionConfig `koanf:"completion"`
	Embedding  EmbeddingConfig  `koanf:"embedding"`
	Memory     MemoryConfig     `koanf:"memory"`
	Retry      RetryConfig      `koanf:"retry"`
	Planner    PlannerConfig    `koanf:"planner"`
	Audit      AuditConfig      `koanf:"audit"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

// CompletionConfig selects the default completion backend.
type CompletionConfig struct {
	Label    string `koanf:"label"`
	Provider string `koanf:"provider"` // openai, anthropic, mock
	Model    string `koanf:"model"`
	APIKey   string `koanf:"api_key"`
	BaseURL  string `koanf:"base_url"`
}

// EmbeddingConfig selects the default embedding backend.
type EmbeddingConfig struct {
	Label    string `koanf:"label"`
	Provider string `koanf:"provider"` // openai, mock, none
	Model    string `koanf:"model"`
	APIKey   string `koanf:"api_key"`
	BaseURL  string `koanf:"base_url"`
}

// MemoryConfig selects the semantic memory store. Memory requires an
// embedding backend.
type MemoryConfig struct {
	Provider   string      `koanf:"provider"` // none, volatile, sqlite, qdrant, redis
	SQLitePath string      `koanf:"sqlite_path"`
	QdrantAddr string      `koanf:"qdrant_addr"`
	Redis      RedisConfig `koanf:"redis"`
}

type RedisConfig struct {
	Address  string `koanf:"address"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

// RetryConfig configures the backend call policy. MaxAttempts <= 1 means a
// single attempt; RateLimit <= 0 disables rate limiting.
type RetryConfig struct {
	MaxAttempts  int           `koanf:"max_attempts"`
	InitialDelay time.Duration `koanf:"initial_delay"`
	MaxDelay     time.Duration `koanf:"max_delay"`
	RateLimit    float64       `koanf:"rate_limit"`
	Burst        int           `koanf:"burst"`
}

type PlannerConfig struct {
	MaxTokens            int      `koanf:"max_tokens"`
	MaxSteps             int      `koanf:"max_steps"`
	RelevancyThreshold   float64  `koanf:"relevancy_threshold"`
	MaxRelevantFunctions int      `koanf:"max_relevant_functions"`
	ExcludedSkills       []string `koanf:"excluded_skills"`
	ExcludedFunctions    []string `koanf:"excluded_functions"`
}

// AuditConfig enables the plan step audit trail. An empty SQLitePath keeps
// the trail in memory.
type AuditConfig struct {
	Enabled    bool   `koanf:"enabled"`
	SQLitePath string `koanf:"sqlite_path"`
}

var defaults = map[string]any{
	"log.level":  "info",
	"log.format": "text",

	"completion.label":    "default",
	"completion.provider": "openai",
	"completion.model":    "gpt-4o-mini",

	"embedding.label":    "default",
	"embedding.provider": "none",
	"embedding.model":    "text-embedding-3-small",

	"memory.provider":     "none",
	"memory.qdrant_addr":  "localhost:6334",
	"memory.redis.prefix": "skillmesh:memory",

	"retry.max_attempts":  3,
	"retry.initial_delay": "200ms",
	"retry.max_delay":     "10s",

	"planner.max_tokens":             1024,
	"planner.max_steps":              10,
	"planner.max_relevant_functions": 100,
}

// Load reads defaults, then the YAML file at path (if not empty), then the
// environment. Later sources win.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps SKILLMESH_MEMORY__REDIS__ADDRESS to memory.redis.address.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Validate checks provider names and numeric ranges.
func (c *Config) Validate() error {
	if !oneOf(c.Completion.Provider, "openai", "anthropic", "mock") {
		return fmt.Errorf("config: unknown completion provider %q", c.Completion.Provider)
	}
	if !oneOf(c.Embedding.Provider, "", "none", "openai", "mock") {
		return fmt.Errorf("config: unknown embedding provider %q", c.Embedding.Provider)
	}
	if !oneOf(c.Memory.Provider, "", "none", "volatile", "sqlite", "qdrant", "redis") {
		return fmt.Errorf("config: unknown memory provider %q", c.Memory.Provider)
	}
	if c.Memory.Enabled() && !c.Embedding.Enabled() {
		return fmt.Errorf("config: memory provider %q requires an embedding provider", c.Memory.Provider)
	}
	if c.Memory.Provider == "sqlite" && c.Memory.SQLitePath == "" {
		return fmt.Errorf("config: memory.sqlite_path is required for the sqlite memory provider")
	}
	if c.Memory.Provider == "redis" && c.Memory.Redis.Address == "" {
		return fmt.Errorf("config: memory.redis.address is required for the redis memory provider")
	}
	if c.Planner.RelevancyThreshold < 0 || c.Planner.RelevancyThreshold > 1 {
		return fmt.Errorf("config: planner.relevancy_threshold must be between 0 and 1")
	}
	if c.Retry.RateLimit > 0 && c.Retry.Burst < 1 {
		c.Retry.Burst = 1
	}
	return nil
}

// Enabled reports whether an embedding backend is configured.
func (e EmbeddingConfig) Enabled() bool {
	return e.Provider != "" && e.Provider != "none"
}

// Enabled reports whether a memory store is configured.
func (m MemoryConfig) Enabled() bool {
	return m.Provider != "" && m.Provider != "none"
}

// Logger builds a logger writing to stderr from the log section.
func (l LogConfig) Logger() logging.Logger {
	cfg := logging.DefaultLoggerConfig()
	cfg.Level = logging.ParseLevel(l.Level)
	cfg.Output = os.Stderr
	if l.Format != "" {
		cfg.Format = l.Format
	}
	return logging.NewLogger(cfg).WithComponent("kernel")
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
