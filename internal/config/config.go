package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type ProjectConfig struct {
	Project   string          `yaml:"project"`
	Version   int             `yaml:"version"`
	Database  DatabaseConfig  `yaml:"database"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Search    SearchConfig    `yaml:"search"`
	Budgets   BudgetConfig    `yaml:"budgets"`
	Archivist ArchivistConfig `yaml:"archivist"`
	Cache     CacheConfig     `yaml:"cache"`
	Tasks     TasksConfig     `yaml:"tasks"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Seed      SeedConfig      `yaml:"seed"`
	Audit     AuditConfig     `yaml:"audit"`
}

type DatabaseConfig struct {
	Driver     string `yaml:"driver" env:"CHRONICLE_DATABASE_DRIVER"`
	DSN        string `yaml:"dsn" env:"CHRONICLE_DATABASE_DSN"`
	Dimensions int    `yaml:"dimensions"`
}

type OpenAIConfig struct {
	APIKey         string `yaml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL        string `yaml:"base_url" env:"OPENAI_BASE_URL"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
	ImageModel     string `yaml:"image_model"`
	ImageSize      string `yaml:"image_size"`
}

type AnthropicConfig struct {
	APIKey    string `yaml:"api_key" env:"ANTHROPIC_API_KEY"`
	BaseURL   string `yaml:"base_url" env:"ANTHROPIC_BASE_URL"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// SearchConfig holds the per-kind similarity thresholds. Keys are kind names
// (location, character, player, item, event).
type SearchConfig struct {
	Thresholds   map[string]float64 `yaml:"thresholds"`
	DefaultLimit int                `yaml:"default_limit"`
}

type BudgetConfig struct {
	Turn         int `yaml:"turn"`
	Introduction int `yaml:"introduction"`
	Archive      int `yaml:"archive"`
}

type ArchivistConfig struct {
	Enabled       bool `yaml:"enabled"`
	FocusMessages int  `yaml:"focus_messages"`
}

type CacheConfig struct {
	NumCounters int64 `yaml:"num_counters"`
	MaxCost     int64 `yaml:"max_cost"`
	// MaxTags caps the tag versions kept in memory. Past it every cached
	// view is dropped at once.
	MaxTags int `yaml:"max_tags"`
}

type TasksConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" env:"CHRONICLE_HTTP_ADDR"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"CHRONICLE_LOG_LEVEL"`
	Format string `yaml:"format" env:"CHRONICLE_LOG_FORMAT"`
}

// SeedConfig lists the markdown directories `chronicle seed` reads when no
// paths are given on the command line.
type SeedConfig struct {
	Paths   []string `yaml:"paths"`
	Exclude []string `yaml:"exclude"`
}

type AuditConfig struct {
	DuplicateThreshold float64 `yaml:"duplicate_threshold"`
}

var defaultThresholds = map[string]float64{
	"location":  0.3,
	"character": 0.3,
	"player":    0.2,
	"item":      0.3,
	"event":     0.3,
}

// Threshold returns the minimum similarity a result of the given kind must
// exceed to be returned.
func (s SearchConfig) Threshold(kind string) float64 {
	if value, ok := s.Thresholds[kind]; ok {
		return value
	}
	return defaultThresholds[kind]
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("loading project config: parse env: %w", err)
	}

	applyDefaults(cfg)

	if err := validateProjectConfig(cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return cfg, nil
}

// Default returns a config with every tunable set to its default value.
func Default() *ProjectConfig {
	cfg := &ProjectConfig{Version: 1}
	cfg.Archivist.Enabled = true
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *ProjectConfig) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Dimensions == 0 {
		cfg.Database.Dimensions = 1536
	}
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if cfg.OpenAI.ImageModel == "" {
		cfg.OpenAI.ImageModel = "dall-e-3"
	}
	if cfg.OpenAI.ImageSize == "" {
		cfg.OpenAI.ImageSize = "1024x1024"
	}
	if cfg.Anthropic.Model == "" {
		cfg.Anthropic.Model = "claude-haiku-4-5-20251001"
	}
	if cfg.Anthropic.MaxTokens == 0 {
		cfg.Anthropic.MaxTokens = 2048
	}
	if cfg.Search.Thresholds == nil {
		cfg.Search.Thresholds = make(map[string]float64, len(defaultThresholds))
	}
	for kind, value := range defaultThresholds {
		if _, ok := cfg.Search.Thresholds[kind]; !ok {
			cfg.Search.Thresholds[kind] = value
		}
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Budgets.Turn == 0 {
		cfg.Budgets.Turn = 10
	}
	if cfg.Budgets.Introduction == 0 {
		cfg.Budgets.Introduction = 15
	}
	if cfg.Budgets.Archive == 0 {
		cfg.Budgets.Archive = 40
	}
	if cfg.Archivist.FocusMessages == 0 {
		cfg.Archivist.FocusMessages = 2
	}
	if cfg.Cache.NumCounters == 0 {
		cfg.Cache.NumCounters = 100_000
	}
	if cfg.Cache.MaxCost == 0 {
		cfg.Cache.MaxCost = 10_000
	}
	if cfg.Cache.MaxTags == 0 {
		cfg.Cache.MaxTags = 100_000
	}
	if cfg.Tasks.Concurrency == 0 {
		cfg.Tasks.Concurrency = 8
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Audit.DuplicateThreshold == 0 {
		cfg.Audit.DuplicateThreshold = 0.9
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return fmt.Errorf("database dsn is required")
	}
	if cfg.Database.Dimensions < 1 || cfg.Database.Dimensions > 2000 {
		return fmt.Errorf("database dimensions must be between 1 and 2000")
	}
	for kind, value := range cfg.Search.Thresholds {
		if _, known := defaultThresholds[kind]; !known {
			return fmt.Errorf("unknown search threshold kind: %s", kind)
		}
		if value < 0 || value >= 1 {
			return fmt.Errorf("search threshold for %s must be in [0, 1)", kind)
		}
	}
	if cfg.Search.DefaultLimit < 1 || cfg.Search.DefaultLimit > 50 {
		return fmt.Errorf("search default_limit must be between 1 and 50")
	}
	if cfg.Budgets.Turn < 1 || cfg.Budgets.Introduction < 1 || cfg.Budgets.Archive < 1 {
		return fmt.Errorf("budgets must be positive")
	}
	if cfg.Audit.DuplicateThreshold <= 0 || cfg.Audit.DuplicateThreshold > 1 {
		return fmt.Errorf("audit duplicate_threshold must be in (0, 1]")
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format: %s", cfg.Log.Format)
	}
	return nil
}
