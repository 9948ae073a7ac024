// Package config provides configuration loading for the ragify pipeline.
// Values come from a YAML file, environment variable overrides, and CLI flag
// merges, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for one pipeline run.
type Config struct {
	Version    string           `yaml:"version"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Qdrant     QdrantConfig     `yaml:"qdrant"`
	Processing ProcessingConfig `yaml:"processing"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ExtractionConfig holds text extraction settings.
type ExtractionConfig struct {
	TikaURL     string `yaml:"tika_url"`      // catch-all extractor endpoint, empty disables it
	Timeout     int    `yaml:"timeout"`       // seconds per extraction call
	MaxFileSize int64  `yaml:"max_file_size"` // bytes
}

// ChunkingConfig holds two-level chunking settings. All sizes are in
// model-tokenizer tokens.
type ChunkingConfig struct {
	ChunkSize int `yaml:"chunk_size"` // fine-pass target; macro pass targets 2x this
	Overlap   int `yaml:"overlap"`
	MaxTokens int `yaml:"max_tokens"` // embedding model context limit per fragment
	MinTokens int `yaml:"min_tokens"` // fragments below this are discarded

	// MacroOnError selects the macro-pass failure policy: "whole" degrades to
	// a single block holding the entire input, "fallback" hands the whole
	// document to the character-window splitter.
	MacroOnError string `yaml:"macro_on_error"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // ollama or openai
	Model       string `yaml:"model"`
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Dimension   int    `yaml:"dimension"`
	BatchSize   int    `yaml:"batch_size"`   // max fragments per batch
	TokenBudget int    `yaml:"token_budget"` // max total tokens per batch, below MaxTokens hard limit
	MaxRetries  int    `yaml:"max_retries"`
	Timeout     int    `yaml:"timeout"`    // seconds per request
	RateLimit   int    `yaml:"rate_limit"` // requests per second, 0 disables
}

// QdrantConfig holds vector store settings.
type QdrantConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
	BatchSize  int    `yaml:"batch_size"` // points per upsert
	MaxRetries int    `yaml:"max_retries"`
	Timeout    int    `yaml:"timeout"` // seconds per request
}

// ProcessingConfig holds file discovery and scheduling settings.
type ProcessingConfig struct {
	SkipHidden       bool     `yaml:"skip_hidden"`
	SkipPatterns     []string `yaml:"skip_patterns"`
	ExtensionsFilter []string `yaml:"extensions_filter"`
	Workers          int      `yaml:"workers"` // 1 = sequential baseline
}

// OutputConfig holds reporting settings.
type OutputConfig struct {
	ReportFormat string `yaml:"report_format"` // markdown or json
	ReportPath   string `yaml:"report_path"`
	Verbose      bool   `yaml:"verbose"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Format string `yaml:"format"` // json or text
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
}

// Default returns the built-in configuration, matching the defaults the
// pipeline was tuned with: 512-token fine chunks with 50-token overlap, a
// 2048-token per-fragment ceiling, 20-fragment/1800-token embedding batches,
// and 100-point upload batches.
func Default() *Config {
	return &Config{
		Version: "1.0",
		Extraction: ExtractionConfig{
			TikaURL:     os.Getenv("TIKA_SERVER_ENDPOINT"),
			Timeout:     60,
			MaxFileSize: 100 * 1024 * 1024,
		},
		Chunking: ChunkingConfig{
			ChunkSize:    512,
			Overlap:      50,
			MaxTokens:    2048,
			MinTokens:    50,
			MacroOnError: MacroWhole,
		},
		Embedding: EmbeddingConfig{
			Provider:    "ollama",
			Model:       "nomic-embed-text",
			URL:         envOr("OLLAMA_URL", "http://localhost:11434"),
			Dimension:   768,
			BatchSize:   20,
			TokenBudget: 1800,
			MaxRetries:  3,
			Timeout:     120,
		},
		Qdrant: QdrantConfig{
			URL:        envOr("QDRANT_URL", "http://localhost:6333"),
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			Collection: "documentation",
			BatchSize:  100,
			MaxRetries: 3,
			Timeout:    60,
		},
		Processing: ProcessingConfig{
			SkipHidden: true,
			SkipPatterns: []string{
				"*.pyc", "*.exe", "*.so", "*.dll", "*.dylib",
				"__pycache__", ".git", "node_modules", "venv", ".venv",
				"*.log", "*.tmp",
			},
			Workers: 1,
		},
		Output: OutputConfig{
			ReportFormat: "markdown",
			ReportPath:   "./ragify_report.md",
		},
		Logging: LoggingConfig{
			Format: "json",
			Level:  "info",
		},
	}
}

// Macro-pass failure policies.
const (
	MacroWhole    = "whole"
	MacroFallback = "fallback"
)

// Load reads and parses the config file at path, then applies environment
// overrides and defaults for unset values.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Processing.Workers < 1 {
		cfg.Processing.Workers = 1
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field invariants the pipeline relies on. It never
// modifies the config; normalization happens in Load.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.overlap must be in [0, chunk_size), got %d", c.Chunking.Overlap)
	}
	if c.Chunking.MaxTokens < c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.max_tokens (%d) must be >= chunk_size (%d)",
			c.Chunking.MaxTokens, c.Chunking.ChunkSize)
	}
	if c.Chunking.MacroOnError != MacroWhole && c.Chunking.MacroOnError != MacroFallback {
		return fmt.Errorf("chunking.macro_on_error must be %q or %q", MacroWhole, MacroFallback)
	}
	if c.Embedding.TokenBudget >= c.Chunking.MaxTokens {
		return fmt.Errorf("embedding.token_budget (%d) must stay below the provider limit (%d)",
			c.Embedding.TokenBudget, c.Chunking.MaxTokens)
	}
	if c.Embedding.BatchSize <= 0 || c.Qdrant.BatchSize <= 0 {
		return fmt.Errorf("batch sizes must be positive")
	}
	return nil
}

// applyEnvOverrides applies the environment variables the original tooling
// recognizes. They win over file values but lose to explicit CLI flags.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		cfg.Embedding.URL = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v, ok := envInt("EMBEDDING_BATCH_SIZE"); ok {
		cfg.Embedding.BatchSize = v
	}
	if v, ok := envInt("EMBEDDING_TOKEN_BUDGET"); ok {
		cfg.Embedding.TokenBudget = v
	}
	if v := os.Getenv("QDRANT_URL"); v != "" {
		cfg.Qdrant.URL = v
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" {
		cfg.Qdrant.APIKey = v
	}
	if v, ok := envInt("QDRANT_BATCH_SIZE"); ok {
		cfg.Qdrant.BatchSize = v
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

var collectionSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_]`)
var underscoreRuns = regexp.MustCompile(`_+`)

// DeriveCollection builds a collection name from a directory path when none
// was configured: the base name lowercased with non-alphanumerics collapsed
// to underscores.
func DeriveCollection(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	name := collectionSanitizer.ReplaceAllString(filepath.Base(abs), "_")
	name = underscoreRuns.ReplaceAllString(name, "_")
	name = strings.Trim(strings.ToLower(name), "_")
	if name == "" {
		name = "documentation"
	}
	return name
}

// WriteDefault writes the default configuration file to path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
