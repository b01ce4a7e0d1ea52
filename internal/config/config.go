package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/promptkb/internal/embedder"
	"github.com/dshills/promptkb/internal/fusion"
	"github.com/dshills/promptkb/internal/highlight"
	"github.com/dshills/promptkb/internal/ingest"
	"github.com/dshills/promptkb/internal/llm"
	"github.com/dshills/promptkb/internal/searcher"
	"github.com/dshills/promptkb/pkg/types"
)

// Environment variables read by Load
const (
	EnvDBPath            = "PROMPTKB_DB_PATH"
	EnvLLMProvider       = "PROMPTKB_LLM_PROVIDER"
	EnvLLMModel          = "PROMPTKB_LLM_MODEL"
	EnvLLMBaseURL        = "PROMPTKB_LLM_BASE_URL"
	EnvLLMRateLimit      = "PROMPTKB_LLM_RATE_LIMIT"
	EnvEmbeddingProvider = embedder.EnvEmbeddingProvider
	EnvOpenAIAPIKey      = embedder.EnvOpenAIAPIKey
)

// Semantic scoring strategies
const (
	StrategyLLM       = "llm"
	StrategyEmbedding = "embedding"
	StrategyKeyword   = "keyword"
)

var (
	// ErrInvalidStrategy is returned for an unknown semantic strategy
	ErrInvalidStrategy = errors.New("unknown semantic strategy")
)

// Config is the complete runtime configuration
type Config struct {
	DBPath    string          `yaml:"db_path"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// LLMConfig selects the text completion provider
type LLMConfig struct {
	Provider  string  `yaml:"provider"` // "openai" or "none"
	Model     string  `yaml:"model"`
	BaseURL   string  `yaml:"base_url"`
	APIKey    string  `yaml:"api_key"`
	RateLimit float64 `yaml:"rate_limit"` // Requests per second, 0 = unlimited
	Burst     int     `yaml:"burst"`
}

// EmbeddingConfig selects the embedding provider
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "local" or "openai"; empty = detect
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	CacheSize int    `yaml:"cache_size"`
}

// SearchConfig tunes ranking
type SearchConfig struct {
	DefaultLimit     int                     `yaml:"default_limit"`
	LexicalWeight    *float64                `yaml:"lexical_weight"`
	SemanticWeight   *float64                `yaml:"semantic_weight"`
	MaxCandidates    int                     `yaml:"max_candidates"`
	SnippetLength    int                     `yaml:"snippet_length"`
	SemanticStrategy string                  `yaml:"semantic_strategy"` // llm | embedding | keyword; empty = auto
	TypePreferences  []fusion.PreferenceRule `yaml:"type_preferences"`
	DefaultCategory  types.FileCategory      `yaml:"default_category"`
}

// IngestConfig sets directory ingestion defaults
type IngestConfig struct {
	Workers       int      `yaml:"workers"`
	BatchSize     int      `yaml:"batch_size"`
	MaxFileBytes  int64    `yaml:"max_file_bytes"`
	Extensions    []string `yaml:"extensions"`
	IncludeHidden bool     `yaml:"include_hidden"`
}

// Overrides are command-line values that win over file and environment
type Overrides struct {
	DBPath            string
	LLMProvider       string
	LLMModel          string
	EmbeddingProvider string
}

// Dir returns the promptkb home directory
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".promptkb")
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultDBPath returns the default database location
func DefaultDBPath() string {
	return filepath.Join(Dir(), "promptkb.db")
}

// Default returns the built-in configuration
func Default() *Config {
	weights := fusion.DefaultWeights()
	prefs := fusion.DefaultTypePreferences()
	return &Config{
		DBPath: DefaultDBPath(),
		LLM: LLMConfig{
			Provider: "none",
		},
		Embedding: EmbeddingConfig{
			CacheSize: embedder.DefaultCacheSize,
		},
		Search: SearchConfig{
			DefaultLimit:    searcher.DefaultLimit,
			LexicalWeight:   &weights.Lexical,
			SemanticWeight:  &weights.Semantic,
			MaxCandidates:   searcher.DefaultMaxCandidates,
			SnippetLength:   highlight.DefaultSnippetLength,
			TypePreferences: prefs.Rules,
			DefaultCategory: prefs.Default,
		},
		Ingest: IngestConfig{
			BatchSize:    ingest.DefaultBatchSize,
			MaxFileBytes: ingest.DefaultMaxFileBytes,
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path means DefaultPath(); a missing file is not an error.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}

	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.DBPath = expandUserPath(cfg.DBPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	applyEnv(&c.DBPath, EnvDBPath)
	applyEnv(&c.LLM.Provider, EnvLLMProvider)
	applyEnv(&c.LLM.Model, EnvLLMModel)
	applyEnv(&c.LLM.BaseURL, EnvLLMBaseURL)
	applyEnv(&c.LLM.APIKey, EnvOpenAIAPIKey)
	applyEnv(&c.Embedding.Provider, EnvEmbeddingProvider)

	if v := strings.TrimSpace(os.Getenv(EnvLLMRateLimit)); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvLLMRateLimit, err)
		}
		c.LLM.RateLimit = rate
	}
	return nil
}

// Apply sets the non-empty command-line overrides
func (c *Config) Apply(o Overrides) {
	apply(&c.DBPath, o.DBPath)
	apply(&c.LLM.Provider, o.LLMProvider)
	apply(&c.LLM.Model, o.LLMModel)
	apply(&c.Embedding.Provider, o.EmbeddingProvider)
	c.DBPath = expandUserPath(c.DBPath)
}

// Validate checks values that would otherwise fail at search time
func (c *Config) Validate() error {
	if err := c.Weights().Validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.Search.SemanticStrategy) {
	case "", StrategyLLM, StrategyEmbedding, StrategyKeyword:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, c.Search.SemanticStrategy)
	}
	if c.Search.DefaultCategory != "" && !c.Search.DefaultCategory.Valid() {
		return fmt.Errorf("invalid default category %q", c.Search.DefaultCategory)
	}
	for _, rule := range c.Search.TypePreferences {
		if !rule.Category.Valid() {
			return fmt.Errorf("invalid type preference category %q", rule.Category)
		}
	}
	return nil
}

// Weights returns the configured fusion weights, defaulting unset ones
func (c *Config) Weights() fusion.Weights {
	w := fusion.DefaultWeights()
	if c.Search.LexicalWeight != nil {
		w.Lexical = *c.Search.LexicalWeight
	}
	if c.Search.SemanticWeight != nil {
		w.Semantic = *c.Search.SemanticWeight
	}
	return w
}

// TypePreferences returns the keyword to file category rules
func (c *Config) TypePreferences() fusion.TypePreferences {
	return fusion.TypePreferences{
		Rules:   c.Search.TypePreferences,
		Default: c.Search.DefaultCategory,
	}
}

// SemanticStrategy resolves the scoring strategy: llm when a completion provider is
// configured, otherwise embedding
func (c *Config) SemanticStrategy() string {
	if s := strings.ToLower(strings.TrimSpace(c.Search.SemanticStrategy)); s != "" {
		return s
	}
	if c.LLMConfig().Enabled() {
		return StrategyLLM
	}
	return StrategyEmbedding
}

// LLMConfig returns the completion provider configuration
func (c *Config) LLMConfig() llm.Config {
	return llm.Config{
		Provider:  c.LLM.Provider,
		Model:     c.LLM.Model,
		APIKey:    c.LLM.APIKey,
		BaseURL:   c.LLM.BaseURL,
		RateLimit: c.LLM.RateLimit,
		Burst:     c.LLM.Burst,
	}
}

// EmbedderConfig returns the embedding provider configuration
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:  c.Embedding.Provider,
		Model:     c.Embedding.Model,
		APIKey:    c.Embedding.APIKey,
		BaseURL:   c.Embedding.BaseURL,
		CacheSize: c.Embedding.CacheSize,
	}
}

// IngestConfig returns ingest defaults for one run
func (c *Config) IngestConfig() *ingest.Config {
	return &ingest.Config{
		Workers:       c.Ingest.Workers,
		BatchSize:     c.Ingest.BatchSize,
		MaxFileBytes:  c.Ingest.MaxFileBytes,
		Extensions:    c.Ingest.Extensions,
		IncludeHidden: c.Ingest.IncludeHidden,
	}
}

// SearcherOptions returns the searcher options implied by the configuration
func (c *Config) SearcherOptions() []searcher.Option {
	return []searcher.Option{
		searcher.WithWeights(c.Weights()),
		searcher.WithTypePreferences(c.TypePreferences()),
		searcher.WithMaxCandidates(c.Search.MaxCandidates),
		searcher.WithSnippetLength(c.Search.SnippetLength),
	}
}

func apply(dst *string, raw string) {
	if v := strings.TrimSpace(raw); v != "" {
		*dst = v
	}
}

func applyEnv(dst *string, envKey string) {
	apply(dst, os.Getenv(envKey))
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
