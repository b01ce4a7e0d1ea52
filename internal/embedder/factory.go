package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted by NewFromEnv and DetectProvider
const (
	EnvEmbeddingProvider = "PROMPTKB_EMBEDDING_PROVIDER"
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
)

// Config holds embedder configuration
type Config struct {
	Provider  string // "local" or "openai"; empty = detect from environment
	Model     string
	APIKey    string
	BaseURL   string
	CacheSize int
}

// NewFromEnv creates an embedder based on environment variables
func NewFromEnv() (Embedder, error) {
	return New(Config{Provider: DetectProvider(), CacheSize: DefaultCacheSize})
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	cache := NewCache(cfg.CacheSize)

	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = DetectProvider()
	}

	switch provider {
	case ProviderOpenAI:
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv(EnvOpenAIAPIKey)
		}
		return NewOpenAIProvider(cfg.Model, key, cfg.BaseURL, cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	if provider := os.Getenv(EnvEmbeddingProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}
