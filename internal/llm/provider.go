package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Common errors
var (
	ErrNoProvider      = errors.New("no completion provider configured")
	ErrEmptyResponse   = errors.New("provider returned no choices")
	ErrUnknownProvider = errors.New("unknown completion provider")
)

// Provider is the interface for LLM completions
type Provider interface {
	// Complete sends a prompt and returns the response text
	Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error)

	// Name returns a human-readable provider name (e.g. "openai/gpt-4o-mini")
	Name() string
}

// CompletionOpts configures a single completion request
type CompletionOpts struct {
	MaxTokens   int     // Max tokens to generate (0 = provider default)
	Temperature float64 // 0 = deterministic
	JSON        bool    // Request a JSON object response
	System      string  // Optional system prompt
}

// Config holds provider configuration
type Config struct {
	Provider string // "openai" or "none"
	Model    string
	APIKey   string // Empty = read OPENAI_API_KEY
	BaseURL  string // Optional OpenAI-compatible endpoint

	// Requests per second allowed upstream; 0 disables limiting
	RateLimit float64
	Burst     int
}

// Enabled reports whether the config selects a real provider
func (c Config) Enabled() bool {
	p := strings.ToLower(c.Provider)
	return p != "" && p != "none"
}

// NewProvider creates a Provider from configuration
func NewProvider(cfg Config) (Provider, error) {
	var p Provider

	switch strings.ToLower(cfg.Provider) {
	case "", "none", "disabled":
		return Disabled{}, nil

	case "openai":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY or a base URL")
		}
		if key == "" {
			// Local OpenAI-compatible servers ignore the token
			key = "none"
		}
		model := cfg.Model
		if model == "" {
			model = DefaultOpenAIModel
		}
		op, err := NewOpenAIProvider(model, key, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		p = op

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}

	if cfg.RateLimit > 0 {
		p = RateLimited(p, cfg.RateLimit, cfg.Burst)
	}
	return p, nil
}

// Disabled is a Provider that always fails with ErrNoProvider
type Disabled struct{}

// Complete always returns ErrNoProvider
func (Disabled) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	return "", ErrNoProvider
}

// Name returns "none"
func (Disabled) Name() string { return "none" }

// ProviderFunc adapts a function to the Provider interface
type ProviderFunc func(ctx context.Context, prompt string, opts CompletionOpts) (string, error)

// Complete calls f
func (f ProviderFunc) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	return f(ctx, prompt, opts)
}

// Name returns "func"
func (f ProviderFunc) Name() string { return "func" }
