package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/dshills/promptkb/internal/retry"
)

// DefaultOpenAIModel is used when no model is configured
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider completes prompts through an OpenAI-compatible chat API
type OpenAIProvider struct {
	client llms.Model
	model  string
	retry  retry.Config
	logger *slog.Logger
}

// NewOpenAIProvider creates a provider for the given model and endpoint.
// An empty baseURL uses the public OpenAI API.
func NewOpenAIProvider(model, apiKey, baseURL string) (*OpenAIProvider, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	return newOpenAIProviderWithClient(client, model), nil
}

func newOpenAIProviderWithClient(client llms.Model, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client: client,
		model:  model,
		retry:  retry.DefaultConfig(),
		logger: slog.Default().With("component", "llm-openai"),
	}
}

// Complete sends a single-turn chat request and returns the first choice
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if opts.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, opts.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	if opts.JSON {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	resp, err := retry.Do(ctx, p.retry, func() (*llms.ContentResponse, error) {
		return p.client.GenerateContent(ctx, messages, callOpts...)
	})
	if err != nil {
		p.logger.Warn("completion failed", "model", p.model, "err", err)
		return "", fmt.Errorf("completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}

// Name returns "openai/<model>"
func (p *OpenAIProvider) Name() string {
	return "openai/" + p.model
}
