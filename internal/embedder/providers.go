package embedder

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/dshills/promptkb/internal/retry"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// Default models
	DefaultOpenAIModel = "text-embedding-3-small"
	LocalModel         = "feature-hash-v1"

	// Dimensions
	OpenAIDimension = 1536
	LocalDimension  = 384

	// Batch limits
	DefaultBatchSize = 50
	MaxBatchSize     = 100

	// DefaultCacheSize is the number of cached embeddings
	DefaultCacheSize = 10000
)

// OpenAIProvider implements Embedder for OpenAI-compatible embedding APIs
type OpenAIProvider struct {
	embedder embeddings.Embedder
	model    string
	cache    *Cache
	retry    retry.Config
	dim      atomic.Int64
	logger   *slog.Logger
}

// NewOpenAIProvider creates an embedder for the given model and endpoint.
// An empty baseURL uses the public OpenAI API.
func NewOpenAIProvider(model, apiKey, baseURL string, cache *Cache) (*OpenAIProvider, error) {
	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", ErrNoProviderEnabled)
	}
	if apiKey == "" {
		// Local OpenAI-compatible servers ignore the token
		apiKey = "none"
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true), embeddings.WithBatchSize(DefaultBatchSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return newOpenAIProviderWithEmbedder(emb, model, cache), nil
}

func newOpenAIProviderWithEmbedder(emb embeddings.Embedder, model string, cache *Cache) *OpenAIProvider {
	p := &OpenAIProvider{
		embedder: emb,
		model:    model,
		cache:    cache,
		retry:    retry.DefaultConfig(),
		logger:   slog.Default().With("component", "openai-embedder"),
	}
	if model == DefaultOpenAIModel {
		p.dim.Store(OpenAIDimension)
	}
	return p
}

// GenerateEmbedding embeds a single text, consulting the cache first
func (o *OpenAIProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	key := o.cache.Key(ProviderOpenAI, o.model, hash)
	if emb, ok := o.cache.Get(key); ok {
		return emb, nil
	}

	vector, err := retry.Do(ctx, o.retry, func() ([]float32, error) {
		return o.embedder.EmbedQuery(ctx, req.Text)
	})
	if err != nil {
		o.logger.Warn("embedding request failed", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	emb := o.wrap(vector, hash)
	o.cache.Set(key, emb)
	return emb, nil
}

// GenerateBatch embeds texts in order, only sending uncached texts upstream
func (o *OpenAIProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	out := make([]*Embedding, len(req.Texts))
	hashes := make([]string, len(req.Texts))
	var missing []int

	for i, text := range req.Texts {
		hashes[i] = ComputeHash(text)
		if emb, ok := o.cache.Get(o.cache.Key(ProviderOpenAI, o.model, hashes[i])); ok {
			out[i] = emb
			continue
		}
		missing = append(missing, i)
	}

	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for j, i := range missing {
			texts[j] = req.Texts[i]
		}

		vectors, err := retry.Do(ctx, o.retry, func() ([][]float32, error) {
			return o.embedder.EmbedDocuments(ctx, texts)
		})
		if err != nil {
			o.logger.Warn("batch embedding request failed", "count", len(texts), "err", err)
			return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrProviderFailed, len(texts), len(vectors))
		}

		for j, i := range missing {
			emb := o.wrap(vectors[j], hashes[i])
			o.cache.Set(o.cache.Key(ProviderOpenAI, o.model, hashes[i]), emb)
			out[i] = emb
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: out,
		Provider:   ProviderOpenAI,
		Model:      o.model,
	}, nil
}

func (o *OpenAIProvider) wrap(vector []float32, hash string) *Embedding {
	if len(vector) > 0 {
		o.dim.Store(int64(len(vector)))
	}
	return &Embedding{
		Vector:    vector,
		Dimension: len(vector),
		Provider:  ProviderOpenAI,
		Model:     o.model,
		Hash:      hash,
	}
}

func (o *OpenAIProvider) Dimension() int {
	return int(o.dim.Load())
}

func (o *OpenAIProvider) Provider() string {
	return ProviderOpenAI
}

func (o *OpenAIProvider) Model() string {
	return o.model
}

func (o *OpenAIProvider) Close() error {
	return nil
}

// LocalProvider is an offline embedder based on feature hashing.
// Texts sharing vocabulary get similar vectors, which is enough for
// ranking without a model server.
type LocalProvider struct {
	cache *Cache
}

// NewLocalProvider creates a new local embedder
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{cache: cache}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	key := l.cache.Key(ProviderLocal, LocalModel, hash)
	if emb, ok := l.cache.Get(key); ok {
		return emb, nil
	}

	emb := &Embedding{
		Vector:    hashFeatures(req.Text, LocalDimension),
		Dimension: LocalDimension,
		Provider:  ProviderLocal,
		Model:     LocalModel,
		Hash:      hash,
	}
	l.cache.Set(key, emb)
	return emb, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	out := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		out[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: out,
		Provider:   ProviderLocal,
		Model:      LocalModel,
	}, nil
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return LocalModel
}

func (l *LocalProvider) Close() error {
	return nil
}

// hashFeatures projects word and CJK-bigram tokens into a signed,
// unit-length vector of the given dimension
func hashFeatures(text string, dim int) []float32 {
	vector := make([]float32, dim)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum32()

		idx := int(sum % uint32(dim))
		if sum&(1<<31) != 0 {
			vector[idx] -= 1
		} else {
			vector[idx] += 1
		}
	}
	return NormalizeVector(vector)
}

// tokenize splits on non-alphanumerics; runs of Han characters also emit
// overlapping bigrams since they carry no whitespace boundaries
func tokenize(text string) []string {
	var tokens []string
	var word []rune
	var han []rune

	flushWord := func() {
		if len(word) > 0 {
			tokens = append(tokens, string(word))
			word = word[:0]
		}
	}
	flushHan := func() {
		switch {
		case len(han) == 1:
			tokens = append(tokens, string(han))
		case len(han) > 1:
			for i := 0; i+1 < len(han); i++ {
				tokens = append(tokens, string(han[i:i+2]))
			}
		}
		han = han[:0]
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flushWord()
			han = append(han, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushHan()
			word = append(word, r)
		default:
			flushWord()
			flushHan()
		}
	}
	flushWord()
	flushHan()
	return tokens
}
