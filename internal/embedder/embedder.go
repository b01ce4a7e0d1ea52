package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrBatchTooLarge     = errors.New("batch size exceeds limit")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrUnsupportedModel  = errors.New("unsupported embedding provider")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Embedding is one document or query vector. Hash is the SHA-256 of the
// embedded text and lets ingest skip re-embedding unchanged documents.
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	Hash      string
}

type EmbeddingRequest struct {
	Text string
}

type BatchEmbeddingRequest struct {
	Texts []string
}

// BatchEmbeddingResponse holds one embedding per requested text, in request order
type BatchEmbeddingResponse struct {
	Embeddings []*Embedding
	Provider   string
	Model      string
}

// Embedder turns knowledge base text into vectors for semantic scoring
type Embedder interface {
	GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error)

	// GenerateBatch preserves the order of req.Texts
	GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error)

	// Dimension is 0 until the first vector has been produced
	Dimension() int

	Provider() string
	Model() string
	Close() error
}

// Cache is an LRU of embeddings. Entries are scoped by provider and model so
// that switching providers never returns a vector of the wrong space.
// A nil *Cache is valid and caches nothing.
type Cache struct {
	entries *lru.Cache[string, *Embedding]
}

func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = DefaultCacheSize
	}
	entries, err := lru.New[string, *Embedding](maxLen)
	if err != nil {
		entries, _ = lru.New[string, *Embedding](DefaultCacheSize)
	}
	return &Cache{entries: entries}
}

// Key builds the cache key for text embedded by provider/model
func (c *Cache) Key(provider, model, textHash string) string {
	return provider + "\x00" + model + "\x00" + textHash
}

// Get returns a private copy of the cached embedding
func (c *Cache) Get(key string) (*Embedding, bool) {
	if c == nil {
		return nil, false
	}
	emb, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return copyEmbedding(emb), true
}

// Set stores a private copy of emb
func (c *Cache) Set(key string, emb *Embedding) {
	if c == nil || emb == nil {
		return
	}
	c.entries.Add(key, copyEmbedding(emb))
}

func (c *Cache) Size() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.entries.Purge()
}

func copyEmbedding(e *Embedding) *Embedding {
	dup := *e
	dup.Vector = slices.Clone(e.Vector)
	return &dup
}

// ComputeHash returns the hex SHA-256 of text
func ComputeHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func ValidateRequest(req EmbeddingRequest) error {
	if req.Text == "" {
		return ErrEmptyText
	}
	return nil
}

// ValidateBatchRequest rejects empty batches, batches over MaxBatchSize and empty texts
func ValidateBatchRequest(req BatchEmbeddingRequest) error {
	switch n := len(req.Texts); {
	case n == 0:
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	case n > MaxBatchSize:
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, n, MaxBatchSize)
	}
	if i := slices.Index(req.Texts, ""); i >= 0 {
		return fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
	}
	return nil
}

// NormalizeVector scales v to unit length. The zero vector is returned as is.
func NormalizeVector(v []float32) []float32 {
	n := norm(v)
	if n == 0 {
		return v
	}
	unit := make([]float32, len(v))
	for i, x := range v {
		unit[i] = float32(float64(x) / n)
	}
	return unit
}

// CosineSimilarity scores 0 for vectors of different length or zero magnitude
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (na * nb)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
