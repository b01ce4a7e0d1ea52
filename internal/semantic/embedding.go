package semantic

import (
	"context"
	"log/slog"

	"github.com/dshills/promptkb/internal/embedder"
	"github.com/dshills/promptkb/pkg/types"
)

// VectorIndex scores stored document embeddings against a query vector.
// Documents without a stored embedding are absent from the result.
type VectorIndex interface {
	ScoreVectors(ctx context.Context, query []float32, documentIDs []string) (map[string]float64, error)
}

// EmbeddingScorer ranks candidates by cosine similarity of embeddings
type EmbeddingScorer struct {
	embedder embedder.Embedder
	index    VectorIndex
	logger   *slog.Logger
}

// EmbeddingOption configures an EmbeddingScorer
type EmbeddingOption func(*EmbeddingScorer)

// WithVectorIndex reuses embeddings persisted at ingest time
func WithVectorIndex(index VectorIndex) EmbeddingOption {
	return func(s *EmbeddingScorer) {
		s.index = index
	}
}

// WithEmbeddingLogger sets the logger
func WithEmbeddingLogger(logger *slog.Logger) EmbeddingOption {
	return func(s *EmbeddingScorer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewEmbeddingScorer creates a scorer backed by emb
func NewEmbeddingScorer(emb embedder.Embedder, opts ...EmbeddingOption) *EmbeddingScorer {
	s := &EmbeddingScorer{
		embedder: emb,
		logger:   slog.Default().With("component", "semantic-embedding"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score embeds the query and compares it with each candidate.
// Negative similarities clamp to 0.
func (s *EmbeddingScorer) Score(ctx context.Context, query string, candidates []types.SearchableDocument) ([]types.MatchResult, error) {
	if len(candidates) == 0 {
		return []types.MatchResult{}, nil
	}
	if s.embedder == nil {
		return keywordScores(query, candidates), nil
	}

	scores, err := s.similarities(ctx, query, candidates)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("embedding similarity failed, using keyword fallback", "err", err)
		return keywordScores(query, candidates), nil
	}

	results := make([]types.MatchResult, len(candidates))
	for i := range candidates {
		results[i] = newResult(&candidates[i], scores[candidates[i].ID])
	}
	sortResults(results)
	return results, nil
}

func (s *EmbeddingScorer) similarities(ctx context.Context, query string, candidates []types.SearchableDocument) (map[string]float64, error) {
	q, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(candidates))
	if s.index != nil {
		ids := make([]string, len(candidates))
		for i := range candidates {
			ids[i] = candidates[i].ID
		}
		stored, err := s.index.ScoreVectors(ctx, q.Vector, ids)
		if err != nil {
			s.logger.Debug("stored vector lookup failed, embedding candidates directly", "err", err)
		}
		for id, score := range stored {
			scores[id] = score
		}
	}

	var missing []int
	for i := range candidates {
		if _, ok := scores[candidates[i].ID]; !ok && candidates[i].Content != "" {
			missing = append(missing, i)
		}
	}

	for start := 0; start < len(missing); start += embedder.MaxBatchSize {
		end := min(start+embedder.MaxBatchSize, len(missing))
		texts := make([]string, 0, end-start)
		for _, i := range missing[start:end] {
			texts = append(texts, preview(candidates[i].Content, 4*PreviewRunes))
		}

		resp, err := s.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			return nil, err
		}
		for j, i := range missing[start:end] {
			if j < len(resp.Embeddings) && resp.Embeddings[j] != nil {
				scores[candidates[i].ID] = embedder.CosineSimilarity(q.Vector, resp.Embeddings[j].Vector)
			}
		}
	}

	return scores, nil
}
