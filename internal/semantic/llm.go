package semantic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dshills/promptkb/internal/llm"
	"github.com/dshills/promptkb/pkg/types"
)

const (
	// PreviewRunes is how much of each candidate's content the model sees
	PreviewRunes = 500

	// DefaultTimeout bounds one scoring call
	DefaultTimeout = 30 * time.Second
)

const scoringSystemPrompt = `You rate how relevant documents are to a search query.
Score every document from 0 (unrelated) to 100 (exactly what the user wants).
Return ONLY a JSON object of the form:
{"scores":[{"index":0,"score":85,"reason":"short rationale"}]}`

var errNoScores = errors.New("response contains no scores")

type llmScore struct {
	Index  int     `json:"index"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

type llmResponse struct {
	Scores []llmScore `json:"scores"`
}

// LLMScorer asks a completion provider to rate candidates
type LLMScorer struct {
	provider llm.Provider
	fallback *KeywordScorer
	timeout  time.Duration
	logger   *slog.Logger
}

// LLMOption configures an LLMScorer
type LLMOption func(*LLMScorer)

// WithLLMTimeout sets the per-call timeout
func WithLLMTimeout(d time.Duration) LLMOption {
	return func(s *LLMScorer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLLMLogger sets the logger
func WithLLMLogger(logger *slog.Logger) LLMOption {
	return func(s *LLMScorer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewLLMScorer creates a scorer backed by provider
func NewLLMScorer(provider llm.Provider, opts ...LLMOption) *LLMScorer {
	if provider == nil {
		provider = llm.Disabled{}
	}
	s := &LLMScorer{
		provider: provider,
		fallback: NewKeywordScorer(),
		timeout:  DefaultTimeout,
		logger:   slog.Default().With("component", "semantic-llm"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score rates all candidates in a single completion call
func (s *LLMScorer) Score(ctx context.Context, query string, candidates []types.SearchableDocument) ([]types.MatchResult, error) {
	if len(candidates) == 0 {
		return []types.MatchResult{}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.provider.Complete(callCtx, buildScoringPrompt(query, candidates), llm.CompletionOpts{
		System:      scoringSystemPrompt,
		MaxTokens:   64 * len(candidates),
		Temperature: 0,
		JSON:        true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("semantic scoring call failed, using keyword fallback", "err", err)
		return keywordScores(query, candidates), nil
	}

	parsed, ok := llm.ParseOrDefault(raw, llmResponse{}, func(r *llmResponse) error {
		if len(r.Scores) == 0 {
			return errNoScores
		}
		return nil
	})
	if !ok {
		s.logger.Warn("unparseable scoring response, using keyword fallback", "candidates", len(candidates))
		return keywordScores(query, candidates), nil
	}

	return mapScores(parsed.Scores, candidates, s.logger), nil
}

// mapScores attaches model scores to candidates by index.
// Out-of-range indices are discarded; the first score for an index wins.
// Candidates the model skipped score 0.
func mapScores(scores []llmScore, candidates []types.SearchableDocument, logger *slog.Logger) []types.MatchResult {
	byIndex := make(map[int]float64, len(scores))
	dropped := 0

	for _, sc := range scores {
		if sc.Index < 0 || sc.Index >= len(candidates) {
			dropped++
			continue
		}
		if _, seen := byIndex[sc.Index]; seen {
			continue
		}
		byIndex[sc.Index] = min(max(sc.Score, 0), 100)
	}
	if dropped > 0 {
		logger.Debug("discarded out-of-range score indices", "count", dropped)
	}

	results := make([]types.MatchResult, len(candidates))
	for i := range candidates {
		results[i] = newResult(&candidates[i], byIndex[i]/100)
	}
	sortResults(results)
	return results
}

func buildScoringPrompt(query string, candidates []types.SearchableDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nDocuments:\n", query)
	for i := range candidates {
		doc := &candidates[i]
		fmt.Fprintf(&b, "\n[%d] %s\n%s\n", i, doc.Name, preview(doc.Content, PreviewRunes))
	}
	return b.String()
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
