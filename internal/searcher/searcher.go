package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/promptkb/internal/fusion"
	"github.com/dshills/promptkb/internal/highlight"
	"github.com/dshills/promptkb/internal/intent"
	"github.com/dshills/promptkb/internal/semantic"
	"github.com/dshills/promptkb/pkg/types"
)

// SearchMode defines which retrieval paths a search uses
type SearchMode string

const (
	ModeHybrid   SearchMode = "hybrid"   // Lexical + semantic, linearly fused
	ModeLexical  SearchMode = "lexical"  // BM25 full-text search only
	ModeSemantic SearchMode = "semantic" // Intent-filtered semantic scoring only
)

const (
	// DefaultLimit is the page size when SearchOptions.Limit is unset
	DefaultLimit = 20

	// DefaultSuggestLimit is the number of suggestions when no limit is given
	DefaultSuggestLimit = 10

	// DefaultMaxCandidates bounds the documents sent to the semantic scorer
	DefaultMaxCandidates = 100

	// DefaultBatchConcurrency is used by BatchSearch when concurrency is not positive
	DefaultBatchConcurrency = 4
)

// ParseMode converts a mode name to a SearchMode. Empty means hybrid.
func ParseMode(s string) (SearchMode, error) {
	switch SearchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeHybrid:
		return ModeHybrid, nil
	case ModeLexical:
		return ModeLexical, nil
	case ModeSemantic:
		return ModeSemantic, nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrInvalidMode, s)
	}
}

// SearchOptions contains parameters for a search operation
type SearchOptions struct {
	KnowledgeBaseID string // Empty searches every knowledge base
	Limit           int
	Offset          int
	Mode            SearchMode
	Weights         *fusion.Weights // nil uses the searcher's default weights
}

// LexicalFilter scopes a lexical query
type LexicalFilter struct {
	KnowledgeBaseID string
	Limit           int
	Offset          int
	SnippetLength   int
}

// LexicalIndex performs keyword search. Scores must already be normalised to [0, 1].
type LexicalIndex interface {
	LexicalSearch(ctx context.Context, query string, filter LexicalFilter) ([]types.MatchResult, error)
}

// CandidateSource supplies the documents the semantic scorer ranks
type CandidateSource interface {
	FetchCandidates(ctx context.Context, knowledgeBaseID string, filter types.CandidateFilter) ([]types.SearchableDocument, error)
}

// NameSuggester returns document names matching a typed prefix
type NameSuggester interface {
	SuggestNames(ctx context.Context, knowledgeBaseID, prefix string, limit int) ([]string, error)
}

// Searcher coordinates hybrid search across the lexical index and the semantic scorer.
// It holds no per-request state and is safe for concurrent use.
type Searcher struct {
	lexical    LexicalIndex
	candidates CandidateSource
	analyzer   *intent.Analyzer
	scorer     semantic.Scorer
	fallback   semantic.Scorer
	suggester  NameSuggester

	weights       fusion.Weights
	preferences   fusion.TypePreferences
	maxCandidates int
	snippetLength int
	now           func() time.Time
	logger        *slog.Logger
}

// Option configures a Searcher
type Option func(*Searcher)

// WithSuggester enables lexical name-prefix suggestions
func WithSuggester(s NameSuggester) Option {
	return func(sr *Searcher) {
		sr.suggester = s
	}
}

// WithWeights sets the default fusion weights
func WithWeights(w fusion.Weights) Option {
	return func(s *Searcher) {
		s.weights = w
	}
}

// WithTypePreferences replaces the query keyword to file category rules
func WithTypePreferences(p fusion.TypePreferences) Option {
	return func(s *Searcher) {
		s.preferences = p
	}
}

// WithMaxCandidates bounds the semantic candidate set
func WithMaxCandidates(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.maxCandidates = n
		}
	}
}

// WithSnippetLength sets the snippet length in runes
func WithSnippetLength(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.snippetLength = n
		}
	}
}

// WithClock sets the time source used to resolve relative timeframes
func WithClock(now func() time.Time) Option {
	return func(s *Searcher) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Searcher. A nil analyzer always uses the fallback intent, and a nil
// scorer uses keyword overlap.
func New(lexical LexicalIndex, candidates CandidateSource, analyzer *intent.Analyzer, scorer semantic.Scorer, opts ...Option) *Searcher {
	if analyzer == nil {
		analyzer = intent.NewAnalyzer(nil)
	}
	fallback := semantic.NewKeywordScorer()
	if scorer == nil {
		scorer = fallback
	}

	s := &Searcher{
		lexical:       lexical,
		candidates:    candidates,
		analyzer:      analyzer,
		scorer:        scorer,
		fallback:      fallback,
		weights:       fusion.DefaultWeights(),
		preferences:   fusion.DefaultTypePreferences(),
		maxCandidates: DefaultMaxCandidates,
		snippetLength: highlight.DefaultSnippetLength,
		now:           time.Now,
		logger:        slog.Default().With("component", "searcher"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// branchResult is the outcome of one retrieval path
type branchResult struct {
	matches []types.MatchResult
	err     error
}

// Search runs the lexical and semantic branches in parallel, fuses them, and returns
// one page of the ranked list. Branch failures degrade to empty branches; only input
// validation errors and cancellation are returned.
func (s *Searcher) Search(ctx context.Context, query string, opts SearchOptions) ([]types.FusedResult, error) {
	if strings.TrimSpace(query) == "" {
		return []types.FusedResult{}, nil
	}

	opts, weights, err := s.validate(opts)
	if err != nil {
		return nil, err
	}

	lexicalChan := make(chan branchResult, 1)
	semanticChan := make(chan branchResult, 1)

	runLexical := opts.Mode != ModeSemantic
	runSemantic := opts.Mode != ModeLexical

	if runLexical {
		go s.runLexical(ctx, query, opts, lexicalChan)
	} else {
		lexicalChan <- branchResult{}
	}
	if runSemantic {
		go s.runSemantic(ctx, query, opts, semanticChan)
	} else {
		semanticChan <- branchResult{}
	}

	// Wait for both branches
	var lexicalRes, semanticRes branchResult
	var lexicalDone, semanticDone bool
	for !lexicalDone || !semanticDone {
		select {
		case lexicalRes = <-lexicalChan:
			lexicalDone = true
		case semanticRes = <-semanticChan:
			semanticDone = true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if lexicalRes.err != nil {
		s.logger.Warn("lexical branch failed", "query", query, "error", lexicalRes.err)
	}
	if semanticRes.err != nil {
		s.logger.Warn("semantic branch failed", "query", query, "error", semanticRes.err)
	}

	fused := fusion.Fuse(lexicalRes.matches, semanticRes.matches, weights, s.preferences.Preferred(query))
	return fusion.Paginate(fused, opts.Offset, opts.Limit), nil
}

// validateKnowledgeBaseID accepts an empty ID, which searches every knowledge base
func validateKnowledgeBaseID(id string) error {
	if id == "" {
		return nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", types.ErrInvalidKnowledgeBaseID, id)
	}
	return nil
}

// validate applies defaults and checks caller input
func (s *Searcher) validate(opts SearchOptions) (SearchOptions, fusion.Weights, error) {
	if err := validateKnowledgeBaseID(opts.KnowledgeBaseID); err != nil {
		return opts, fusion.Weights{}, err
	}

	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return opts, fusion.Weights{}, err
	}
	opts.Mode = mode

	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	weights := s.weights
	if opts.Weights != nil {
		weights = *opts.Weights
	}
	if err := weights.Validate(); err != nil {
		return opts, fusion.Weights{}, err
	}

	switch mode {
	case ModeLexical:
		weights = fusion.Weights{Lexical: 1}
	case ModeSemantic:
		weights = fusion.Weights{Semantic: 1}
	}
	return opts, weights, nil
}

// runLexical executes the lexical branch in a goroutine
func (s *Searcher) runLexical(ctx context.Context, query string, opts SearchOptions, resultChan chan<- branchResult) {
	var res branchResult
	if s.lexical == nil {
		res.err = errors.New("no lexical index configured")
	} else {
		// Fusion ranks the union, so every page needs the top (offset+limit) of each branch
		res.matches, res.err = s.lexical.LexicalSearch(ctx, query, LexicalFilter{
			KnowledgeBaseID: opts.KnowledgeBaseID,
			Limit:           (opts.Offset + opts.Limit) * 2,
			SnippetLength:   s.snippetLength,
		})
	}
	select {
	case resultChan <- res:
	case <-ctx.Done():
	}
}

// runSemantic executes intent analysis, candidate fetch and scoring in a goroutine
func (s *Searcher) runSemantic(ctx context.Context, query string, opts SearchOptions, resultChan chan<- branchResult) {
	var res branchResult
	res.matches, res.err = s.semanticMatches(ctx, query, opts.KnowledgeBaseID)
	select {
	case resultChan <- res:
	case <-ctx.Done():
	}
}

func (s *Searcher) semanticMatches(ctx context.Context, query, knowledgeBaseID string) ([]types.MatchResult, error) {
	if s.candidates == nil {
		return nil, errors.New("no candidate source configured")
	}

	qi := s.analyzer.Analyze(ctx, query)
	filter := intent.Filter(qi, s.now(), s.maxCandidates)

	candidates, err := s.candidates.FetchCandidates(ctx, knowledgeBaseID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidates: %w", err)
	}
	if len(candidates) == 0 {
		return []types.MatchResult{}, nil
	}

	scored, err := s.scorer.Score(ctx, query, candidates)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("semantic scorer failed, using keyword overlap", "error", err)
		if scored, err = s.fallback.Score(ctx, query, candidates); err != nil {
			return nil, err
		}
	}

	content := make(map[string]string, len(candidates))
	for i := range candidates {
		content[candidates[i].ID] = candidates[i].Content
	}

	matches := make([]types.MatchResult, 0, len(scored))
	for _, m := range scored {
		if m.Score <= 0 {
			continue
		}
		highlight.Annotate(&m, content[m.DocumentID], query, s.snippetLength)
		matches = append(matches, m)
	}
	return matches, nil
}

// Suggest returns query completions: document names matching the query as a prefix,
// followed by reformulations derived from the query intent, deduplicated
// case-insensitively.
func (s *Searcher) Suggest(ctx context.Context, query, knowledgeBaseID string, limit int) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return []string{}, nil
	}
	if err := validateKnowledgeBaseID(knowledgeBaseID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	var names, reformulations []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if s.suggester == nil {
			return nil
		}
		var err error
		names, err = s.suggester.SuggestNames(gctx, knowledgeBaseID, query, limit)
		if err != nil {
			s.logger.Warn("name suggestions failed", "query", query, "error", err)
			names = nil
		}
		return nil
	})
	g.Go(func() error {
		reformulations = intent.Suggestions(s.analyzer.Analyze(gctx, query))
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(names)+len(reformulations))
	suggestions := make([]string, 0, limit)
	for _, list := range [][]string{names, reformulations} {
		for _, suggestion := range list {
			key := strings.ToLower(strings.TrimSpace(suggestion))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			suggestions = append(suggestions, suggestion)
			if len(suggestions) == limit {
				return suggestions, nil
			}
		}
	}
	return suggestions, nil
}

// BatchSearch runs Search for every query with at most concurrency searches in flight.
// Results are returned in query order. The first error cancels the remaining searches.
func (s *Searcher) BatchSearch(ctx context.Context, queries []string, opts SearchOptions, concurrency int) ([][]types.FusedResult, error) {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}

	results := make([][]types.FusedResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, query := range queries {
		g.Go(func() error {
			res, err := s.Search(gctx, query, opts)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
