package searcher

import (
	"context"

	"github.com/dshills/promptkb/internal/highlight"
	"github.com/dshills/promptkb/internal/intent"
	"github.com/dshills/promptkb/internal/semantic"
	"github.com/dshills/promptkb/internal/storage"
	"github.com/dshills/promptkb/pkg/types"
)

// StorageLexicalIndex adapts storage full-text search to LexicalIndex
type StorageLexicalIndex struct {
	storage storage.Storage
}

// NewStorageLexicalIndex creates a lexical index over the FTS5 tables of store
func NewStorageLexicalIndex(store storage.Storage) *StorageLexicalIndex {
	return &StorageLexicalIndex{storage: store}
}

// LexicalSearch returns BM25 matches with scores normalised to [0, 1), plus snippets
// and highlights computed from the stored content
func (l *StorageLexicalIndex) LexicalSearch(ctx context.Context, query string, filter LexicalFilter) ([]types.MatchResult, error) {
	results, err := l.storage.SearchText(ctx, query, storage.TextFilter{
		KnowledgeBaseID: filter.KnowledgeBaseID,
		Limit:           filter.Limit,
		Offset:          filter.Offset,
	})
	if err != nil {
		return nil, err
	}

	snippetLength := filter.SnippetLength
	if snippetLength <= 0 {
		snippetLength = highlight.DefaultSnippetLength
	}

	matches := make([]types.MatchResult, len(results))
	for i, r := range results {
		doc := r.Document.Searchable()
		matches[i] = types.MatchResult{
			DocumentID: doc.ID,
			Score:      r.Score,
			Source:     types.SourceLexical,
			Document:   doc.Meta(),
		}
		highlight.Annotate(&matches[i], doc.Content, query, snippetLength)
	}
	return matches, nil
}

// StorageCandidateSource adapts storage candidate fetching to CandidateSource
type StorageCandidateSource struct {
	storage storage.Storage
}

// NewStorageCandidateSource creates a candidate source over store
func NewStorageCandidateSource(store storage.Storage) *StorageCandidateSource {
	return &StorageCandidateSource{storage: store}
}

// FetchCandidates returns at most storage.MaxCandidates documents matching filter,
// most recently modified first
func (c *StorageCandidateSource) FetchCandidates(ctx context.Context, knowledgeBaseID string, filter types.CandidateFilter) ([]types.SearchableDocument, error) {
	return c.storage.FetchCandidates(ctx, storage.CandidateFilter{
		KnowledgeBaseID: knowledgeBaseID,
		Since:           filter.Since,
		Extensions:      filter.Extensions,
		Limit:           filter.Limit,
	})
}

// NewFromStorage wires a Searcher whose lexical index, candidates and name
// suggestions all come from store
func NewFromStorage(store storage.Storage, analyzer *intent.Analyzer, scorer semantic.Scorer, opts ...Option) *Searcher {
	opts = append([]Option{WithSuggester(store)}, opts...)
	return New(NewStorageLexicalIndex(store), NewStorageCandidateSource(store), analyzer, scorer, opts...)
}
