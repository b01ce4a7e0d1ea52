// Package searcher implements hybrid knowledge-base search combining BM25 keyword
// matching with intent-filtered semantic scoring.
//
// The searcher provides three search modes:
//   - Hybrid: lexical + semantic branches, linearly fused (default)
//   - Lexical: BM25 full-text search only
//   - Semantic: semantic scoring of intent-filtered candidates only
//
// # Basic Usage
//
//	s := searcher.NewFromStorage(store, intent.NewAnalyzer(provider), semantic.NewLLMScorer(provider))
//
//	results, err := s.Search(ctx, "few-shot examples for classification", searcher.SearchOptions{
//	    KnowledgeBaseID: kb.ID,
//	    Limit:           20,
//	})
//
//	for _, r := range results {
//	    fmt.Printf("[%d] %s (%.2f)\n", r.Rank, r.Document.Name, r.HybridScore)
//	}
//
// # Control Flow
//
// Each Search call starts two goroutines and joins both before fusing:
//
//	lexical:  LexicalIndex.LexicalSearch(query, top (offset+limit)*2)
//	semantic: Analyze(query) -> Filter -> FetchCandidates (<= 100) -> Score
//
// A failed branch contributes nothing; the other branch is ranked alone. When the
// semantic scorer fails the candidates are rescored by keyword overlap. Semantic
// matches scoring zero are discarded. Cancelling ctx abandons both branches and
// Search returns ctx.Err().
//
// # Fusion
//
//	hybrid = lexical*w.Lexical + semantic*w.Semantic   (default 0.6 / 0.4)
//
// Ties are broken by query-preferred file category, then by modification time,
// then by document ID. See package fusion.
//
// # Errors
//
// Only caller input is validated: an empty query yields an empty list, while a
// knowledge base ID that is not a UUID, an unknown mode, or negative weights are
// reported with types.ErrInvalidKnowledgeBaseID, types.ErrInvalidMode and
// types.ErrInvalidWeights.
package searcher
