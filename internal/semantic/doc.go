// Package semantic scores candidate documents against a query on a 0-1 scale.
//
// Three strategies implement Scorer:
//
//   - LLMScorer asks a completion provider to rate each candidate 0-100
//   - EmbeddingScorer uses cosine similarity between query and document embeddings
//   - KeywordScorer is the deterministic keyword-overlap fallback
//
// The model-backed scorers degrade to KeywordScorer on any upstream or
// parse failure. Only context cancellation is reported as an error.
// Results are always sorted by descending score, with ties kept in
// candidate order.
package semantic
