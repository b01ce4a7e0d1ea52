// Package embedder generates vector embeddings for documents and queries.
//
// Embeddings back the EmbeddingScorer semantic strategy and are stored per
// document at ingest time so queries only need one embedding call.
//
// # Providers
//
//   - local: deterministic feature-hashing embedder, no network access
//   - openai: any OpenAI-compatible embeddings endpoint via langchaingo
//
// Provider selection:
//
//	PROMPTKB_EMBEDDING_PROVIDER  explicit choice ("local" or "openai")
//	OPENAI_API_KEY               selects openai when no provider is set
//
// # Caching
//
// Providers share an LRU Cache keyed by the SHA-256 of the input text.
// Cache.Get returns deep copies so callers may mutate returned vectors.
//
// # Usage
//
//	emb, err := embedder.New(embedder.Config{Provider: "local", CacheSize: 1000})
//	if err != nil {
//		return err
//	}
//	defer emb.Close()
//
//	vec, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
package embedder
