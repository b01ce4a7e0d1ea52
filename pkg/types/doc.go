// Package types provides shared type definitions for the promptkb search core.
//
// The types here flow between the lexical index, the semantic scorer, the
// fusion engine and the API layer. Persistence models live in
// internal/storage and are converted into these types at the adapter
// boundary.
//
// # Core Types
//
//   - SearchableDocument: one indexable unit (a file or a chunk of a file)
//   - MatchResult: a single lexical or semantic hit for a document
//   - HighlightSpan: a half-open rune range [Start, End) into document content
//   - FusedResult: the deduplicated, ranked output unit of hybrid search
//   - QueryIntent: a transient classification of a free-text query
//
// # Offsets
//
// All offsets are rune offsets, not byte offsets, so that highlights line up
// with what a user perceives as characters in multi-byte text.
//
// # File Categories
//
// Documents carry a file-type tag (normally the lowercase extension without
// the dot). CategoryOf maps it to a FileCategory; ExtensionsFor gives the
// inverse mapping used to build candidate filters.
package types
