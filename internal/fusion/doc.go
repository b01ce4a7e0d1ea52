// Package fusion merges lexical and semantic match lists into one ranked list.
//
// Fuse keys matches by document ID, so a document found by both retrieval
// paths yields a single FusedResult carrying both scores. The hybrid score
// is a weighted linear combination:
//
//	hybrid = lexical*w.Lexical + semantic*w.Semantic
//
// Both inputs must already be normalised to [0, 1]; normalising an
// unbounded engine score is the responsibility of the adapter that produced
// it. Fuse is pure: it performs no I/O and never fails.
//
// Ties on hybrid score are broken by file-type preference (see
// TypePreferences), then by most recent modification time, then by
// document ID.
package fusion
