// Package chunker divides extracted document text into chunks for indexing and search.
//
// Each chunk becomes one searchable document, so chunk boundaries decide what a
// search hit shows and what an embedding covers.
//
// # Basic Usage
//
//	c := chunker.New()
//	chunks := c.ChunkTextWithStrategy(text, chunker.StrategyFor("md"))
//	for _, chunk := range chunks {
//	    fmt.Printf("%s: %d tokens, lines %d-%d\n",
//	        chunk.DisplayName("guide.md"), chunk.TokenCount, chunk.StartLine, chunk.EndLine)
//	}
//
// # Chunking Strategy
//
// StrategySection (markdown and plain text):
//   - A markdown heading always starts a new chunk and names it
//   - Paragraphs under a heading are packed together up to the size limit
//
// StrategyParagraph (data and config formats):
//   - Paragraphs are packed up to the size limit; '#' lines are ordinary text
//
// Paragraphs larger than the limit are split at line boundaries, and single
// lines larger than the limit at the last space or rune boundary.
//
// # Token Estimation
//
// Token counts use the chars/4 heuristic, the same one the embedders assume.
package chunker
