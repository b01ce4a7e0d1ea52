package types

import (
	"crypto/sha256"
	"strings"
)

// Chunk is one heading section of an ingested text file. Each chunk is
// stored as its own SearchableDocument.
type Chunk struct {
	Index   int    // 0-based position within the file
	Heading string // Nearest preceding markdown heading, if any

	Content     string
	ContentHash [32]byte
	TokenCount  int // Estimated as bytes/4

	StartLine int // 1-based, inclusive
	EndLine   int
}

// Validate reports the first broken chunk invariant
func (c *Chunk) Validate() error {
	switch {
	case strings.TrimSpace(c.Content) == "":
		return ErrEmptyChunk
	case c.Index < 0:
		return ErrInvalidChunkIndex
	case c.StartLine < 1 || c.EndLine < c.StartLine:
		return ErrInvalidLineRange
	case c.ContentHash == [32]byte{}:
		return ErrMissingContentHash
	}
	return nil
}

func (c *Chunk) ComputeTokenCount() int {
	c.TokenCount = len(c.Content) / 4
	return c.TokenCount
}

func (c *Chunk) ComputeContentHash() {
	c.ContentHash = sha256.Sum256([]byte(c.Content))
}

// DisplayName is the document name of the chunk, "file › heading"
func (c *Chunk) DisplayName(fileName string) string {
	if c.Heading == "" {
		return fileName
	}
	return fileName + " › " + c.Heading
}
