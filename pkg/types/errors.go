package types

import "errors"

// Domain errors
var (
	// Caller-facing validation errors
	ErrInvalidKnowledgeBaseID = errors.New("invalid knowledge base ID")
	ErrInvalidWeights         = errors.New("fusion weights must be non-negative")
	ErrInvalidMode            = errors.New("unsupported search mode")

	// Fused result invariants
	ErrMissingDocumentID  = errors.New("document ID is required")
	ErrInvalidRank        = errors.New("rank must be >= 1")
	ErrNoSources          = errors.New("result must have at least one source")
	ErrUnmergedHighlights = errors.New("highlights must be sorted and non-overlapping")

	// Chunk invariants
	ErrEmptyChunk         = errors.New("chunk content cannot be empty")
	ErrInvalidChunkIndex  = errors.New("chunk index must be non-negative")
	ErrInvalidLineRange   = errors.New("chunk line range is invalid")
	ErrMissingContentHash = errors.New("content hash must be computed")
)
