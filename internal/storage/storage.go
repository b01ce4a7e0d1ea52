package storage

import (
	"context"
	"time"

	"github.com/dshills/promptkb/pkg/types"
)

// Storage defines the interface for persisting and querying knowledge base documents
type Storage interface {
	// Knowledge base operations
	CreateKnowledgeBase(ctx context.Context, kb *KnowledgeBase) error
	GetKnowledgeBase(ctx context.Context, id string) (*KnowledgeBase, error)
	GetKnowledgeBaseByName(ctx context.Context, name string) (*KnowledgeBase, error)
	ListKnowledgeBases(ctx context.Context) ([]*KnowledgeBase, error)
	TouchKnowledgeBase(ctx context.Context, id string, ingestedAt time.Time) error

	// Document operations
	UpsertDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id string) (*Document, error)
	GetDocumentsByPath(ctx context.Context, knowledgeBaseID, path string) ([]*Document, error)
	DeleteDocumentsByPath(ctx context.Context, knowledgeBaseID, path string) (int, error)
	ListPaths(ctx context.Context, knowledgeBaseID string) (map[string]string, error)

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
	GetEmbedding(ctx context.Context, documentID string) (*Embedding, error)

	// Search operations
	SearchText(ctx context.Context, query string, filter TextFilter) ([]TextResult, error)
	ScoreVectors(ctx context.Context, query []float32, documentIDs []string) (map[string]float64, error)
	FetchCandidates(ctx context.Context, filter CandidateFilter) ([]types.SearchableDocument, error)
	SuggestNames(ctx context.Context, knowledgeBaseID, prefix string, limit int) ([]string, error)

	// Status operations
	GetStatus(ctx context.Context, knowledgeBaseID string) (*KnowledgeBaseStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage
}

// KnowledgeBase is a named collection of documents
type KnowledgeBase struct {
	ID             string // UUID
	Name           string
	Description    string
	RootPath       string // Directory last ingested into the knowledge base
	LastIngestedAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Document is one searchable unit: a chunk of an ingested file
type Document struct {
	ID              string // UUID
	KnowledgeBaseID string
	Path            string // Relative to the ingest root
	ChunkIndex      int
	Name            string // Display name
	Content         string
	ContentHash     string // Hex SHA-256 of Content
	FileHash        string // Hex SHA-256 of the whole source file
	FileType        string
	Tags            []string
	SizeBytes       int64
	ModifiedAt      time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Searchable converts the stored document into the ranking view
func (d *Document) Searchable() types.SearchableDocument {
	return types.SearchableDocument{
		ID:              d.ID,
		KnowledgeBaseID: d.KnowledgeBaseID,
		Name:            d.Name,
		Content:         d.Content,
		FileType:        d.FileType,
		Tags:            d.Tags,
		ModifiedAt:      d.ModifiedAt,
	}
}

// Embedding is the stored vector for a document
type Embedding struct {
	DocumentID string
	Vector     []float32
	Dimension  int
	Provider   string
	Model      string
	CreatedAt  time.Time
}

// TextFilter scopes and pages a full-text search
type TextFilter struct {
	KnowledgeBaseID string
	Limit           int
	Offset          int
}

// TextResult is a full-text hit with its normalised relevance
type TextResult struct {
	Document  *Document
	BM25Score float64 // Raw bm25(), lower is better
	Score     float64 // Normalised to (0,1), higher is better
}

// CandidateFilter narrows the documents handed to semantic scoring
type CandidateFilter struct {
	KnowledgeBaseID string
	Since           time.Time // Zero means no lower bound on ModifiedAt
	Extensions      []string  // Lowercase, without the dot
	Limit           int
}

// KnowledgeBaseStatus contains statistics about a knowledge base
type KnowledgeBaseStatus struct {
	KnowledgeBase   *KnowledgeBase
	FilesCount      int
	DocumentsCount  int
	EmbeddingsCount int
	IndexSizeMB     float64
	LastIngestedAt  time.Time
	Health          HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	FTSIndexesBuilt     bool
}
