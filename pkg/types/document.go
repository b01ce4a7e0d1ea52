package types

import (
	"time"
)

// SearchableDocument is a read-only view of one indexable unit
type SearchableDocument struct {
	ID              string
	KnowledgeBaseID string
	Name            string // Display name
	Content         string // Full extracted text
	FileType        string // Lowercase extension without the dot
	Tags            []string
	ModifiedAt      time.Time
}

// Meta returns the display metadata carried through ranking
func (d *SearchableDocument) Meta() *DocumentMeta {
	return &DocumentMeta{
		ID:              d.ID,
		KnowledgeBaseID: d.KnowledgeBaseID,
		Name:            d.Name,
		FileType:        d.FileType,
		Tags:            d.Tags,
		ModifiedAt:      d.ModifiedAt,
	}
}

// DocumentMeta is the subset of a document needed to rank and display a result
type DocumentMeta struct {
	ID              string
	KnowledgeBaseID string
	Name            string
	FileType        string
	Tags            []string
	ModifiedAt      time.Time
}

// Category returns the file category of the document
func (m *DocumentMeta) Category() FileCategory {
	if m == nil {
		return ""
	}
	return CategoryOf(m.FileType)
}
