package types

import "sort"

// Source identifies which retrieval path produced a match
type Source string

const (
	SourceLexical  Source = "lexical"
	SourceSemantic Source = "semantic"
)

// HighlightSpan is a half-open rune range [Start, End) into document content
type HighlightSpan struct {
	Start int
	End   int
	Text  string // content[Start:End]
}

// Len returns the number of runes covered by the span
func (h HighlightSpan) Len() int {
	return h.End - h.Start
}

// MatchResult is one hit from the lexical index or the semantic scorer
type MatchResult struct {
	DocumentID string
	Score      float64 // Normalized to [0, 1]
	Snippet    string
	Highlights []HighlightSpan
	Source     Source

	// Document is optional display metadata; fusion uses it for tie-breaks
	Document *DocumentMeta
}

// SourceSet records which retrieval paths contributed to a fused result
type SourceSet map[Source]struct{}

// NewSourceSet creates a set containing the given sources
func NewSourceSet(sources ...Source) SourceSet {
	s := make(SourceSet, len(sources))
	for _, src := range sources {
		s[src] = struct{}{}
	}
	return s
}

// Add inserts a source
func (s SourceSet) Add(src Source) {
	s[src] = struct{}{}
}

// Has reports whether src contributed
func (s SourceSet) Has(src Source) bool {
	_, ok := s[src]
	return ok
}

// List returns the sources in stable order
func (s SourceSet) List() []Source {
	out := make([]Source, 0, len(s))
	for src := range s {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FusedResult is the ranked, deduplicated output of hybrid search
type FusedResult struct {
	// Identification
	DocumentID string
	Rank       int // Position in the full ranked list (1-based)
	Document   *DocumentMeta

	// Scoring
	LexicalScore  float64
	SemanticScore float64
	HybridScore   float64

	// Presentation
	Snippet    string
	Highlights []HighlightSpan
	Sources    SourceSet
}

// Validate checks the invariants of a fused result
func (r *FusedResult) Validate() error {
	if r.DocumentID == "" {
		return ErrMissingDocumentID
	}
	if r.Rank < 1 {
		return ErrInvalidRank
	}
	if len(r.Sources) == 0 {
		return ErrNoSources
	}
	for i := 1; i < len(r.Highlights); i++ {
		if r.Highlights[i].Start <= r.Highlights[i-1].End {
			return ErrUnmergedHighlights
		}
	}
	return nil
}
