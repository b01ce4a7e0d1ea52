package fusion

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dshills/promptkb/internal/highlight"
	"github.com/dshills/promptkb/pkg/types"
)

// scoreEpsilon is the tolerance under which two hybrid scores are equal
const scoreEpsilon = 1e-12

// Weights are the linear fusion coefficients
type Weights struct {
	Lexical  float64
	Semantic float64
}

// DefaultWeights returns the default hybrid weighting
func DefaultWeights() Weights {
	return Weights{Lexical: 0.6, Semantic: 0.4}
}

// Validate checks that both weights are non-negative finite numbers
func (w Weights) Validate() error {
	for _, v := range []float64{w.Lexical, w.Semantic} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return types.ErrInvalidWeights
		}
	}
	return nil
}

// Combine returns the hybrid score for a pair of normalised scores
func (w Weights) Combine(lexical, semantic float64) float64 {
	return lexical*w.Lexical + semantic*w.Semantic
}

// Fuse merges lexical and semantic matches and ranks them.
// preferred lists the file categories that win hybrid-score ties.
func Fuse(lexical, semantic []types.MatchResult, weights Weights, preferred []types.FileCategory) []types.FusedResult {
	fused := make(map[string]*types.FusedResult, len(lexical)+len(semantic))

	for _, m := range lexical {
		if m.DocumentID == "" {
			continue
		}
		entry, exists := fused[m.DocumentID]
		if !exists {
			fused[m.DocumentID] = newEntry(m, types.SourceLexical)
			continue
		}
		// Duplicate ID within the lexical list keeps the best score
		if m.Score > entry.LexicalScore {
			entry.LexicalScore = m.Score
		}
		mergeInto(entry, m)
	}

	for _, m := range semantic {
		if m.DocumentID == "" {
			continue
		}
		entry, exists := fused[m.DocumentID]
		if !exists {
			fused[m.DocumentID] = newEntry(m, types.SourceSemantic)
			continue
		}
		if !entry.Sources.Has(types.SourceSemantic) || m.Score > entry.SemanticScore {
			entry.SemanticScore = m.Score
		}
		entry.Sources.Add(types.SourceSemantic)
		mergeInto(entry, m)
	}

	results := make([]types.FusedResult, 0, len(fused))
	for _, entry := range fused {
		entry.HybridScore = weights.Combine(entry.LexicalScore, entry.SemanticScore)
		entry.Highlights = highlight.MergeSpans(entry.Highlights)
		results = append(results, *entry)
	}

	Rank(results, preferred)
	return results
}

func newEntry(m types.MatchResult, source types.Source) *types.FusedResult {
	entry := &types.FusedResult{
		DocumentID: m.DocumentID,
		Document:   m.Document,
		Snippet:    m.Snippet,
		Highlights: append([]types.HighlightSpan(nil), m.Highlights...),
		Sources:    types.NewSourceSet(source),
	}
	if source == types.SourceLexical {
		entry.LexicalScore = m.Score
	} else {
		entry.SemanticScore = m.Score
	}
	return entry
}

// mergeInto folds presentation data from m into an existing entry.
// The snippet with more characters wins.
func mergeInto(entry *types.FusedResult, m types.MatchResult) {
	if utf8.RuneCountInString(strings.TrimSpace(m.Snippet)) > utf8.RuneCountInString(strings.TrimSpace(entry.Snippet)) {
		entry.Snippet = m.Snippet
	}
	entry.Highlights = append(entry.Highlights, m.Highlights...)
	if entry.Document == nil {
		entry.Document = m.Document
	}
}

// Rank sorts results in place and assigns 1-based ranks.
// Order: hybrid score desc, type preference desc, modified time desc, ID asc.
func Rank(results []types.FusedResult, preferred []types.FileCategory) {
	pref := make([]int, len(results))
	for i := range results {
		pref[i] = preferenceScore(results[i].Document, preferred)
	}

	idx := make([]int, len(results))
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := &results[idx[a]], &results[idx[b]]

		delta := ra.HybridScore - rb.HybridScore
		if math.Abs(delta) > scoreEpsilon {
			return delta > 0
		}
		if pa, pb := pref[idx[a]], pref[idx[b]]; pa != pb {
			return pa > pb
		}
		ta, tb := modifiedAt(ra), modifiedAt(rb)
		if ta != tb {
			return ta > tb
		}
		return ra.DocumentID < rb.DocumentID
	})

	sorted := make([]types.FusedResult, len(results))
	for i, j := range idx {
		sorted[i] = results[j]
		sorted[i].Rank = i + 1
	}
	copy(results, sorted)
}

func preferenceScore(doc *types.DocumentMeta, preferred []types.FileCategory) int {
	if doc == nil || len(preferred) == 0 {
		return 0
	}
	cat := doc.Category()
	for _, p := range preferred {
		if p == cat {
			return 1
		}
	}
	return 0
}

func modifiedAt(r *types.FusedResult) int64 {
	if r.Document == nil || r.Document.ModifiedAt.IsZero() {
		return math.MinInt64
	}
	return r.Document.ModifiedAt.UnixNano()
}

// Paginate returns the window [offset, offset+limit) of a fully ranked list.
// A non-positive limit returns everything after offset.
func Paginate(results []types.FusedResult, offset, limit int) []types.FusedResult {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return []types.FusedResult{}
	}
	end := len(results)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return results[offset:end]
}
