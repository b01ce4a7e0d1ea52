package semantic

import (
	"context"
	"strings"

	"github.com/dshills/promptkb/pkg/types"
)

// Keyword overlap weights on a 0-100 scale
const (
	NameMatchWeight    = 30
	ContentMatchWeight = 5
	maxKeywordScore    = 100
)

// KeywordScorer scores by keyword overlap with the name and content
type KeywordScorer struct{}

// NewKeywordScorer creates the fallback scorer
func NewKeywordScorer() *KeywordScorer {
	return &KeywordScorer{}
}

// Score never fails and is deterministic for identical input
func (k *KeywordScorer) Score(ctx context.Context, query string, candidates []types.SearchableDocument) ([]types.MatchResult, error) {
	return keywordScores(query, candidates), nil
}

func keywordScores(query string, candidates []types.SearchableDocument) []types.MatchResult {
	keywords := uniqueLower(strings.Fields(query))
	results := make([]types.MatchResult, 0, len(candidates))

	for i := range candidates {
		doc := &candidates[i]
		name := strings.ToLower(doc.Name)
		content := strings.ToLower(doc.Content)

		total := 0
		for _, kw := range keywords {
			if strings.Contains(name, kw) {
				total += NameMatchWeight
			}
			total += ContentMatchWeight * strings.Count(content, kw)
			if total >= maxKeywordScore {
				total = maxKeywordScore
				break
			}
		}

		results = append(results, newResult(doc, float64(total)/maxKeywordScore))
	}

	sortResults(results)
	return results
}

func uniqueLower(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(w)
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
