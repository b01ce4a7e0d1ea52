package semantic

import (
	"context"
	"sort"

	"github.com/dshills/promptkb/pkg/types"
)

// Scorer rates candidates against a query
type Scorer interface {
	Score(ctx context.Context, query string, candidates []types.SearchableDocument) ([]types.MatchResult, error)
}

// newResult builds a semantic match for a candidate
func newResult(doc *types.SearchableDocument, score float64) types.MatchResult {
	return types.MatchResult{
		DocumentID: doc.ID,
		Score:      clamp01(score),
		Source:     types.SourceSemantic,
		Document:   doc.Meta(),
	}
}

// sortResults orders by descending score, keeping input order for ties
func sortResults(results []types.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || v != v:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
