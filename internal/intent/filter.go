package intent

import (
	"strings"
	"time"

	"github.com/dshills/promptkb/pkg/types"
)

// Filter derives candidate-narrowing predicates from an intent.
// Timeframes resolve relative to now; a file category expands to its
// recognized extensions.
func Filter(intent types.QueryIntent, now time.Time, limit int) types.CandidateFilter {
	f := types.CandidateFilter{Limit: limit}

	if since, ok := intent.Timeframe.Since(now); ok {
		f.Since = since
	}
	if intent.FileType.Valid() {
		f.Extensions = types.ExtensionsFor(intent.FileType)
	}
	return f
}

// Suggestions returns query reformulations implied by an intent
func Suggestions(intent types.QueryIntent) []string {
	var out []string

	phrase := strings.Join(intent.Keywords, " ")
	if phrase != "" {
		out = append(out, phrase)
	}
	if intent.Entity != "" {
		out = append(out, intent.Entity)
	}
	if intent.Action != "" && intent.Action != types.ActionFind && phrase != "" {
		out = append(out, string(intent.Action)+" "+phrase)
	}
	return out
}
