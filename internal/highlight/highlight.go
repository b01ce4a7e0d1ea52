package highlight

import (
	"sort"
	"strings"
	"unicode"

	"github.com/dshills/promptkb/pkg/types"
)

// MinKeywordLength is the minimum rune length of a highlighted keyword
const MinKeywordLength = 2

// Keywords splits a query on whitespace into lowercase, de-duplicated terms
func Keywords(query string) []string {
	fields := strings.Fields(query)
	seen := make(map[string]struct{}, len(fields))
	keywords := make([]string, 0, len(fields))

	for _, f := range fields {
		kw := strings.ToLower(f)
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}
	return keywords
}

// Highlights returns the merged spans of every case-insensitive occurrence
// of each query keyword in content
func Highlights(content, query string) []types.HighlightSpan {
	if content == "" {
		return nil
	}

	runes := []rune(content)
	lowered := lowerRunes(runes)

	var spans []types.HighlightSpan
	for _, kw := range Keywords(query) {
		needle := []rune(kw)
		if len(needle) < MinKeywordLength {
			continue
		}
		for _, pos := range occurrences(lowered, needle) {
			end := pos + len(needle)
			spans = append(spans, types.HighlightSpan{
				Start: pos,
				End:   end,
				Text:  string(runes[pos:end]),
			})
		}
	}

	return MergeSpans(spans)
}

// MergeSpans sorts spans by start and merges overlapping or adjacent ones.
// The input slice is not modified. Merging an already merged list returns
// an equal list.
func MergeSpans(spans []types.HighlightSpan) []types.HighlightSpan {
	if len(spans) == 0 {
		return nil
	}

	sorted := make([]types.HighlightSpan, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := make([]types.HighlightSpan, 0, len(sorted))
	cur := sorted[0]

	for _, next := range sorted[1:] {
		if next.Start > cur.End {
			merged = append(merged, cur)
			cur = next
			continue
		}
		if next.End > cur.End {
			cur.Text += tail(next, cur.End)
			cur.End = next.End
		}
	}

	return append(merged, cur)
}

// tail returns the part of span's text that lies at or after offset
func tail(span types.HighlightSpan, offset int) string {
	skip := offset - span.Start
	text := []rune(span.Text)
	if skip < 0 || skip > len(text) {
		return ""
	}
	return string(text[skip:])
}

// lowerRunes lowers each rune independently so rune offsets are preserved
func lowerRunes(runes []rune) []rune {
	out := make([]rune, len(runes))
	for i, r := range runes {
		out[i] = unicode.ToLower(r)
	}
	return out
}

// occurrences returns every start offset of needle in haystack, overlaps included
func occurrences(haystack, needle []rune) []int {
	n := len(needle)
	if n == 0 || n > len(haystack) {
		return nil
	}

	var positions []int
	for i := 0; i+n <= len(haystack); i++ {
		if haystack[i] != needle[0] {
			continue
		}
		match := true
		for j := 1; j < n; j++ {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			positions = append(positions, i)
		}
	}
	return positions
}
