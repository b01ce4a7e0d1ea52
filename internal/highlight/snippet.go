package highlight

import "github.com/dshills/promptkb/pkg/types"

// Ellipsis marks truncated snippet boundaries
const Ellipsis = "…"

// DefaultSnippetLength is the snippet window size in runes
const DefaultSnippetLength = 200

// Snippet returns the maxLength-rune window of content that covers the most
// keyword text, with Ellipsis added on each truncated side. The result is
// at most maxLength+2 runes long.
func Snippet(content, query string, maxLength int) string {
	if maxLength <= 0 || content == "" {
		return ""
	}

	runes := []rune(content)
	if len(runes) <= maxLength {
		return content
	}

	start := bestWindow(lowerRunes(runes), Keywords(query), maxLength)
	end := start + maxLength

	out := string(runes[start:end])
	if start > 0 {
		out = Ellipsis + out
	}
	if end < len(runes) {
		out += Ellipsis
	}
	return out
}

// bestWindow returns the window start maximising the total length of keyword
// matches that lie fully inside the window. Among equally good starts, the
// middle of the first contiguous run wins, centring the matched text. With
// no matches the window starts at 0.
func bestWindow(lowered []rune, keywords []string, size int) int {
	last := len(lowered) - size
	if last <= 0 {
		return 0
	}

	// diff[s] accumulates score changes so window scores are a prefix sum
	diff := make([]int, last+2)
	for _, kw := range keywords {
		needle := []rune(kw)
		n := len(needle)
		if n == 0 || n > size {
			continue
		}
		for _, pos := range occurrences(lowered, needle) {
			lo := max(pos+n-size, 0)
			hi := min(pos, last)
			if lo > hi {
				continue
			}
			diff[lo] += n
			diff[hi+1] -= n
		}
	}

	best, runStart, runEnd := 0, 0, 0
	score := 0
	for s := 0; s <= last; s++ {
		score += diff[s]
		switch {
		case score > best:
			best, runStart, runEnd = score, s, s
		case score == best && best > 0 && runEnd == s-1:
			runEnd = s
		}
	}

	if best == 0 {
		return 0
	}
	return runStart + (runEnd-runStart)/2
}

// Annotate fills in snippet and highlights for a match from document content
func Annotate(match *types.MatchResult, content, query string, maxLength int) {
	if match.Snippet == "" {
		match.Snippet = Snippet(content, query, maxLength)
	}
	if len(match.Highlights) == 0 {
		match.Highlights = Highlights(content, query)
	}
}
