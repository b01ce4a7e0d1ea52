package highlight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/promptkb/pkg/types"
)

func span(start, end int, text string) types.HighlightSpan {
	return types.HighlightSpan{Start: start, End: end, Text: text}
}

func bounds(spans []types.HighlightSpan) [][2]int {
	out := make([][2]int, len(spans))
	for i, s := range spans {
		out[i] = [2]int{s.Start, s.End}
	}
	return out
}

func TestMergeSpans(t *testing.T) {
	tests := []struct {
		name  string
		input []types.HighlightSpan
		want  [][2]int
	}{
		{
			name:  "overlapping and disjoint",
			input: []types.HighlightSpan{span(0, 5, ""), span(3, 8, ""), span(10, 12, "")},
			want:  [][2]int{{0, 8}, {10, 12}},
		},
		{
			name:  "adjacent spans merge",
			input: []types.HighlightSpan{span(2, 4, "ab"), span(4, 6, "cd")},
			want:  [][2]int{{2, 6}},
		},
		{
			name:  "unsorted input",
			input: []types.HighlightSpan{span(10, 12, ""), span(0, 2, ""), span(1, 3, "")},
			want:  [][2]int{{0, 3}, {10, 12}},
		},
		{
			name:  "contained span",
			input: []types.HighlightSpan{span(0, 10, ""), span(2, 4, "")},
			want:  [][2]int{{0, 10}},
		},
		{
			name:  "duplicates",
			input: []types.HighlightSpan{span(5, 7, ""), span(5, 7, "")},
			want:  [][2]int{{5, 7}},
		},
		{
			name:  "gap of one stays separate",
			input: []types.HighlightSpan{span(0, 2, ""), span(3, 5, "")},
			want:  [][2]int{{0, 2}, {3, 5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bounds(MergeSpans(tt.input)))
		})
	}
}

func TestMergeSpansRebuildsText(t *testing.T) {
	merged := MergeSpans([]types.HighlightSpan{span(2, 4, "ab"), span(4, 6, "cd")})
	require.Len(t, merged, 1)
	assert.Equal(t, span(2, 6, "abcd"), merged[0])

	merged = MergeSpans([]types.HighlightSpan{span(0, 5, "hello"), span(3, 8, "lo wo")})
	require.Len(t, merged, 1)
	assert.Equal(t, "hello wo", merged[0].Text)
}

func TestMergeSpansIdempotent(t *testing.T) {
	input := []types.HighlightSpan{span(7, 9, "gh"), span(0, 5, "abcde"), span(3, 8, "defgh"), span(20, 22, "uv")}

	once := MergeSpans(input)
	twice := MergeSpans(once)
	assert.Equal(t, once, twice)

	// input must be left untouched
	assert.Equal(t, 7, input[0].Start)
}

func TestMergeSpansEmpty(t *testing.T) {
	assert.Nil(t, MergeSpans(nil))
	assert.Nil(t, MergeSpans([]types.HighlightSpan{}))
}

func TestHighlights(t *testing.T) {
	content := "Prompt templates make prompt reuse easy"

	spans := Highlights(content, "PROMPT reuse")
	assert.Equal(t, [][2]int{{0, 6}, {22, 28}, {29, 34}}, bounds(spans))
	assert.Equal(t, "Prompt", spans[0].Text)
	assert.Equal(t, "prompt", spans[1].Text)
}

func TestHighlightsSkipsShortKeywords(t *testing.T) {
	spans := Highlights("a cat and a hat", "a at")
	// "a" is too short; "at" matches inside cat and hat
	assert.Equal(t, [][2]int{{3, 5}, {13, 15}}, bounds(spans))
}

func TestHighlightsOverlappingKeywordsMerge(t *testing.T) {
	spans := Highlights("knowledgebase", "knowledge base edgeb")
	assert.Equal(t, [][2]int{{0, 13}}, bounds(spans))
	assert.Equal(t, "knowledgebase", spans[0].Text)
}

func TestHighlightsUnicodeOffsets(t *testing.T) {
	content := "这是一个表格文件，包含销售表格"
	spans := Highlights(content, "表格")

	require.Len(t, spans, 2)
	runes := []rune(content)
	for _, s := range spans {
		assert.Equal(t, "表格", string(runes[s.Start:s.End]))
		assert.Equal(t, "表格", s.Text)
	}
	assert.Equal(t, 4, spans[0].Start)
}

func TestHighlightsNoMatch(t *testing.T) {
	assert.Empty(t, Highlights("nothing here", "absent"))
	assert.Empty(t, Highlights("", "absent"))
	assert.Empty(t, Highlights("content", ""))
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"hello", "world"}, Keywords("  Hello WORLD hello "))
	assert.Empty(t, Keywords("   "))
}
