// Package highlight generates snippets and highlight spans for search results.
//
// All positions are rune offsets into the original content. Matching is
// case-insensitive and performed rune by rune, so offsets computed on the
// lowered text are valid for the original text.
//
// MergeSpans is the single normalisation step for span lists: it is applied
// to freshly computed highlights and whenever highlight lists from different
// retrieval sources are combined.
package highlight
