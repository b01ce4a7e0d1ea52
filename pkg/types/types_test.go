package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeframeSince(t *testing.T) {
	now := time.Date(2024, time.March, 14, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		timeframe Timeframe
		want      time.Time
		ok        bool
	}{
		{"today", TimeframeToday, time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC), true},
		{"this week", TimeframeThisWeek, time.Date(2024, time.March, 7, 15, 30, 0, 0, time.UTC), true},
		{"this month", TimeframeThisMonth, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), true},
		{"this year", TimeframeThisYear, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), true},
		{"none", TimeframeNone, time.Time{}, false},
		{"unknown", Timeframe("last_decade"), time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.timeframe.Since(now)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		in   string
		want FileCategory
	}{
		{"xlsx", CategorySpreadsheet},
		{".CSV", CategorySpreadsheet},
		{"Quarterly Report.pptx", CategoryPresentation},
		{"png", CategoryImage},
		{"mp4", CategoryVideo},
		{"mp3", CategoryAudio},
		{"md", CategoryDocument},
		{"", CategoryDocument},
		{"unknownext", CategoryDocument},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryOf(tt.in))
		})
	}
}

func TestExtensionsForReturnsCopy(t *testing.T) {
	exts := ExtensionsFor(CategorySpreadsheet)
	require.Contains(t, exts, "xlsx")

	exts[0] = "mutated"
	assert.NotContains(t, ExtensionsFor(CategorySpreadsheet), "mutated")
	assert.Empty(t, ExtensionsFor(FileCategory("bogus")))
}

func TestFusedResultValidate(t *testing.T) {
	valid := FusedResult{
		DocumentID: "d1",
		Rank:       1,
		Sources:    NewSourceSet(SourceLexical),
		Highlights: []HighlightSpan{{Start: 0, End: 2}, {Start: 5, End: 7}},
	}
	require.NoError(t, valid.Validate())

	missingID := valid
	missingID.DocumentID = ""
	assert.ErrorIs(t, missingID.Validate(), ErrMissingDocumentID)

	noSources := valid
	noSources.Sources = SourceSet{}
	assert.ErrorIs(t, noSources.Validate(), ErrNoSources)

	overlapping := valid
	overlapping.Highlights = []HighlightSpan{{Start: 0, End: 4}, {Start: 4, End: 6}}
	assert.ErrorIs(t, overlapping.Validate(), ErrUnmergedHighlights)
}

func TestChunkValidate(t *testing.T) {
	c := Chunk{Content: "hello world", StartLine: 1, EndLine: 2}
	assert.ErrorIs(t, c.Validate(), ErrMissingContentHash)

	c.ComputeContentHash()
	assert.NoError(t, c.Validate())
	assert.Equal(t, 2, c.ComputeTokenCount())

	c.StartLine = 3
	assert.ErrorIs(t, c.Validate(), ErrInvalidLineRange)

	c.StartLine = 1
	c.Index = -1
	assert.ErrorIs(t, c.Validate(), ErrInvalidChunkIndex)
	c.Index = 0

	blank := Chunk{Content: "  ", StartLine: 1, EndLine: 1}
	assert.ErrorIs(t, blank.Validate(), ErrEmptyChunk)

	assert.Equal(t, "notes.md", c.DisplayName("notes.md"))
	c.Heading = "Setup"
	assert.Equal(t, "notes.md › Setup", c.DisplayName("notes.md"))
}
