package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/promptkb/pkg/types"
)

func TestTypePreferencesPreferred(t *testing.T) {
	prefs := DefaultTypePreferences()

	tests := []struct {
		query string
		want  []types.FileCategory
	}{
		{"找一下销售表格", []types.FileCategory{types.CategorySpreadsheet}},
		{"quarterly Excel numbers", []types.FileCategory{types.CategorySpreadsheet}},
		{"product launch slides", []types.FileCategory{types.CategoryPresentation}},
		{"上周的幻灯片", []types.FileCategory{types.CategoryPresentation}},
		{"team photo", []types.FileCategory{types.CategoryImage}},
		{"onboarding video", []types.FileCategory{types.CategoryVideo}},
		{"meeting recording", []types.FileCategory{types.CategoryAudio}},
		{"image and video assets", []types.FileCategory{types.CategoryImage, types.CategoryVideo}},
		{"prompt writing guide", []types.FileCategory{types.CategoryDocument}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, prefs.Preferred(tt.query))
		})
	}
}

func TestTypePreferencesCustomRules(t *testing.T) {
	prefs := TypePreferences{
		Rules: []PreferenceRule{{Category: types.CategoryAudio, Keywords: []string{"Hörbuch"}}},
	}

	assert.Equal(t, []types.FileCategory{types.CategoryAudio}, prefs.Preferred("mein hörbuch"))
	assert.Empty(t, prefs.Preferred("anything else"))
}
