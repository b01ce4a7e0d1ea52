package fusion

import (
	"strings"

	"github.com/dshills/promptkb/pkg/types"
)

// PreferenceRule maps query keywords to a preferred file category
type PreferenceRule struct {
	Category types.FileCategory `yaml:"category"`
	Keywords []string           `yaml:"keywords"`
}

// TypePreferences derives preferred file categories from query wording.
// Rules are matched as case-insensitive substrings, so they work for
// languages without whitespace word boundaries.
type TypePreferences struct {
	Rules   []PreferenceRule
	Default types.FileCategory
}

// DefaultTypePreferences returns the built-in bilingual keyword rules
func DefaultTypePreferences() TypePreferences {
	return TypePreferences{
		Rules: []PreferenceRule{
			{Category: types.CategorySpreadsheet, Keywords: []string{"表格", "excel", "spreadsheet", "csv", "xlsx", "table"}},
			{Category: types.CategoryPresentation, Keywords: []string{"ppt", "幻灯片", "演示", "slides", "presentation", "deck"}},
			{Category: types.CategoryImage, Keywords: []string{"图片", "照片", "image", "photo", "picture", "png", "jpg"}},
			{Category: types.CategoryVideo, Keywords: []string{"视频", "video", "mp4", "movie"}},
			{Category: types.CategoryAudio, Keywords: []string{"音频", "audio", "录音", "mp3", "recording", "podcast"}},
		},
		Default: types.CategoryDocument,
	}
}

// Preferred returns the categories the query asks for, in rule order.
// When no rule matches the default category is returned.
func (p TypePreferences) Preferred(query string) []types.FileCategory {
	q := strings.ToLower(query)

	var out []types.FileCategory
	for _, rule := range p.Rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(q, strings.ToLower(kw)) {
				out = append(out, rule.Category)
				break
			}
		}
	}

	if len(out) == 0 && p.Default != "" {
		out = append(out, p.Default)
	}
	return out
}
