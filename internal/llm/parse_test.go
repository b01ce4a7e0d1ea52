package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type scored struct {
	Scores []struct {
		Index int `json:"index"`
		Score int `json:"score"`
	} `json:"scores"`
}

func TestParseOrDefault(t *testing.T) {
	def := scored{}

	tests := []struct {
		name      string
		raw       string
		ok        bool
		wantCount int
	}{
		{"plain json", `{"scores":[{"index":0,"score":80}]}`, true, 1},
		{"json fence", "```json\n{\"scores\":[{\"index\":0,\"score\":80},{\"index\":1,\"score\":5}]}\n```", true, 2},
		{"bare fence", "```\n{\"scores\":[]}\n```", true, 0},
		{"surrounding prose", `Sure! Here you go: {"scores":[{"index":2,"score":10}]} Hope that helps.`, true, 1},
		{"trailing commas", `{"scores":[{"index":0,"score":1,},],}`, true, 1},
		{"unquoted keys", `{scores:[{index:0, score:1}]}`, true, 1},
		{"half quoted key", `{"scores":[{index":0, "score":1}]}`, true, 1},
		{"empty", "", false, 0},
		{"prose only", "I cannot help with that.", false, 0},
		{"truncated", `{"scores":[{"index":0,"sco`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseOrDefault(tt.raw, def, nil)
			assert.Equal(t, tt.ok, ok)
			assert.Len(t, got.Scores, tt.wantCount)
		})
	}
}

func TestParseOrDefaultValidation(t *testing.T) {
	type intent struct {
		Action string `json:"action"`
	}
	def := intent{Action: "find"}
	reject := errors.New("unknown action")

	validate := func(v *intent) error {
		if v.Action != "summarize" && v.Action != "find" {
			return reject
		}
		return nil
	}

	got, ok := ParseOrDefault(`{"action":"summarize"}`, def, validate)
	assert.True(t, ok)
	assert.Equal(t, "summarize", got.Action)

	got, ok = ParseOrDefault(`{"action":"dance"}`, def, validate)
	assert.False(t, ok)
	assert.Equal(t, def, got)
}

func TestParseOrDefaultValidateCanNormalise(t *testing.T) {
	type kw struct {
		Keywords []string `json:"keywords"`
	}
	got, ok := ParseOrDefault(`{"keywords":["A","b"]}`, kw{}, func(v *kw) error {
		v.Keywords = append(v.Keywords, "c")
		return nil
	})
	assert.True(t, ok)
	assert.Equal(t, []string{"A", "b", "c"}, got.Keywords)
}

func TestRepairJSONLeavesStringsAlone(t *testing.T) {
	in := `{"reason":"keys like {a: 1,} stay", "ok":true}`
	assert.Equal(t, in, repairJSON(in))
}

func TestRepairJSONEscapedQuotes(t *testing.T) {
	in := `{"reason":"say \"hi\", then {x: 1,}"}`
	assert.Equal(t, in, repairJSON(in))
}

func TestRepairJSONLiteralsNotQuoted(t *testing.T) {
	assert.Equal(t, `[true, false, null]`, repairJSON(`[true, false, null]`))
	assert.Equal(t, `{"a": true, "b": null}`, repairJSON(`{"a": true, b: null}`))
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripFences("  {\"a\":1}  "))
}
