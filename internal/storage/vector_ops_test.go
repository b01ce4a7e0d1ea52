package storage

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreVectors(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	kb := createTestKB(t, storage, "prompts")
	aligned := createTestDoc(t, storage, kb.ID, "a.md", "a.md", "alpha", time.Now())
	orthogonal := createTestDoc(t, storage, kb.ID, "b.md", "b.md", "beta", time.Now())
	otherModel := createTestDoc(t, storage, kb.ID, "c.md", "c.md", "gamma", time.Now())
	missing := createTestDoc(t, storage, kb.ID, "d.md", "d.md", "delta", time.Now())

	for id, vec := range map[string][]float32{
		aligned.ID:    {1, 0, 0},
		orthogonal.ID: {0, 1, 0},
		otherModel.ID: {1, 0},
	} {
		require.NoError(t, storage.UpsertEmbedding(ctx, &Embedding{
			DocumentID: id, Vector: vec, Provider: "local", Model: "m",
		}))
	}

	scores, err := storage.ScoreVectors(ctx, []float32{1, 0, 0},
		[]string{aligned.ID, orthogonal.ID, otherModel.ID, missing.ID})
	require.NoError(t, err)

	require.Len(t, scores, 2)
	assert.InDelta(t, 1.0, scores[aligned.ID], 1e-6)
	assert.InDelta(t, 0.0, scores[orthogonal.ID], 1e-6)
	assert.NotContains(t, scores, otherModel.ID)
	assert.NotContains(t, scores, missing.ID)
}

func TestScoreVectors_EdgeCases(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()

	scores, err := storage.ScoreVectors(ctx, nil, []string{"x"})
	require.NoError(t, err)
	assert.Empty(t, scores)

	scores, err = storage.ScoreVectors(ctx, []float32{1}, nil)
	require.NoError(t, err)
	assert.Empty(t, scores)

	scores, err = storage.ScoreVectors(ctx, []float32{1}, []string{"unknown"})
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestVectorSerialization(t *testing.T) {
	vector := []float32{0, 1.5, -2.25, float32(math.Pi)}
	blob := serializeVector(vector)
	assert.Len(t, blob, 16)
	assert.Equal(t, vector, deserializeVector(blob))
	assert.Empty(t, deserializeVector(nil))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSanitizeFTSQuery(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"", ""},
		{"  ", ""},
		{"prompt", `"prompt"`},
		{"few shot", `"few" OR "shot"`},
		{`say "hi"`, `"say" OR """hi"""`},
		{"NOT AND", `"NOT" OR "AND"`},
		{"( ) *", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFTSQuery(tt.query), "query %q", tt.query)
	}

	assert.Equal(t, `name : "cha"* AND name : "te"*`, prefixQuery("cha te", "name"))
	assert.Equal(t, `"cha"*`, prefixQuery("cha", ""))
	assert.Equal(t, "", prefixQuery("", "name"))
}
