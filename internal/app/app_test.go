package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/promptkb/internal/config"
	"github.com/dshills/promptkb/internal/searcher"
	"github.com/dshills/promptkb/internal/semantic"
	"github.com/dshills/promptkb/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DBPath = ":memory:"
	cfg.Embedding.Provider = "local"
	return cfg
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew(t *testing.T) {
	a := newTestApp(t)

	assert.NotNil(t, a.Storage)
	assert.NotNil(t, a.Embedder)
	assert.NotNil(t, a.Ingester)
	assert.NotNil(t, a.Searcher)
	assert.Equal(t, "none", a.Provider.Name())
	assert.Equal(t, "local", a.Embedder.Provider())
}

func TestNew_CreatesDatabaseDirectory(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBPath = filepath.Join(t.TempDir(), "nested", "kb.db")

	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	_, err = os.Stat(cfg.DBPath)
	assert.NoError(t, err)
}

func TestNew_InvalidProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Provider = "telepathy"

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNewScorer(t *testing.T) {
	a := newTestApp(t)

	assert.IsType(t, &semantic.LLMScorer{}, newScorer(config.StrategyLLM, a.Provider, a.Embedder, nil))
	assert.IsType(t, &semantic.KeywordScorer{}, newScorer(config.StrategyKeyword, a.Provider, a.Embedder, nil))
	assert.IsType(t, &semantic.EmbeddingScorer{}, newScorer(config.StrategyEmbedding, a.Provider, a.Embedder, nil))
}

func TestIngestAndSearch(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "few-shot.md"),
		[]byte("# Few-shot prompting\n\nGive the model worked examples before the task.\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "roles.md"),
		[]byte("# Role prompting\n\nTell the model which persona to adopt.\n"), 0644))

	stats, err := a.Ingester.IngestDirectory(ctx, "prompts", dir, a.Config.IngestConfig())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Equal(t, 2, stats.EmbeddingsCreated)

	kb, err := a.ResolveKnowledgeBase(ctx, "prompts")
	require.NoError(t, err)
	byID, err := a.ResolveKnowledgeBase(ctx, kb.ID)
	require.NoError(t, err)
	assert.Equal(t, kb.Name, byID.Name)

	_, err = a.ResolveKnowledgeBase(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	results, err := a.Searcher.Search(ctx, "worked examples", searcher.SearchOptions{KnowledgeBaseID: kb.ID})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	var found bool
	for _, r := range results {
		if r.Document.Name == "few-shot.md › Few-shot prompting" {
			found = true
			assert.Greater(t, r.LexicalScore, 0.0)
		} else {
			assert.Equal(t, 0.0, r.LexicalScore)
		}
	}
	assert.True(t, found)
}
