package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/promptkb/internal/embedder"
	"github.com/dshills/promptkb/internal/storage"
)

// mockEmbedder implements embedder.Embedder for testing
type mockEmbedder struct {
	dimension        int
	generateBatchErr error
	callCount        int
	mu               sync.Mutex
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{dimension: 8}
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	resp, err := m.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: []string{req.Text}})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

func (m *mockEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generateBatchErr != nil {
		return nil, m.generateBatchErr
	}

	embeddings := make([]*embedder.Embedding, len(req.Texts))
	for i := range req.Texts {
		vector := make([]float32, m.dimension)
		for j := range vector {
			vector[j] = 0.5
		}
		embeddings[i] = &embedder.Embedding{
			Vector:    vector,
			Dimension: m.dimension,
			Provider:  "mock",
			Model:     "test-v1",
		}
	}
	m.callCount += len(req.Texts)

	return &embedder.BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   "mock",
		Model:      "test-v1",
	}, nil
}

func (m *mockEmbedder) Dimension() int   { return m.dimension }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return "test-v1" }
func (m *mockEmbedder) Close() error     { return nil }

func (m *mockEmbedder) getCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// setupTestStorage creates an in-memory SQLite database for testing
func setupTestStorage(t testing.TB) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err, "Failed to create test storage")
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// createTestFile writes a file under dir, creating parent directories
func createTestFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	filePath := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
	require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	return filePath
}

func newTestIngester(t *testing.T, store storage.Storage, opts ...Option) *Ingester {
	t.Helper()
	ing, err := New(store, opts...)
	require.NoError(t, err)
	t.Cleanup(ing.Release)
	return ing
}

func TestNew(t *testing.T) {
	store := setupTestStorage(t)

	ing := newTestIngester(t, store)
	assert.NotNil(t, ing.chunker)
	assert.NotNil(t, ing.pool)
	assert.Nil(t, ing.embedder)
	assert.Greater(t, ing.workers, 0)

	_, err := New(nil)
	assert.ErrorIs(t, err, ErrStorageRequired)
}

func TestIngestDirectory(t *testing.T) {
	store := setupTestStorage(t)
	emb := newMockEmbedder()
	ing := newTestIngester(t, store, WithEmbedder(emb), WithPoolSize(2))
	ctx := context.Background()

	dir := t.TempDir()
	createTestFile(t, dir, "guides/cot.md", "# Chain of Thought\n\nReason step by step.\n\n# Pitfalls\n\nDrift.\n")
	createTestFile(t, dir, "budget.csv", "item,cost\nprompt,1\n")
	createTestFile(t, dir, "image.png", "not text we index")
	createTestFile(t, dir, ".hidden/secret.md", "hidden")

	stats, err := ing.IngestDirectory(ctx, "prompts", dir, &Config{Tags: []string{"Team"}})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Equal(t, 0, stats.FilesSkipped)
	assert.Equal(t, 0, stats.FilesFailed)
	assert.Equal(t, 3, stats.DocumentsCreated)
	assert.Equal(t, 3, stats.EmbeddingsCreated)
	assert.Equal(t, 3, emb.getCallCount())
	assert.Greater(t, stats.Duration.Nanoseconds(), int64(0))

	kb, err := store.GetKnowledgeBaseByName(ctx, "prompts")
	require.NoError(t, err)
	assert.Equal(t, kb.ID, stats.KnowledgeBaseID)
	assert.False(t, kb.LastIngestedAt.IsZero())

	docs, err := store.GetDocumentsByPath(ctx, kb.ID, "guides/cot.md")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "cot.md › Chain of Thought", docs[0].Name)
	assert.Equal(t, "cot.md › Pitfalls", docs[1].Name)
	assert.Equal(t, "md", docs[0].FileType)
	assert.Equal(t, []string{"guides", "team"}, docs[0].Tags)
	assert.Equal(t, docs[0].FileHash, docs[1].FileHash)

	embedding, err := store.GetEmbedding(ctx, docs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "mock", embedding.Provider)
	assert.Len(t, embedding.Vector, 8)

	docs, err = store.GetDocumentsByPath(ctx, kb.ID, "budget.csv")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "budget.csv", docs[0].Name)
	assert.Equal(t, "csv", docs[0].FileType)

	docs, err = store.GetDocumentsByPath(ctx, kb.ID, ".hidden/secret.md")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngestDirectory_Incremental(t *testing.T) {
	store := setupTestStorage(t)
	ing := newTestIngester(t, store)
	ctx := context.Background()

	dir := t.TempDir()
	createTestFile(t, dir, "a.md", "alpha")
	createTestFile(t, dir, "b.md", "beta")
	createTestFile(t, dir, "c.md", "gamma")

	stats, err := ing.IngestDirectory(ctx, "prompts", dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.FilesIndexed)

	// Unchanged files are skipped
	stats, err = ing.IngestDirectory(ctx, "prompts", dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesIndexed)
	assert.Equal(t, 3, stats.FilesSkipped)

	// A modified file is re-indexed and a deleted one removed
	createTestFile(t, dir, "a.md", "alpha revised")
	require.NoError(t, os.Remove(filepath.Join(dir, "c.md")))

	stats, err = ing.IngestDirectory(ctx, "prompts", dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesSkipped)
	assert.Equal(t, 1, stats.FilesRemoved)

	kb, err := store.GetKnowledgeBaseByName(ctx, "prompts")
	require.NoError(t, err)

	docs, err := store.GetDocumentsByPath(ctx, kb.ID, "a.md")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "alpha revised", docs[0].Content)

	docs, err = store.GetDocumentsByPath(ctx, kb.ID, "c.md")
	require.NoError(t, err)
	assert.Empty(t, docs)

	status, err := store.GetStatus(ctx, kb.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.FilesCount)
}

func TestIngestDirectory_FailedFiles(t *testing.T) {
	store := setupTestStorage(t)
	ing := newTestIngester(t, store)

	dir := t.TempDir()
	createTestFile(t, dir, "good.txt", "fine")
	createTestFile(t, dir, "binary.txt", "bin\x00ary")
	createTestFile(t, dir, "big.txt", "0123456789abcdef")

	stats, err := ing.IngestDirectory(context.Background(), "prompts", dir, &Config{MaxFileBytes: 10})
	require.NoError(t, err)

	assert.Equal(t, 0, stats.FilesSkipped)
	assert.Equal(t, 2, stats.FilesFailed)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Len(t, stats.ErrorMessages, 2)
}

func TestIngestDirectory_EmbeddingFailureIsNotFatal(t *testing.T) {
	store := setupTestStorage(t)
	emb := newMockEmbedder()
	emb.generateBatchErr = errors.New("provider down")
	ing := newTestIngester(t, store, WithEmbedder(emb))

	dir := t.TempDir()
	createTestFile(t, dir, "a.md", "alpha")

	stats, err := ing.IngestDirectory(context.Background(), "prompts", dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 0, stats.EmbeddingsCreated)
	assert.Equal(t, 1, stats.EmbeddingsFailed)
}

func TestIngestDirectory_Errors(t *testing.T) {
	store := setupTestStorage(t)
	ing := newTestIngester(t, store)
	ctx := context.Background()

	_, err := ing.IngestDirectory(ctx, "prompts", filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)

	file := createTestFile(t, t.TempDir(), "a.md", "alpha")
	_, err = ing.IngestDirectory(ctx, "prompts", file, nil)
	assert.ErrorIs(t, err, ErrNotDirectory)

	require.True(t, ing.lock.TryAcquire())
	_, err = ing.IngestDirectory(ctx, "prompts", t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrIngestInProgress)
	ing.lock.Release()

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	dir := t.TempDir()
	createTestFile(t, dir, "a.md", "alpha")
	_, err = ing.IngestDirectory(cancelled, "prompts", dir, nil)
	assert.Error(t, err)
}

func TestIngestLock(t *testing.T) {
	lock := newIngestLock()
	assert.True(t, lock.TryAcquire())
	assert.False(t, lock.TryAcquire())
	lock.Release()
	assert.True(t, lock.TryAcquire())
}

func TestFileTags(t *testing.T) {
	assert.Nil(t, fileTags("a.md", nil))
	assert.Equal(t, []string{"guides", "chat"}, fileTags("guides/chat/a.md", nil))
	assert.Equal(t, []string{"guides", "extra"}, fileTags("guides/a.md", []string{"Extra", "guides", " "}))
}

func TestDiscoverFiles(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, dir, "a.md", "a")
	createTestFile(t, dir, "b.YAML", "b: 1")
	createTestFile(t, dir, "c.bin", "c")
	createTestFile(t, dir, ".dot/d.md", "d")

	files, err := discoverFiles(dir, withDefaults(nil))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.md"), filepath.Join(dir, "b.YAML")}, files)

	files, err = discoverFiles(dir, withDefaults(&Config{IncludeHidden: true, Extensions: []string{".md"}}))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.md"), filepath.Join(dir, ".dot/d.md")}, files)
}
