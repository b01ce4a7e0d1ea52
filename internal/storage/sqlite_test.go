package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	return storage
}

func createTestKB(t *testing.T, s Storage, name string) *KnowledgeBase {
	t.Helper()
	kb := &KnowledgeBase{Name: name, Description: "test knowledge base"}
	require.NoError(t, s.CreateKnowledgeBase(context.Background(), kb))
	return kb
}

func createTestDoc(t *testing.T, s Storage, kbID, path, name, content string, modified time.Time) *Document {
	t.Helper()
	doc := &Document{
		KnowledgeBaseID: kbID,
		Path:            path,
		Name:            name,
		Content:         content,
		FileHash:        HashContent([]byte(content)),
		FileType:        "md",
		Tags:            []string{"prompting"},
		ModifiedAt:      modified,
	}
	require.NoError(t, s.UpsertDocument(context.Background(), doc))
	return doc
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	assert.NotNil(t, storage)
	assert.NotNil(t, storage.db)
}

func TestClose(t *testing.T) {
	storage := setupTestDB(t)
	err := storage.Close()
	assert.NoError(t, err)
}

func TestCreateKnowledgeBase(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	kb := createTestKB(t, storage, "prompts")
	assert.NoError(t, ValidateID(kb.ID))
	assert.False(t, kb.CreatedAt.IsZero())

	// Names are unique
	err := storage.CreateKnowledgeBase(ctx, &KnowledgeBase{Name: "prompts"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	// Caller-supplied IDs must be UUIDs
	err = storage.CreateKnowledgeBase(ctx, &KnowledgeBase{ID: "kb-1", Name: "other"})
	assert.ErrorIs(t, err, ErrInvalidID)

	err = storage.CreateKnowledgeBase(ctx, &KnowledgeBase{Name: "  "})
	assert.Error(t, err)
}

func TestGetKnowledgeBase(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	kb := createTestKB(t, storage, "prompts")

	byID, err := storage.GetKnowledgeBase(ctx, kb.ID)
	require.NoError(t, err)
	assert.Equal(t, "prompts", byID.Name)
	assert.Equal(t, "test knowledge base", byID.Description)

	byName, err := storage.GetKnowledgeBaseByName(ctx, "prompts")
	require.NoError(t, err)
	assert.Equal(t, kb.ID, byName.ID)

	_, err = storage.GetKnowledgeBase(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndTouchKnowledgeBases(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	createTestKB(t, storage, "zeta")
	alpha := createTestKB(t, storage, "alpha")

	kbs, err := storage.ListKnowledgeBases(ctx)
	require.NoError(t, err)
	require.Len(t, kbs, 2)
	assert.Equal(t, "alpha", kbs[0].Name)
	assert.Equal(t, "zeta", kbs[1].Name)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, storage.TouchKnowledgeBase(ctx, alpha.ID, at))

	got, err := storage.GetKnowledgeBase(ctx, alpha.ID)
	require.NoError(t, err)
	assert.True(t, got.LastIngestedAt.Equal(at))

	err = storage.TouchKnowledgeBase(ctx, "00000000-0000-0000-0000-000000000000", at)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertDocument(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	kb := createTestKB(t, storage, "prompts")
	modified := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	doc := createTestDoc(t, storage, kb.ID, "guides/cot.md", "cot.md", "Chain of thought prompting", modified)
	assert.NoError(t, ValidateID(doc.ID))
	assert.NotEmpty(t, doc.ContentHash)

	got, err := storage.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "cot.md", got.Name)
	assert.Equal(t, "Chain of thought prompting", got.Content)
	assert.Equal(t, []string{"prompting"}, got.Tags)
	assert.True(t, got.ModifiedAt.Equal(modified))

	// Same (knowledge base, path, chunk) keeps the stored ID
	again := &Document{
		ID:              "11111111-1111-1111-1111-111111111111",
		KnowledgeBaseID: kb.ID,
		Path:            "guides/cot.md",
		Name:            "cot.md",
		Content:         "Rewritten guidance",
		FileHash:        "abc",
		FileType:        "md",
	}
	require.NoError(t, storage.UpsertDocument(ctx, again))
	assert.Equal(t, doc.ID, again.ID)

	got, err = storage.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rewritten guidance", got.Content)
	assert.Empty(t, got.Tags)

	// The FTS index follows the update
	hits, err := storage.SearchText(ctx, "chain", TextFilter{KnowledgeBaseID: kb.ID})
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = storage.SearchText(ctx, "rewritten", TextFilter{KnowledgeBaseID: kb.ID})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, doc.ID, hits[0].Document.ID)
}

func TestUpsertDocument_Invalid(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()

	err := storage.UpsertDocument(ctx, &Document{KnowledgeBaseID: "not-a-uuid", Path: "a.md"})
	assert.ErrorIs(t, err, ErrInvalidID)

	err = storage.UpsertDocument(ctx, &Document{
		KnowledgeBaseID: "00000000-0000-0000-0000-000000000000",
		Path:            "a.md",
		Content:         "orphan",
	})
	assert.ErrorIs(t, err, ErrNotFound)

	kb := createTestKB(t, storage, "prompts")
	err = storage.UpsertDocument(ctx, &Document{KnowledgeBaseID: kb.ID})
	assert.Error(t, err)
}

func TestDocumentsByPath(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	kb := createTestKB(t, storage, "prompts")
	now := time.Now()

	for i, content := range []string{"first section", "second section", "third section"} {
		doc := &Document{
			KnowledgeBaseID: kb.ID,
			Path:            "notes.md",
			ChunkIndex:      i,
			Content:         content,
			FileHash:        "filehash",
			ModifiedAt:      now,
		}
		require.NoError(t, storage.UpsertDocument(ctx, doc))
	}
	createTestDoc(t, storage, kb.ID, "other.md", "other.md", "unrelated", now)

	docs, err := storage.GetDocumentsByPath(ctx, kb.ID, "notes.md")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	for i, doc := range docs {
		assert.Equal(t, i, doc.ChunkIndex)
		assert.Equal(t, "notes.md", doc.Name)
	}

	paths, err := storage.ListPaths(ctx, kb.ID)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
	assert.Equal(t, "filehash", paths["notes.md"])

	deleted, err := storage.DeleteDocumentsByPath(ctx, kb.ID, "notes.md")
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	docs, err = storage.GetDocumentsByPath(ctx, kb.ID, "notes.md")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestEmbeddings(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	kb := createTestKB(t, storage, "prompts")
	doc := createTestDoc(t, storage, kb.ID, "a.md", "a.md", "content", time.Now())

	emb := &Embedding{
		DocumentID: doc.ID,
		Vector:     []float32{0.1, 0.2, 0.3},
		Provider:   "local",
		Model:      "feature-hash-v1",
	}
	require.NoError(t, storage.UpsertEmbedding(ctx, emb))
	assert.Equal(t, 3, emb.Dimension)

	got, err := storage.GetEmbedding(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got.Vector)
	assert.Equal(t, "local", got.Provider)

	// Replacing keeps one row
	emb.Vector = []float32{1, 0, 0}
	require.NoError(t, storage.UpsertEmbedding(ctx, emb))
	got, err = storage.GetEmbedding(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, got.Vector)

	err = storage.UpsertEmbedding(ctx, &Embedding{DocumentID: doc.ID})
	assert.Error(t, err)

	err = storage.UpsertEmbedding(ctx, &Embedding{DocumentID: doc.ID, Vector: []float32{1}, Dimension: 2})
	assert.Error(t, err)

	// Deleting the document cascades
	_, err = storage.DeleteDocumentsByPath(ctx, kb.ID, "a.md")
	require.NoError(t, err)
	_, err = storage.GetEmbedding(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchText(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	kb := createTestKB(t, storage, "prompts")
	other := createTestKB(t, storage, "other")
	now := time.Now()

	cot := createTestDoc(t, storage, kb.ID, "cot.md", "chain-of-thought.md",
		"Chain of thought prompting improves reasoning.", now)
	createTestDoc(t, storage, kb.ID, "few.md", "few-shot.md",
		"Few shot examples guide the model.", now)
	createTestDoc(t, storage, other.ID, "cot.md", "chain-of-thought.md",
		"Reasoning in another knowledge base.", now)

	hits, err := storage.SearchText(ctx, "reasoning", TextFilter{KnowledgeBaseID: kb.ID})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, cot.ID, hits[0].Document.ID)
	assert.Less(t, hits[0].BM25Score, 0.0)
	assert.Greater(t, hits[0].Score, 0.0)
	assert.Less(t, hits[0].Score, 1.0)

	// Terms are ORed
	hits, err = storage.SearchText(ctx, "reasoning examples", TextFilter{KnowledgeBaseID: kb.ID})
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	// FTS operators and punctuation are literal
	hits, err = storage.SearchText(ctx, `NOT "reasoning" (`, TextFilter{KnowledgeBaseID: kb.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, hits)

	hits, err = storage.SearchText(ctx, "   ", TextFilter{KnowledgeBaseID: kb.ID})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchText_Pagination(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	kb := createTestKB(t, storage, "prompts")
	for _, name := range []string{"a.md", "b.md", "c.md", "d.md", "e.md"} {
		createTestDoc(t, storage, kb.ID, name, name, "prompt template", time.Now())
	}

	first, err := storage.SearchText(ctx, "prompt", TextFilter{KnowledgeBaseID: kb.ID, Limit: 2})
	require.NoError(t, err)
	second, err := storage.SearchText(ctx, "prompt", TextFilter{KnowledgeBaseID: kb.ID, Limit: 2, Offset: 2})
	require.NoError(t, err)
	rest, err := storage.SearchText(ctx, "prompt", TextFilter{KnowledgeBaseID: kb.ID, Limit: 10, Offset: 4})
	require.NoError(t, err)

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	require.Len(t, rest, 1)

	seen := map[string]bool{}
	for _, page := range [][]TextResult{first, second, rest} {
		for _, hit := range page {
			assert.False(t, seen[hit.Document.ID], "document repeated across pages")
			seen[hit.Document.ID] = true
		}
	}
}

func TestNormalizeBM25(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeBM25(0))
	assert.InDelta(t, 0.5, NormalizeBM25(-5), 1e-12)
	assert.InDelta(t, 0.5, NormalizeBM25(5), 1e-12)

	// Stronger matches score higher
	assert.Greater(t, NormalizeBM25(-10), NormalizeBM25(-2))
	assert.Less(t, NormalizeBM25(-1e9), 1.0)
}

func TestFetchCandidates(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	kb := createTestKB(t, storage, "prompts")
	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	old := createTestDoc(t, storage, kb.ID, "old.md", "old.md", "old", base.AddDate(0, -2, 0))
	recent := createTestDoc(t, storage, kb.ID, "recent.md", "recent.md", "recent", base)
	sheet := &Document{
		KnowledgeBaseID: kb.ID,
		Path:            "budget.csv",
		Content:         "a,b",
		FileType:        "csv",
		ModifiedAt:      base.AddDate(0, 0, -1),
	}
	require.NoError(t, storage.UpsertDocument(ctx, sheet))

	docs, err := storage.FetchCandidates(ctx, CandidateFilter{KnowledgeBaseID: kb.ID})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, recent.ID, docs[0].ID)
	assert.Equal(t, sheet.ID, docs[1].ID)
	assert.Equal(t, old.ID, docs[2].ID)
	assert.Equal(t, kb.ID, docs[0].KnowledgeBaseID)

	docs, err = storage.FetchCandidates(ctx, CandidateFilter{
		KnowledgeBaseID: kb.ID,
		Since:           base.AddDate(0, 0, -7),
	})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = storage.FetchCandidates(ctx, CandidateFilter{
		KnowledgeBaseID: kb.ID,
		Extensions:      []string{"csv", "xlsx"},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, sheet.ID, docs[0].ID)

	docs, err = storage.FetchCandidates(ctx, CandidateFilter{KnowledgeBaseID: kb.ID, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestFetchCandidates_Cap(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	kb := createTestKB(t, storage, "prompts")

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	for i := 0; i < MaxCandidates+10; i++ {
		require.NoError(t, tx.UpsertDocument(ctx, &Document{
			KnowledgeBaseID: kb.ID,
			Path:            "bulk.md",
			ChunkIndex:      i,
			Content:         "bulk",
		}))
	}
	require.NoError(t, tx.Commit())

	docs, err := storage.FetchCandidates(ctx, CandidateFilter{KnowledgeBaseID: kb.ID, Limit: 500})
	require.NoError(t, err)
	assert.Len(t, docs, MaxCandidates)
}

func TestSuggestNames(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	kb := createTestKB(t, storage, "prompts")
	now := time.Now()

	createTestDoc(t, storage, kb.ID, "cot.md", "chain-of-thought.md", "reasoning", now)
	createTestDoc(t, storage, kb.ID, "chat.md", "chat-templates.md", "roles", now)
	createTestDoc(t, storage, kb.ID, "few.md", "few-shot.md", "chain of examples", now)
	// A second chunk sharing its file's name
	require.NoError(t, storage.UpsertDocument(ctx, &Document{
		KnowledgeBaseID: kb.ID,
		Path:            "cot.md",
		ChunkIndex:      1,
		Name:            "chain-of-thought.md",
		Content:         "more",
	}))

	names, err := storage.SuggestNames(ctx, kb.ID, "cha", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"chain-of-thought.md", "chat-templates.md"}, names)

	names, err = storage.SuggestNames(ctx, kb.ID, "chain tho", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"chain-of-thought.md"}, names)

	names, err = storage.SuggestNames(ctx, kb.ID, "cha", 1)
	require.NoError(t, err)
	assert.Len(t, names, 1)

	names, err = storage.SuggestNames(ctx, kb.ID, "", 10)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSearchAcrossKnowledgeBases(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	kb := createTestKB(t, storage, "prompts")
	other := createTestKB(t, storage, "memories")
	now := time.Now()

	first := createTestDoc(t, storage, kb.ID, "cot.md", "chain-of-thought.md",
		"Chain of thought prompting improves reasoning.", now)
	second := createTestDoc(t, storage, other.ID, "notes.md", "chain-notes.md",
		"Reasoning notes from another knowledge base.", now.Add(-time.Hour))

	hits, err := storage.SearchText(ctx, "reasoning", TextFilter{})
	require.NoError(t, err)
	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.Document.ID
	}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)

	docs, err := storage.FetchCandidates(ctx, CandidateFilter{})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, first.ID, docs[0].ID)
	assert.Equal(t, second.ID, docs[1].ID)

	names, err := storage.SuggestNames(ctx, "", "chain", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"chain-of-thought.md", "chain-notes.md"}, names)

	// A set ID still narrows
	names, err = storage.SuggestNames(ctx, other.ID, "chain", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"chain-notes.md"}, names)
}

func TestGetStatus(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	kb := createTestKB(t, storage, "prompts")
	a := createTestDoc(t, storage, kb.ID, "a.md", "a.md", "alpha", time.Now())
	require.NoError(t, storage.UpsertDocument(ctx, &Document{
		KnowledgeBaseID: kb.ID, Path: "a.md", ChunkIndex: 1, Content: "alpha two",
	}))
	createTestDoc(t, storage, kb.ID, "b.md", "b.md", "beta", time.Now())
	require.NoError(t, storage.UpsertEmbedding(ctx, &Embedding{
		DocumentID: a.ID, Vector: []float32{1, 0}, Provider: "local", Model: "m",
	}))

	status, err := storage.GetStatus(ctx, kb.ID)
	require.NoError(t, err)
	assert.Equal(t, kb.ID, status.KnowledgeBase.ID)
	assert.Equal(t, 2, status.FilesCount)
	assert.Equal(t, 3, status.DocumentsCount)
	assert.Equal(t, 1, status.EmbeddingsCount)
	assert.Greater(t, status.IndexSizeMB, 0.0)
	assert.True(t, status.Health.DatabaseAccessible)
	assert.True(t, status.Health.EmbeddingsAvailable)
	assert.True(t, status.Health.FTSIndexesBuilt)

	_, err = storage.GetStatus(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBeginTx_CommitRollback(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()

	// Test commit
	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)

	kb := &KnowledgeBase{Name: "committed"}
	require.NoError(t, tx.CreateKnowledgeBase(ctx, kb))

	// Reads inside the transaction see its writes
	inTx, err := tx.GetKnowledgeBase(ctx, kb.ID)
	require.NoError(t, err)
	assert.Equal(t, "committed", inTx.Name)

	require.NoError(t, tx.Commit())

	retrieved, err := storage.GetKnowledgeBaseByName(ctx, "committed")
	require.NoError(t, err)
	assert.Equal(t, kb.ID, retrieved.ID)

	// Test rollback
	tx2, err := storage.BeginTx(ctx)
	require.NoError(t, err)

	require.NoError(t, tx2.CreateKnowledgeBase(ctx, &KnowledgeBase{Name: "rolled-back"}))
	_, err = tx2.BeginTx(ctx)
	assert.Error(t, err)
	require.NoError(t, tx2.Rollback())

	_, err = storage.GetKnowledgeBaseByName(ctx, "rolled-back")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMigrations_RollbackAndReapply(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()

	version, err := currentSchemaVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version.String())

	// Applying twice is a no-op
	require.NoError(t, ApplyMigrations(ctx, storage.db))

	require.NoError(t, RollbackMigration(ctx, storage.db))
	_, err = storage.ListKnowledgeBases(ctx)
	assert.Error(t, err)

	require.NoError(t, ApplyMigrations(ctx, storage.db))
	kbs, err := storage.ListKnowledgeBases(ctx)
	require.NoError(t, err)
	assert.Empty(t, kbs)
}
