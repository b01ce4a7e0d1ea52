package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dshills/promptkb/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidID is returned when an identifier is not a UUID
	ErrInvalidID = errors.New("invalid identifier")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sqlx.DB
}

var (
	_ Storage = (*SQLiteStorage)(nil)
	_ Tx      = (*sqliteTx)(nil)
)

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Single writer; also keeps :memory: databases on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is implemented by both *sqlx.DB and *sqlx.Tx
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Row models

type knowledgeBaseRow struct {
	ID             string `db:"id"`
	Name           string `db:"name"`
	Description    string `db:"description"`
	RootPath       string `db:"root_path"`
	LastIngestedAt int64  `db:"last_ingested_at"`
	CreatedAt      int64  `db:"created_at"`
	UpdatedAt      int64  `db:"updated_at"`
}

func (r *knowledgeBaseRow) toModel() *KnowledgeBase {
	return &KnowledgeBase{
		ID:             r.ID,
		Name:           r.Name,
		Description:    r.Description,
		RootPath:       r.RootPath,
		LastIngestedAt: fromMillis(r.LastIngestedAt),
		CreatedAt:      fromMillis(r.CreatedAt),
		UpdatedAt:      fromMillis(r.UpdatedAt),
	}
}

type documentRow struct {
	ID              string `db:"id"`
	KnowledgeBaseID string `db:"knowledge_base_id"`
	Path            string `db:"path"`
	ChunkIndex      int    `db:"chunk_index"`
	Name            string `db:"name"`
	Content         string `db:"content"`
	ContentHash     string `db:"content_hash"`
	FileHash        string `db:"file_hash"`
	FileType        string `db:"file_type"`
	Tags            string `db:"tags"`
	SizeBytes       int64  `db:"size_bytes"`
	ModifiedAt      int64  `db:"modified_at"`
	CreatedAt       int64  `db:"created_at"`
	UpdatedAt       int64  `db:"updated_at"`
}

func (r *documentRow) toModel() *Document {
	var tags []string
	if r.Tags != "" {
		// Tags are written by encodeTags; a decode failure leaves them empty
		_ = json.Unmarshal([]byte(r.Tags), &tags)
	}
	return &Document{
		ID:              r.ID,
		KnowledgeBaseID: r.KnowledgeBaseID,
		Path:            r.Path,
		ChunkIndex:      r.ChunkIndex,
		Name:            r.Name,
		Content:         r.Content,
		ContentHash:     r.ContentHash,
		FileHash:        r.FileHash,
		FileType:        r.FileType,
		Tags:            tags,
		SizeBytes:       r.SizeBytes,
		ModifiedAt:      fromMillis(r.ModifiedAt),
		CreatedAt:       fromMillis(r.CreatedAt),
		UpdatedAt:       fromMillis(r.UpdatedAt),
	}
}

func documentsFromRows(rows []documentRow) []*Document {
	docs := make([]*Document, len(rows))
	for i := range rows {
		docs[i] = rows[i].toModel()
	}
	return docs
}

type embeddingRow struct {
	DocumentID string `db:"document_id"`
	Vector     []byte `db:"vector"`
	Dimension  int    `db:"dimension"`
	Provider   string `db:"provider"`
	Model      string `db:"model"`
	CreatedAt  int64  `db:"created_at"`
}

const documentColumns = `id, knowledge_base_id, path, chunk_index, name, content, content_hash,
	file_hash, file_type, tags, size_bytes, modified_at, created_at, updated_at`

// Knowledge base operations

func (s *SQLiteStorage) createKnowledgeBaseWithQuerier(ctx context.Context, q querier, kb *KnowledgeBase) error {
	if kb.ID == "" {
		kb.ID = uuid.NewString()
	} else if err := ValidateID(kb.ID); err != nil {
		return err
	}
	if strings.TrimSpace(kb.Name) == "" {
		return errors.New("knowledge base name cannot be empty")
	}

	now := time.Now().UTC()
	_, err := q.ExecContext(ctx, `
		INSERT INTO knowledge_bases (id, name, description, root_path, last_ingested_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, kb.ID, kb.Name, kb.Description, kb.RootPath, toMillis(kb.LastIngestedAt), toMillis(now), toMillis(now))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("knowledge base %q: %w", kb.Name, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create knowledge base: %w", err)
	}

	kb.CreatedAt = fromMillis(toMillis(now))
	kb.UpdatedAt = kb.CreatedAt
	return nil
}

func (s *SQLiteStorage) CreateKnowledgeBase(ctx context.Context, kb *KnowledgeBase) error {
	return s.createKnowledgeBaseWithQuerier(ctx, s.db, kb)
}

func (s *SQLiteStorage) getKnowledgeBaseWithQuerier(ctx context.Context, q querier, column, value string) (*KnowledgeBase, error) {
	var row knowledgeBaseRow
	err := q.GetContext(ctx, &row, `
		SELECT id, name, description, root_path, last_ingested_at, created_at, updated_at
		FROM knowledge_bases
		WHERE `+column+` = ?
	`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (s *SQLiteStorage) GetKnowledgeBase(ctx context.Context, id string) (*KnowledgeBase, error) {
	return s.getKnowledgeBaseWithQuerier(ctx, s.db, "id", id)
}

func (s *SQLiteStorage) GetKnowledgeBaseByName(ctx context.Context, name string) (*KnowledgeBase, error) {
	return s.getKnowledgeBaseWithQuerier(ctx, s.db, "name", name)
}

func (s *SQLiteStorage) listKnowledgeBasesWithQuerier(ctx context.Context, q querier) ([]*KnowledgeBase, error) {
	var rows []knowledgeBaseRow
	err := q.SelectContext(ctx, &rows, `
		SELECT id, name, description, root_path, last_ingested_at, created_at, updated_at
		FROM knowledge_bases
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge bases: %w", err)
	}

	kbs := make([]*KnowledgeBase, len(rows))
	for i := range rows {
		kbs[i] = rows[i].toModel()
	}
	return kbs, nil
}

func (s *SQLiteStorage) ListKnowledgeBases(ctx context.Context) ([]*KnowledgeBase, error) {
	return s.listKnowledgeBasesWithQuerier(ctx, s.db)
}

func (s *SQLiteStorage) touchKnowledgeBaseWithQuerier(ctx context.Context, q querier, id string, ingestedAt time.Time) error {
	result, err := q.ExecContext(ctx, `
		UPDATE knowledge_bases
		SET last_ingested_at = ?, updated_at = ?
		WHERE id = ?
	`, toMillis(ingestedAt), toMillis(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to update knowledge base: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) TouchKnowledgeBase(ctx context.Context, id string, ingestedAt time.Time) error {
	return s.touchKnowledgeBaseWithQuerier(ctx, s.db, id, ingestedAt)
}

// Document operations

// upsertDocumentWithQuerier inserts or replaces the document at (knowledge base, path, chunk index).
// The stored ID is written back to doc.
func (s *SQLiteStorage) upsertDocumentWithQuerier(ctx context.Context, q querier, doc *Document) error {
	if err := ValidateID(doc.KnowledgeBaseID); err != nil {
		return err
	}
	if doc.Path == "" {
		return errors.New("document path cannot be empty")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Name == "" {
		doc.Name = doc.Path
	}
	if doc.ContentHash == "" {
		doc.ContentHash = HashContent([]byte(doc.Content))
	}
	tags, err := encodeTags(doc.Tags)
	if err != nil {
		return err
	}

	now := toMillis(time.Now())
	var id string
	err = q.GetContext(ctx, &id, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(knowledge_base_id, path, chunk_index) DO UPDATE SET
			name = excluded.name,
			content = excluded.content,
			content_hash = excluded.content_hash,
			file_hash = excluded.file_hash,
			file_type = excluded.file_type,
			tags = excluded.tags,
			size_bytes = excluded.size_bytes,
			modified_at = excluded.modified_at,
			updated_at = excluded.updated_at
		RETURNING id
	`, doc.ID, doc.KnowledgeBaseID, doc.Path, doc.ChunkIndex, doc.Name, doc.Content, doc.ContentHash,
		doc.FileHash, doc.FileType, tags, doc.SizeBytes, toMillis(doc.ModifiedAt), now, now)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("knowledge base %s: %w", doc.KnowledgeBaseID, ErrNotFound)
		}
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	doc.ID = id
	doc.UpdatedAt = fromMillis(now)
	return nil
}

func (s *SQLiteStorage) UpsertDocument(ctx context.Context, doc *Document) error {
	return s.upsertDocumentWithQuerier(ctx, s.db, doc)
}

func (s *SQLiteStorage) getDocumentWithQuerier(ctx context.Context, q querier, id string) (*Document, error) {
	var row documentRow
	err := q.GetContext(ctx, &row, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*Document, error) {
	return s.getDocumentWithQuerier(ctx, s.db, id)
}

func (s *SQLiteStorage) getDocumentsByPathWithQuerier(ctx context.Context, q querier, knowledgeBaseID, path string) ([]*Document, error) {
	var rows []documentRow
	err := q.SelectContext(ctx, &rows, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE knowledge_base_id = ? AND path = ?
		ORDER BY chunk_index
	`, knowledgeBaseID, path)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents: %w", err)
	}
	return documentsFromRows(rows), nil
}

func (s *SQLiteStorage) GetDocumentsByPath(ctx context.Context, knowledgeBaseID, path string) ([]*Document, error) {
	return s.getDocumentsByPathWithQuerier(ctx, s.db, knowledgeBaseID, path)
}

func (s *SQLiteStorage) deleteDocumentsByPathWithQuerier(ctx context.Context, q querier, knowledgeBaseID, path string) (int, error) {
	result, err := q.ExecContext(ctx, `
		DELETE FROM documents WHERE knowledge_base_id = ? AND path = ?
	`, knowledgeBaseID, path)
	if err != nil {
		return 0, fmt.Errorf("failed to delete documents: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *SQLiteStorage) DeleteDocumentsByPath(ctx context.Context, knowledgeBaseID, path string) (int, error) {
	return s.deleteDocumentsByPathWithQuerier(ctx, s.db, knowledgeBaseID, path)
}

// listPathsWithQuerier maps every ingested path of a knowledge base to its file hash
func (s *SQLiteStorage) listPathsWithQuerier(ctx context.Context, q querier, knowledgeBaseID string) (map[string]string, error) {
	var rows []struct {
		Path     string `db:"path"`
		FileHash string `db:"file_hash"`
	}
	err := q.SelectContext(ctx, &rows, `
		SELECT path, file_hash
		FROM documents
		WHERE knowledge_base_id = ? AND chunk_index = 0
	`, knowledgeBaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list paths: %w", err)
	}

	paths := make(map[string]string, len(rows))
	for _, r := range rows {
		paths[r.Path] = r.FileHash
	}
	return paths, nil
}

func (s *SQLiteStorage) ListPaths(ctx context.Context, knowledgeBaseID string) (map[string]string, error) {
	return s.listPathsWithQuerier(ctx, s.db, knowledgeBaseID)
}

// Embedding operations

func (s *SQLiteStorage) upsertEmbeddingWithQuerier(ctx context.Context, q querier, embedding *Embedding) error {
	if len(embedding.Vector) == 0 {
		return errors.New("embedding vector cannot be empty")
	}
	if embedding.Dimension == 0 {
		embedding.Dimension = len(embedding.Vector)
	}
	if embedding.Dimension != len(embedding.Vector) {
		return fmt.Errorf("embedding dimension %d does not match vector length %d",
			embedding.Dimension, len(embedding.Vector))
	}

	now := time.Now()
	_, err := q.ExecContext(ctx, `
		INSERT INTO embeddings (document_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model,
			created_at = excluded.created_at
	`, embedding.DocumentID, serializeVector(embedding.Vector), embedding.Dimension,
		embedding.Provider, embedding.Model, toMillis(now))
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("document %s: %w", embedding.DocumentID, ErrNotFound)
		}
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	embedding.CreatedAt = fromMillis(toMillis(now))
	return nil
}

func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return s.upsertEmbeddingWithQuerier(ctx, s.db, embedding)
}

func (s *SQLiteStorage) getEmbeddingWithQuerier(ctx context.Context, q querier, documentID string) (*Embedding, error) {
	var row embeddingRow
	err := q.GetContext(ctx, &row, `
		SELECT document_id, vector, dimension, provider, model, created_at
		FROM embeddings
		WHERE document_id = ?
	`, documentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Embedding{
		DocumentID: row.DocumentID,
		Vector:     deserializeVector(row.Vector),
		Dimension:  row.Dimension,
		Provider:   row.Provider,
		Model:      row.Model,
		CreatedAt:  fromMillis(row.CreatedAt),
	}, nil
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, documentID string) (*Embedding, error) {
	return s.getEmbeddingWithQuerier(ctx, s.db, documentID)
}

// Search operations

func (s *SQLiteStorage) SearchText(ctx context.Context, query string, filter TextFilter) ([]TextResult, error) {
	return searchText(ctx, s.db, query, filter)
}

func (s *SQLiteStorage) ScoreVectors(ctx context.Context, query []float32, documentIDs []string) (map[string]float64, error) {
	return scoreVectors(ctx, s.db, query, documentIDs)
}

func (s *SQLiteStorage) FetchCandidates(ctx context.Context, filter CandidateFilter) ([]types.SearchableDocument, error) {
	return fetchCandidates(ctx, s.db, filter)
}

func (s *SQLiteStorage) SuggestNames(ctx context.Context, knowledgeBaseID, prefix string, limit int) ([]string, error) {
	return suggestNames(ctx, s.db, knowledgeBaseID, prefix, limit)
}

// Status operations

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier, knowledgeBaseID string) (*KnowledgeBaseStatus, error) {
	kb, err := s.getKnowledgeBaseWithQuerier(ctx, q, "id", knowledgeBaseID)
	if err != nil {
		return nil, err
	}

	status := &KnowledgeBaseStatus{
		KnowledgeBase:  kb,
		LastIngestedAt: kb.LastIngestedAt,
	}

	var counts struct {
		Files     int `db:"files"`
		Documents int `db:"documents"`
	}
	err = q.GetContext(ctx, &counts, `
		SELECT COUNT(DISTINCT path) AS files, COUNT(*) AS documents
		FROM documents
		WHERE knowledge_base_id = ?
	`, knowledgeBaseID)
	if err != nil {
		return nil, err
	}
	status.FilesCount = counts.Files
	status.DocumentsCount = counts.Documents

	err = q.GetContext(ctx, &status.EmbeddingsCount, `
		SELECT COUNT(*) FROM embeddings e
		JOIN documents d ON e.document_id = d.id
		WHERE d.knowledge_base_id = ?
	`, knowledgeBaseID)
	if err != nil {
		return nil, err
	}

	var pageCount, pageSize int
	if err := q.GetContext(ctx, &pageCount, "PRAGMA page_count"); err == nil {
		_ = q.GetContext(ctx, &pageSize, "PRAGMA page_size")
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	var ftsTables int
	_ = q.GetContext(ctx, &ftsTables,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='documents_fts'")

	status.Health = HealthStatus{
		DatabaseAccessible:  true,
		EmbeddingsAvailable: status.EmbeddingsCount > 0,
		FTSIndexesBuilt:     ftsTables > 0,
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context, knowledgeBaseID string) (*KnowledgeBaseStatus, error) {
	return s.getStatusWithQuerier(ctx, s.db, knowledgeBaseID)
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sqlx.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) CreateKnowledgeBase(ctx context.Context, kb *KnowledgeBase) error {
	return t.storage.createKnowledgeBaseWithQuerier(ctx, t.tx, kb)
}

func (t *sqliteTx) GetKnowledgeBase(ctx context.Context, id string) (*KnowledgeBase, error) {
	return t.storage.getKnowledgeBaseWithQuerier(ctx, t.tx, "id", id)
}

func (t *sqliteTx) GetKnowledgeBaseByName(ctx context.Context, name string) (*KnowledgeBase, error) {
	return t.storage.getKnowledgeBaseWithQuerier(ctx, t.tx, "name", name)
}

func (t *sqliteTx) ListKnowledgeBases(ctx context.Context) ([]*KnowledgeBase, error) {
	return t.storage.listKnowledgeBasesWithQuerier(ctx, t.tx)
}

func (t *sqliteTx) TouchKnowledgeBase(ctx context.Context, id string, ingestedAt time.Time) error {
	return t.storage.touchKnowledgeBaseWithQuerier(ctx, t.tx, id, ingestedAt)
}

func (t *sqliteTx) UpsertDocument(ctx context.Context, doc *Document) error {
	return t.storage.upsertDocumentWithQuerier(ctx, t.tx, doc)
}

func (t *sqliteTx) GetDocument(ctx context.Context, id string) (*Document, error) {
	return t.storage.getDocumentWithQuerier(ctx, t.tx, id)
}

func (t *sqliteTx) GetDocumentsByPath(ctx context.Context, knowledgeBaseID, path string) ([]*Document, error) {
	return t.storage.getDocumentsByPathWithQuerier(ctx, t.tx, knowledgeBaseID, path)
}

func (t *sqliteTx) DeleteDocumentsByPath(ctx context.Context, knowledgeBaseID, path string) (int, error) {
	return t.storage.deleteDocumentsByPathWithQuerier(ctx, t.tx, knowledgeBaseID, path)
}

func (t *sqliteTx) ListPaths(ctx context.Context, knowledgeBaseID string) (map[string]string, error) {
	return t.storage.listPathsWithQuerier(ctx, t.tx, knowledgeBaseID)
}

func (t *sqliteTx) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return t.storage.upsertEmbeddingWithQuerier(ctx, t.tx, embedding)
}

func (t *sqliteTx) GetEmbedding(ctx context.Context, documentID string) (*Embedding, error) {
	return t.storage.getEmbeddingWithQuerier(ctx, t.tx, documentID)
}

func (t *sqliteTx) SearchText(ctx context.Context, query string, filter TextFilter) ([]TextResult, error) {
	return searchText(ctx, t.tx, query, filter)
}

func (t *sqliteTx) ScoreVectors(ctx context.Context, query []float32, documentIDs []string) (map[string]float64, error) {
	return scoreVectors(ctx, t.tx, query, documentIDs)
}

func (t *sqliteTx) FetchCandidates(ctx context.Context, filter CandidateFilter) ([]types.SearchableDocument, error) {
	return fetchCandidates(ctx, t.tx, filter)
}

func (t *sqliteTx) SuggestNames(ctx context.Context, knowledgeBaseID, prefix string, limit int) ([]string, error) {
	return suggestNames(ctx, t.tx, knowledgeBaseID, prefix, limit)
}

func (t *sqliteTx) GetStatus(ctx context.Context, knowledgeBaseID string) (*KnowledgeBaseStatus, error) {
	return t.storage.getStatusWithQuerier(ctx, t.tx, knowledgeBaseID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}

// Helpers

// ValidateID reports ErrInvalidID unless id is a UUID
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// HashContent returns the hex SHA-256 of data
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(data), nil
}

// toMillis stores times as unix milliseconds; the zero time is stored as 0
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
