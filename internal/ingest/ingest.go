package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/promptkb/internal/chunker"
	"github.com/dshills/promptkb/internal/embedder"
	"github.com/dshills/promptkb/internal/storage"
	"github.com/dshills/promptkb/pkg/types"
)

const (
	// DefaultBatchSize is the number of files committed per transaction
	DefaultBatchSize = 20

	// DefaultMaxFileBytes skips files larger than 5 MiB
	DefaultMaxFileBytes = 5 << 20
)

var (
	// ErrIngestInProgress is returned when an ingest is already running on this Ingester
	ErrIngestInProgress = errors.New("ingest already in progress")
	// ErrNotDirectory is returned when the ingest root is not a directory
	ErrNotDirectory = errors.New("not a directory")
	// ErrStorageRequired is returned by New without a storage
	ErrStorageRequired = errors.New("storage is required")

	errBinaryFile = errors.New("binary content")
	errTooLarge   = errors.New("file too large")
)

// DefaultExtensions are the text formats ingested when Config.Extensions is empty
var DefaultExtensions = []string{
	"txt", "md", "markdown", "mdx", "rst", "prompt", "tmpl",
	"csv", "tsv", "json", "jsonl", "yaml", "yml", "toml", "xml",
	"html", "htm", "log",
}

// Ingester coordinates the ingest pipeline: read -> chunk -> store -> embed
type Ingester struct {
	storage  storage.Storage
	chunker  *chunker.Chunker
	embedder embedder.Embedder // nil disables embeddings
	pool     *ants.Pool
	workers  int
	lock     *IngestLock
	logger   *slog.Logger
}

// Option configures an Ingester
type Option func(*Ingester) error

// WithEmbedder enables embedding generation for new documents
func WithEmbedder(e embedder.Embedder) Option {
	return func(i *Ingester) error {
		i.embedder = e
		return nil
	}
}

// WithChunker replaces the default chunker
func WithChunker(c *chunker.Chunker) Option {
	return func(i *Ingester) error {
		if c != nil {
			i.chunker = c
		}
		return nil
	}
}

// WithPoolSize sets the embedding worker pool size. Minimum is 1.
func WithPoolSize(size int) Option {
	return func(i *Ingester) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if i.pool != nil {
			i.pool.Release()
		}
		i.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingester) error {
		if logger != nil {
			i.logger = logger
		}
		return nil
	}
}

// Config contains configuration for one ingest run
type Config struct {
	Workers       int      // Concurrent file batches (default: runtime.NumCPU())
	BatchSize     int      // Files committed per transaction (default: 20)
	MaxFileBytes  int64    // Larger files are skipped (default: 5 MiB)
	Extensions    []string // Lowercase, without the dot (default: DefaultExtensions)
	IncludeHidden bool     // Descend into dot-directories and read dot-files
	Tags          []string // Added to every document
	Description   string   // Used when the knowledge base is created
}

// Statistics contains statistics about an ingest run
type Statistics struct {
	KnowledgeBaseID   string
	FilesIndexed      int
	FilesSkipped      int
	FilesFailed       int
	FilesRemoved      int
	DocumentsCreated  int
	EmbeddingsCreated int
	EmbeddingsFailed  int
	Duration          time.Duration
	ErrorMessages     []string
}

// pendingEmbedding is a stored document awaiting its vector
type pendingEmbedding struct {
	documentID string
	text       string
}

// New creates a new Ingester instance
func New(store storage.Storage, opts ...Option) (*Ingester, error) {
	if store == nil {
		return nil, ErrStorageRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	i := &Ingester{
		storage: store,
		chunker: chunker.New(),
		lock:    newIngestLock(),
		pool:    pool,
		workers: runtime.NumCPU(),
		logger:  slog.Default().With("component", "ingest"),
	}

	for _, opt := range opts {
		if err := opt(i); err != nil {
			i.Release()
			return nil, err
		}
	}

	return i, nil
}

// Release frees the worker pool
func (i *Ingester) Release() {
	if i.pool != nil {
		i.pool.Release()
	}
}

// IngestDirectory ingests every supported text file under rootPath into the knowledge base
// named kbName, creating it if needed. Unchanged files are skipped, and documents of files
// that disappeared are removed.
func (i *Ingester) IngestDirectory(ctx context.Context, kbName, rootPath string, config *Config) (*Statistics, error) {
	if !i.lock.TryAcquire() {
		return nil, ErrIngestInProgress
	}
	defer i.lock.Release()

	config = withDefaults(config)
	startTime := time.Now()

	root, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}

	kb, err := i.getOrCreateKnowledgeBase(ctx, kbName, root, config.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create knowledge base: %w", err)
	}

	stats := &Statistics{
		KnowledgeBaseID: kb.ID,
		ErrorMessages:   make([]string, 0),
	}

	files, err := discoverFiles(root, config)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	known, err := i.storage.ListPaths(ctx, kb.ID)
	if err != nil {
		return nil, err
	}

	pending, err := i.indexFiles(ctx, kb, root, files, known, config, stats)
	if err != nil {
		return nil, fmt.Errorf("failed to index files: %w", err)
	}

	if err := i.removeMissing(ctx, kb, root, files, known, stats); err != nil {
		return nil, fmt.Errorf("failed to remove deleted files: %w", err)
	}

	if err := i.embedDocuments(ctx, pending, stats); err != nil {
		return nil, err
	}

	if err := i.storage.TouchKnowledgeBase(ctx, kb.ID, time.Now()); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(startTime)
	i.logger.Info("ingest complete",
		"knowledge_base", kb.Name,
		"indexed", stats.FilesIndexed,
		"skipped", stats.FilesSkipped,
		"failed", stats.FilesFailed,
		"removed", stats.FilesRemoved,
		"documents", stats.DocumentsCreated,
		"embeddings", stats.EmbeddingsCreated,
		"duration", stats.Duration)
	return stats, nil
}

func withDefaults(config *Config) *Config {
	c := Config{}
	if config != nil {
		c = *config
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = DefaultMaxFileBytes
	}
	if len(c.Extensions) == 0 {
		c.Extensions = DefaultExtensions
	}
	return &c
}

// getOrCreateKnowledgeBase retrieves an existing knowledge base or creates a new one
func (i *Ingester) getOrCreateKnowledgeBase(ctx context.Context, name, root, description string) (*storage.KnowledgeBase, error) {
	kb, err := i.storage.GetKnowledgeBaseByName(ctx, name)
	if err == nil {
		return kb, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	kb = &storage.KnowledgeBase{
		Name:        name,
		Description: description,
		RootPath:    root,
	}
	if err := i.storage.CreateKnowledgeBase(ctx, kb); err != nil {
		return nil, err
	}
	return kb, nil
}

// discoverFiles finds all files with a supported extension
func discoverFiles(root string, config *Config) ([]string, error) {
	allowed := make(map[string]bool, len(config.Extensions))
	for _, ext := range config.Extensions {
		allowed[types.NormalizeFileType(ext)] = true
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		hidden := strings.HasPrefix(d.Name(), ".") && path != root
		if d.IsDir() {
			if hidden && !config.IncludeHidden {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden && !config.IncludeHidden {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if allowed[types.NormalizeFileType(d.Name())] {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// indexFiles indexes files concurrently in transaction-sized batches and returns the
// documents that need embeddings
func (i *Ingester) indexFiles(ctx context.Context, kb *storage.KnowledgeBase, root string, files []string,
	known map[string]string, config *Config, stats *Statistics) ([]pendingEmbedding, error) {

	var (
		indexed   int32
		skipped   int32
		failed    int32
		documents int32
		mu        sync.Mutex // Protects stats.ErrorMessages and pending
		pending   []pendingEmbedding
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)

	for start := 0; start < len(files); start += config.BatchSize {
		end := start + config.BatchSize
		if end > len(files) {
			end = len(files)
		}
		batch := files[start:end]

		g.Go(func() error {
			tx, err := i.storage.BeginTx(gctx)
			if err != nil {
				return fmt.Errorf("failed to begin transaction: %w", err)
			}
			defer func() { _ = tx.Rollback() }()

			var batchPending []pendingEmbedding
			var batchErrors []string
			for _, path := range batch {
				if err := gctx.Err(); err != nil {
					return err
				}

				docs, skip, err := i.indexFile(gctx, tx, kb, root, path, known, config)
				switch {
				case err != nil:
					atomic.AddInt32(&failed, 1)
					batchErrors = append(batchErrors, fmt.Sprintf("%s: %v", path, err))
				case skip:
					atomic.AddInt32(&skipped, 1)
				default:
					atomic.AddInt32(&indexed, 1)
					atomic.AddInt32(&documents, int32(len(docs)))
					for _, doc := range docs {
						batchPending = append(batchPending, pendingEmbedding{documentID: doc.ID, text: doc.Content})
					}
				}
			}

			if err := tx.Commit(); err != nil {
				return fmt.Errorf("failed to commit transaction: %w", err)
			}

			mu.Lock()
			pending = append(pending, batchPending...)
			stats.ErrorMessages = append(stats.ErrorMessages, batchErrors...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.FilesIndexed = int(indexed)
	stats.FilesSkipped = int(skipped)
	stats.FilesFailed = int(failed)
	stats.DocumentsCreated = int(documents)
	return pending, nil
}

// indexFile replaces the documents of one file. skip is true when the file is unchanged.
func (i *Ingester) indexFile(ctx context.Context, tx storage.Tx, kb *storage.KnowledgeBase, root, path string,
	known map[string]string, config *Config) (docs []*storage.Document, skip bool, err error) {

	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return nil, false, err
	}
	relPath = filepath.ToSlash(relPath)

	content, info, err := readTextFile(path, config.MaxFileBytes)
	if err != nil {
		return nil, false, err
	}

	fileHash := storage.HashContent(content)
	if known[relPath] == fileHash {
		return nil, true, nil
	}

	if _, err := tx.DeleteDocumentsByPath(ctx, kb.ID, relPath); err != nil {
		return nil, false, fmt.Errorf("failed to delete old documents: %w", err)
	}

	fileType := types.NormalizeFileType(path)
	chunks := i.chunker.ChunkTextWithStrategy(string(content), chunker.StrategyFor(fileType))
	tags := fileTags(relPath, config.Tags)
	baseName := filepath.Base(path)

	docs = make([]*storage.Document, 0, len(chunks))
	for _, chunk := range chunks {
		doc := &storage.Document{
			KnowledgeBaseID: kb.ID,
			Path:            relPath,
			ChunkIndex:      chunk.Index,
			Name:            chunk.DisplayName(baseName),
			Content:         chunk.Content,
			ContentHash:     fmt.Sprintf("%x", chunk.ContentHash),
			FileHash:        fileHash,
			FileType:        fileType,
			Tags:            tags,
			SizeBytes:       info.Size(),
			ModifiedAt:      info.ModTime(),
		}
		if err := tx.UpsertDocument(ctx, doc); err != nil {
			return nil, false, fmt.Errorf("failed to store document: %w", err)
		}
		docs = append(docs, doc)
	}

	return docs, false, nil
}

// removeMissing deletes the documents of previously ingested files that no longer exist
func (i *Ingester) removeMissing(ctx context.Context, kb *storage.KnowledgeBase, root string, files []string,
	known map[string]string, stats *Statistics) error {

	present := make(map[string]bool, len(files))
	for _, path := range files {
		if rel, err := filepath.Rel(root, path); err == nil {
			present[filepath.ToSlash(rel)] = true
		}
	}

	for path := range known {
		if present[path] {
			continue
		}
		if _, err := i.storage.DeleteDocumentsByPath(ctx, kb.ID, path); err != nil {
			return err
		}
		stats.FilesRemoved++
	}
	return nil
}

// embedDocuments generates and stores embeddings on the worker pool. Failures are
// counted and logged; only cancellation aborts the run.
func (i *Ingester) embedDocuments(ctx context.Context, pending []pendingEmbedding, stats *Statistics) error {
	if i.embedder == nil || len(pending) == 0 {
		return nil
	}

	var (
		wg      sync.WaitGroup
		created int32
		failed  int32
	)

	for start := 0; start < len(pending); start += embedder.DefaultBatchSize {
		end := start + embedder.DefaultBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		wg.Add(1)
		err := i.pool.Submit(func() {
			defer wg.Done()
			n, err := i.embedBatch(ctx, batch)
			atomic.AddInt32(&created, int32(n))
			if err != nil {
				atomic.AddInt32(&failed, int32(len(batch)-n))
				i.logger.Warn("embedding batch failed", "size", len(batch), "error", err)
			}
		})
		if err != nil {
			wg.Done()
			atomic.AddInt32(&failed, int32(len(batch)))
			i.logger.Warn("failed to submit embedding batch", "error", err)
		}
	}
	wg.Wait()

	stats.EmbeddingsCreated = int(created)
	stats.EmbeddingsFailed = int(failed)
	return ctx.Err()
}

// embedBatch embeds one batch and returns how many vectors were stored
func (i *Ingester) embedBatch(ctx context.Context, batch []pendingEmbedding) (int, error) {
	texts := make([]string, len(batch))
	for j, p := range batch {
		texts[j] = p.text
	}

	resp, err := i.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
	if err != nil {
		return 0, err
	}
	if len(resp.Embeddings) != len(batch) {
		return 0, fmt.Errorf("expected %d embeddings, got %d", len(batch), len(resp.Embeddings))
	}

	stored := 0
	for j, emb := range resp.Embeddings {
		err := i.storage.UpsertEmbedding(ctx, &storage.Embedding{
			DocumentID: batch[j].documentID,
			Vector:     emb.Vector,
			Dimension:  emb.Dimension,
			Provider:   resp.Provider,
			Model:      resp.Model,
		})
		if err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}

// readTextFile reads a file that must be valid UTF-8 text no larger than maxBytes
func readTextFile(path string, maxBytes int64) ([]byte, os.FileInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, nil, err
	}
	if info.Size() > maxBytes {
		return nil, nil, fmt.Errorf("%w: %d bytes", errTooLarge, info.Size())
	}

	content, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, nil, err
	}
	if bytes.IndexByte(content, 0) >= 0 || !utf8.Valid(content) {
		return nil, nil, errBinaryFile
	}
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))

	return content, info, nil
}

// fileTags derives tags from the directories of relPath plus the configured extras
func fileTags(relPath string, extra []string) []string {
	seen := make(map[string]bool)
	var tags []string
	add := func(tag string) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || tag == "." || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	dir := filepath.ToSlash(filepath.Dir(relPath))
	if dir != "." {
		for _, part := range strings.Split(dir, "/") {
			add(part)
		}
	}
	for _, tag := range extra {
		add(tag)
	}
	return tags
}
