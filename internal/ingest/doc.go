// Package ingest loads a directory of text files into a knowledge base.
//
// The ingester orchestrates reading, chunking, storage and embedding, managing
// concurrency and per-file error handling.
//
// # Basic Usage
//
//	ing, err := ingest.New(store, ingest.WithEmbedder(emb))
//	if err != nil {
//	    return err
//	}
//	defer ing.Release()
//
//	stats, err := ing.IngestDirectory(ctx, "prompts", "/path/to/notes", nil)
//	fmt.Printf("Indexed %d files in %v\n", stats.FilesIndexed, stats.Duration)
//
// # Pipeline
//
//  1. Discovery: walk the root, keep supported text extensions, skip dot-directories
//  2. Incremental decision: compare SHA-256 file hashes, skip unchanged files
//  3. Read and chunk: reject binary or oversized files, split text into chunks
//  4. Store: replace the file's documents, one transaction per batch of files
//  5. Remove: delete documents of files that no longer exist
//  6. Embed: generate vectors for new documents on a worker pool
//
// # Concurrency
//
// File batches run on an errgroup bounded by Config.Workers. Embedding batches
// run on an ants pool after every transaction has committed, so a slow embedding
// provider never holds the database. Only one ingest may run per Ingester;
// a concurrent call returns ErrIngestInProgress.
//
// # Error Handling
//
// A file that cannot be read, is binary, or is too large is counted in
// Statistics.FilesFailed with a message, and the run continues. Embedding
// failures are logged and counted; search falls back to keyword scoring for
// documents without vectors.
package ingest
