// Package storage provides SQLite-based persistence for knowledge bases.
//
// The storage layer manages:
//   - Knowledge bases (UUID-identified, uniquely named)
//   - Documents, one row per chunk of an ingested file
//   - Document embeddings
//   - The FTS5 index over document names and content
//
// # Database Schema
//
// Tables:
//   - knowledge_bases: name, description, ingest root and time
//   - documents: path, chunk index, display name, text, hashes, file type, tags, mtime
//   - embeddings: little-endian float32 vectors keyed by document
//   - documents_fts: FTS5 index kept in sync by triggers
//
// Times are stored as unix milliseconds. Schema versions are ordered with semver.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.promptkb/promptkb.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	kb := &storage.KnowledgeBase{Name: "prompts"}
//	if err := db.CreateKnowledgeBase(ctx, kb); err != nil {
//	    return err
//	}
//
//	hits, err := db.SearchText(ctx, "few-shot", storage.TextFilter{
//	    KnowledgeBaseID: kb.ID,
//	    Limit:           20,
//	})
//
// # Transactions
//
// Replacing the documents of a file is done in one transaction:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = tx.Rollback() }()
//
//	if _, err := tx.DeleteDocumentsByPath(ctx, kb.ID, "guides/cot.md"); err != nil {
//	    return err
//	}
//	if err := tx.UpsertDocument(ctx, doc); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// # Scores
//
// SearchText normalises bm25() with |x|/(|x|+5), a fixed monotone transform, so
// lexical scores from different queries and pages can be fused directly.
//
// # Build Modes
//
// The default build uses modernc.org/sqlite (pure Go). Building with the
// sqlite_vec tag switches to github.com/mattn/go-sqlite3 and scores vectors in SQL.
package storage
