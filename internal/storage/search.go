package storage

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/jmoiron/sqlx"

	"github.com/dshills/promptkb/pkg/types"
)

const (
	// MaxCandidates caps the documents returned by FetchCandidates
	MaxCandidates = 100

	// DefaultTextLimit is used when a TextFilter has no limit
	DefaultTextLimit = 20

	// bm25Midpoint is the |bm25| that normalises to 0.5
	bm25Midpoint = 5.0
)

// searchText performs BM25 full-text search over document names and content
func searchText(ctx context.Context, q querier, query string, filter TextFilter) ([]TextResult, error) {
	match := sanitizeFTSQuery(query)
	if match == "" {
		return []TextResult{}, nil
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultTextLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	stmt := `
		SELECT
			d.id, d.knowledge_base_id, d.path, d.chunk_index, d.name, d.content, d.content_hash,
			d.file_hash, d.file_type, d.tags, d.size_bytes, d.modified_at, d.created_at, d.updated_at,
			bm25(documents_fts) AS bm25_score
		FROM documents_fts
		INNER JOIN documents d ON d.rowid = documents_fts.rowid
		WHERE documents_fts MATCH ?`
	args := []interface{}{match}
	stmt, args = withKnowledgeBase(stmt, args, "d.knowledge_base_id", filter.KnowledgeBaseID)
	stmt += " ORDER BY bm25_score, d.id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []struct {
		documentRow
		BM25 float64 `db:"bm25_score"`
	}
	if err := q.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}

	results := make([]TextResult, len(rows))
	for i := range rows {
		results[i] = TextResult{
			Document:  rows[i].toModel(),
			BM25Score: rows[i].BM25,
			Score:     NormalizeBM25(rows[i].BM25),
		}
	}
	return results, nil
}

// NormalizeBM25 maps a raw bm25() value (negative, lower is better) onto [0,1).
// The transform is fixed, so scores are comparable across queries and pages.
func NormalizeBM25(raw float64) float64 {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0
	}
	a := math.Abs(raw)
	return a / (a + bm25Midpoint)
}

// fetchCandidates returns the most recently modified documents matching the filter
func fetchCandidates(ctx context.Context, q querier, filter CandidateFilter) ([]types.SearchableDocument, error) {
	limit := filter.Limit
	if limit <= 0 || limit > MaxCandidates {
		limit = MaxCandidates
	}

	query := `SELECT ` + documentColumns + ` FROM documents WHERE 1 = 1`
	var args []interface{}
	query, args = withKnowledgeBase(query, args, "knowledge_base_id", filter.KnowledgeBaseID)

	if !filter.Since.IsZero() {
		query += " AND modified_at >= ?"
		args = append(args, toMillis(filter.Since))
	}

	if len(filter.Extensions) > 0 {
		query += " AND file_type IN (?)"
		args = append(args, filter.Extensions)
	}

	query += " ORDER BY modified_at DESC, id LIMIT ?"
	args = append(args, limit)

	expanded, expandedArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build candidate query: %w", err)
	}

	var rows []documentRow
	if err := q.SelectContext(ctx, &rows, q.Rebind(expanded), expandedArgs...); err != nil {
		return nil, fmt.Errorf("failed to fetch candidates: %w", err)
	}

	docs := make([]types.SearchableDocument, len(rows))
	for i := range rows {
		docs[i] = rows[i].toModel().Searchable()
	}
	return docs, nil
}

// suggestNames returns distinct document names whose words start with the terms of prefix
func suggestNames(ctx context.Context, q querier, knowledgeBaseID, prefix string, limit int) ([]string, error) {
	match := prefixQuery(prefix, "name")
	if match == "" || limit <= 0 {
		return []string{}, nil
	}

	// Chunks of one file share a name; over-fetch before deduplicating
	query := `
		SELECT d.name
		FROM documents_fts
		INNER JOIN documents d ON d.rowid = documents_fts.rowid
		WHERE documents_fts MATCH ?`
	args := []interface{}{match}
	query, args = withKnowledgeBase(query, args, "d.knowledge_base_id", knowledgeBaseID)
	query += " ORDER BY bm25(documents_fts), d.name LIMIT ?"
	args = append(args, limit*5)

	var names []string
	if err := q.SelectContext(ctx, &names, query, args...); err != nil {
		return nil, fmt.Errorf("failed to suggest names: %w", err)
	}

	seen := make(map[string]bool, len(names))
	suggestions := make([]string, 0, limit)
	for _, name := range names {
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		suggestions = append(suggestions, name)
		if len(suggestions) == limit {
			break
		}
	}
	return suggestions, nil
}

// withKnowledgeBase narrows query to one knowledge base. An empty ID searches all of them.
func withKnowledgeBase(query string, args []interface{}, column, knowledgeBaseID string) (string, []interface{}) {
	if knowledgeBaseID == "" {
		return query, args
	}
	return query + " AND " + column + " = ?", append(args, knowledgeBaseID)
}

// sanitizeFTSQuery turns free text into an FTS5 expression matching any of its terms.
// Every term is quoted so FTS5 operators and punctuation are treated literally.
func sanitizeFTSQuery(query string) string {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return ""
	}

	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = quoteTerm(term)
	}
	return strings.Join(quoted, " OR ")
}

// prefixQuery builds an FTS5 expression requiring every term as a prefix, optionally
// restricted to one column
func prefixQuery(query, column string) string {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return ""
	}

	parts := make([]string, len(terms))
	for i, term := range terms {
		parts[i] = quoteTerm(term) + "*"
		if column != "" {
			parts[i] = column + " : " + parts[i]
		}
	}
	return strings.Join(parts, " AND ")
}

// searchTerms splits query on whitespace and drops terms the tokenizer would discard
func searchTerms(query string) []string {
	fields := strings.Fields(query)
	terms := fields[:0]
	for _, f := range fields {
		if strings.IndexFunc(f, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0 {
			terms = append(terms, f)
		}
	}
	return terms
}

func quoteTerm(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}
