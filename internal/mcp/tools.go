package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/promptkb/internal/ingest"
	"github.com/dshills/promptkb/internal/searcher"
	"github.com/dshills/promptkb/internal/storage"
	"github.com/dshills/promptkb/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams         = -32602 // Invalid method parameters
	ErrorCodeInternalError         = -32603 // Internal JSON-RPC error
	ErrorCodeKnowledgeBaseNotFound = -32001 // No knowledge base with that name or ID
	ErrorCodeIngestInProgress      = -32002 // Another ingest operation is already running
)

const (
	maxSearchLimit      = 100
	maxSuggestLimit     = 50
	maxBatchQueries     = 20
	maxBatchConcurrency = 16
	maxErrorsShown      = 5
)

// handleSearchKnowledgeBase handles the search_knowledge_base tool invocation.
// A queries array runs a batch search; without knowledge_base every knowledge base is searched.
func (s *Server) handleSearchKnowledgeBase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	queries := getStringSliceDefault(args, "queries", nil)
	query, hasQuery := args["query"].(string)
	if !hasQuery && len(queries) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "query or queries parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or not a string",
		})
	}
	if len(queries) > maxBatchQueries {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("at most %d queries per batch", maxBatchQueries), map[string]interface{}{
			"param": "queries",
			"value": len(queries),
		})
	}

	limit := getIntDefault(args, "limit", s.app.Config.Search.DefaultLimit)
	if limit < 1 || limit > maxSearchLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", maxSearchLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	offset := getIntDefault(args, "offset", 0)
	if offset < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "offset must not be negative", map[string]interface{}{
			"param": "offset",
			"value": offset,
		})
	}

	concurrency := getIntDefault(args, "concurrency", searcher.DefaultBatchConcurrency)
	if concurrency < 1 || concurrency > maxBatchConcurrency {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("concurrency must be between 1 and %d", maxBatchConcurrency), map[string]interface{}{
			"param": "concurrency",
			"value": concurrency,
		})
	}

	mode, err := searcher.ParseMode(getStringDefault(args, "search_mode", string(searcher.ModeHybrid)))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid search_mode", map[string]interface{}{
			"param":   "search_mode",
			"value":   args["search_mode"],
			"allowed": []string{string(searcher.ModeHybrid), string(searcher.ModeLexical), string(searcher.ModeSemantic)},
		})
	}

	weights := s.app.Config.Weights()
	weights.Lexical = getFloatDefault(args, "lexical_weight", weights.Lexical)
	weights.Semantic = getFloatDefault(args, "semantic_weight", weights.Semantic)

	kb, err := s.optionalKnowledgeBase(ctx, getStringDefault(args, "knowledge_base", ""))
	if err != nil {
		return nil, err
	}

	opts := searcher.SearchOptions{
		KnowledgeBaseID: kb.ID,
		Limit:           limit,
		Offset:          offset,
		Mode:            mode,
		Weights:         &weights,
	}
	response := map[string]interface{}{
		"knowledge_base": kb.Name,
		"search_mode":    string(mode),
		"offset":         offset,
		"limit":          limit,
	}

	if len(queries) > 0 {
		batches, err := s.app.Searcher.BatchSearch(ctx, queries, opts, concurrency)
		if err != nil {
			return nil, searchError(err)
		}
		items := make([]map[string]interface{}, len(batches))
		for i, results := range batches {
			items[i] = map[string]interface{}{
				"query":   queries[i],
				"count":   len(results),
				"results": formatResults(results),
			}
		}
		response["count"] = len(items)
		response["batches"] = items
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	results, err := s.app.Searcher.Search(ctx, query, opts)
	if err != nil {
		return nil, searchError(err)
	}
	response["query"] = query
	response["count"] = len(results)
	response["results"] = formatResults(results)
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// searchError maps a searcher error onto an MCP error code
func searchError(err error) error {
	if errors.Is(err, types.ErrInvalidWeights) || errors.Is(err, types.ErrInvalidMode) || errors.Is(err, types.ErrInvalidKnowledgeBaseID) {
		return newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
	}
	return newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
		"error": err.Error(),
	})
}

func formatResults(results []types.FusedResult) []map[string]interface{} {
	items := make([]map[string]interface{}, len(results))
	for i := range results {
		items[i] = formatResult(&results[i])
	}
	return items
}

// handleSuggestQueries handles the suggest_queries tool invocation
func (s *Server) handleSuggestQueries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query := getStringDefault(args, "query", "")

	limit := getIntDefault(args, "limit", searcher.DefaultSuggestLimit)
	if limit < 1 || limit > maxSuggestLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", maxSuggestLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	kb, err := s.optionalKnowledgeBase(ctx, getStringDefault(args, "knowledge_base", ""))
	if err != nil {
		return nil, err
	}

	suggestions, err := s.app.Searcher.Suggest(ctx, query, kb.ID, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "suggest failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"knowledge_base": kb.Name,
		"query":          query,
		"suggestions":    suggestions,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIngestDirectory handles the ingest_directory tool invocation
func (s *Server) handleIngestDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}

	// Validate path exists and is accessible
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	name := strings.TrimSpace(getStringDefault(args, "knowledge_base", ""))
	if name == "" {
		name = filepath.Base(filepath.Clean(path))
	}

	config := s.app.Config.IngestConfig()
	config.Description = getStringDefault(args, "description", "")
	config.Tags = getStringSliceDefault(args, "tags", nil)
	config.IncludeHidden = getBoolDefault(args, "include_hidden", config.IncludeHidden)

	stats, err := s.app.Ingester.IngestDirectory(ctx, name, path, config)
	if err != nil {
		if errors.Is(err, ingest.ErrIngestInProgress) {
			return nil, newMCPError(ErrorCodeIngestInProgress, "an ingest is already running", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "ingest failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Format response
	response := map[string]interface{}{
		"ingested":           true,
		"knowledge_base":     name,
		"knowledge_base_id":  stats.KnowledgeBaseID,
		"files_indexed":      stats.FilesIndexed,
		"files_skipped":      stats.FilesSkipped,
		"files_failed":       stats.FilesFailed,
		"files_removed":      stats.FilesRemoved,
		"documents_created":  stats.DocumentsCreated,
		"embeddings_created": stats.EmbeddingsCreated,
		"embeddings_failed":  stats.EmbeddingsFailed,
		"duration_ms":        stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > maxErrorsShown {
			response["errors"] = stats.ErrorMessages[:maxErrorsShown]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListKnowledgeBases handles the list_knowledge_bases tool invocation
func (s *Server) handleListKnowledgeBases(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kbs, err := s.app.Storage.ListKnowledgeBases(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list knowledge bases", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, len(kbs))
	for i, kb := range kbs {
		items[i] = map[string]interface{}{
			"id":               kb.ID,
			"name":             kb.Name,
			"description":      kb.Description,
			"root_path":        kb.RootPath,
			"last_ingested_at": formatTime(kb.LastIngestedAt),
			"created_at":       formatTime(kb.CreatedAt),
		}
	}

	response := map[string]interface{}{
		"count":           len(items),
		"knowledge_bases": items,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	kbRef, err := requireString(args, "knowledge_base")
	if err != nil {
		return nil, err
	}

	kb, err := s.app.ResolveKnowledgeBase(ctx, kbRef)
	if errors.Is(err, storage.ErrNotFound) {
		// Not ingested yet
		response := map[string]interface{}{
			"ingested":       false,
			"knowledge_base": kbRef,
			"message":        "Knowledge base not found. Use the ingest_directory tool to create it.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get knowledge base", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status, err := s.app.Storage.GetStatus(ctx, kb.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"ingested": !kb.LastIngestedAt.IsZero(),
		"knowledge_base": map[string]interface{}{
			"id":               kb.ID,
			"name":             kb.Name,
			"root_path":        kb.RootPath,
			"last_ingested_at": formatTime(kb.LastIngestedAt),
		},
		"statistics": map[string]interface{}{
			"files_count":      status.FilesCount,
			"documents_count":  status.DocumentsCount,
			"embeddings_count": status.EmbeddingsCount,
			"index_size_mb":    fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
			"fts_indexes_built":    status.Health.FTSIndexesBuilt,
		},
		"providers": map[string]interface{}{
			"llm":               s.app.Provider.Name(),
			"embedder":          s.app.Embedder.Provider(),
			"semantic_strategy": s.app.Config.SemanticStrategy(),
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// resolveKnowledgeBase maps a name or ID to a knowledge base, converting lookup failures to MCP errors
func (s *Server) resolveKnowledgeBase(ctx context.Context, ref string) (*storage.KnowledgeBase, error) {
	kb, err := s.app.ResolveKnowledgeBase(ctx, ref)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeKnowledgeBaseNotFound, "knowledge base not found", map[string]interface{}{
			"knowledge_base": ref,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get knowledge base", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return kb, nil
}

// optionalKnowledgeBase resolves ref, or returns an empty knowledge base (all of them) when ref is blank
func (s *Server) optionalKnowledgeBase(ctx context.Context, ref string) (*storage.KnowledgeBase, error) {
	if strings.TrimSpace(ref) == "" {
		return &storage.KnowledgeBase{}, nil
	}
	return s.resolveKnowledgeBase(ctx, ref)
}

// formatResult converts a fused result to its JSON shape
func formatResult(r *types.FusedResult) map[string]interface{} {
	highlights := make([]map[string]interface{}, len(r.Highlights))
	for i, h := range r.Highlights {
		highlights[i] = map[string]interface{}{
			"start": h.Start,
			"end":   h.End,
			"text":  h.Text,
		}
	}

	sources := make([]string, 0, len(r.Sources))
	for _, src := range r.Sources.List() {
		sources = append(sources, string(src))
	}

	item := map[string]interface{}{
		"rank":           r.Rank,
		"document_id":    r.DocumentID,
		"hybrid_score":   r.HybridScore,
		"lexical_score":  r.LexicalScore,
		"semantic_score": r.SemanticScore,
		"sources":        sources,
		"snippet":        r.Snippet,
		"highlights":     highlights,
	}
	if r.Document != nil {
		item["name"] = r.Document.Name
		item["file_type"] = r.Document.FileType
		item["tags"] = r.Document.Tags
		item["modified_at"] = formatTime(r.Document.ModifiedAt)
	}
	return item
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path is an absolute, readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// requireString extracts a non-empty string parameter
func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || strings.TrimSpace(val) == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return val, nil
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	switch val := args[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSliceDefault extracts a string array parameter, skipping non-string items
func getStringSliceDefault(args map[string]interface{}, key string, defaultValue []string) []string {
	switch val := args[key].(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
