package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// knowledgeBaseProperty is shared by every tool that targets one knowledge base
var knowledgeBaseProperty = map[string]interface{}{
	"type":        "string",
	"description": "Knowledge base name or ID",
}

// optionalKnowledgeBaseProperty scopes a search; omitted means every knowledge base
var optionalKnowledgeBaseProperty = map[string]interface{}{
	"type":        "string",
	"description": "Knowledge base name or ID (omit to search all knowledge bases)",
}

// searchKnowledgeBaseTool returns the tool definition for search_knowledge_base
func searchKnowledgeBaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_knowledge_base",
		Description: "Search prompts, templates and documents in a knowledge base with hybrid keyword and semantic ranking",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"knowledge_base": optionalKnowledgeBaseProperty,
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"queries": map[string]interface{}{
					"type":        "array",
					"description": "Run several queries as one batch; results are returned per query in order. Overrides query.",
					"items": map[string]interface{}{
						"type": "string",
					},
					"maxItems": 20,
				},
				"concurrency": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum batch queries searched at once (1-16)",
					"default":     4,
					"minimum":     1,
					"maximum":     16,
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     20,
					"minimum":     1,
					"maximum":     100,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Number of ranked results to skip",
					"default":     0,
					"minimum":     0,
				},
				"search_mode": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy: hybrid (keyword + semantic), lexical (BM25 only), or semantic (intent-filtered scoring only)",
					"enum":        []string{"hybrid", "lexical", "semantic"},
					"default":     "hybrid",
				},
				"lexical_weight": map[string]interface{}{
					"type":        "number",
					"description": "Weight of the keyword score in hybrid mode",
					"minimum":     0.0,
				},
				"semantic_weight": map[string]interface{}{
					"type":        "number",
					"description": "Weight of the semantic score in hybrid mode",
					"minimum":     0.0,
				},
			},
		},
	}
}

// suggestQueriesTool returns the tool definition for suggest_queries
func suggestQueriesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "suggest_queries",
		Description: "Suggest completions and reformulations for a partial query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"knowledge_base": optionalKnowledgeBaseProperty,
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Partial query",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of suggestions (1-50)",
					"default":     10,
					"minimum":     1,
					"maximum":     50,
				},
			},
			Required: []string{"query"},
		},
	}
}

// ingestDirectoryTool returns the tool definition for ingest_directory
func ingestDirectoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_directory",
		Description: "Ingest the text files of a directory into a knowledge base, creating it if needed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the directory to ingest",
				},
				"knowledge_base": map[string]interface{}{
					"type":        "string",
					"description": "Knowledge base name (defaults to the directory name)",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "Description used when the knowledge base is created",
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"description": "Tags added to every ingested document",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"include_hidden": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, ingest dot-files and dot-directories",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// listKnowledgeBasesTool returns the tool definition for list_knowledge_bases
func listKnowledgeBasesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_knowledge_bases",
		Description: "List all knowledge bases",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query ingestion status and statistics for a knowledge base",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"knowledge_base": knowledgeBaseProperty,
			},
			Required: []string{"knowledge_base"},
		},
	}
}
