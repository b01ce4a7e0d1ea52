// Package mcp implements the Model Context Protocol (MCP) server for promptkb.
//
// The MCP server exposes five tools to AI assistants:
//   - search_knowledge_base: Hybrid keyword + semantic search
//   - suggest_queries: Completions and reformulations for a partial query
//   - ingest_directory: Ingest a directory of text files into a knowledge base
//   - list_knowledge_bases: List knowledge bases
//   - get_status: Ingestion status and statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport. Stdout carries protocol
// messages only, so all logging goes to stderr.
//
//	promptkb serve
//
// # Tool: search_knowledge_base
//
//	Request:
//	{
//	  "name": "search_knowledge_base",
//	  "arguments": {
//	    "knowledge_base": "prompts",
//	    "query": "few-shot examples for classification",
//	    "limit": 20,
//	    "search_mode": "hybrid"
//	  }
//	}
//
//	Response:
//	{
//	  "knowledge_base": "prompts",
//	  "count": 1,
//	  "results": [
//	    {
//	      "rank": 1,
//	      "name": "few-shot.md › Few-shot prompting",
//	      "hybrid_score": 0.71,
//	      "lexical_score": 0.83,
//	      "semantic_score": 0.53,
//	      "sources": ["lexical", "semantic"],
//	      "snippet": "…give the model worked examples before…",
//	      "highlights": [{"start": 32, "end": 40, "text": "examples"}]
//	    }
//	  ]
//	}
//
// An empty query returns an empty result list. The knowledge_base argument
// accepts a name or an ID; when omitted every knowledge base is searched.
//
// Passing "queries" instead of "query" runs a batch. Up to 20 queries are
// searched with the given "concurrency" (1-16, default 4) and the response
// carries one entry per query, in request order:
//
//	{
//	  "count": 2,
//	  "batches": [
//	    {"query": "few-shot", "count": 1, "results": [...]},
//	    {"query": "zebra", "count": 0, "results": []}
//	  ]
//	}
//
// # Error Codes
//
//	-32602  Invalid params (missing argument, bad limit, unknown mode, negative weight)
//	-32603  Internal error
//	-32001  Knowledge base not found
//	-32002  Ingest already in progress
package mcp
