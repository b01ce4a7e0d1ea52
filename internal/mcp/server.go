package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/promptkb/internal/app"
)

const (
	// ServerName is the MCP server name
	ServerName = "promptkb"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	app    *app.App
	logger *slog.Logger
}

// NewServer creates a new MCP server over an initialized App
func NewServer(a *app.App) (*Server, error) {
	if a == nil {
		return nil, fmt.Errorf("app is required")
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:    mcpServer,
		app:    a,
		logger: slog.Default().With("component", "mcp"),
	}

	// Register tools
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("serving MCP on stdio", "version", ServerVersion)
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(searchKnowledgeBaseTool(), s.handleSearchKnowledgeBase)
	s.mcp.AddTool(suggestQueriesTool(), s.handleSuggestQueries)
	s.mcp.AddTool(ingestDirectoryTool(), s.handleIngestDirectory)
	s.mcp.AddTool(listKnowledgeBasesTool(), s.handleListKnowledgeBases)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	return nil
}
