package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/recallkit/recallkit/internal/searcher"
	"github.com/recallkit/recallkit/internal/store"
)

const (
	// ServerName is the MCP server name
	ServerName = "recallkit"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	store    store.Storage
	searcher *searcher.Searcher
	log      zerolog.Logger
}

// NewServer creates an MCP server over an already opened store and searcher.
// The caller owns the store's lifecycle.
func NewServer(st store.Storage, srch *searcher.Searcher, log zerolog.Logger) *Server {
	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		store:    st,
		searcher: srch,
		log:      log,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(storeMemoryTool(), s.handleStoreMemory)
	s.mcp.AddTool(getMemoryTool(), s.handleGetMemory)
	s.mcp.AddTool(updateMemoryTool(), s.handleUpdateMemory)
	s.mcp.AddTool(deleteMemoryTool(), s.handleDeleteMemory)
	s.mcp.AddTool(searchMemoriesTool(), s.handleSearchMemories)
	s.mcp.AddTool(autocompleteTool(), s.handleAutocomplete)
	s.mcp.AddTool(searchByDateRangeTool(), s.handleSearchByDateRange)
	s.mcp.AddTool(rebuildIndexTool(), s.handleRebuildIndex)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
