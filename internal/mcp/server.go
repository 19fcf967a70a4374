package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/treechunk/internal/chunker"
	"github.com/dshills/treechunk/internal/indexer"
	"github.com/dshills/treechunk/internal/searcher"
	"github.com/dshills/treechunk/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "treechunk"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	chunker  *chunker.Cache
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	logger   *slog.Logger
}

// NewServer creates a new MCP server instance. The server owns store and
// closes it when Serve returns.
func NewServer(store storage.Storage, c *chunker.Cache, logger *slog.Logger) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if c == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithRecovery(),
	)

	s := &Server{
		mcp:      mcpServer,
		storage:  store,
		chunker:  c,
		indexer:  indexer.New(store, c, indexer.WithLogger(logger)),
		searcher: searcher.NewSearcher(store),
		logger:   logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve runs the MCP server on stdio and blocks until ctx is done or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()

	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("mcp server listening on stdio", "name", ServerName, "version", ServerVersion)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(chunkFileTool(), s.handleChunkFile)
	s.mcp.AddTool(indexDirectoryTool(), s.handleIndexDirectory)
	s.mcp.AddTool(searchChunksTool(), s.handleSearchChunks)
	s.mcp.AddTool(getChunkTool(), s.handleGetChunk)
	s.mcp.AddTool(reassembleFileTool(), s.handleReassembleFile)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)

	return nil
}
