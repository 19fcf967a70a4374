package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/treechunk/internal/chunker"
	"github.com/dshills/treechunk/internal/indexer"
	"github.com/dshills/treechunk/internal/searcher"
	"github.com/dshills/treechunk/internal/storage"
	"github.com/dshills/treechunk/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams       = -32602 // Invalid method parameters
	ErrorCodeInternalError       = -32603 // Internal JSON-RPC error
	ErrorCodeUnsupportedLanguage = -32001 // No rule table for the requested language
	ErrorCodeIndexingInProgress  = -32002 // Another indexing operation is already running
	ErrorCodeParseFailed         = -32003 // Source could not be parsed or chunked
	ErrorCodeEmptyQuery          = -32004 // Query parameter is empty
	ErrorCodeNotIndexed          = -32005 // File or chunk is not in the index
)

// maxErrorsReported caps the per-file errors included in an index_directory response
const maxErrorsReported = 5

// handleChunkFile handles the chunk_file tool invocation
func (s *Server) handleChunkFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args, validateFile)
	if err != nil {
		return nil, err
	}

	language := getStringDefault(args, "language", "")
	if language == "" {
		var ok bool
		language, ok = s.chunker.Rules().LanguageForExtension(filepath.Ext(path))
		if !ok {
			return nil, newMCPError(ErrorCodeUnsupportedLanguage, "cannot detect language from file extension", map[string]interface{}{
				"param":     "path",
				"extension": filepath.Ext(path),
				"supported": s.chunker.Rules().Languages(),
			})
		}
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "failed to read file", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	chunks, err := s.chunker.Chunk(source, path, language)
	if err != nil {
		return nil, chunkError(err)
	}

	response := map[string]interface{}{
		"file":        path,
		"language":    language,
		"chunk_count": len(chunks),
		"chunks":      chunks,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexDirectory handles the index_directory tool invocation
func (s *Server) handleIndexDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args, validateDirectory)
	if err != nil {
		return nil, err
	}

	workers := getIntDefault(args, "workers", 0)
	if workers < 0 || workers > 64 {
		return nil, newMCPError(ErrorCodeInvalidParams, "workers must be between 0 and 64 (0 = default)", map[string]interface{}{
			"param": "workers",
			"value": workers,
		})
	}

	config := &indexer.Config{
		Workers:       workers,
		Force:         getBoolDefault(args, "force", false),
		IncludeVendor: getBoolDefault(args, "include_vendor", false),
		Prune:         getBoolDefault(args, "prune", false),
	}

	stats, err := s.indexer.IndexDirectory(ctx, path, config)
	if errors.Is(err, indexer.ErrIndexingInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.searcher.InvalidateCache()

	response := map[string]interface{}{
		"indexed":          true,
		"run_id":           stats.RunID,
		"files_discovered": stats.FilesDiscovered,
		"files_indexed":    stats.FilesIndexed,
		"files_skipped":    stats.FilesSkipped,
		"files_failed":     stats.FilesFailed,
		"files_removed":    stats.FilesRemoved,
		"chunks_created":   stats.ChunksCreated,
		"duration_ms":      stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		errorCount := len(stats.ErrorMessages)
		if errorCount > maxErrorsReported {
			response["errors"] = stats.ErrorMessages[:maxErrorsReported]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchChunks handles the search_chunks tool invocation
func (s *Server) handleSearchChunks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", storage.DefaultSearchLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	filters := &storage.SearchFilters{
		Languages:   getStringSlice(args, "languages"),
		ChunkTypes:  getStringSlice(args, "chunk_types"),
		FilePattern: getStringDefault(args, "file_pattern", ""),
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:    query,
		Limit:    limit,
		Filters:  filters,
		UseCache: true,
	})
	if errors.Is(err, searcher.ErrEmptyQuery) {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query must contain search terms", map[string]interface{}{
			"param": "query",
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		items = append(items, map[string]interface{}{
			"rank":       r.Rank,
			"score":      r.Score,
			"file":       r.FilePath,
			"chunk_id":   r.Chunk.ID,
			"type":       r.Chunk.Type,
			"start_line": r.Chunk.StartLine,
			"end_line":   r.Chunk.EndLine,
			"content":    r.Chunk.Content,
		})
	}

	response := map[string]interface{}{
		"query":       query,
		"count":       len(items),
		"results":     items,
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetChunk handles the get_chunk tool invocation
func (s *Server) handleGetChunk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args, nil)
	if err != nil {
		return nil, err
	}

	id := getIntDefault(args, "id", -1)
	if id < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param":  "id",
			"reason": "missing or negative",
		})
	}

	file, err := s.indexedFile(ctx, path)
	if err != nil {
		return nil, err
	}

	chunk, err := s.storage.GetChunk(ctx, file.ID, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotIndexed, "chunk not found", map[string]interface{}{
			"path": path,
			"id":   id,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get chunk", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"chunk": chunk})), nil
}

// handleReassembleFile handles the reassemble_file tool invocation
func (s *Server) handleReassembleFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args, nil)
	if err != nil {
		return nil, err
	}

	file, err := s.indexedFile(ctx, path)
	if err != nil {
		return nil, err
	}

	chunks, err := s.storage.ListChunksByFile(ctx, file.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list chunks", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if len(chunks) == 0 {
		return nil, newMCPError(ErrorCodeParseFailed, "file has no stored chunks", map[string]interface{}{
			"path":        path,
			"parse_error": derefString(file.ParseError),
		})
	}

	source, err := chunker.Reassemble(chunks)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to reassemble file", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(source), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	hits, misses := s.chunker.Stats()

	response := map[string]interface{}{
		"indexed": status.FilesCount > 0,
		"statistics": map[string]interface{}{
			"files_count":   status.FilesCount,
			"chunks_count":  status.ChunksCount,
			"failed_files":  status.FailedFiles,
			"languages":     status.Languages,
			"index_size_mb": fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"schema_version": status.SchemaVersion,
		"health": map[string]interface{}{
			"database_accessible": status.Health.DatabaseAccessible,
			"fts_indexes_built":   status.Health.FTSIndexesBuilt,
		},
		"cache": map[string]interface{}{
			"entries": s.chunker.Len(),
			"hits":    hits,
			"misses":  misses,
		},
	}
	if !status.LastIndexedAt.IsZero() {
		response["last_indexed_at"] = status.LastIndexedAt.Format("2006-01-02T15:04:05Z07:00")
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// indexedFile looks up a stored file, mapping a miss to ErrorCodeNotIndexed
func (s *Server) indexedFile(ctx context.Context, path string) (*storage.File, error) {
	file, err := s.storage.GetFile(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotIndexed, "file not indexed. Use index_directory to index it.", map[string]interface{}{
			"path": path,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get file", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return file, nil
}

// chunkError maps a chunking failure to an MCP error
func chunkError(err error) error {
	var unsupported *types.UnsupportedLanguageError
	switch {
	case errors.As(err, &unsupported):
		return newMCPError(ErrorCodeUnsupportedLanguage, "unsupported language", map[string]interface{}{
			"param":    "language",
			"language": unsupported.Language,
		})
	case errors.Is(err, types.ErrParse), errors.Is(err, types.ErrMalformedNode):
		return newMCPError(ErrorCodeParseFailed, "failed to chunk file", map[string]interface{}{
			"error": err.Error(),
		})
	default:
		return newMCPError(ErrorCodeInternalError, "failed to chunk file", map[string]interface{}{
			"error": err.Error(),
		})
	}
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

// requirePath extracts the path argument, resolves it to an absolute path
// and applies check when given
func requirePath(args map[string]interface{}, check func(string) error) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if !filepath.IsAbs(path) {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": ErrPathNotAbsolute.Error(),
		})
	}
	path = filepath.Clean(path)

	if check != nil {
		if err := check(path); err != nil {
			return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
				"param":  "path",
				"reason": err.Error(),
			})
		}
	}
	return path, nil
}

// validateDirectory checks that path is an existing, readable directory
func validateDirectory(path string) error {
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

// validateFile checks that path is an existing regular file
func validateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.Mode().IsRegular() {
		return ErrNotRegularFile
	}
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

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter, ignoring non-string items
func getStringSlice(args map[string]interface{}, key string) []string {
	var out []string
	switch vals := args[key].(type) {
	case []interface{}:
		for _, v := range vals {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, vals...)
	}
	sort.Strings(out)
	return out
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
	ErrNotRegularFile  = errors.New("path is not a regular file")
)
