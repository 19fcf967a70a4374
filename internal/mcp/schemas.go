package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// chunkFileTool returns the tool definition for chunk_file
func chunkFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "chunk_file",
		Description: "Split a source file into a hierarchy of dedented chunks. Nested functions and classes are replaced in their parent by a 'header -> chunk_N' placeholder line.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the source file",
				},
				"language": map[string]interface{}{
					"type":        "string",
					"description": "Language id (python, javascript, typescript, go). Detected from the file extension when omitted.",
				},
			},
			Required: []string{"path"},
		},
	}
}

// indexDirectoryTool returns the tool definition for index_directory
func indexDirectoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_directory",
		Description: "Chunk every supported source file under a directory and store the chunks for search",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the directory to index",
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-chunk all files ignoring content hashes",
					"default":     false,
				},
				"workers": map[string]interface{}{
					"type":        "integer",
					"description": "Number of files chunked concurrently (0 or omitted: number of CPUs)",
					"minimum":     0,
					"maximum":     64,
				},
				"include_vendor": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, index vendor/ and node_modules/ directories",
					"default":     false,
				},
				"prune": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, remove stored files under the directory that no longer exist",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchChunksTool returns the tool definition for search_chunks
func searchChunksTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_chunks",
		Description: "Full-text search over indexed chunks, ranked by BM25",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search terms; every term must match",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"languages": map[string]interface{}{
					"type":        "array",
					"description": "Only return chunks from files in these languages",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"chunk_types": map[string]interface{}{
					"type":        "array",
					"description": "Only return chunks of these types (root, function, method, class, interface, type)",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"file_pattern": map[string]interface{}{
					"type":        "string",
					"description": "Glob pattern for file paths (e.g., '*/internal/*')",
				},
			},
			Required: []string{"query"},
		},
	}
}

// getChunkTool returns the tool definition for get_chunk
func getChunkTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_chunk",
		Description: "Fetch one stored chunk by file path and chunk id, e.g. to follow a '-> chunk_N' placeholder",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of the indexed file",
				},
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Chunk id within the file (0 is the root chunk)",
					"minimum":     0,
				},
			},
			Required: []string{"path", "id"},
		},
	}
}

// reassembleFileTool returns the tool definition for reassemble_file
func reassembleFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reassemble_file",
		Description: "Rebuild the source text of an indexed file from its stored chunks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of the indexed file",
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index statistics: files, chunks, failures and per-language counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
