// Package mcp implements the Model Context Protocol (MCP) server for treechunk.
//
// The MCP server exposes the chunker and the chunk index to AI coding
// assistants:
//   - chunk_file: Split one source file into hierarchical chunks
//   - index_directory: Chunk and store a whole source tree
//   - search_chunks: Full-text search over stored chunks
//   - get_chunk: Fetch a stored chunk, e.g. to follow a placeholder
//   - reassemble_file: Rebuild a file's source from its stored chunks
//   - get_status: Report index statistics
//
// # Basic Usage
//
// The MCP server is started via the serve-mcp command:
//
//	treechunk serve-mcp
//
// It then reads JSON-RPC 2.0 requests from stdin and writes responses to
// stdout. Logs go to stderr so they never corrupt the protocol stream.
//
// # Tool: chunk_file
//
//	Request:
//	{
//	  "name": "chunk_file",
//	  "arguments": {"path": "/src/app/service.py"}
//	}
//
//	Response:
//	{
//	  "file": "/src/app/service.py",
//	  "language": "python",
//	  "chunk_count": 3,
//	  "chunks": [
//	    {"id": 0, "type": "root", "content": "class Service: -> chunk_1\n", ...},
//	    {"id": 1, "type": "class", "content": "class Service:\n    def run(self): -> chunk_2", ...},
//	    {"id": 2, "type": "function", "content": "def run(self):\n    return 1", ...}
//	  ]
//	}
//
// # Tool: index_directory
//
//	Request:
//	{
//	  "name": "index_directory",
//	  "arguments": {"path": "/src/app", "force": false, "workers": 4}
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "run_id": "5b7c...",
//	  "files_indexed": 42,
//	  "files_skipped": 3,
//	  "files_failed": 1,
//	  "chunks_created": 380,
//	  "errors": ["/src/app/broken.py: parse python file /src/app/broken.py: ..."]
//	}
//
// At most five per-file errors are listed; error_count carries the total.
//
// # Tool: search_chunks
//
// Every whitespace-separated term must appear in a chunk. Results are ranked
// by BM25 and can be narrowed by language, chunk type or file glob:
//
//	{
//	  "name": "search_chunks",
//	  "arguments": {"query": "retry backoff", "limit": 5, "chunk_types": ["function"]}
//	}
//
// # Errors
//
// Handlers return *MCPError values with JSON-RPC style codes:
//   - -32602: invalid parameters
//   - -32603: internal error
//   - -32001: unsupported language
//   - -32002: indexing already in progress
//   - -32003: source could not be chunked
//   - -32004: empty query
//   - -32005: file or chunk not indexed
package mcp
