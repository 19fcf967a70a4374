// Package types provides shared type definitions for treechunk.
//
// This package defines the domain types used across the chunker, the parser
// adapter, storage and the transports: chunks, node roles, syntax nodes and
// the typed errors a chunking call can fail with.
//
// # Chunks
//
// A Chunk is one self-contained, dedented fragment of a source file:
//
//	chunk := &types.Chunk{
//	    ID:        2,
//	    Type:      types.ChunkFunction,
//	    File:      "service.py",
//	    StartByte: 120,
//	    EndByte:   340,
//	    Content:   "def handle(self):\n    return self.run()",
//	}
//
// Chunk 0 is always the root chunk covering the whole file. Nested chunks are
// referenced from their parent's content by a placeholder line:
//
//	class Service: -> chunk_1
//
// ChunkRef builds the reference part of that line.
//
// # Syntax Trees
//
// The chunker consumes any tree that implements Node. SyntaxNode is the
// in-memory implementation produced by the parser package and is convenient
// for building trees by hand:
//
//	root := types.NewNode("module", 0, 20,
//	    types.NewNode("function_definition", 0, 20),
//	)
//
// # Roles
//
// Every node type has a Role: RoleNotableBlock nodes become chunks,
// RoleNestingContainer nodes are traversed without becoming chunks, and
// RoleIgnore nodes are copied verbatim.
//
// # Errors
//
// Chunking errors are typed and match sentinels with errors.Is:
//
//	var unsupported *types.UnsupportedLanguageError
//	if errors.As(err, &unsupported) {
//	    fmt.Println("no rules for", unsupported.Language)
//	}
//
//	if errors.Is(err, types.ErrParse) {
//	    // parser failed; parse failures are not retried
//	}
package types
