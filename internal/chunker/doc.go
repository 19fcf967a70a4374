// Package chunker divides source files into a hierarchy of self-contained,
// dedented chunks for retrieval, indexing and display.
//
// Every syntax node type is classified by the language's rule table. Notable
// nodes (functions, classes, methods) become chunks of their own; nesting
// containers (blocks, conditionals, loops) are traversed so that notable nodes
// inside them are still found; all other nodes are copied verbatim into the
// enclosing chunk.
//
// # Basic Usage
//
//	c := chunker.New(rules.Default(), parser.New(parser.Config{}))
//	chunks, err := c.Chunk(source, "service.py", "python")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, chunk := range chunks {
//	    fmt.Printf("chunk_%d %s [%d, %d)\n",
//	        chunk.ID, chunk.Type, chunk.StartByte, chunk.EndByte)
//	}
//
// # Placeholders
//
// A nested chunk's span is replaced in its parent's content by one line made
// of the nested node's header and a reference to its id:
//
//	def outer():
//	    def inner(): -> chunk_2
//	    return inner()
//
// Chunk 0 is the root chunk. It covers the whole file and keeps the file's
// original indentation. Ids are allocated in pre-order, so a chunk's id is
// always lower than the ids of its descendants, and the returned list is in
// id order.
//
// # Indentation
//
// Each nested chunk is dedented by its own prefix: the exact whitespace that
// starts the line its node begins on. Lines that do not start with that
// prefix are left untouched. Because every level strips only its own prefix,
// deep or irregular nesting never accumulates drift. The stripped prefix is
// kept in Chunk.Indent so Reassemble can rebuild the source.
//
// # Concurrency
//
// A Chunker holds immutable configuration only. Each call builds its own id
// counter and chunk map, so concurrent calls are independent and
// deterministic. Cache adds an LRU in front of a Chunker for callers that
// chunk the same sources repeatedly.
package chunker
