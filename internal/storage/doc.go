// Package storage provides SQLite-based persistence for chunked source files.
//
// The storage layer manages:
//   - File information and content hashes
//   - Chunk hierarchies, one row per chunk
//   - A full-text search index over chunk content
//
// # Database Schema
//
// Tables:
//   - schema_version: Applied migrations (semantic versions)
//   - files: File paths, languages, SHA-256 hashes and parse failures
//   - chunks: Chunks keyed by (file_id, seq), where seq is the chunk id
//   - chunks_fts: FTS5 index over chunk content, kept in sync by triggers
//
// A chunk's children are not stored; they are rebuilt from parent_seq when
// chunks are read back, in id order.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.treechunk/treechunk.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	file := &storage.File{
//	    Path:        "service/handler.py",
//	    Language:    "python",
//	    ContentHash: sha256.Sum256(source),
//	    SizeBytes:   int64(len(source)),
//	}
//	if err := db.UpsertFile(ctx, file); err != nil {
//	    return err
//	}
//	if err := db.ReplaceChunks(ctx, file.ID, chunks); err != nil {
//	    return err
//	}
//
// # Transactions
//
// Use transactions to update a file and its chunks together:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.UpsertFile(ctx, file); err != nil {
//	    return err
//	}
//	if err := tx.ReplaceChunks(ctx, file.ID, chunks); err != nil {
//	    return err
//	}
//
//	return tx.Commit()
//
// # Full-Text Search
//
// Query using BM25 ranking:
//
//	results, err := db.SearchChunks(ctx, "parse config", 10, &storage.SearchFilters{
//	    Languages:  []string{"go"},
//	    ChunkTypes: []string{"function", "method"},
//	})
//	for _, r := range results {
//	    fmt.Printf("%d. %s chunk_%d (%.2f)\n", r.Rank, r.FilePath, r.Chunk.ID, r.Score)
//	}
//
// Every whitespace-separated term of the query must appear in a chunk. Terms
// are matched literally; FTS5 operators in the input have no effect.
//
// # Build Tags
//
// The default build uses modernc.org/sqlite, a pure Go driver with FTS5
// built in. Building with the cgo_sqlite tag switches to
// github.com/mattn/go-sqlite3, which needs its sqlite_fts5 tag as well:
//
//	CGO_ENABLED=1 go build -tags "cgo_sqlite,sqlite_fts5" ./...
package storage
