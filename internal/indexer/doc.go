// Package indexer chunks whole source trees and persists the results.
//
// The indexer walks a directory, detects each file's language from its
// extension, chunks changed files and replaces their stored chunks, one
// transaction per file.
//
// # Basic Usage
//
//	c := chunker.New(rules.Default(), parser.New(parser.Config{}))
//	idx := indexer.New(store, c, indexer.WithLogger(logger))
//
//	stats, err := idx.IndexDirectory(ctx, "/path/to/project", &indexer.Config{
//	    Workers: 4,
//	    Prune:   true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("run %s: %d indexed, %d skipped, %d failed in %v\n",
//	    stats.RunID, stats.FilesIndexed, stats.FilesSkipped, stats.FilesFailed, stats.Duration)
//
// # Pipeline
//
//  1. Discovery: find files with a registered extension. Hidden directories
//     are always skipped; vendor and node_modules unless IncludeVendor is set.
//  2. Incremental decision: compare SHA-256 content hashes with the stored
//     file record and skip unchanged files that chunked cleanly last time.
//  3. Chunk: split the file with the configured Chunker (parallel, bounded
//     by Workers).
//  4. Store: upsert the file record and replace its chunks in a single
//     transaction.
//  5. Prune (optional): delete stored files under the root that are gone
//     from disk.
//
// # Failures
//
// A file that cannot be read or chunked does not stop the run. It is counted
// in Statistics.FilesFailed, described in Statistics.ErrorMessages, and stored
// with its error message and no chunks so status reports can list it. Such
// files are retried on the next run even if their content is unchanged.
//
// Cancelling the context aborts the run and returns the context error.
//
// # Concurrency
//
// Only one IndexDirectory call runs at a time per Indexer. A second call
// made while a run is active fails immediately with ErrIndexingInProgress.
package indexer
