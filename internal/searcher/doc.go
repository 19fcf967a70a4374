// Package searcher answers full-text queries over indexed chunks.
//
// Searches run against the storage FTS5 index, ranked by BM25. Responses can
// be cached per query; the cache must be invalidated whenever the index
// changes.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store)
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query:    "retry backoff",
//	    Limit:    10,
//	    Filters:  &storage.SearchFilters{ChunkTypes: []string{"function"}},
//	    UseCache: true,
//	})
//
//	for _, r := range resp.Results {
//	    fmt.Printf("[%d] %s chunk_%d (score: %.2f)\n",
//	        r.Rank, r.FilePath, r.Chunk.ID, r.Score)
//	}
//
// # Caching
//
// Cached responses are keyed by a SHA-256 hash of the query, limit and
// filters, live for CacheTTL (one hour by default) and are evicted least
// recently used first. Callers receive deep copies. After reindexing, call
// InvalidateCache.
package searcher
