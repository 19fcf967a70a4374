package chunker

import (
	"crypto/sha256"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/treechunk/internal/rules"
	"github.com/dshills/treechunk/pkg/types"
)

// DefaultCacheSize is the number of chunk sets kept by a Cache when no size is given
const DefaultCacheSize = 1024

type cacheKey struct {
	language string
	file     string
	hash     [32]byte
}

// Cache memoizes chunk sets by language, file path and source hash.
// It is safe for concurrent use.
type Cache struct {
	chunker *Chunker
	cache   *lru.Cache[cacheKey, []*types.Chunk]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache wraps a chunker with an LRU cache of chunk sets
func NewCache(c *Chunker, size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, []*types.Chunk](size)
	if err != nil {
		// Only fails for non-positive sizes
		cache, _ = lru.New[cacheKey, []*types.Chunk](DefaultCacheSize)
	}
	return &Cache{
		chunker: c,
		cache:   cache,
	}
}

// Chunk returns the chunks of source, computing them on a miss.
// Callers receive copies and may modify them freely.
func (c *Cache) Chunk(source []byte, filePath, language string) ([]*types.Chunk, error) {
	key := cacheKey{
		language: language,
		file:     filePath,
		hash:     sha256.Sum256(source),
	}

	if chunks, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return cloneChunks(chunks), nil
	}
	c.misses.Add(1)

	chunks, err := c.chunker.Chunk(source, filePath, language)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, chunks)
	return cloneChunks(chunks), nil
}

// Rules returns the rule registry of the wrapped chunker
func (c *Cache) Rules() *rules.Registry {
	return c.chunker.Rules()
}

// Len returns the number of cached chunk sets
func (c *Cache) Len() int {
	return c.cache.Len()
}

// Stats returns the hit and miss counts
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge empties the cache
func (c *Cache) Purge() {
	c.cache.Purge()
}

func cloneChunks(chunks []*types.Chunk) []*types.Chunk {
	out := make([]*types.Chunk, len(chunks))
	for i, ch := range chunks {
		out[i] = ch.Clone()
	}
	return out
}
