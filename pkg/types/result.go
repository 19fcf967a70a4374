package types

// SearchResult is a stored chunk matched by a full-text query
type SearchResult struct {
	FilePath string
	Chunk    *Chunk
	Rank     int     // Position in result set (1-based)
	Score    float64 // Negated BM25, higher is better
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.FilePath == "" {
		return ErrMissingFileInfo
	}

	if sr.Chunk == nil {
		return ErrMissingChunk
	}

	return nil
}
