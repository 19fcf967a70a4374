package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/treechunk/pkg/types"
)

// DefaultSearchLimit is used when a search is given a non-positive limit
const DefaultSearchLimit = 10

// searchChunks performs BM25 full-text search over chunk content using FTS5
func searchChunks(ctx context.Context, q querier, query string, limit int, filters *SearchFilters) ([]*types.SearchResult, error) {
	match := sanitizeFTSQuery(query)
	if match == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	sqlQuery := `
		SELECT ` + chunkColumns + `, c.file_id, bm25(chunks_fts) AS score
		FROM chunks_fts
		JOIN chunks c ON c.id = chunks_fts.rowid
		JOIN files f ON c.file_id = f.id
		WHERE chunks_fts MATCH ?
	`
	args := []interface{}{match}

	sqlQuery, args = applySearchFilters(sqlQuery, args, filters)

	// BM25 scores are lower for better matches
	sqlQuery += " ORDER BY score, f.path, c.seq LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}

	type hit struct {
		fileID int64
		result *types.SearchResult
	}
	hits := make([]hit, 0, limit)
	for rows.Next() {
		var fileID int64
		var score float64
		chunk, err := scanChunk(rows, &fileID, &score)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		hits = append(hits, hit{
			fileID: fileID,
			result: &types.SearchResult{
				FilePath: chunk.File,
				Chunk:    chunk,
				Rank:     len(hits) + 1,
				Score:    -score,
			},
		})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	// Child lists need their own queries, which cannot run while rows is open
	results := make([]*types.SearchResult, len(hits))
	for i, h := range hits {
		h.result.Chunk.ChildIDs, err = childSeqs(ctx, q, h.fileID, h.result.Chunk.ID)
		if err != nil {
			return nil, err
		}
		results[i] = h.result
	}
	return results, nil
}

// applySearchFilters adds WHERE clause filters for chunk search
func applySearchFilters(query string, args []interface{}, filters *SearchFilters) (string, []interface{}) {
	if filters == nil {
		return query, args
	}

	query, args = appendIn(query, args, "f.language", filters.Languages)
	query, args = appendIn(query, args, "c.chunk_type", filters.ChunkTypes)

	if filters.FilePattern != "" {
		query += " AND f.path GLOB ?"
		args = append(args, filters.FilePattern)
	}
	return query, args
}

func appendIn(query string, args []interface{}, column string, values []string) (string, []interface{}) {
	if len(values) == 0 {
		return query, args
	}

	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args = append(args, v)
	}
	return query + " AND " + column + " IN (" + strings.Join(placeholders, ",") + ")", args
}

// sanitizeFTSQuery turns free text into an FTS5 query that matches chunks
// containing every term. Each term is quoted, so FTS5 operators and special
// characters in the input are matched literally.
func sanitizeFTSQuery(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}

	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(term, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}
