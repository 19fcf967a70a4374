package storage

import (
	"context"
	"time"

	"github.com/dshills/treechunk/pkg/types"
)

// Storage defines the interface for persisting and querying chunked source files
type Storage interface {
	// File operations
	UpsertFile(ctx context.Context, file *File) error
	GetFile(ctx context.Context, path string) (*File, error)
	GetFileByID(ctx context.Context, fileID int64) (*File, error)
	ListFiles(ctx context.Context) ([]*File, error)
	DeleteFile(ctx context.Context, fileID int64) error

	// Chunk operations
	ReplaceChunks(ctx context.Context, fileID int64, chunks []*types.Chunk) error
	ListChunksByFile(ctx context.Context, fileID int64) ([]*types.Chunk, error)
	GetChunk(ctx context.Context, fileID int64, seq int) (*types.Chunk, error)

	// Search operations
	SearchChunks(ctx context.Context, query string, limit int, filters *SearchFilters) ([]*types.SearchResult, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage
}

// File represents a chunked source file
type File struct {
	ID            int64
	Path          string
	Language      string
	ContentHash   [32]byte
	SizeBytes     int64
	ChunkCount    int
	ParseError    *string // Nullable
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SearchFilters narrows full-text search results
type SearchFilters struct {
	Languages   []string // Filter by file language
	ChunkTypes  []string // Filter by chunk type (function, class, ...)
	FilePattern string   // Glob pattern for file paths
}

// Status contains statistics about the index
type Status struct {
	FilesCount    int
	ChunksCount   int
	FailedFiles   int
	Languages     map[string]int // files per language
	IndexSizeMB   float64
	SchemaVersion string
	LastIndexedAt time.Time
	Health        HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible bool
	FTSIndexesBuilt    bool
}
