package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/treechunk/internal/rules"
	"github.com/dshills/treechunk/internal/storage"
	"github.com/dshills/treechunk/pkg/types"
)

// DefaultMaxFileSize is the largest file indexed when Config.MaxFileSize is zero
const DefaultMaxFileSize = 2 << 20

// ErrIndexingInProgress is returned when an indexing run is already active
var ErrIndexingInProgress = errors.New("indexing already in progress")

// Chunker splits a source file into chunks
type Chunker interface {
	Chunk(source []byte, filePath, language string) ([]*types.Chunk, error)
}

// Indexer coordinates the indexing pipeline: discover -> chunk -> store
type Indexer struct {
	chunker Chunker
	rules   *rules.Registry
	storage storage.Storage
	logger  *slog.Logger
	lock    IndexLock
}

// Config contains configuration for an indexing run
type Config struct {
	Workers       int      // Number of concurrent workers (default: runtime.NumCPU())
	Force         bool     // Re-chunk files whose content hash is unchanged
	IncludeVendor bool     // Whether to index vendor and node_modules directories
	Languages     []string // Restrict indexing to these languages (default: all)
	MaxFileSize   int64    // Skip larger files (default: DefaultMaxFileSize)
	Prune         bool     // Remove stored files under the root that no longer exist
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	RunID           string
	FilesDiscovered int
	FilesIndexed    int
	FilesSkipped    int
	FilesFailed     int
	FilesRemoved    int
	ChunksCreated   int
	Duration        time.Duration
	ErrorMessages   []string
}

// Option configures an Indexer
type Option func(*Indexer)

// WithLogger sets the logger used for per-file progress and failures
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Indexer) {
		idx.logger = logger
	}
}

// WithRules sets the registry used to map file extensions to languages
func WithRules(reg *rules.Registry) Option {
	return func(idx *Indexer) {
		idx.rules = reg
	}
}

// New creates a new Indexer instance. When the chunker exposes its rule
// registry, that registry is used for language detection.
func New(store storage.Storage, c Chunker, opts ...Option) *Indexer {
	idx := &Indexer{
		chunker: c,
		storage: store,
		logger:  slog.New(slog.DiscardHandler),
	}
	if withRules, ok := c.(interface{ Rules() *rules.Registry }); ok {
		idx.rules = withRules.Rules()
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.rules == nil {
		idx.rules = rules.Default()
	}
	return idx
}

// IndexDirectory chunks every supported file under root and stores the
// results. Files that fail to read or chunk are counted and recorded in the
// statistics; they do not stop the run.
func (idx *Indexer) IndexDirectory(ctx context.Context, root string, config *Config) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer idx.lock.Release()

	if config == nil {
		config = &Config{}
	}
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", absRoot)
	}

	startTime := time.Now()
	stats := &Statistics{
		RunID:         uuid.NewString(),
		ErrorMessages: make([]string, 0),
	}
	logger := idx.logger.With("run_id", stats.RunID)
	logger.Info("indexing started", "root", absRoot, "workers", workers, "force", config.Force)

	files, err := idx.discoverFiles(absRoot, config)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	stats.FilesDiscovered = len(files)

	if err := idx.indexFiles(ctx, files, workers, config, stats, logger); err != nil {
		return nil, fmt.Errorf("failed to index files: %w", err)
	}

	if config.Prune {
		removed, err := idx.pruneFiles(ctx, absRoot, files)
		if err != nil {
			return nil, fmt.Errorf("failed to prune files: %w", err)
		}
		stats.FilesRemoved = removed
	}

	stats.Duration = time.Since(startTime)
	logger.Info("indexing finished",
		"indexed", stats.FilesIndexed,
		"skipped", stats.FilesSkipped,
		"failed", stats.FilesFailed,
		"removed", stats.FilesRemoved,
		"chunks", stats.ChunksCreated,
		"duration", stats.Duration)

	return stats, nil
}

// sourceFile is a discovered file and its language
type sourceFile struct {
	path     string
	language string
}

// discoverFiles finds all files under root with a supported language
func (idx *Indexer) discoverFiles(root string, config *Config) ([]sourceFile, error) {
	allowed := make(map[string]bool, len(config.Languages))
	for _, lang := range config.Languages {
		allowed[lang] = true
	}

	var files []sourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			if !config.IncludeVendor && (name == "vendor" || name == "node_modules") {
				return filepath.SkipDir
			}
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		lang, ok := idx.rules.LanguageForExtension(filepath.Ext(path))
		if !ok {
			return nil
		}
		if len(allowed) > 0 && !allowed[lang] {
			return nil
		}

		files = append(files, sourceFile{path: path, language: lang})
		return nil
	})

	return files, err
}

// indexFiles indexes files concurrently, at most workers at a time
func (idx *Indexer) indexFiles(ctx context.Context, files []sourceFile, workers int, config *Config, stats *Statistics, logger *slog.Logger) error {
	var (
		indexed int32
		skipped int32
		failed  int32
		chunks  int32
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	var mu sync.Mutex // Protect stats.ErrorMessages

	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			n, skip, err := idx.indexFile(gctx, file, config)
			switch {
			case err != nil && gctx.Err() != nil:
				return gctx.Err()
			case err != nil:
				atomic.AddInt32(&failed, 1)
				logger.Warn("failed to index file", "path", file.path, "error", err)
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", file.path, err))
				mu.Unlock()
			case skip:
				atomic.AddInt32(&skipped, 1)
				logger.Debug("file unchanged", "path", file.path)
			default:
				atomic.AddInt32(&indexed, 1)
				atomic.AddInt32(&chunks, int32(n))
				logger.Debug("file indexed", "path", file.path, "chunks", n)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	sort.Strings(stats.ErrorMessages)
	stats.FilesIndexed = int(indexed)
	stats.FilesSkipped = int(skipped)
	stats.FilesFailed = int(failed)
	stats.ChunksCreated = int(chunks)
	return nil
}

// indexFile chunks one file and replaces its stored chunks. It reports the
// number of chunks stored and whether the file was skipped as unchanged.
func (idx *Indexer) indexFile(ctx context.Context, file sourceFile, config *Config) (int, bool, error) {
	maxSize := config.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	info, err := os.Stat(file.path)
	if err != nil {
		return 0, false, err
	}
	if info.Size() > maxSize {
		return 0, false, fmt.Errorf("file size %d exceeds limit %d", info.Size(), maxSize)
	}

	content, err := os.ReadFile(file.path)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read file: %w", err)
	}
	hash := sha256.Sum256(content)

	unchanged, err := idx.checkFileChanged(ctx, file.path, hash, config.Force)
	if err != nil {
		return 0, false, err
	}
	if unchanged {
		return 0, true, nil
	}

	chunks, chunkErr := idx.chunker.Chunk(content, file.path, file.language)

	record := &storage.File{
		Path:        file.path,
		Language:    file.language,
		ContentHash: hash,
		SizeBytes:   int64(len(content)),
		ChunkCount:  len(chunks),
	}
	if chunkErr != nil {
		msg := chunkErr.Error()
		record.ParseError = &msg
		chunks = nil
	}

	if err := idx.store(ctx, record, chunks); err != nil {
		return 0, false, err
	}
	if chunkErr != nil {
		return 0, false, chunkErr
	}
	return len(chunks), false, nil
}

// store writes a file record and its chunks in one transaction
func (idx *Indexer) store(ctx context.Context, file *storage.File, chunks []*types.Chunk) error {
	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.UpsertFile(ctx, file); err != nil {
		return err
	}
	if err := tx.ReplaceChunks(ctx, file.ID, chunks); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// checkFileChanged reports whether a stored file has the same content hash
// and was chunked successfully, so it can be skipped
func (idx *Indexer) checkFileChanged(ctx context.Context, path string, hash [32]byte, force bool) (bool, error) {
	if force {
		return false, nil
	}

	existing, err := idx.storage.GetFile(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return existing.ContentHash == hash && existing.ParseError == nil, nil
}

// pruneFiles deletes stored files under root that no longer exist on disk.
// Files skipped by discovery filters (languages, vendor, hidden dirs) are kept.
func (idx *Indexer) pruneFiles(ctx context.Context, root string, discovered []sourceFile) (int, error) {
	seen := make(map[string]bool, len(discovered))
	for _, f := range discovered {
		seen[f.path] = true
	}

	stored, err := idx.storage.ListFiles(ctx)
	if err != nil {
		return 0, err
	}

	prefix := root + string(filepath.Separator)
	removed := 0
	for _, f := range stored {
		if !strings.HasPrefix(f.Path, prefix) || seen[f.Path] {
			continue
		}
		if _, err := os.Stat(f.Path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := idx.storage.DeleteFile(ctx, f.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
