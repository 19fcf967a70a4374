package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/treechunk/internal/chunker"
	"github.com/dshills/treechunk/internal/parser"
	"github.com/dshills/treechunk/internal/rules"
	"github.com/dshills/treechunk/internal/storage"
	"github.com/dshills/treechunk/pkg/types"
)

const pythonSource = `class Greeter:
    def greet(self):
        return "hello"
`

const jsSource = `function add(a, b) {
  return a + b;
}
`

// countingChunker wraps a chunker and counts calls
type countingChunker struct {
	inner *chunker.Chunker
	calls atomic.Int64
}

func (c *countingChunker) Chunk(source []byte, filePath, language string) ([]*types.Chunk, error) {
	c.calls.Add(1)
	return c.inner.Chunk(source, filePath, language)
}

func (c *countingChunker) Rules() *rules.Registry {
	return c.inner.Rules()
}

// setupTestStorage creates an in-memory SQLite database for testing
func setupTestStorage(t testing.TB) storage.Storage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err, "Failed to create test storage")
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func newTestChunker(strict bool) *countingChunker {
	return &countingChunker{
		inner: chunker.New(rules.Default(), parser.New(parser.Config{Strict: strict})),
	}
}

// createTestFile creates a file under dir, creating parent directories
func createTestFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	filePath := filepath.Join(dir, name)
	err := os.MkdirAll(filepath.Dir(filePath), 0755)
	require.NoError(t, err)

	err = os.WriteFile(filePath, []byte(content), 0644)
	require.NoError(t, err)

	return filePath
}

func TestNew(t *testing.T) {
	store := setupTestStorage(t)

	idx := New(store, newTestChunker(false))
	require.NotNil(t, idx)
	assert.Equal(t, store, idx.storage)
	assert.NotNil(t, idx.logger)
	assert.NotNil(t, idx.rules)
}

func TestNew_RulesFallback(t *testing.T) {
	store := setupTestStorage(t)

	// A chunker without a Rules method falls back to the default registry
	idx := New(store, chunkerFunc(func([]byte, string, string) ([]*types.Chunk, error) {
		return nil, nil
	}))
	lang, ok := idx.rules.LanguageForExtension(".py")
	assert.True(t, ok)
	assert.Equal(t, "python", lang)

	custom := rules.NewRegistry(rules.Go())
	idx = New(store, newTestChunker(false), WithRules(custom))
	_, ok = idx.rules.LanguageForExtension(".py")
	assert.False(t, ok, "WithRules should override the chunker's registry")
}

type chunkerFunc func(source []byte, filePath, language string) ([]*types.Chunk, error)

func (f chunkerFunc) Chunk(source []byte, filePath, language string) ([]*types.Chunk, error) {
	return f(source, filePath, language)
}

func TestDiscoverFiles(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "app.py", pythonSource)
	createTestFile(t, tmpDir, "web/index.js", jsSource)
	createTestFile(t, tmpDir, "web/types.ts", "interface A {}\n")
	createTestFile(t, tmpDir, "main.go", "package main\n")
	createTestFile(t, tmpDir, "README.md", "# readme\n")
	createTestFile(t, tmpDir, "vendor/dep/dep.go", "package dep\n")
	createTestFile(t, tmpDir, "web/node_modules/lib/index.js", jsSource)
	createTestFile(t, tmpDir, ".git/hooks/hook.py", pythonSource)

	idx := New(setupTestStorage(t), newTestChunker(false))

	tests := []struct {
		name   string
		config *Config
		want   []string
	}{
		{
			name:   "default skips vendor and hidden directories",
			config: &Config{},
			want:   []string{"app.py", "main.go", "web/index.js", "web/types.ts"},
		},
		{
			name:   "include vendor",
			config: &Config{IncludeVendor: true},
			want: []string{"app.py", "main.go", "vendor/dep/dep.go", "web/index.js",
				"web/node_modules/lib/index.js", "web/types.ts"},
		},
		{
			name:   "language filter",
			config: &Config{Languages: []string{"python", "go"}},
			want:   []string{"app.py", "main.go"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := idx.discoverFiles(tmpDir, tt.config)
			require.NoError(t, err)

			var got []string
			for _, f := range files {
				rel, err := filepath.Rel(tmpDir, f.path)
				require.NoError(t, err)
				got = append(got, filepath.ToSlash(rel))
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestDiscoverFiles_Languages(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "a.py", pythonSource)
	createTestFile(t, tmpDir, "b.mjs", jsSource)

	idx := New(setupTestStorage(t), newTestChunker(false))
	files, err := idx.discoverFiles(tmpDir, &Config{})
	require.NoError(t, err)
	require.Len(t, files, 2)

	langs := map[string]string{}
	for _, f := range files {
		langs[filepath.Base(f.path)] = f.language
	}
	assert.Equal(t, "python", langs["a.py"])
	assert.Equal(t, "javascript", langs["b.mjs"])
}

func TestIndexDirectory_Success(t *testing.T) {
	tmpDir := t.TempDir()
	pyPath := createTestFile(t, tmpDir, "app.py", pythonSource)
	createTestFile(t, tmpDir, "web/index.js", jsSource)

	store := setupTestStorage(t)
	idx := New(store, newTestChunker(false))

	stats, err := idx.IndexDirectory(context.Background(), tmpDir, &Config{Workers: 2})
	require.NoError(t, err)
	require.NotNil(t, stats)

	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, 2, stats.FilesDiscovered)
	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Equal(t, 0, stats.FilesSkipped)
	assert.Equal(t, 0, stats.FilesFailed)
	// app.py: root, class, method; index.js: root, function
	assert.Equal(t, 5, stats.ChunksCreated)
	assert.Empty(t, stats.ErrorMessages)
	assert.Greater(t, stats.Duration.Nanoseconds(), int64(0))

	ctx := context.Background()
	file, err := store.GetFile(ctx, pyPath)
	require.NoError(t, err)
	assert.Equal(t, "python", file.Language)
	assert.Equal(t, 3, file.ChunkCount)
	assert.Nil(t, file.ParseError)

	chunks, err := store.ListChunksByFile(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, types.ChunkRoot, chunks[0].Type)
	assert.Equal(t, "class Greeter: -> chunk_1\n", chunks[0].Content)
	assert.Equal(t, "def greet(self):\n    return \"hello\"", chunks[2].Content)
	assert.Equal(t, "    ", chunks[2].Indent)
}

func TestIndexDirectory_EmptyDirectory(t *testing.T) {
	idx := New(setupTestStorage(t), newTestChunker(false))

	stats, err := idx.IndexDirectory(context.Background(), t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesDiscovered)
	assert.Equal(t, 0, stats.FilesIndexed)
	assert.Equal(t, 0, stats.ChunksCreated)
}

func TestIndexDirectory_InvalidRoot(t *testing.T) {
	idx := New(setupTestStorage(t), newTestChunker(false))

	_, err := idx.IndexDirectory(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)

	file := createTestFile(t, t.TempDir(), "app.py", pythonSource)
	_, err = idx.IndexDirectory(context.Background(), file, nil)
	assert.Error(t, err)
}

func TestIndexDirectory_IncrementalUpdate(t *testing.T) {
	tmpDir := t.TempDir()
	pyPath := createTestFile(t, tmpDir, "app.py", pythonSource)
	createTestFile(t, tmpDir, "web/index.js", jsSource)

	store := setupTestStorage(t)
	c := newTestChunker(false)
	idx := New(store, c)
	ctx := context.Background()

	stats, err := idx.IndexDirectory(ctx, tmpDir, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Equal(t, int64(2), c.calls.Load())

	// Unchanged files are skipped without chunking
	stats, err = idx.IndexDirectory(ctx, tmpDir, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesIndexed)
	assert.Equal(t, 2, stats.FilesSkipped)
	assert.Equal(t, int64(2), c.calls.Load())

	// Modify one file
	createTestFile(t, tmpDir, "app.py", "def solo():\n    pass\n")
	stats, err = idx.IndexDirectory(ctx, tmpDir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesSkipped)
	assert.Equal(t, 2, stats.ChunksCreated)

	file, err := store.GetFile(ctx, pyPath)
	require.NoError(t, err)
	chunks, err := store.ListChunksByFile(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2, "old chunks should be replaced")
	assert.Equal(t, "def solo():\n    pass", chunks[1].Content)

	// Force re-chunks everything
	stats, err = idx.IndexDirectory(ctx, tmpDir, &Config{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Equal(t, 0, stats.FilesSkipped)
}

func TestIndexDirectory_WithParseErrors(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "good.py", pythonSource)
	badPath := createTestFile(t, tmpDir, "bad.py", "def broken(:\n    pass\n")

	store := setupTestStorage(t)
	idx := New(store, newTestChunker(true))
	ctx := context.Background()

	stats, err := idx.IndexDirectory(ctx, tmpDir, nil)
	require.NoError(t, err, "per-file failures should not fail the run")
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesFailed)
	require.Len(t, stats.ErrorMessages, 1)
	assert.Contains(t, stats.ErrorMessages[0], "bad.py")

	file, err := store.GetFile(ctx, badPath)
	require.NoError(t, err, "failed files are recorded")
	require.NotNil(t, file.ParseError)
	assert.Equal(t, 0, file.ChunkCount)

	status, err := store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.FailedFiles)

	// Failed files are retried even when unchanged
	stats, err = idx.IndexDirectory(ctx, tmpDir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesSkipped)
	assert.Equal(t, 1, stats.FilesFailed)

	// Fixing the file clears the recorded error
	createTestFile(t, tmpDir, "bad.py", "def fixed():\n    pass\n")
	stats, err = idx.IndexDirectory(ctx, tmpDir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 0, stats.FilesFailed)

	file, err = store.GetFile(ctx, badPath)
	require.NoError(t, err)
	assert.Nil(t, file.ParseError)
	assert.Equal(t, 2, file.ChunkCount)
}

func TestIndexDirectory_LargeFile(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "big.py", pythonSource)

	idx := New(setupTestStorage(t), newTestChunker(false))
	stats, err := idx.IndexDirectory(context.Background(), tmpDir, &Config{MaxFileSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesFailed)
	require.Len(t, stats.ErrorMessages, 1)
	assert.Contains(t, stats.ErrorMessages[0], "exceeds limit")
}

func TestIndexDirectory_Prune(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "keep.py", pythonSource)
	gonePath := createTestFile(t, tmpDir, "gone.py", pythonSource)

	store := setupTestStorage(t)
	idx := New(store, newTestChunker(false))
	ctx := context.Background()

	_, err := idx.IndexDirectory(ctx, tmpDir, nil)
	require.NoError(t, err)

	require.NoError(t, os.Remove(gonePath))

	// Without Prune the stale record stays
	stats, err := idx.IndexDirectory(ctx, tmpDir, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesRemoved)
	_, err = store.GetFile(ctx, gonePath)
	require.NoError(t, err)

	stats, err = idx.IndexDirectory(ctx, tmpDir, &Config{Prune: true})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesRemoved)
	_, err = store.GetFile(ctx, gonePath)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIndexDirectory_PruneLeavesOtherRoots(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	createTestFile(t, rootA, "a.py", pythonSource)
	bPath := createTestFile(t, rootB, "b.py", pythonSource)

	store := setupTestStorage(t)
	idx := New(store, newTestChunker(false))
	ctx := context.Background()

	_, err := idx.IndexDirectory(ctx, rootA, nil)
	require.NoError(t, err)
	_, err = idx.IndexDirectory(ctx, rootB, nil)
	require.NoError(t, err)

	stats, err := idx.IndexDirectory(ctx, rootA, &Config{Prune: true})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesRemoved)

	_, err = store.GetFile(ctx, bPath)
	assert.NoError(t, err)
}

func TestIndexDirectory_PruneKeepsFilteredFiles(t *testing.T) {
	tmpDir := t.TempDir()
	pyPath := createTestFile(t, tmpDir, "a.py", pythonSource)
	jsPath := createTestFile(t, tmpDir, "b.js", jsSource)
	vendorPath := createTestFile(t, tmpDir, filepath.Join("vendor", "lib.py"), pythonSource)

	store := setupTestStorage(t)
	idx := New(store, newTestChunker(false))
	ctx := context.Background()

	stats, err := idx.IndexDirectory(ctx, tmpDir, &Config{IncludeVendor: true})
	require.NoError(t, err)
	require.Equal(t, 3, stats.FilesIndexed)

	// Narrower runs skip b.js and vendor/, but both are still on disk
	stats, err = idx.IndexDirectory(ctx, tmpDir, &Config{Prune: true, Languages: []string{"python"}})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesRemoved)

	for _, path := range []string{pyPath, jsPath, vendorPath} {
		_, err := store.GetFile(ctx, path)
		assert.NoError(t, err, path)
	}

	require.NoError(t, os.Remove(jsPath))
	stats, err = idx.IndexDirectory(ctx, tmpDir, &Config{Prune: true, Languages: []string{"python"}})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesRemoved)
	_, err = store.GetFile(ctx, jsPath)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIndexDirectory_ConcurrentCalls(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "app.py", pythonSource)

	idx := New(setupTestStorage(t), newTestChunker(false))

	// Hold the lock to simulate a run in progress
	require.True(t, idx.lock.TryAcquire())
	_, err := idx.IndexDirectory(context.Background(), tmpDir, nil)
	assert.ErrorIs(t, err, ErrIndexingInProgress)
	idx.lock.Release()

	_, err = idx.IndexDirectory(context.Background(), tmpDir, nil)
	assert.NoError(t, err)
}

func TestIndexDirectory_ContextCancellation(t *testing.T) {
	tmpDir := t.TempDir()
	for i := 0; i < 20; i++ {
		createTestFile(t, tmpDir, filepath.Join("pkg", string(rune('a'+i))+".py"), pythonSource)
	}

	idx := New(setupTestStorage(t), newTestChunker(false))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.IndexDirectory(ctx, tmpDir, &Config{Workers: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	// The lock is released after a failed run
	assert.True(t, idx.lock.TryAcquire())
	idx.lock.Release()
}

func TestIndexDirectory_WorkerConcurrency(t *testing.T) {
	tmpDir := t.TempDir()
	for i := 0; i < 12; i++ {
		createTestFile(t, tmpDir, string(rune('a'+i))+".py", pythonSource)
	}

	workerCounts := []int{1, 4, runtime.NumCPU()}
	for _, workers := range workerCounts {
		idx := New(setupTestStorage(t), newTestChunker(false))
		stats, err := idx.IndexDirectory(context.Background(), tmpDir, &Config{Workers: workers})
		require.NoError(t, err)
		assert.Equal(t, 12, stats.FilesIndexed, "workers=%d", workers)
		assert.Equal(t, 36, stats.ChunksCreated, "workers=%d", workers)
	}
}

func TestIndexDirectory_WithCache(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFile(t, tmpDir, "app.py", pythonSource)

	cache := chunker.NewCache(chunker.New(rules.Default(), parser.New(parser.Config{})), 16)
	idx := New(setupTestStorage(t), cache)

	_, err := idx.IndexDirectory(context.Background(), tmpDir, nil)
	require.NoError(t, err)
	_, err = idx.IndexDirectory(context.Background(), tmpDir, &Config{Force: true})
	require.NoError(t, err)

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCheckFileChanged(t *testing.T) {
	store := setupTestStorage(t)
	idx := New(store, newTestChunker(false))
	ctx := context.Background()

	hash := [32]byte{1, 2, 3}
	unchanged, err := idx.checkFileChanged(ctx, "/src/new.py", hash, false)
	require.NoError(t, err)
	assert.False(t, unchanged, "unknown files are changed")

	require.NoError(t, store.UpsertFile(ctx, &storage.File{
		Path: "/src/new.py", Language: "python", ContentHash: hash,
	}))

	unchanged, err = idx.checkFileChanged(ctx, "/src/new.py", hash, false)
	require.NoError(t, err)
	assert.True(t, unchanged)

	unchanged, err = idx.checkFileChanged(ctx, "/src/new.py", [32]byte{9}, false)
	require.NoError(t, err)
	assert.False(t, unchanged)

	unchanged, err = idx.checkFileChanged(ctx, "/src/new.py", hash, true)
	require.NoError(t, err)
	assert.False(t, unchanged, "force treats every file as changed")
}

// TestIndexLock_ConcurrentAcquisition checks that exactly one goroutine wins the lock
func TestIndexLock_ConcurrentAcquisition(t *testing.T) {
	var lock IndexLock
	var acquired atomic.Int32
	var wg sync.WaitGroup

	start := make(chan struct{})
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if lock.TryAcquire() {
				acquired.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), acquired.Load())

	lock.Release()
	assert.True(t, lock.TryAcquire(), "lock should be available after Release")
	lock.Release()
}
