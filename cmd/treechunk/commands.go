package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dshills/treechunk/internal/chunker"
	"github.com/dshills/treechunk/internal/httpapi"
	"github.com/dshills/treechunk/internal/indexer"
	"github.com/dshills/treechunk/internal/mcp"
	"github.com/dshills/treechunk/internal/parser"
	"github.com/dshills/treechunk/internal/searcher"
	"github.com/dshills/treechunk/internal/storage"
	"github.com/dshills/treechunk/pkg/types"
)

// ChunkCmd chunks one file and prints the result.
type ChunkCmd struct {
	File     string `arg:"" help:"Source file to chunk" type:"existingfile"`
	Language string `short:"l" help:"Language id (detected from the extension when omitted)"`
	Format   string `short:"f" help:"Output format" enum:"json,text" default:"json"`
	Strict   bool   `help:"Fail on syntax errors instead of chunking around them"`
}

func (c *ChunkCmd) Run(a *app) error {
	ch, err := a.chunker(c.Strict)
	if err != nil {
		return err
	}

	language := c.Language
	if language == "" {
		var ok bool
		language, ok = ch.Rules().LanguageForExtension(filepath.Ext(c.File))
		if !ok {
			return &types.UnsupportedLanguageError{Language: filepath.Ext(c.File)}
		}
	}

	source, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	chunks, err := ch.Chunk(source, c.File, language)
	if err != nil {
		return err
	}

	if c.Format == "text" {
		return writeChunksText(a, chunks)
	}
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(chunks)
}

func writeChunksText(a *app, chunks []*types.Chunk) error {
	for _, ch := range chunks {
		_, err := fmt.Fprintf(a.stdout, "=== chunk_%d %s lines %d-%d bytes [%d, %d) ===\n%s\n",
			ch.ID, ch.Type, ch.StartLine, ch.EndLine, ch.StartByte, ch.EndByte,
			strings.TrimRight(ch.Content, "\n"))
		if err != nil {
			return err
		}
	}
	return nil
}

// IndexCmd chunks a directory into the index.
type IndexCmd struct {
	Dir           string `arg:"" help:"Directory to index" type:"existingdir"`
	Force         bool   `help:"Re-chunk files even when unchanged"`
	Workers       int    `short:"w" help:"Concurrent workers (default: TREECHUNK_WORKERS)"`
	IncludeVendor bool   `name:"include-vendor" help:"Index vendor/ and node_modules/"`
	Prune         bool   `help:"Remove indexed files that no longer exist under the directory"`
}

func (c *IndexCmd) Run(a *app) error {
	ch, err := a.chunker(false)
	if err != nil {
		return err
	}
	store, err := a.openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	workers := c.Workers
	if workers <= 0 {
		workers = a.cfg.Workers
	}

	idx := indexer.New(store, ch, indexer.WithLogger(a.logger))
	stats, err := idx.IndexDirectory(a.ctx, c.Dir, &indexer.Config{
		Workers:       workers,
		Force:         c.Force,
		IncludeVendor: c.IncludeVendor,
		Prune:         c.Prune,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Indexed %d files (%d skipped, %d failed, %d removed), %d chunks in %v\n",
		stats.FilesIndexed, stats.FilesSkipped, stats.FilesFailed, stats.FilesRemoved,
		stats.ChunksCreated, stats.Duration.Round(time.Millisecond))
	for _, msg := range stats.ErrorMessages {
		fmt.Fprintf(a.stdout, "  failed: %s\n", msg)
	}
	return nil
}

// SearchCmd runs a full-text query against the index.
type SearchCmd struct {
	Query    string   `arg:"" help:"Search terms"`
	Limit    int      `short:"n" help:"Maximum results" default:"10"`
	Language []string `help:"Only chunks from these languages"`
	Type     []string `help:"Only chunks of these types"`
	Files    string   `help:"Glob pattern for file paths"`
}

func (c *SearchCmd) Run(a *app) error {
	store, err := a.openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	resp, err := searcher.NewSearcher(store).Search(a.ctx, searcher.SearchRequest{
		Query: c.Query,
		Limit: c.Limit,
		Filters: &storage.SearchFilters{
			Languages:   c.Language,
			ChunkTypes:  c.Type,
			FilePattern: c.Files,
		},
	})
	if err != nil {
		return err
	}

	if resp.TotalResults == 0 {
		fmt.Fprintln(a.stdout, "No results")
		return nil
	}
	for _, r := range resp.Results {
		fmt.Fprintf(a.stdout, "%d. %s:%d-%d chunk_%d %s (score %.3f)\n%s\n\n",
			r.Rank, r.FilePath, r.Chunk.StartLine, r.Chunk.EndLine,
			r.Chunk.ID, r.Chunk.Type, r.Score, r.Chunk.Content)
	}
	return nil
}

// ReassembleCmd rebuilds a file from the index.
type ReassembleCmd struct {
	File string `arg:"" help:"Indexed file path"`
}

func (c *ReassembleCmd) Run(a *app) error {
	path, err := filepath.Abs(c.File)
	if err != nil {
		return err
	}

	store, err := a.openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	file, err := store.GetFile(a.ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s is not indexed", path)
	}
	if err != nil {
		return err
	}

	chunks, err := store.ListChunksByFile(a.ctx, file.ID)
	if err != nil {
		return err
	}
	if len(chunks) == 0 && file.ParseError != nil {
		return fmt.Errorf("%s failed to chunk: %s", path, *file.ParseError)
	}

	source, err := chunker.Reassemble(chunks)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(a.stdout, source)
	return err
}

// StatusCmd prints index statistics.
type StatusCmd struct{}

func (c *StatusCmd) Run(a *app) error {
	store, err := a.openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	status, err := store.GetStatus(a.ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Database:       %s (%.2f MB, schema %s)\n", a.cfg.DBPath, status.IndexSizeMB, status.SchemaVersion)
	fmt.Fprintf(a.stdout, "Files:          %d (%d failed)\n", status.FilesCount, status.FailedFiles)
	fmt.Fprintf(a.stdout, "Chunks:         %d\n", status.ChunksCount)
	for _, lang := range sortedKeys(status.Languages) {
		fmt.Fprintf(a.stdout, "  %-12s  %d files\n", lang, status.Languages[lang])
	}
	if !status.LastIndexedAt.IsZero() {
		fmt.Fprintf(a.stdout, "Last indexed:   %s\n", status.LastIndexedAt.Format(time.RFC3339))
	}
	return nil
}

// ServeMCPCmd serves the MCP tools on stdio.
type ServeMCPCmd struct{}

func (c *ServeMCPCmd) Run(a *app) error {
	ch, err := a.chunker(false)
	if err != nil {
		return err
	}
	store, err := a.openStorage()
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(store, ch, a.logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	a.logger.Info("treechunk MCP server starting",
		"version", version, "build_mode", storage.BuildMode, "driver", storage.DriverName)
	err = server.Serve(a.ctx)
	if a.ctx.Err() != nil {
		a.logger.Info("server stopped")
		return nil
	}
	return err
}

// ServeHTTPCmd serves the HTTP API.
type ServeHTTPCmd struct {
	Addr string `help:"Listen address (default: TREECHUNK_HTTP_ADDR)"`
}

func (c *ServeHTTPCmd) Run(a *app) error {
	ch, err := a.chunker(false)
	if err != nil {
		return err
	}

	addr := c.Addr
	if addr == "" {
		addr = a.cfg.HTTPAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(&httpapi.Deps{Chunker: ch, Logger: a.logger}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", addr, "version", version)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return err
	case <-a.ctx.Done():
		a.logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// LanguagesCmd lists the supported languages.
type LanguagesCmd struct{}

func (c *LanguagesCmd) Run(a *app) error {
	reg, err := a.registry()
	if err != nil {
		return err
	}

	for _, name := range reg.Languages() {
		table, err := reg.Table(name)
		if err != nil {
			return err
		}
		grammar := "tree-sitter"
		if !parser.Supports(name) {
			grammar = "no grammar"
		}
		fmt.Fprintf(a.stdout, "%-12s %-12s %s\n", name, grammar, strings.Join(table.Extensions, " "))
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(a *app) error {
	fmt.Fprintf(a.stdout, "treechunk\n")
	fmt.Fprintf(a.stdout, "Version: %s\n", version)
	fmt.Fprintf(a.stdout, "Build Time: %s\n", buildTime)
	fmt.Fprintf(a.stdout, "Build Mode: %s\n", storage.BuildMode)
	fmt.Fprintf(a.stdout, "SQLite Driver: %s\n", storage.DriverName)
	fmt.Fprintf(a.stdout, "Grammars: %s\n", strings.Join(parser.Languages(), ", "))
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
