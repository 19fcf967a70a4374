// Command treechunk splits source files into hierarchical, dedented chunks
// and serves them over the CLI, MCP (stdio) and HTTP.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/dshills/treechunk/internal/chunker"
	"github.com/dshills/treechunk/internal/config"
	"github.com/dshills/treechunk/internal/logging"
	"github.com/dshills/treechunk/internal/parser"
	"github.com/dshills/treechunk/internal/rules"
	"github.com/dshills/treechunk/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// CLI defines the command-line interface for treechunk.
type CLI struct {
	// Global flags override the TREECHUNK_* environment
	DB           string `name:"db" help:"Database path (overrides TREECHUNK_DB_PATH)"`
	Rules        string `name:"rules" help:"YAML rule tables merged over the built-in ones" type:"existingfile"`
	ImportChunks bool   `name:"import-chunks" help:"Chunk import statements (overrides TREECHUNK_IMPORT_CHUNKS)"`
	LogLevel     string `name:"log-level" help:"Log level: debug, info, warn, error"`
	LogFormat    string `name:"log-format" help:"Log format: text, json"`

	Chunk      ChunkCmd      `cmd:"" help:"Chunk one source file and print the chunks"`
	Index      IndexCmd      `cmd:"" help:"Chunk a directory tree into the index"`
	Search     SearchCmd     `cmd:"" help:"Full-text search over indexed chunks"`
	Reassemble ReassembleCmd `cmd:"" help:"Rebuild an indexed file from its stored chunks"`
	Status     StatusCmd     `cmd:"" help:"Show index statistics"`
	ServeMCP   ServeMCPCmd   `cmd:"" name:"serve-mcp" help:"Serve MCP tools on stdio"`
	ServeHTTP  ServeHTTPCmd  `cmd:"" name:"serve-http" help:"Serve the chunking HTTP API"`
	Languages  LanguagesCmd  `cmd:"" help:"List supported languages"`
	Version    VersionCmd    `cmd:"" help:"Print version information"`
}

// app carries the resolved configuration and shared services into commands
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	stdout io.Writer
	ctx    context.Context
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("treechunk"),
		kong.Description("Hierarchical tree-sitter code chunking"),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, &cli, os.Stdout, os.Stderr)
	kctx.FatalIfErrorf(err)

	err = kctx.Run(a)
	kctx.FatalIfErrorf(err)
}

// newApp loads configuration, applies flag overrides and builds the logger.
// Logs always go to stderr: stdout carries command output and the MCP stream.
func newApp(ctx context.Context, cli *CLI, stdout, stderr io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cli.DB != "" {
		cfg.DBPath = cli.DB
	}
	if cli.Rules != "" {
		cfg.RulesFile = cli.Rules
	}
	if cli.ImportChunks {
		cfg.ImportChunks = true
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.LogFormat = cli.LogFormat
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	logger := logging.New(level, format, stderr)
	slog.SetDefault(logger)

	return &app{cfg: cfg, logger: logger, stdout: stdout, ctx: ctx}, nil
}

// registry returns the built-in rule tables merged with the configured rules file
func (a *app) registry() (*rules.Registry, error) {
	reg := rules.Default()
	if a.cfg.RulesFile != "" {
		tables, err := rules.LoadFile(a.cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}
		a.logger.Debug("loaded rule tables", "file", a.cfg.RulesFile, "tables", len(tables))
		reg = reg.Merge(tables...)
	}

	if a.cfg.ImportChunks {
		reg = reg.WithImportChunks()
	}
	return reg, nil
}

// chunker builds a cached chunker backed by the tree-sitter parser
func (a *app) chunker(strict bool) (*chunker.Cache, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	p := parser.New(parser.Config{Strict: strict || a.cfg.StrictParse})
	return chunker.NewCache(chunker.New(reg, p), a.cfg.CacheSize), nil
}

// openStorage opens the configured database, creating its directory
func (a *app) openStorage() (*storage.SQLiteStorage, error) {
	if err := a.cfg.EnsureDBDir(); err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStorage(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.logger.Debug("storage opened", "path", a.cfg.DBPath, "driver", storage.DriverName)
	return store, nil
}
