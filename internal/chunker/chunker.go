package chunker

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/treechunk/internal/rules"
	"github.com/dshills/treechunk/pkg/types"
)

// Parser builds a syntax tree for source text in a language
type Parser interface {
	Parse(source []byte, language string) (types.Node, error)
}

// Chunker splits source files into a hierarchy of dedented chunks.
//
// A Chunker holds only immutable configuration and is safe for concurrent
// use; all per-call state lives in a walker created by each call.
type Chunker struct {
	rules  *rules.Registry
	parser Parser
}

// New creates a new Chunker instance
func New(reg *rules.Registry, parser Parser) *Chunker {
	if reg == nil {
		reg = rules.Default()
	}
	return &Chunker{
		rules:  reg,
		parser: parser,
	}
}

// Rules returns the rule registry the chunker classifies nodes with
func (c *Chunker) Rules() *rules.Registry {
	return c.rules
}

// Chunk splits source into chunks. The returned list starts with the root
// chunk covering the whole source, followed by one chunk per notable node in
// pre-order.
//
// Empty or whitespace-only source yields only the root chunk, with empty
// content. Errors are one of *types.UnsupportedLanguageError,
// *types.ParseError or *types.MalformedNodeError; no partial result is
// returned.
func (c *Chunker) Chunk(source []byte, filePath, language string) ([]*types.Chunk, error) {
	table, err := c.rules.Table(language)
	if err != nil {
		return nil, err
	}

	w := newWalker(source, filePath, language, table)

	var tree types.Node
	if len(bytes.TrimSpace(source)) > 0 {
		tree, err = c.parse(source, filePath, language)
		if err != nil {
			return nil, err
		}
	}

	if err := w.walkRoot(tree); err != nil {
		return nil, err
	}

	return sortChunks(w.chunks, w.order)
}

// ChunkFile reads and chunks a file. When language is empty it is detected
// from the file extension.
func (c *Chunker) ChunkFile(filePath, language string) ([]*types.Chunk, error) {
	if language == "" {
		var ok bool
		language, ok = c.rules.LanguageForExtension(filepath.Ext(filePath))
		if !ok {
			return nil, &types.UnsupportedLanguageError{Language: filepath.Ext(filePath)}
		}
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return c.Chunk(content, filePath, language)
}

func (c *Chunker) parse(source []byte, filePath, language string) (types.Node, error) {
	if c.parser == nil {
		return nil, &types.ParseError{File: filePath, Language: language, Err: errors.New("no parser configured")}
	}

	tree, err := c.parser.Parse(source, language)
	if err != nil {
		var parseErr *types.ParseError
		if errors.As(err, &parseErr) {
			return nil, &types.ParseError{File: filePath, Language: language, Err: parseErr.Err}
		}
		if errors.Is(err, types.ErrUnsupportedLanguage) {
			return nil, err
		}
		return nil, &types.ParseError{File: filePath, Language: language, Err: err}
	}

	if tree == nil {
		return nil, &types.ParseError{File: filePath, Language: language, Err: errors.New("parser returned no tree")}
	}

	return tree, nil
}
