package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/dshills/treechunk/internal/rules"
	"github.com/dshills/treechunk/pkg/types"
)

// grammars maps language ids to their tree-sitter grammars
var grammars = map[string]func() *sitter.Language{
	"python":     python.GetLanguage,
	"javascript": javascript.GetLanguage,
	"typescript": typescript.GetLanguage,
	"go":         golang.GetLanguage,
}

var extensions = rules.Default()

// Config controls parser behavior
type Config struct {
	// Strict rejects trees that contain ERROR or MISSING nodes. When false,
	// error nodes are kept in the tree like any other node.
	Strict bool
}

// Parser builds syntax trees with tree-sitter
type Parser struct {
	cfg Config
}

// New creates a new Parser instance
func New(cfg Config) *Parser {
	return &Parser{cfg: cfg}
}

// Parse parses source as language and returns the root of its syntax tree
func (p *Parser) Parse(source []byte, language string) (types.Node, error) {
	return p.ParseContext(context.Background(), source, language)
}

// ParseContext is Parse with a context that can cancel a long parse
func (p *Parser) ParseContext(ctx context.Context, source []byte, language string) (types.Node, error) {
	grammar, ok := grammars[language]
	if !ok {
		return nil, &types.UnsupportedLanguageError{Language: language}
	}

	// A tree-sitter parser is not safe for concurrent use, so every call gets its own
	tsParser := sitter.NewParser()
	defer tsParser.Close()
	tsParser.SetLanguage(grammar())

	tree, err := tsParser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, &types.ParseError{Language: language, Err: err}
	}
	if tree == nil {
		return nil, &types.ParseError{Language: language, Err: errors.New("parser returned no tree")}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, &types.ParseError{Language: language, Err: errors.New("tree has no root node")}
	}

	if p.cfg.Strict && root.HasError() {
		return nil, &types.ParseError{Language: language, Err: syntaxError(root)}
	}

	return materialize(root), nil
}

// materialize copies a tree-sitter node and its descendants into SyntaxNodes
// so the tree outlives the tree-sitter tree it came from
func materialize(n *sitter.Node) *types.SyntaxNode {
	count := int(n.ChildCount())
	node := &types.SyntaxNode{
		Kind:  n.Type(),
		Start: int(n.StartByte()),
		End:   int(n.EndByte()),
	}
	if count == 0 {
		return node
	}

	node.Children = make([]*types.SyntaxNode, 0, count)
	for i := 0; i < count; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		node.Children = append(node.Children, materialize(child))
	}
	return node
}

// syntaxError describes the first ERROR or MISSING node below n
func syntaxError(n *sitter.Node) error {
	bad := firstError(n)
	if bad == nil {
		return errors.New("syntax error")
	}

	pos := bad.StartPoint()
	if bad.IsMissing() {
		return fmt.Errorf("missing %s at line %d, column %d", bad.Type(), pos.Row+1, pos.Column+1)
	}
	return fmt.Errorf("syntax error at line %d, column %d", pos.Row+1, pos.Column+1)
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if bad := firstError(child); bad != nil {
			return bad
		}
	}
	return nil
}

// Supports reports whether a grammar is available for language
func Supports(language string) bool {
	_, ok := grammars[language]
	return ok
}

// Languages returns the languages with a grammar, sorted
func Languages() []string {
	langs := make([]string, 0, len(grammars))
	for lang := range grammars {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// DetectLanguage returns the language id for a file path based on its extension
func DetectLanguage(path string) (string, bool) {
	return extensions.LanguageForExtension(filepath.Ext(path))
}
