// Package parser builds syntax trees for the chunker using tree-sitter.
//
// Grammars are bundled for Python, JavaScript, TypeScript and Go. Parse
// returns an in-memory copy of the tree (types.SyntaxNode), so the result can
// be walked after the underlying tree-sitter tree has been released.
//
// # Basic Usage
//
//	p := parser.New(parser.Config{})
//	tree, err := p.Parse(source, "python")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(tree.Type(), tree.ChildCount())
//
// # Error Handling
//
// Tree-sitter recovers from syntax errors by inserting ERROR and MISSING
// nodes. By default those nodes are returned like any other node. With
// Config.Strict a tree containing them is rejected with a *types.ParseError
// that points at the first problem:
//
//	p := parser.New(parser.Config{Strict: true})
//	_, err := p.Parse([]byte("def f(:\n"), "python")
//	// errors.Is(err, types.ErrParse) == true
//
// Unknown languages fail with *types.UnsupportedLanguageError.
//
// # Concurrency
//
// A Parser holds configuration only. Each call creates and closes its own
// tree-sitter parser, so a Parser may be shared between goroutines.
package parser
