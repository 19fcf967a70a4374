package types

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below via errors.Is
var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrParse               = errors.New("parse failed")
	ErrMalformedNode       = errors.New("malformed syntax node")
)

// UnsupportedLanguageError is returned when no rule table exists for a language.
// Retrying with the same language will not succeed.
type UnsupportedLanguageError struct {
	Language string
}

// Error implements the error interface
func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language %q", e.Language)
}

// Is reports whether target is ErrUnsupportedLanguage
func (e *UnsupportedLanguageError) Is(target error) bool {
	return target == ErrUnsupportedLanguage
}

// ParseError represents a failure of the syntax tree parser
type ParseError struct {
	File     string
	Language string
	Err      error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("failed to parse %s source: %v", e.Language, e.Err)
	}
	return fmt.Sprintf("failed to parse %s as %s: %v", e.File, e.Language, e.Err)
}

// Unwrap returns the underlying parser error
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrParse
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// MalformedNodeError indicates a syntax tree that is inconsistent with its source,
// such as a node whose byte range falls outside the source or its parent.
type MalformedNodeError struct {
	NodeType  string
	StartByte int
	EndByte   int
	SourceLen int
	Reason    string
}

// Error implements the error interface
func (e *MalformedNodeError) Error() string {
	return fmt.Sprintf("malformed %s node [%d, %d) in %d-byte source: %s",
		e.NodeType, e.StartByte, e.EndByte, e.SourceLen, e.Reason)
}

// Is reports whether target is ErrMalformedNode
func (e *MalformedNodeError) Is(target error) bool {
	return target == ErrMalformedNode
}

// Search result errors
var (
	ErrInvalidRank     = errors.New("rank must be >= 1")
	ErrMissingFileInfo = errors.New("file path is required")
	ErrMissingChunk    = errors.New("chunk is required")
)
