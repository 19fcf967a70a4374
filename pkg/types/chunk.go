package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// ChunkType represents the classification of a chunk. Values other than
// ChunkRoot come from the Kind of the rule that made a node notable, so the
// set is open; the constants below are the kinds the built-in tables use.
type ChunkType string

const (
	ChunkRoot      ChunkType = "root"
	ChunkFunction  ChunkType = "function"
	ChunkMethod    ChunkType = "method"
	ChunkClass     ChunkType = "class"
	ChunkInterface ChunkType = "interface"
	ChunkTypeDecl  ChunkType = "type"
	ChunkImport    ChunkType = "import"
)

// RootID is the id of the root chunk of every chunk set
const RootID = 0

// NoParent is the ParentID of the root chunk
const NoParent = -1

// Chunk is one extracted, independently readable unit of source text.
//
// The first six fields form the output contract. Content is dedented to
// column 0 (except for the root chunk) and every nested notable node is
// replaced by a single placeholder line ending in ChunkRef(child.ID).
type Chunk struct {
	ID        int       `json:"id"`
	Type      ChunkType `json:"type"`
	File      string    `json:"file"`
	StartByte int       `json:"start_byte"`
	EndByte   int       `json:"end_byte"`
	Content   string    `json:"content"`

	// Metadata
	Language    string `json:"language,omitempty"`
	ParentID    int    `json:"parent_id"`
	ChildIDs    []int  `json:"child_ids,omitempty"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	Indent      string `json:"indent,omitempty"` // prefix stripped from Content
	TokenCount  int    `json:"token_count"`
	ContentHash string `json:"content_hash"` // SHA-256, hex encoded
}

// ChunkRef returns the placeholder reference text for a chunk id
func ChunkRef(id int) string {
	return fmt.Sprintf("-> chunk_%d", id)
}

// IsRoot reports whether c is the root chunk of its set
func (c *Chunk) IsRoot() bool {
	return c.Type == ChunkRoot
}

// ComputeTokenCount estimates the number of tokens in the chunk
// Uses a simple heuristic: characters / 4
func (c *Chunk) ComputeTokenCount() int {
	c.TokenCount = len(c.Content) / 4
	return c.TokenCount
}

// ComputeContentHash computes the SHA-256 hash of the chunk content
func (c *Chunk) ComputeContentHash() {
	sum := sha256.Sum256([]byte(c.Content))
	c.ContentHash = hex.EncodeToString(sum[:])
}

// Clone returns a deep copy of the chunk
func (c *Chunk) Clone() *Chunk {
	cp := *c
	if c.ChildIDs != nil {
		cp.ChildIDs = append([]int(nil), c.ChildIDs...)
	}
	return &cp
}

// ValidateRange checks the byte and line ranges of the chunk
func (c *Chunk) ValidateRange() error {
	if c.StartByte < 0 || c.EndByte < c.StartByte {
		return errors.New("invalid byte range")
	}

	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}

	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}

	return nil
}

// Validate performs comprehensive validation of the chunk
func (c *Chunk) Validate() error {
	if c.ID < 0 {
		return errors.New("chunk ID must not be negative")
	}

	if c.Type == "" {
		return errors.New("chunk type is required")
	}

	if c.IsRoot() != (c.ID == RootID) {
		return errors.New("only chunk 0 can be the root chunk")
	}

	if c.IsRoot() && c.ParentID != NoParent {
		return errors.New("root chunk cannot have a parent")
	}

	if !c.IsRoot() && (c.ParentID < 0 || c.ParentID >= c.ID) {
		return errors.New("parent ID must be lower than the chunk ID")
	}

	if err := c.ValidateRange(); err != nil {
		return err
	}

	// Verify content hash is computed
	if c.ContentHash == "" {
		return errors.New("content hash must be computed")
	}

	return nil
}
