package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validChunk() *Chunk {
	c := &Chunk{
		ID:        1,
		Type:      ChunkFunction,
		File:      "a.py",
		StartByte: 0,
		EndByte:   10,
		Content:   "def f():\n    pass",
		ParentID:  0,
		StartLine: 1,
		EndLine:   2,
	}
	c.ComputeContentHash()
	c.ComputeTokenCount()
	return c
}

func TestChunkRef(t *testing.T) {
	assert.Equal(t, "-> chunk_0", ChunkRef(0))
	assert.Equal(t, "-> chunk_42", ChunkRef(42))
}

func TestChunk_ComputeTokenCount(t *testing.T) {
	c := &Chunk{Content: "abcdefgh"}
	assert.Equal(t, 2, c.ComputeTokenCount())
	assert.Equal(t, 2, c.TokenCount)
}

func TestChunk_ComputeContentHash(t *testing.T) {
	a := &Chunk{Content: "return 1"}
	b := &Chunk{Content: "return 1"}
	c := &Chunk{Content: "return 2"}
	a.ComputeContentHash()
	b.ComputeContentHash()
	c.ComputeContentHash()

	assert.Len(t, a.ContentHash, 64)
	assert.Equal(t, a.ContentHash, b.ContentHash)
	assert.NotEqual(t, a.ContentHash, c.ContentHash)
}

func TestChunk_Clone(t *testing.T) {
	c := validChunk()
	c.ChildIDs = []int{2, 3}

	cp := c.Clone()
	cp.ChildIDs[0] = 99
	cp.Content = "changed"

	assert.Equal(t, []int{2, 3}, c.ChildIDs)
	assert.Equal(t, "def f():\n    pass", c.Content)
}

func TestChunk_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Chunk)
		wantErr bool
	}{
		{"valid", func(c *Chunk) {}, false},
		{"negative id", func(c *Chunk) { c.ID = -1 }, true},
		{"missing type", func(c *Chunk) { c.Type = "" }, true},
		{"root type on non-zero id", func(c *Chunk) { c.Type = ChunkRoot }, true},
		{"parent after child", func(c *Chunk) { c.ParentID = 5 }, true},
		{"inverted bytes", func(c *Chunk) { c.StartByte = 20 }, true},
		{"zero line", func(c *Chunk) { c.StartLine = 0 }, true},
		{"inverted lines", func(c *Chunk) { c.StartLine = 3 }, true},
		{"missing hash", func(c *Chunk) { c.ContentHash = "" }, true},
		{"valid root", func(c *Chunk) {
			c.ID = RootID
			c.Type = ChunkRoot
			c.ParentID = NoParent
		}, false},
		{"root with parent", func(c *Chunk) {
			c.ID = RootID
			c.Type = ChunkRoot
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validChunk()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestErrors_Is(t *testing.T) {
	cause := errors.New("boom")

	var err error = &UnsupportedLanguageError{Language: "cobol"}
	assert.True(t, errors.Is(err, ErrUnsupportedLanguage))
	assert.Contains(t, err.Error(), "cobol")

	err = fmt.Errorf("failed to chunk: %w", &ParseError{File: "a.py", Language: "python", Err: cause})
	assert.True(t, errors.Is(err, ErrParse))
	assert.True(t, errors.Is(err, cause))

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "a.py", parseErr.File)

	err = &MalformedNodeError{NodeType: "block", StartByte: 5, EndByte: 50, SourceLen: 10, Reason: "range exceeds source"}
	assert.True(t, errors.Is(err, ErrMalformedNode))
	assert.False(t, errors.Is(err, ErrParse))
}

func TestRole(t *testing.T) {
	for _, role := range []Role{RoleIgnore, RoleNestingContainer, RoleNotableBlock} {
		parsed, err := ParseRole(role.String())
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}

	_, err := ParseRole("sometimes")
	assert.Error(t, err)
	assert.Equal(t, RoleIgnore, Role(0), "zero value must be ignore")
}

func TestSyntaxNode(t *testing.T) {
	root := NewNode("module", 0, 10,
		NewNode("function_definition", 0, 6, NewNode("block", 3, 6)),
		NewNode("expression_statement", 7, 10),
	)

	var n Node = root
	assert.Equal(t, "module", n.Type())
	assert.Equal(t, 2, n.ChildCount())
	assert.Equal(t, "function_definition", n.Child(0).Type())
	assert.Equal(t, 3, n.Child(0).Child(0).StartByte())
	assert.Equal(t, 4, root.Count())
}
