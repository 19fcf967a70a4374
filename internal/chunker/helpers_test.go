package chunker

import (
	"sort"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/treechunk/pkg/types"
)

// treeBuilder builds syntax trees over a source string. Leaves are located
// by searching forward from the end of the previous leaf, so nodes must be
// built in source order.
type treeBuilder struct {
	t   *testing.T
	src string
	pos int
}

func newTreeBuilder(t *testing.T, src string) *treeBuilder {
	return &treeBuilder{t: t, src: src}
}

func (b *treeBuilder) leaf(kind, snippet string) *types.SyntaxNode {
	i := strings.Index(b.src[b.pos:], snippet)
	require.GreaterOrEqual(b.t, i, 0, "snippet %q not found after offset %d", snippet, b.pos)
	start := b.pos + i
	b.pos = start + len(snippet)
	return types.NewNode(kind, start, b.pos)
}

func (b *treeBuilder) node(kind string, children ...*types.SyntaxNode) *types.SyntaxNode {
	require.NotEmpty(b.t, children)
	return types.NewNode(kind, children[0].Start, children[len(children)-1].End, children...)
}

func (b *treeBuilder) root(kind string, children ...*types.SyntaxNode) *types.SyntaxNode {
	return types.NewNode(kind, 0, len(b.src), children...)
}

// fakeParser returns a fixed tree and counts calls
type fakeParser struct {
	tree  types.Node
	err   error
	calls atomic.Int64
}

func (p *fakeParser) Parse(source []byte, language string) (types.Node, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return p.tree, nil
}

func chunkTree(t *testing.T, src, language string, tree types.Node) []*types.Chunk {
	t.Helper()
	c := New(nil, &fakeParser{tree: tree})
	chunks, err := c.Chunk([]byte(src), "test", language)
	require.NoError(t, err)
	assertWellFormed(t, src, chunks)
	return chunks
}

// assertWellFormed checks the structural guarantees of a chunk set and that
// it reassembles into the source
func assertWellFormed(t *testing.T, src string, chunks []*types.Chunk) {
	t.Helper()
	assertStructure(t, src, chunks)

	rebuilt, err := Reassemble(chunks)
	require.NoError(t, err)
	assert.Equal(t, trimLines(src), trimLines(rebuilt))
}

func assertStructure(t *testing.T, src string, chunks []*types.Chunk) {
	t.Helper()
	require.NotEmpty(t, chunks)

	root := chunks[0]
	assert.Equal(t, types.ChunkRoot, root.Type)
	assert.Equal(t, 0, root.StartByte)
	assert.Equal(t, len(src), root.EndByte)
	assert.Equal(t, types.NoParent, root.ParentID)

	byID := make(map[int]*types.Chunk, len(chunks))
	for i, c := range chunks {
		assert.Equal(t, i, c.ID, "ids follow list order")
		assert.NoError(t, c.Validate())
		byID[c.ID] = c
	}

	for _, c := range chunks[1:] {
		parent, ok := byID[c.ParentID]
		require.True(t, ok, "chunk %d has unknown parent %d", c.ID, c.ParentID)
		assert.Less(t, parent.ID, c.ID)
		assert.LessOrEqual(t, parent.StartByte, c.StartByte)
		assert.GreaterOrEqual(t, parent.EndByte, c.EndByte)
		if !parent.IsRoot() {
			assert.True(t, parent.EndByte-parent.StartByte > c.EndByte-c.StartByte,
				"chunk %d must be strictly inside chunk %d", c.ID, parent.ID)
		}
		assert.Contains(t, parent.ChildIDs, c.ID)

		// Exactly one placeholder across the whole set
		refs := 0
		for _, other := range chunks {
			refs += countRefs(other.Content, c.ID)
		}
		assert.Equal(t, 1, refs, "chunk %d must be referenced exactly once", c.ID)
		assert.Equal(t, 1, countRefs(parent.Content, c.ID))

		// Content never holds the raw text of a chunked node
		raw := src[c.StartByte:c.EndByte]
		if strings.Contains(raw, "\n") {
			assert.NotContains(t, parent.Content, raw)
		}
	}

	for _, c := range chunks {
		kids := make([]*types.Chunk, 0, len(c.ChildIDs))
		for _, id := range c.ChildIDs {
			kids = append(kids, byID[id])
		}
		sort.Slice(kids, func(i, j int) bool { return kids[i].StartByte < kids[j].StartByte })
		for i := 1; i < len(kids); i++ {
			assert.LessOrEqual(t, kids[i-1].EndByte, kids[i].StartByte, "siblings must not overlap")
		}
	}
}

func countRefs(text string, id int) int {
	n := 0
	for {
		i := indexRef(text, types.ChunkRef(id))
		if i < 0 {
			return n
		}
		n++
		text = text[i+1:]
	}
}

// trimLines removes trailing whitespace from every line
func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\f\r")
	}
	return strings.Join(lines, "\n")
}
