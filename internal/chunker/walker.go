package chunker

import (
	"sort"
	"strings"

	"github.com/dshills/treechunk/internal/rules"
	"github.com/dshills/treechunk/pkg/types"
)

// walker holds the state of a single chunking call. It is never shared
// between calls.
type walker struct {
	source   []byte
	file     string
	language string
	table    *rules.Table
	newlines []int // offsets of '\n' in source

	nextID int
	chunks map[int]*types.Chunk
	order  []int // ids in allocation (pre-order) order
}

// frame accumulates the content of the chunk currently being built
type frame struct {
	id       int
	buf      strings.Builder
	children []int
}

func newWalker(source []byte, file, language string, table *rules.Table) *walker {
	w := &walker{
		source:   source,
		file:     file,
		language: language,
		table:    table,
		chunks:   make(map[int]*types.Chunk),
	}
	for i, b := range source {
		if b == '\n' {
			w.newlines = append(w.newlines, i)
		}
	}
	return w
}

// allocate reserves the next chunk id
func (w *walker) allocate() int {
	id := w.nextID
	w.nextID++
	w.order = append(w.order, id)
	return id
}

// walkRoot builds the root chunk and, through it, every nested chunk.
// A nil tree yields a root chunk with empty content.
func (w *walker) walkRoot(tree types.Node) error {
	f := &frame{id: w.allocate()}

	if tree != nil {
		if err := w.checkNode(tree, 0, len(w.source)); err != nil {
			return err
		}
		if err := w.expand(tree, 0, len(w.source), f); err != nil {
			return err
		}
	}

	w.store(f, types.ChunkRoot, 0, len(w.source), "", types.NoParent, f.buf.String())
	return nil
}

// expand appends the text of [from, to) to f, where node's children lie
// inside that range. Notable children are replaced by placeholders,
// containers are expanded recursively and everything else is copied verbatim.
func (w *walker) expand(node types.Node, from, to int, f *frame) error {
	cursor := from

	for i := 0; i < node.ChildCount(); i++ {
		child := node.Child(i)
		if err := w.checkNode(child, cursor, to); err != nil {
			return err
		}

		f.buf.Write(w.source[cursor:child.StartByte()])

		switch w.table.RoleOf(child.Type()) {
		case types.RoleNotableBlock:
			id, header, err := w.notable(child, f.id)
			if err != nil {
				return err
			}
			f.buf.WriteString(placeholder(header, id))
			f.children = append(f.children, id)
		case types.RoleNestingContainer:
			if err := w.expand(child, child.StartByte(), child.EndByte(), f); err != nil {
				return err
			}
		default:
			f.buf.Write(w.source[child.StartByte():child.EndByte()])
		}

		cursor = child.EndByte()
	}

	f.buf.Write(w.source[cursor:to])
	return nil
}

// notable creates the chunk for a notable node and returns its id and header
func (w *walker) notable(node types.Node, parentID int) (int, string, error) {
	f := &frame{id: w.allocate()}

	if err := w.expand(node, node.StartByte(), node.EndByte(), f); err != nil {
		return 0, "", err
	}

	prefix := DetectPrefix(w.source, node.StartByte())
	content := StripPrefix(prefix, f.buf.String())
	w.store(f, w.table.KindOf(node.Type()), node.StartByte(), node.EndByte(), prefix, parentID, content)

	return f.id, extractHeader(node, w.source, w.table), nil
}

// checkNode verifies that node lies inside the source and inside [lo, hi)
func (w *walker) checkNode(node types.Node, lo, hi int) error {
	start, end := node.StartByte(), node.EndByte()

	reason := ""
	switch {
	case start < 0 || end < start || end > len(w.source):
		reason = "range falls outside the source"
	case start < lo:
		reason = "range overlaps a preceding sibling or starts before its parent"
	case end > hi:
		reason = "range extends past its parent"
	}

	if reason == "" {
		return nil
	}
	return &types.MalformedNodeError{
		NodeType:  node.Type(),
		StartByte: start,
		EndByte:   end,
		SourceLen: len(w.source),
		Reason:    reason,
	}
}

func (w *walker) store(f *frame, kind types.ChunkType, start, end int, indent string, parentID int, content string) {
	chunk := &types.Chunk{
		ID:        f.id,
		Type:      kind,
		File:      w.file,
		StartByte: start,
		EndByte:   end,
		Content:   content,
		Language:  w.language,
		ParentID:  parentID,
		ChildIDs:  f.children,
		StartLine: w.lineAt(start),
		EndLine:   w.lineAt(end - 1),
		Indent:    indent,
	}
	if end <= start {
		chunk.EndLine = chunk.StartLine
	}
	chunk.ComputeTokenCount()
	chunk.ComputeContentHash()

	w.chunks[f.id] = chunk
}

// lineAt returns the 1-based line number of a byte offset
func (w *walker) lineAt(offset int) int {
	if offset < 0 {
		offset = 0
	}
	return sort.SearchInts(w.newlines, offset) + 1
}
