package chunker

import (
	"fmt"
	"strings"

	"github.com/dshills/treechunk/pkg/types"
)

// Reassemble rebuilds the original source text from a chunk set by
// re-indenting every chunk with its Indent and substituting placeholders
// recursively, starting from the root chunk.
//
// The result equals the original source except for whitespace on lines that
// were blank or did not carry their chunk's indentation prefix.
func Reassemble(chunks []*types.Chunk) (string, error) {
	r := &reassembler{
		byID: make(map[int]*types.Chunk, len(chunks)),
		used: make(map[int]bool, len(chunks)),
	}
	for _, c := range chunks {
		if _, dup := r.byID[c.ID]; dup {
			return "", fmt.Errorf("duplicate chunk id %d", c.ID)
		}
		r.byID[c.ID] = c
	}

	root, ok := r.byID[types.RootID]
	if !ok {
		return "", fmt.Errorf("chunk set has no root chunk")
	}

	text, err := r.expand(root)
	if err != nil {
		return "", err
	}

	if len(r.used) != len(chunks)-1 {
		return "", fmt.Errorf("%d chunks are not referenced by any placeholder", len(chunks)-1-len(r.used))
	}

	return text, nil
}

type reassembler struct {
	byID map[int]*types.Chunk
	used map[int]bool
}

func (r *reassembler) expand(c *types.Chunk) (string, error) {
	text := Reindent(c.Indent, c.Content)

	for _, childID := range c.ChildIDs {
		child, ok := r.byID[childID]
		if !ok {
			return "", fmt.Errorf("chunk %d references missing chunk %d", c.ID, childID)
		}
		if r.used[childID] {
			return "", fmt.Errorf("chunk %d is referenced more than once", childID)
		}
		r.used[childID] = true

		childText, err := r.expand(child)
		if err != nil {
			return "", err
		}

		text, err = substitute(text, child, childText)
		if err != nil {
			return "", fmt.Errorf("chunk %d: %w", c.ID, err)
		}
	}

	return text, nil
}

// substitute replaces the placeholder of child in text with childText
func substitute(text string, child *types.Chunk, childText string) (string, error) {
	ref := types.ChunkRef(child.ID)
	refAt := indexRef(text, ref)
	if refAt < 0 {
		return "", fmt.Errorf("placeholder for chunk %d not found", child.ID)
	}

	// The placeholder label is the child's header collapsed to one line, so
	// it is a prefix of the collapsed child content. The earliest column on
	// the line where that holds is where the child's text begins.
	lineStart := strings.LastIndexByte(text[:refAt], '\n') + 1
	flat := oneLine(child.Content)
	start := refAt
	for i := lineStart; i < refAt; i++ {
		if isIndent(text[i]) {
			continue
		}
		label := strings.TrimRight(text[i:refAt], " ")
		if strings.HasPrefix(flat, label) {
			start = i
			break
		}
	}

	return text[:start] + childText + text[refAt+len(ref):], nil
}

// indexRef finds ref in text where it is not followed by another digit, so
// that chunk_1 does not match chunk_12.
func indexRef(text, ref string) int {
	offset := 0
	for {
		i := strings.Index(text[offset:], ref)
		if i < 0 {
			return -1
		}
		end := offset + i + len(ref)
		if end == len(text) || text[end] < '0' || text[end] > '9' {
			return offset + i
		}
		offset = end
	}
}
