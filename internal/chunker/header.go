package chunker

import (
	"strings"

	"github.com/dshills/treechunk/internal/rules"
	"github.com/dshills/treechunk/pkg/types"
)

// extractHeader returns the declaration text of a notable node: from its start
// up to the start of its first body child. For brace-delimited bodies the
// opening brace is included. Comments directly ahead of the body belong to the
// body, not the header. Nodes without a body child yield their first line.
func extractHeader(node types.Node, source []byte, table *rules.Table) string {
	start, end := node.StartByte(), node.EndByte()

	commentAt := -1
	for i := 0; i < node.ChildCount(); i++ {
		child := node.Child(i)
		if isComment(child.Type()) {
			if commentAt < 0 {
				commentAt = child.StartByte()
			}
			continue
		}
		if !table.IsBody(child.Type()) {
			commentAt = -1
			continue
		}

		end = child.StartByte()
		brace := end < child.EndByte() && source[end] == '{'
		if commentAt >= 0 {
			header := strings.TrimRight(string(source[start:commentAt]), " \t\f\r\n")
			if brace {
				header += " {"
			}
			return header
		}
		if brace {
			end++
		}
		return strings.TrimRight(string(source[start:end]), " \t\f\r\n")
	}

	text := string(source[start:end])
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[:nl]
	}
	return strings.TrimRight(text, " \t\f\r")
}

func isComment(nodeType string) bool {
	return nodeType == "comment" || nodeType == "line_comment" || nodeType == "block_comment"
}

// oneLine collapses multi-line text into a single line, joining the trimmed
// non-empty lines with single spaces.
func oneLine(text string) string {
	lines := strings.Split(text, "\n")
	parts := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

// placeholder builds the single line that stands in for a nested chunk
func placeholder(header string, id int) string {
	label := oneLine(header)
	if label == "" {
		return types.ChunkRef(id)
	}
	return label + " " + types.ChunkRef(id)
}
