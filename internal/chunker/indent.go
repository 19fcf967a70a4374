package chunker

import "strings"

func isIndent(b byte) bool {
	return b == ' ' || b == '\t' || b == '\f'
}

// DetectPrefix returns the indentation prefix of the line containing offset:
// the whitespace between the start of that line and its first non-whitespace
// character, never extending past offset. The prefix is taken verbatim, so
// mixed tabs and spaces are preserved.
func DetectPrefix(source []byte, offset int) string {
	if offset > len(source) {
		offset = len(source)
	}

	lineStart := offset
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}

	end := lineStart
	for end < offset && isIndent(source[end]) {
		end++
	}

	return string(source[lineStart:end])
}

// StripPrefix removes prefix from the start of every line of text that begins
// with it. Lines that do not begin with prefix are left unmodified, so
// inconsistently indented input keeps its relative structure. An empty prefix
// is a no-op.
func StripPrefix(prefix, text string) string {
	if prefix == "" || text == "" {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, "\n")
}

// Reindent prepends prefix to every non-empty line of text except the first.
// It reverses StripPrefix for a chunk whose first line starts at the node's
// own column.
func Reindent(prefix, text string) string {
	if prefix == "" || text == "" {
		return text
	}

	lines := strings.Split(text, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = prefix + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
