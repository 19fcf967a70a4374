package types

// Node is a syntax tree node as produced by a parser. Byte offsets are
// half-open ([StartByte, EndByte)) and children are ordered by position.
type Node interface {
	Type() string
	StartByte() int
	EndByte() int
	ChildCount() int
	Child(i int) Node
}

// SyntaxNode is a fully materialized Node. Parsers convert their native trees
// into SyntaxNodes so that no parser resources outlive a parse call.
type SyntaxNode struct {
	Kind     string
	Start    int
	End      int
	Children []*SyntaxNode
}

// NewNode creates a SyntaxNode
func NewNode(kind string, start, end int, children ...*SyntaxNode) *SyntaxNode {
	return &SyntaxNode{
		Kind:     kind,
		Start:    start,
		End:      end,
		Children: children,
	}
}

func (n *SyntaxNode) Type() string    { return n.Kind }
func (n *SyntaxNode) StartByte() int  { return n.Start }
func (n *SyntaxNode) EndByte() int    { return n.End }
func (n *SyntaxNode) ChildCount() int { return len(n.Children) }

// Child returns the i-th child
func (n *SyntaxNode) Child(i int) Node {
	return n.Children[i]
}

// Count returns the number of nodes in the subtree rooted at n
func (n *SyntaxNode) Count() int {
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}
