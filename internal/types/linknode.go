package types

import "strings"

// LinkNode is one page in a link map. Children keep API response order.
type LinkNode struct {
	Title    string      `json:"title"`
	Children []*LinkNode `json:"children,omitempty"`
	// Expanded is set when the node's links were fetched, as opposed to a node
	// cut off by depth or by an earlier visit.
	Expanded bool `json:"expanded,omitempty"`

	index map[string]int
}

// NewLinkNode creates a childless node.
func NewLinkNode(title string) *LinkNode {
	return &LinkNode{Title: title}
}

// AddChild appends child unless a child with the same title already exists.
// It reports whether the child was added.
func (n *LinkNode) AddChild(child *LinkNode) bool {
	if n.index == nil {
		n.reindex()
	}
	if _, ok := n.index[child.Title]; ok {
		return false
	}
	n.index[child.Title] = len(n.Children)
	n.Children = append(n.Children, child)
	return true
}

// Child returns the direct child with the given title.
func (n *LinkNode) Child(title string) (*LinkNode, bool) {
	if n.index == nil && len(n.Children) > 0 {
		n.reindex()
	}
	i, ok := n.index[title]
	if !ok {
		return nil, false
	}
	return n.Children[i], true
}

func (n *LinkNode) reindex() {
	n.index = make(map[string]int, len(n.Children))
	for i, c := range n.Children {
		n.index[c.Title] = i
	}
}

// IsLeaf reports whether the node has no children.
func (n *LinkNode) IsLeaf() bool { return len(n.Children) == 0 }

// Count returns the number of nodes in the subtree rooted at n.
func (n *LinkNode) Count() int {
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// Walk visits the subtree depth-first, root at depth 1. Returning false skips
// the node's children.
func (n *LinkNode) Walk(fn func(node *LinkNode, depth int) bool) {
	n.walk(fn, 1)
}

func (n *LinkNode) walk(fn func(*LinkNode, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Equal reports whether two trees have the same titles in the same shape and order.
func (n *LinkNode) Equal(other *LinkNode) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Title != other.Title || len(n.Children) != len(other.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// Render returns an indented text outline of the tree.
func (n *LinkNode) Render() string {
	var b strings.Builder
	n.Walk(func(node *LinkNode, depth int) bool {
		b.WriteString(strings.Repeat("  ", depth-1))
		if depth > 1 {
			b.WriteString("- ")
		}
		b.WriteString(node.Title)
		b.WriteByte('\n')
		return true
	})
	return b.String()
}
