package document

import (
	"fmt"
	"slices"
)

// Tree is an ordered forest of blocks. Root order is document order.
type Tree struct {
	nodes []Node
	roots []NodeID
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int { return len(t.nodes) }

// At returns the node with the given id. It panics on an unknown id, which
// is always a programming error.
func (t *Tree) At(id NodeID) Node {
	if id < 0 || int(id) >= len(t.nodes) {
		panic(fmt.Sprintf("document: node %d out of range (len %d)", id, len(t.nodes)))
	}
	return t.nodes[id]
}

// Roots returns the top-level blocks in document order.
func (t *Tree) Roots() []NodeID { return slices.Clone(t.roots) }

// Walk visits every node depth-first in document order. Returning false from
// fn skips the node's children.
func (t *Tree) Walk(fn func(n Node, depth int) bool) {
	var visit func(id NodeID, depth int)
	visit = func(id NodeID, depth int) {
		n := t.nodes[id]
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, r := range t.roots {
		visit(r, 0)
	}
}

// Descendants returns every node below id in document order.
func (t *Tree) Descendants(id NodeID) []NodeID {
	var out []NodeID
	var visit func(NodeID)
	visit = func(p NodeID) {
		for _, c := range t.nodes[p].Children {
			out = append(out, c)
			visit(c)
		}
	}
	visit(id)
	return out
}

// Headings returns heading nodes in document order, including headings
// nested in keep-together groups.
func (t *Tree) Headings() []Node {
	var hs []Node
	t.Walk(func(n Node, _ int) bool {
		if n.Kind() == KindHeading {
			hs = append(hs, n)
		}
		return true
	})
	return hs
}

// FirstRoot returns the first top-level node of kind k.
func (t *Tree) FirstRoot(k Kind) (NodeID, bool) {
	for _, r := range t.roots {
		if t.nodes[r].Kind() == k {
			return r, true
		}
	}
	return NoParent, false
}

// HasContent reports whether the tree holds any block other than page breaks.
func (t *Tree) HasContent() bool {
	for _, r := range t.roots {
		if t.nodes[r].Kind() != KindManualPageBreak {
			return true
		}
	}
	return false
}

// Prepend returns a new tree with n as the first root.
func (t *Tree) Prepend(n Node) (*Tree, NodeID) {
	return t.InsertAfter(NoParent, n)
}

// InsertAfter returns a new tree with n placed as a root right after the
// root anchor, or first when anchor is NoParent. The receiver is unchanged.
func (t *Tree) InsertAfter(anchor NodeID, n Node) (*Tree, NodeID) {
	pos := 0
	if anchor != NoParent {
		i := slices.Index(t.roots, anchor)
		if i < 0 {
			panic(fmt.Sprintf("document: anchor %d is not a root", anchor))
		}
		pos = i + 1
	}

	id := NodeID(len(t.nodes))
	n.ID = id
	n.Parent = NoParent
	n.Children = nil

	nodes := make([]Node, len(t.nodes), len(t.nodes)+1)
	copy(nodes, t.nodes)
	nodes = append(nodes, n)

	roots := make([]NodeID, 0, len(t.roots)+1)
	roots = append(roots, t.roots[:pos]...)
	roots = append(roots, id)
	roots = append(roots, t.roots[pos:]...)

	return &Tree{nodes: nodes, roots: roots}, id
}

// Builder assembles a Tree. It is not safe for concurrent use.
type Builder struct {
	nodes []Node
	roots []NodeID
}

// Add appends n under parent (NoParent for a root) and returns its id.
func (b *Builder) Add(parent NodeID, n Node) NodeID {
	id := NodeID(len(b.nodes))
	n.ID = id
	n.Parent = parent
	n.Children = nil
	b.nodes = append(b.nodes, n)
	if parent == NoParent {
		b.roots = append(b.roots, id)
	} else {
		b.nodes[parent].Children = append(b.nodes[parent].Children, id)
	}
	return id
}

// Node gives mutable access to a node still under construction.
func (b *Builder) Node(id NodeID) *Node { return &b.nodes[id] }

// Len returns the number of nodes added so far.
func (b *Builder) Len() int { return len(b.nodes) }

// Build returns the finished tree and resets the builder.
func (b *Builder) Build() *Tree {
	t := &Tree{nodes: b.nodes, roots: b.roots}
	b.nodes, b.roots = nil, nil
	return t
}
