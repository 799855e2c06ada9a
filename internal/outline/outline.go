// Package outline implements the typed outline AST of spec.md §3/§4.2: a
// tree of sections with citation bindings, serialized as Markdown with
// inline <citation> tags and parsed back losslessly.
//
// Grounded on the teacher's domain-model style in
// internal/agent/domain/types.go (plain structs, no reflection, explicit
// tree walks) and the Action Protocol's tag grammar
// (internal/protocol/action.go, itself grounded on
// internal/agent/ports/parser.go).
package outline

import "fmt"

// Node is one section of the report outline (spec §3 OutlineNode).
type Node struct {
	ID        string
	Title     string
	Level     int
	Bullets   []string
	Citations []string // ordered, deduplicated evidence IDs
	Children  []*Node
}

// New constructs a root container. The root itself is never rendered; its
// Children are the level-1 sections of the document.
func New() *Node {
	return &Node{ID: "root", Level: 0}
}

// AssignIDs walks the tree depth-first and assigns stable path-based IDs
// (spec §3: "sec_1_2_3") based on sibling position, overwriting any
// previous IDs. Call this after structural edits and before rendering.
func AssignIDs(root *Node) {
	for i, child := range root.Children {
		assignPath(child, fmt.Sprintf("sec_%d", i+1))
	}
}

func assignPath(n *Node, path string) {
	n.ID = path
	for i, child := range n.Children {
		assignPath(child, fmt.Sprintf("%s_%d", path, i+1))
	}
}

// Walk invokes fn for every node in the tree rooted at root, depth-first,
// excluding root itself.
func Walk(root *Node, fn func(*Node)) {
	for _, child := range root.Children {
		fn(child)
		Walk(child, fn)
	}
}

// Leaves returns every node with no children, depth-first.
func Leaves(root *Node) []*Node {
	var out []*Node
	Walk(root, func(n *Node) {
		if len(n.Children) == 0 {
			out = append(out, n)
		}
	})
	return out
}

// AllCitations returns the deduplicated union of every citation in the tree.
func AllCitations(root *Node) []string {
	seen := make(map[string]struct{})
	var out []string
	Walk(root, func(n *Node) {
		for _, id := range n.Citations {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	})
	return out
}

// DescendantCitations returns the union of n's own citations plus every
// descendant's citations (spec §4.4: "candidate_ids = node.citations ∪
// citations of all descendants").
func DescendantCitations(n *Node) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(ids []string) {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	add(n.Citations)
	for _, child := range n.Children {
		add(DescendantCitations(child))
	}
	return out
}

// Find returns the node with the given ID, or nil.
func Find(root *Node, id string) *Node {
	var found *Node
	Walk(root, func(n *Node) {
		if found == nil && n.ID == id {
			found = n
		}
	})
	return found
}

// NodesAtLevel returns every node at the given heading level, depth-first.
func NodesAtLevel(root *Node, level int) []*Node {
	var out []*Node
	Walk(root, func(n *Node) {
		if n.Level == level {
			out = append(out, n)
		}
	})
	return out
}
