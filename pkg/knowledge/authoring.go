package knowledge

import (
	"helpdesk-be/pkg/apperr"
)

// AddChild appends child under the node with parentID. An empty parentID adds
// a new top-level category. Adding under a leaf is rejected: leaves never
// have children.
func AddChild(t Tree, parentID string, child Node) (Tree, error) {
	if parentID == "" {
		out := append(Tree{}, t...)
		return append(out, child), nil
	}

	found := false
	var walk func(nodes []Node) ([]Node, error)
	walk = func(nodes []Node) ([]Node, error) {
		out := make([]Node, 0, len(nodes))
		for _, n := range nodes {
			if n.Meta().ID == parentID {
				found = true
				b, ok := n.(*Branch)
				if !ok {
					return nil, apperr.Invalid("parentId", "cannot add a child to a leaf node")
				}
				nb := *b
				nb.Children = append(append([]Node{}, b.Children...), child)
				out = append(out, &nb)
				continue
			}
			if b, ok := n.(*Branch); ok {
				kids, err := walk(b.Children)
				if err != nil {
					return nil, err
				}
				nb := *b
				nb.Children = kids
				out = append(out, &nb)
				continue
			}
			out = append(out, n)
		}
		return out, nil
	}

	out, err := walk(t)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("node", parentID)
	}
	return Tree(out), nil
}

// ReplaceNode swaps the node with the same id for updated. When both are
// branches the existing children are kept, since the input form only edits
// the node itself.
func ReplaceNode(t Tree, updated Node) (Tree, error) {
	id := updated.Meta().ID
	found := false

	var walk func(nodes []Node) []Node
	walk = func(nodes []Node) []Node {
		out := make([]Node, 0, len(nodes))
		for _, n := range nodes {
			if n.Meta().ID == id {
				found = true
				if ub, ok := updated.(*Branch); ok {
					nb := *ub
					nb.Children = ChildrenOf(n)
					out = append(out, &nb)
				} else {
					out = append(out, updated)
				}
				continue
			}
			if b, ok := n.(*Branch); ok {
				nb := *b
				nb.Children = walk(b.Children)
				out = append(out, &nb)
				continue
			}
			out = append(out, n)
		}
		return out
	}

	out := walk(t)
	if !found {
		return nil, apperr.NotFound("node", id)
	}
	return Tree(out), nil
}

// RemoveNode deletes the node with id together with its subtree.
func RemoveNode(t Tree, id string) (Tree, error) {
	found := false

	var walk func(nodes []Node) []Node
	walk = func(nodes []Node) []Node {
		out := make([]Node, 0, len(nodes))
		for _, n := range nodes {
			if n.Meta().ID == id {
				found = true
				continue
			}
			if b, ok := n.(*Branch); ok {
				nb := *b
				nb.Children = walk(b.Children)
				out = append(out, &nb)
				continue
			}
			out = append(out, n)
		}
		return out
	}

	out := walk(t)
	if !found {
		return nil, apperr.NotFound("node", id)
	}
	return Tree(out), nil
}
