// Package knowledge models the bilingual topic tree the widget navigates.
//
// A node is one of three variants sharing a common Base: a Branch with
// ordered children, an AnswerLeaf with localized content, or a ChatLeaf that
// hands the customer over to an operator. Callers switch on the concrete
// type instead of probing optional fields.
package knowledge

// RootID is the id of the synthetic sentinel seeding every navigation walk.
const RootID = "root"

// Base carries the fields every node variant has.
type Base struct {
	ID   string        `json:"id"`
	Name LocalizedText `json:"name"`
	Icon string        `json:"icon,omitempty"`
}

// Node is implemented by *Branch, *AnswerLeaf and *ChatLeaf only.
type Node interface {
	Meta() Base
	Kind() Kind
}

type Kind string

const (
	KindBranch Kind = "branch"
	KindAnswer Kind = "answer"
	KindChat   Kind = "chat"
)

type Branch struct {
	Base
	Children []Node
}

func (b *Branch) Meta() Base { return b.Base }
func (b *Branch) Kind() Kind { return KindBranch }

// AnswerLeaf holds self-service content. LeadsToChat survives only when an
// editor left the flag behind on a node that also has an answer; it is
// consulted when the answer is missing in the active language.
type AnswerLeaf struct {
	Base
	Answer      LocalizedText
	LeadsToChat bool
}

func (a *AnswerLeaf) Meta() Base { return a.Base }
func (a *AnswerLeaf) Kind() Kind { return KindAnswer }

type ChatLeaf struct {
	Base
}

func (c *ChatLeaf) Meta() Base { return c.Base }
func (c *ChatLeaf) Kind() Kind { return KindChat }

// Tree is the ordered list of top-level categories.
type Tree []Node

// Root builds the sentinel branch whose children are the whole tree.
func (t Tree) Root() *Branch {
	return &Branch{Base: Base{ID: RootID}, Children: t}
}

// ChildrenOf returns the ordered children of n. Leaves have none, which is
// what makes a malformed leaf behave as an empty branch.
func ChildrenOf(n Node) []Node {
	if b, ok := n.(*Branch); ok {
		return b.Children
	}
	return nil
}

// FindChild looks up id among the direct children of n.
func FindChild(n Node, id string) Node {
	for _, c := range ChildrenOf(n) {
		if c.Meta().ID == id {
			return c
		}
	}
	return nil
}

// Find performs a depth-first search for id.
func (t Tree) Find(id string) Node {
	var walk func(nodes []Node) Node
	walk = func(nodes []Node) Node {
		for _, n := range nodes {
			if n.Meta().ID == id {
				return n
			}
			if found := walk(ChildrenOf(n)); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(t)
}

// Count returns the number of nodes in the tree.
func (t Tree) Count() int {
	total := 0
	var walk func(nodes []Node)
	walk = func(nodes []Node) {
		for _, n := range nodes {
			total++
			walk(ChildrenOf(n))
		}
	}
	walk(t)
	return total
}
