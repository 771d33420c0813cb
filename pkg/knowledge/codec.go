package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"

	"helpdesk-be/pkg/apperr"
)

// ErrEmptyTree is returned when a tree document exists but has no categories.
var ErrEmptyTree = errors.New("knowledge tree is empty")

// nodeDoc is the stored shape of a node: one object with optional fields.
type nodeDoc struct {
	ID          string        `json:"id"`
	Name        LocalizedText `json:"name"`
	Icon        string        `json:"icon,omitempty"`
	Children    []nodeDoc     `json:"children,omitempty"`
	Answer      LocalizedText `json:"answer,omitempty"`
	LeadsToChat bool          `json:"leadsToChat,omitempty"`
}

type treeDoc struct {
	Tree []nodeDoc `json:"tree"`
}

// rawNode defers every field so a type error stays local to one node.
type rawNode struct {
	ID          json.RawMessage `json:"id"`
	Name        json.RawMessage `json:"name"`
	Icon        json.RawMessage `json:"icon"`
	Children    json.RawMessage `json:"children"`
	Answer      json.RawMessage `json:"answer"`
	LeadsToChat json.RawMessage `json:"leadsToChat"`
}

type rawTree struct {
	Tree []json.RawMessage `json:"tree"`
}

// DecodeTree parses a knowledge base document. Malformed nodes never fail the
// decode; each one is reported as a *apperr.MalformedContentError in issues
// and, when its fields cannot be read, kept as an empty branch.
// An absent or empty "tree" field yields ErrEmptyTree.
func DecodeTree(data []byte) (tree Tree, issues []error, err error) {
	var doc rawTree
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode knowledge tree: %w", err)
	}
	if len(doc.Tree) == 0 {
		return nil, nil, ErrEmptyTree
	}

	tree = make(Tree, 0, len(doc.Tree))
	for _, raw := range doc.Tree {
		tree = append(tree, decodeNode(raw, &issues))
	}
	return tree, issues, nil
}

func decodeNode(raw json.RawMessage, issues *[]error) Node {
	var r rawNode
	if err := json.Unmarshal(raw, &r); err != nil {
		*issues = append(*issues, &apperr.MalformedContentError{Reason: "node is not an object"})
		return &Branch{}
	}

	var (
		d      nodeDoc
		kids   []json.RawMessage
		broken bool
	)
	field := func(name string, src json.RawMessage, dst interface{}) {
		if len(src) == 0 {
			return
		}
		if err := json.Unmarshal(src, dst); err != nil {
			broken = true
			*issues = append(*issues, &apperr.MalformedContentError{NodeID: d.ID, Reason: fmt.Sprintf("field %q: %v", name, err)})
		}
	}
	field("id", r.ID, &d.ID)
	field("name", r.Name, &d.Name)
	field("icon", r.Icon, &d.Icon)
	field("children", r.Children, &kids)
	field("answer", r.Answer, &d.Answer)
	field("leadsToChat", r.LeadsToChat, &d.LeadsToChat)

	if broken {
		return &Branch{Base: Base{ID: d.ID, Name: d.Name, Icon: d.Icon}}
	}
	return fromDoc(d, kids, issues)
}

func fromDoc(d nodeDoc, kids []json.RawMessage, issues *[]error) Node {
	base := Base{ID: d.ID, Name: d.Name, Icon: d.Icon}
	hasAnswer := len(d.Answer) > 0

	if hasAnswer && len(kids) > 0 {
		*issues = append(*issues, &apperr.MalformedContentError{NodeID: d.ID, Reason: "answer node has children"})
	}
	if d.LeadsToChat && len(kids) > 0 {
		*issues = append(*issues, &apperr.MalformedContentError{NodeID: d.ID, Reason: "chat node has children"})
	}

	switch {
	case hasAnswer:
		if d.LeadsToChat {
			*issues = append(*issues, &apperr.MalformedContentError{NodeID: d.ID, Reason: "node has both answer and leadsToChat"})
		}
		if d.Answer.IsEmpty() {
			*issues = append(*issues, &apperr.MalformedContentError{NodeID: d.ID, Reason: "answer has no text in any language"})
		}
		return &AnswerLeaf{Base: base, Answer: d.Answer, LeadsToChat: d.LeadsToChat}
	case d.LeadsToChat:
		return &ChatLeaf{Base: base}
	default:
		children := make([]Node, 0, len(kids))
		for _, c := range kids {
			children = append(children, decodeNode(c, issues))
		}
		return &Branch{Base: base, Children: children}
	}
}

func toDoc(n Node) nodeDoc {
	base := n.Meta()
	d := nodeDoc{ID: base.ID, Name: base.Name, Icon: base.Icon}
	switch v := n.(type) {
	case *Branch:
		d.Children = make([]nodeDoc, 0, len(v.Children))
		for _, c := range v.Children {
			d.Children = append(d.Children, toDoc(c))
		}
	case *AnswerLeaf:
		d.Answer = v.Answer
		d.LeadsToChat = v.LeadsToChat
	case *ChatLeaf:
		d.LeadsToChat = true
	}
	return d
}

// EncodeTree renders the tree in its stored document form.
func EncodeTree(t Tree) ([]byte, error) {
	doc := treeDoc{Tree: make([]nodeDoc, 0, len(t))}
	for _, n := range t {
		doc.Tree = append(doc.Tree, toDoc(n))
	}
	return json.Marshal(doc)
}

// NodeInput is the authoring payload for a single node. Exactly one of
// Answer or LeadsToChat may be set; neither makes a branch.
type NodeInput struct {
	Name        LocalizedText `json:"name" validate:"required"`
	Icon        string        `json:"icon"`
	Answer      LocalizedText `json:"answer,omitempty"`
	LeadsToChat bool          `json:"leadsToChat"`
}

// Build turns the input into a node variant with the given id.
func (in NodeInput) Build(id string) (Node, error) {
	if in.Name.IsEmpty() {
		return nil, apperr.Invalid("name", "at least one language is required")
	}
	if len(in.Answer) > 0 && in.LeadsToChat {
		return nil, apperr.Invalid("answer", "a node cannot both answer and lead to chat")
	}
	base := Base{ID: id, Name: in.Name, Icon: in.Icon}
	switch {
	case len(in.Answer) > 0:
		return &AnswerLeaf{Base: base, Answer: in.Answer}, nil
	case in.LeadsToChat:
		return &ChatLeaf{Base: base}, nil
	default:
		return &Branch{Base: base}, nil
	}
}
