// Package navigation is the widget's pure state machine: it maps the
// knowledge tree plus the customer's picks onto a view and a breadcrumb
// history. It performs no I/O; snapshots and user actions are fed in by the
// owning surface loop, which also serializes every call.
package navigation

import (
	"fmt"

	"helpdesk-be/pkg/apperr"
	"helpdesk-be/pkg/chat"
	"helpdesk-be/pkg/knowledge"
)

type View string

const (
	ViewLoading    View = "loading"
	ViewTopics     View = "topics"
	ViewNavigating View = "navigating"
	ViewAnswer     View = "answer"
	ViewForm       View = "form"
	ViewChat       View = "chat"
	ViewError      View = "error"

	// ViewEnded is never stored; it is derived by PresentedView.
	ViewEnded View = "ended"
)

type Engine struct {
	lang      knowledge.Language
	tree      knowledge.Tree
	view      View
	history   []knowledge.Node
	activeTab string
	// tab that was active when the walk left topics
	topicsTab string
	loadErr   error

	sessionID    string
	sessionEnded bool
}

func NewEngine(lang knowledge.Language) *Engine {
	if _, ok := knowledge.ParseLanguage(string(lang)); !ok {
		lang = knowledge.LangNepali
	}
	return &Engine{lang: lang, view: ViewLoading}
}

func (e *Engine) View() View                   { return e.view }
func (e *Engine) Language() knowledge.Language { return e.lang }
func (e *Engine) ActiveTab() string            { return e.activeTab }
func (e *Engine) SessionID() string            { return e.sessionID }
func (e *Engine) Tree() knowledge.Tree         { return e.tree }

// LoadErr is the reason the engine sits in the error view.
func (e *Engine) LoadErr() error { return e.loadErr }

// History returns a copy of the walk, root sentinel first when non-empty.
func (e *Engine) History() []knowledge.Node {
	return append([]knowledge.Node(nil), e.history...)
}

// Current is the last history entry, nil on the topics view.
func (e *Engine) Current() knowledge.Node {
	if len(e.history) == 0 {
		return nil
	}
	return e.history[len(e.history)-1]
}

// PresentedView applies the ended override ahead of the stored view.
func (e *Engine) PresentedView() View {
	if e.sessionID != "" && e.sessionEnded {
		return ViewEnded
	}
	return e.view
}

// LoadTree handles the first tree snapshot. A missing document, an empty
// tree or a decode failure all land in the error view, which is left only by
// a later valid snapshot.
func (e *Engine) LoadTree(tree knowledge.Tree, err error) {
	if err == nil && len(tree) == 0 {
		err = knowledge.ErrEmptyTree
	}
	if err != nil {
		e.tree = nil
		e.history = nil
		e.activeTab = ""
		e.view = ViewError
		e.loadErr = err
		return
	}
	e.tree = tree
	e.history = nil
	e.activeTab = tree[0].Meta().ID
	e.view = ViewTopics
	e.loadErr = nil
}

// ApplyTree routes a content snapshot: the first valid one loads, later ones
// replace the local copy.
func (e *Engine) ApplyTree(tree knowledge.Tree, err error) {
	if e.view == ViewLoading || e.view == ViewError {
		e.LoadTree(tree, err)
		return
	}
	e.ReplaceTree(tree, err)
}

// ReplaceTree swaps the local tree wholesale and re-resolves the walk by node
// id. A walk whose steps no longer exist falls back to topics. The chat view
// keeps its state whatever the tree does.
func (e *Engine) ReplaceTree(tree knowledge.Tree, err error) {
	if err == nil && len(tree) == 0 {
		err = knowledge.ErrEmptyTree
	}
	if e.view == ViewChat {
		if err == nil {
			e.tree = tree
		}
		return
	}
	if err != nil {
		e.LoadTree(nil, err)
		return
	}

	e.tree = tree
	if !isCategory(tree, e.activeTab) {
		e.activeTab = tree[0].Meta().ID
	}
	if len(e.history) == 0 {
		return
	}

	resolved := make([]knowledge.Node, 0, len(e.history))
	var parent knowledge.Node = tree.Root()
	resolved = append(resolved, parent)
	for _, step := range e.history[1:] {
		n := knowledge.FindChild(parent, step.Meta().ID)
		if n == nil && len(resolved) == 1 {
			n = findInTopics(tree, e.activeTab, step.Meta().ID)
		}
		if n == nil {
			e.resetToTopics()
			return
		}
		resolved = append(resolved, n)
		parent = n
	}
	e.history = resolved
	if e.view == ViewNavigating || e.view == ViewAnswer {
		e.view = e.resolve(e.Current())
	}
}

// SelectTab switches the active category on the topics view.
func (e *Engine) SelectTab(id string) error {
	if e.view != ViewTopics {
		return fmt.Errorf("select tab from %s: %w", e.view, apperr.ErrInvalidTransition)
	}
	if !isCategory(e.tree, id) {
		return fmt.Errorf("tab %q: %w", id, apperr.ErrNotSelectable)
	}
	e.activeTab = id
	return nil
}

// SelectNode picks a node. From topics it seeds the walk with the root
// sentinel; from navigating it pushes a child of the current node.
func (e *Engine) SelectNode(id string) error {
	var node knowledge.Node
	switch e.view {
	case ViewTopics:
		node = findInTopics(e.tree, e.activeTab, id)
		if node == nil {
			return fmt.Errorf("node %q: %w", id, apperr.ErrNotSelectable)
		}
		e.topicsTab = e.activeTab
		if isCategory(e.tree, id) {
			e.activeTab = id
		}
		e.history = []knowledge.Node{e.tree.Root(), node}
	case ViewNavigating:
		node = knowledge.FindChild(e.Current(), id)
		if node == nil {
			return fmt.Errorf("node %q: %w", id, apperr.ErrNotSelectable)
		}
		e.history = append(e.history, node)
	default:
		return fmt.Errorf("select node from %s: %w", e.view, apperr.ErrInvalidTransition)
	}
	e.view = e.resolve(node)
	return nil
}

// resolve picks the view for a freshly selected node: answer text in the
// active language wins, then the chat flag, then branch navigation. A leaf
// missing its localized content navigates as an empty branch.
func (e *Engine) resolve(n knowledge.Node) View {
	switch node := n.(type) {
	case *knowledge.AnswerLeaf:
		if _, ok := node.Answer.Lookup(e.lang); ok {
			return ViewAnswer
		}
		if node.LeadsToChat {
			return ViewForm
		}
	case *knowledge.ChatLeaf:
		return ViewForm
	}
	return ViewNavigating
}

func (e *Engine) GoBack() error {
	switch e.view {
	case ViewNavigating, ViewAnswer, ViewForm:
	default:
		return fmt.Errorf("go back from %s: %w", e.view, apperr.ErrInvalidTransition)
	}
	if len(e.history) <= 2 {
		if isCategory(e.tree, e.topicsTab) {
			e.activeTab = e.topicsTab
		}
		e.resetToTopics()
		return nil
	}
	e.history = e.history[:len(e.history)-1]
	e.view = ViewNavigating
	return nil
}

// GoHome always lands on topics and detaches any bound session. The session
// itself is left untouched.
func (e *Engine) GoHome() {
	e.resetToTopics()
	e.sessionID = ""
	e.sessionEnded = false
}

// SelectLanguage keeps the walk and re-resolves the current node, so an
// answer without text in the new language navigates as an empty branch.
func (e *Engine) SelectLanguage(lang knowledge.Language) error {
	parsed, ok := knowledge.ParseLanguage(string(lang))
	if !ok {
		return apperr.Invalid("language", fmt.Sprintf("unsupported language %q", lang))
	}
	e.lang = parsed
	if (e.view == ViewAnswer || e.view == ViewNavigating) && e.Current() != nil {
		e.view = e.resolve(e.Current())
	}
	return nil
}

// RequestOperator is the "not helpful" escalation from an answer.
func (e *Engine) RequestOperator() error {
	if e.view != ViewAnswer {
		return fmt.Errorf("request operator from %s: %w", e.view, apperr.ErrInvalidTransition)
	}
	e.view = ViewForm
	return nil
}

// BindSession moves the form to chat once a session has been created.
func (e *Engine) BindSession(id string) error {
	if e.view != ViewForm {
		return fmt.Errorf("bind session from %s: %w", e.view, apperr.ErrInvalidTransition)
	}
	if id == "" {
		return apperr.Invalid("sessionId", "session id is required")
	}
	e.sessionID = id
	e.sessionEnded = false
	e.view = ViewChat
	return nil
}

// ApplySessionStatus records a snapshot of the bound session. Snapshots of
// any other session are ignored.
func (e *Engine) ApplySessionStatus(id string, status chat.Status) {
	if id == "" || id != e.sessionID {
		return
	}
	e.sessionEnded = status == chat.StatusEnded
}

func (e *Engine) resetToTopics() {
	e.history = nil
	e.view = ViewTopics
	if e.activeTab == "" && len(e.tree) > 0 {
		e.activeTab = e.tree[0].Meta().ID
	}
}

func isCategory(tree knowledge.Tree, id string) bool {
	for _, c := range tree {
		if c.Meta().ID == id {
			return true
		}
	}
	return false
}

// findInTopics resolves what the topics view offers: any category tab, or an
// item listed under the active category.
func findInTopics(tree knowledge.Tree, activeTab, id string) knowledge.Node {
	for _, c := range tree {
		if c.Meta().ID == id {
			return c
		}
	}
	for _, c := range tree {
		if c.Meta().ID == activeTab {
			return knowledge.FindChild(c, id)
		}
	}
	return nil
}
