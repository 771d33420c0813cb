package navigation

import "helpdesk-be/pkg/knowledge"

type Tab struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Icon   string `json:"icon,omitempty"`
	Active bool   `json:"active"`
}

type Item struct {
	ID    string         `json:"id"`
	Label string         `json:"label"`
	Icon  string         `json:"icon,omitempty"`
	Kind  knowledge.Kind `json:"kind"`
}

// Screen is everything a surface needs to draw the current state, with
// every label already rendered in the active language.
type Screen struct {
	View        View               `json:"view"`
	Language    knowledge.Language `json:"language"`
	Tabs        []Tab              `json:"tabs"`
	Items       []Item             `json:"items"`
	Breadcrumbs []string           `json:"breadcrumbs"`
	Title       string             `json:"title,omitempty"`
	Answer      string             `json:"answer,omitempty"`
	Topic       string             `json:"topic,omitempty"`
	SessionID   string             `json:"sessionId,omitempty"`
}

func (e *Engine) Screen() Screen {
	s := Screen{
		View:        e.PresentedView(),
		Language:    e.lang,
		Tabs:        []Tab{},
		Items:       []Item{},
		Breadcrumbs: e.pathLabels(),
		SessionID:   e.sessionID,
	}

	switch e.view {
	case ViewTopics:
		for _, c := range e.tree {
			meta := c.Meta()
			s.Tabs = append(s.Tabs, Tab{
				ID:     meta.ID,
				Label:  meta.Name.Text(e.lang),
				Icon:   meta.Icon,
				Active: meta.ID == e.activeTab,
			})
			if meta.ID == e.activeTab {
				s.Items = e.items(knowledge.ChildrenOf(c))
			}
		}
	case ViewNavigating:
		s.Items = e.items(knowledge.ChildrenOf(e.Current()))
	case ViewAnswer:
		if leaf, ok := e.Current().(*knowledge.AnswerLeaf); ok {
			s.Answer, _ = leaf.Answer.Lookup(e.lang)
		}
	}

	if cur := e.Current(); cur != nil {
		s.Title = cur.Meta().Name.Text(e.lang)
		if e.view == ViewForm || e.view == ViewChat {
			s.Topic = s.Title
		}
	}
	return s
}

func (e *Engine) items(nodes []knowledge.Node) []Item {
	out := make([]Item, 0, len(nodes))
	for _, n := range nodes {
		meta := n.Meta()
		out = append(out, Item{
			ID:    meta.ID,
			Label: meta.Name.Text(e.lang),
			Icon:  meta.Icon,
			Kind:  n.Kind(),
		})
	}
	return out
}

// pathLabels renders the walk without the root sentinel.
func (e *Engine) pathLabels() []string {
	out := []string{}
	for i, n := range e.history {
		if i == 0 {
			continue
		}
		out = append(out, n.Meta().Name.Text(e.lang))
	}
	return out
}

// Handoff is what the customer surface passes to session creation.
type Handoff struct {
	Topic    string
	Language knowledge.Language
	Path     []string
}

// Handoff describes the walk that led to the form. It is only meaningful on
// the form view.
func (e *Engine) Handoff() (Handoff, bool) {
	if e.view != ViewForm || e.Current() == nil {
		return Handoff{}, false
	}
	return Handoff{
		Topic:    e.Current().Meta().Name.Text(e.lang),
		Language: e.lang,
		Path:     e.pathLabels(),
	}, true
}
