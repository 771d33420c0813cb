package navigation

import (
	"errors"
	"testing"

	"helpdesk-be/pkg/apperr"
	"helpdesk-be/pkg/chat"
	"helpdesk-be/pkg/knowledge"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const invoiceDoc = `{"tree":[
  {"id":"cat1","name":{"en":"Billing"},"children":[
    {"id":"q1","name":{"en":"Invoice"},"answer":{"en":"See portal"}}
  ]}
]}`

const officeDoc = `{"tree":[
  {"id":"cat1","name":{"en":"Billing","np":"बिलिङ"},"children":[
    {"id":"q1","name":{"en":"Invoice","np":"बिल"},"answer":{"en":"See portal","np":"पोर्टल हेर्नुहोस्"}},
    {"id":"c1","name":{"en":"Talk to us"},"leadsToChat":true},
    {"id":"b1","name":{"en":"More"},"children":[
      {"id":"q2","name":{"en":"Refunds"},"answer":{"en":"Within 7 days"}},
      {"id":"q3","name":{"en":"English only"},"answer":{"en":"Only here"}}
    ]}
  ]},
  {"id":"cat2","name":{"en":"Permits"},"children":[
    {"id":"p1","name":{"en":"Building permit"},"answer":{"en":"Visit ward 4"},"leadsToChat":true},
    {"id":"p2","name":{"en":"Broken"},"answer":{"en":" "}}
  ]}
]}`

func decode(t *testing.T, doc string) knowledge.Tree {
	t.Helper()
	tree, _, err := knowledge.DecodeTree([]byte(doc))
	require.NoError(t, err)
	return tree
}

func loaded(t *testing.T, doc string, lang knowledge.Language) *Engine {
	t.Helper()
	e := NewEngine(lang)
	e.LoadTree(decode(t, doc), nil)
	require.Equal(t, ViewTopics, e.View())
	return e
}

func historyIDs(e *Engine) []string {
	out := []string{}
	for _, n := range e.History() {
		out = append(out, n.Meta().ID)
	}
	return out
}

func currentID(e *Engine) string {
	if cur := e.Current(); cur != nil {
		return cur.Meta().ID
	}
	return ""
}

func TestEngine_InvoiceScenario(t *testing.T) {
	e := loaded(t, invoiceDoc, knowledge.LangEnglish)

	require.NoError(t, e.SelectNode("cat1"))
	assert.Equal(t, ViewNavigating, e.View())
	assert.Equal(t, []string{"root", "cat1"}, historyIDs(e))

	require.NoError(t, e.SelectNode("q1"))
	assert.Equal(t, ViewAnswer, e.View())
	assert.Equal(t, []string{"root", "cat1", "q1"}, historyIDs(e))
	assert.Equal(t, "See portal", e.Screen().Answer)

	require.NoError(t, e.GoBack())
	assert.Equal(t, ViewNavigating, e.View())
	assert.Equal(t, []string{"root", "cat1"}, historyIDs(e))
	assert.Equal(t, "cat1", currentID(e))
}

func TestEngine_LoadTree(t *testing.T) {
	tests := []struct {
		name     string
		tree     knowledge.Tree
		err      error
		wantView View
	}{
		{"non-empty", decode(t, officeDoc), nil, ViewTopics},
		{"empty", knowledge.Tree{}, nil, ViewError},
		{"missing document", nil, apperr.NotFound("knowledgeBase", "main"), ViewError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(knowledge.LangEnglish)
			assert.Equal(t, ViewLoading, e.View())

			e.LoadTree(tt.tree, tt.err)
			assert.Equal(t, tt.wantView, e.View())
			assert.Empty(t, e.History())
			if tt.wantView == ViewTopics {
				assert.Equal(t, "cat1", e.ActiveTab())
				assert.NoError(t, e.LoadErr())
			} else {
				assert.Error(t, e.LoadErr())
			}
		})
	}
}

func TestEngine_ErrorIsLeftOnlyByValidSnapshot(t *testing.T) {
	e := NewEngine(knowledge.LangEnglish)
	e.ApplyTree(nil, apperr.NotFound("knowledgeBase", "main"))
	require.Equal(t, ViewError, e.View())

	assert.ErrorIs(t, e.SelectNode("cat1"), apperr.ErrInvalidTransition)
	assert.Equal(t, ViewError, e.View())

	e.ApplyTree(decode(t, officeDoc), nil)
	assert.Equal(t, ViewTopics, e.View())
}

func TestEngine_SelectionPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		lang     knowledge.Language
		path     []string
		wantView View
	}{
		{"answer leaf", knowledge.LangEnglish, []string{"cat1", "q1"}, ViewAnswer},
		{"chat leaf", knowledge.LangEnglish, []string{"cat1", "c1"}, ViewForm},
		{"branch", knowledge.LangEnglish, []string{"cat1", "b1"}, ViewNavigating},
		{"answer wins over leftover chat flag", knowledge.LangEnglish, []string{"cat2", "p1"}, ViewAnswer},
		{"chat flag used when answer missing in language", knowledge.LangNepali, []string{"cat2", "p1"}, ViewForm},
		{"leaf without localized answer is an empty branch", knowledge.LangNepali, []string{"cat1", "b1", "q3"}, ViewNavigating},
		{"blank answer is an empty branch", knowledge.LangEnglish, []string{"cat2", "p2"}, ViewNavigating},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := loaded(t, officeDoc, tt.lang)
			for _, id := range tt.path {
				require.NoError(t, e.SelectNode(id))
			}
			assert.Equal(t, tt.wantView, e.View())
			if tt.wantView == ViewNavigating && e.Current().Kind() != knowledge.KindBranch {
				assert.Empty(t, e.Screen().Items)
			}
		})
	}
}

func TestEngine_SelectFromTopicsActiveTabItem(t *testing.T) {
	e := loaded(t, officeDoc, knowledge.LangEnglish)

	assert.ErrorIs(t, e.SelectNode("p1"), apperr.ErrNotSelectable, "p1 is not under the active tab")
	require.NoError(t, e.SelectTab("cat2"))
	require.NoError(t, e.SelectNode("p1"))
	assert.Equal(t, []string{"root", "p1"}, historyIDs(e))
	assert.Equal(t, ViewAnswer, e.View())

	require.NoError(t, e.GoBack())
	assert.Equal(t, ViewTopics, e.View())
	assert.Equal(t, "cat2", e.ActiveTab())
}

func TestEngine_SelectNodeRejected(t *testing.T) {
	e := loaded(t, officeDoc, knowledge.LangEnglish)
	require.NoError(t, e.SelectNode("cat1"))

	err := e.SelectNode("q2")
	assert.ErrorIs(t, err, apperr.ErrNotSelectable, "q2 is a grandchild")
	assert.Equal(t, []string{"root", "cat1"}, historyIDs(e))

	require.NoError(t, e.SelectNode("q1"))
	err = e.SelectNode("c1")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, ViewAnswer, e.View())
}

func TestEngine_GoBackRestoresPriorState(t *testing.T) {
	walks := [][]string{
		{"cat1"},
		{"cat1", "q1"},
		{"cat1", "c1"},
		{"cat1", "b1"},
		{"cat1", "b1", "q2"},
		{"cat2", "p2"},
	}

	for _, walk := range walks {
		e := loaded(t, officeDoc, knowledge.LangEnglish)
		if walk[0] == "cat2" {
			require.NoError(t, e.SelectTab("cat2"))
		}
		for i, id := range walk {
			beforeHistory := historyIDs(e)
			beforeCurrent := currentID(e)
			beforeView := e.View()

			require.NoError(t, e.SelectNode(id))
			require.NoError(t, e.GoBack())
			assert.Equal(t, beforeHistory, historyIDs(e), "walk %v step %d", walk, i)
			assert.Equal(t, beforeCurrent, currentID(e), "walk %v step %d", walk, i)
			assert.Equal(t, beforeView, e.View(), "walk %v step %d", walk, i)

			require.NoError(t, e.SelectNode(id))
		}
	}
}

func TestEngine_GoHomeFromEveryView(t *testing.T) {
	setups := map[string]func(t *testing.T, e *Engine){
		"loading": func(t *testing.T, e *Engine) {},
		"error":   func(t *testing.T, e *Engine) { e.LoadTree(nil, errors.New("boom")) },
		"topics":  func(t *testing.T, e *Engine) { e.LoadTree(decode(t, officeDoc), nil) },
		"answer": func(t *testing.T, e *Engine) {
			e.LoadTree(decode(t, officeDoc), nil)
			require.NoError(t, e.SelectNode("cat1"))
			require.NoError(t, e.SelectNode("q1"))
		},
		"chat ended": func(t *testing.T, e *Engine) {
			e.LoadTree(decode(t, officeDoc), nil)
			require.NoError(t, e.SelectNode("cat1"))
			require.NoError(t, e.SelectNode("c1"))
			require.NoError(t, e.BindSession("s1"))
			e.ApplySessionStatus("s1", chat.StatusEnded)
		},
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			e := NewEngine(knowledge.LangEnglish)
			setup(t, e)
			e.GoHome()
			assert.Equal(t, ViewTopics, e.View())
			assert.Equal(t, ViewTopics, e.PresentedView())
			assert.Empty(t, e.History())
			assert.Empty(t, e.SessionID())
		})
	}
}

func TestEngine_EscalationAndEndedOverride(t *testing.T) {
	e := loaded(t, officeDoc, knowledge.LangEnglish)
	require.NoError(t, e.SelectNode("cat1"))
	require.NoError(t, e.SelectNode("q1"))

	_, ok := e.Handoff()
	assert.False(t, ok)
	assert.ErrorIs(t, e.BindSession("s1"), apperr.ErrInvalidTransition)

	require.NoError(t, e.RequestOperator())
	assert.Equal(t, ViewForm, e.View())

	handoff, ok := e.Handoff()
	require.True(t, ok)
	assert.Equal(t, "Invoice", handoff.Topic)
	assert.Equal(t, []string{"Billing", "Invoice"}, handoff.Path)
	assert.Equal(t, knowledge.LangEnglish, handoff.Language)

	require.NoError(t, e.BindSession("s1"))
	assert.Equal(t, ViewChat, e.PresentedView())
	assert.Equal(t, "Invoice", e.Screen().Topic)

	e.ApplySessionStatus("other", chat.StatusEnded)
	assert.Equal(t, ViewChat, e.PresentedView())

	e.ApplySessionStatus("s1", chat.StatusEnded)
	assert.Equal(t, ViewEnded, e.PresentedView())
	assert.Equal(t, ViewEnded, e.Screen().View)
	assert.Equal(t, ViewChat, e.View())
}

func TestEngine_SelectLanguageKeepsPosition(t *testing.T) {
	e := loaded(t, officeDoc, knowledge.LangEnglish)
	require.NoError(t, e.SelectNode("cat1"))
	require.NoError(t, e.SelectNode("q1"))

	require.NoError(t, e.SelectLanguage(knowledge.LangNepali))
	assert.Equal(t, []string{"root", "cat1", "q1"}, historyIDs(e))

	s := e.Screen()
	assert.Equal(t, ViewAnswer, s.View)
	assert.Equal(t, []string{"बिलिङ", "बिल"}, s.Breadcrumbs)
	assert.Equal(t, "पोर्टल हेर्नुहोस्", s.Answer)

	assert.True(t, apperr.IsValidation(e.SelectLanguage("fr")))
	assert.Equal(t, knowledge.LangNepali, e.Language())
}

func TestEngine_SelectLanguageReResolvesAnswer(t *testing.T) {
	e := loaded(t, officeDoc, knowledge.LangEnglish)
	require.NoError(t, e.SelectNode("cat1"))
	require.NoError(t, e.SelectNode("b1"))
	require.NoError(t, e.SelectNode("q3"))
	require.Equal(t, ViewAnswer, e.View())

	require.NoError(t, e.SelectLanguage(knowledge.LangNepali))
	assert.Equal(t, ViewNavigating, e.View(), "no Nepali answer to show")
	assert.Equal(t, []string{"root", "cat1", "b1", "q3"}, historyIDs(e))
	assert.Empty(t, e.Screen().Items)

	require.NoError(t, e.SelectLanguage(knowledge.LangEnglish))
	assert.Equal(t, ViewAnswer, e.View())
	assert.Equal(t, "Only here", e.Screen().Answer)
}

func TestEngine_GoBackRestoresTopicsTab(t *testing.T) {
	e := loaded(t, officeDoc, knowledge.LangEnglish)
	require.Equal(t, "cat1", e.ActiveTab())

	require.NoError(t, e.SelectNode("cat2"))
	assert.Equal(t, "cat2", e.ActiveTab())

	require.NoError(t, e.GoBack())
	assert.Equal(t, ViewTopics, e.View())
	assert.Equal(t, "cat1", e.ActiveTab())

	require.NoError(t, e.SelectTab("cat2"))
	require.NoError(t, e.SelectNode("p1"))
	require.NoError(t, e.GoBack())
	assert.Equal(t, "cat2", e.ActiveTab(), "picking an item keeps the tab")
}

func TestEngine_TopicsScreen(t *testing.T) {
	e := loaded(t, officeDoc, knowledge.LangEnglish)
	s := e.Screen()

	require.Len(t, s.Tabs, 2)
	assert.True(t, s.Tabs[0].Active)
	assert.False(t, s.Tabs[1].Active)
	assert.Equal(t, []string{"q1", "c1", "b1"}, []string{s.Items[0].ID, s.Items[1].ID, s.Items[2].ID})
	assert.Equal(t, knowledge.KindChat, s.Items[1].Kind)
	assert.Empty(t, s.Breadcrumbs)

	assert.ErrorIs(t, e.SelectTab("q1"), apperr.ErrNotSelectable)
}

func TestEngine_ReplaceTree(t *testing.T) {
	t.Run("walk survives when nodes still exist", func(t *testing.T) {
		e := loaded(t, officeDoc, knowledge.LangEnglish)
		require.NoError(t, e.SelectNode("cat1"))
		require.NoError(t, e.SelectNode("b1"))

		renamed := `{"tree":[{"id":"cat1","name":{"en":"Fees"},"children":[
		  {"id":"b1","name":{"en":"Other"},"children":[]}]}]}`
		e.ApplyTree(decode(t, renamed), nil)

		assert.Equal(t, ViewNavigating, e.View())
		assert.Equal(t, []string{"root", "cat1", "b1"}, historyIDs(e))
		assert.Equal(t, []string{"Fees", "Other"}, e.Screen().Breadcrumbs)
	})

	t.Run("walk resets when a step vanished", func(t *testing.T) {
		e := loaded(t, officeDoc, knowledge.LangEnglish)
		require.NoError(t, e.SelectNode("cat1"))
		require.NoError(t, e.SelectNode("b1"))

		e.ApplyTree(decode(t, invoiceDoc), nil)
		assert.Equal(t, ViewTopics, e.View())
		assert.Empty(t, e.History())
	})

	t.Run("active tab falls back to first category", func(t *testing.T) {
		e := loaded(t, officeDoc, knowledge.LangEnglish)
		require.NoError(t, e.SelectTab("cat2"))
		e.ApplyTree(decode(t, invoiceDoc), nil)
		assert.Equal(t, "cat1", e.ActiveTab())
	})

	t.Run("empty tree moves to error except in chat", func(t *testing.T) {
		e := loaded(t, officeDoc, knowledge.LangEnglish)
		e.ApplyTree(knowledge.Tree{}, nil)
		assert.Equal(t, ViewError, e.View())

		e = loaded(t, officeDoc, knowledge.LangEnglish)
		require.NoError(t, e.SelectNode("cat1"))
		require.NoError(t, e.SelectNode("c1"))
		require.NoError(t, e.BindSession("s1"))
		e.ApplyTree(nil, apperr.NotFound("knowledgeBase", "main"))
		assert.Equal(t, ViewChat, e.View())
		assert.Equal(t, "s1", e.SessionID())
	})
}
