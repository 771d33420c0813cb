package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"helpdesk-be/internal/dto"
	"helpdesk-be/internal/pkg/logger"
	"helpdesk-be/pkg/apperr"
	"helpdesk-be/pkg/events"
	"helpdesk-be/pkg/knowledge"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContentService(t *testing.T) (*contentService, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	svc := NewContentService(newTestStore(t), testContent, events.NewPublisher(sink, logger.NewNopLogger()), logger.NewNopLogger()).(*contentService)
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("n%d", n)
	}
	return svc, sink
}

func storedTree(t *testing.T, svc IContentService) knowledge.Tree {
	t.Helper()
	res, err := svc.GetTree(context.Background())
	require.NoError(t, err)
	tree, issues, err := knowledge.DecodeTree(res.Document)
	require.NoError(t, err)
	require.Empty(t, issues)
	return tree
}

func TestContentService_AuthoringBuildsTree(t *testing.T) {
	svc, sink := newContentService(t)
	ctx := context.Background()

	_, err := svc.GetTree(ctx)
	assert.True(t, apperr.IsNotFound(err))

	cat, err := svc.AddNode(ctx, "op@example.com", &dto.CreateNodeRequest{
		NodeRequest: dto.NodeRequest{Name: knowledge.LocalizedText{knowledge.LangEnglish: "Billing", knowledge.LangNepali: "बिलिङ"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "n1", cat.Id)

	q, err := svc.AddNode(ctx, "op@example.com", &dto.CreateNodeRequest{
		ParentId: cat.Id,
		NodeRequest: dto.NodeRequest{
			Name:   knowledge.LocalizedText{knowledge.LangEnglish: "Invoice"},
			Answer: knowledge.LocalizedText{knowledge.LangEnglish: "See portal"},
		},
	})
	require.NoError(t, err)

	_, err = svc.AddNode(ctx, "op@example.com", &dto.CreateNodeRequest{
		ParentId:    cat.Id,
		NodeRequest: dto.NodeRequest{Name: knowledge.LocalizedText{knowledge.LangEnglish: "Talk to us"}, LeadsToChat: true},
	})
	require.NoError(t, err)

	tree := storedTree(t, svc)
	require.Len(t, tree, 1)
	assert.Equal(t, knowledge.KindAnswer, tree.Find(q.Id).Kind())
	assert.Equal(t, knowledge.KindChat, tree.Find("n3").Kind())

	res, err := svc.GetTree(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.NodeCount)
	assert.Len(t, sink.ofType(events.KnowledgeTreeUpdated), 3)
}

func TestContentService_AuthoringRejections(t *testing.T) {
	svc, sink := newContentService(t)
	ctx := context.Background()

	_, err := svc.AddNode(ctx, "op", &dto.CreateNodeRequest{
		NodeRequest: dto.NodeRequest{Name: knowledge.LocalizedText{knowledge.LangEnglish: "FAQ"}, LeadsToChat: true},
	})
	assert.True(t, apperr.IsValidation(err), "categories must be branches")

	_, err = svc.AddNode(ctx, "op", &dto.CreateNodeRequest{
		NodeRequest: dto.NodeRequest{Name: knowledge.LocalizedText{}},
	})
	assert.True(t, apperr.IsValidation(err))

	cat, err := svc.AddNode(ctx, "op", &dto.CreateNodeRequest{
		NodeRequest: dto.NodeRequest{Name: knowledge.LocalizedText{knowledge.LangEnglish: "Billing"}},
	})
	require.NoError(t, err)

	_, err = svc.AddNode(ctx, "op", &dto.CreateNodeRequest{
		ParentId:    "ghost",
		NodeRequest: dto.NodeRequest{Name: knowledge.LocalizedText{knowledge.LangEnglish: "x"}},
	})
	assert.True(t, apperr.IsNotFound(err))

	err = svc.UpdateNode(ctx, "op", cat.Id, &dto.NodeRequest{
		Name:   knowledge.LocalizedText{knowledge.LangEnglish: "Billing"},
		Answer: knowledge.LocalizedText{knowledge.LangEnglish: "no"},
	})
	assert.True(t, apperr.IsValidation(err))

	assert.True(t, apperr.IsNotFound(svc.DeleteNode(ctx, "op", "ghost")))
	assert.Len(t, sink.ofType(events.KnowledgeTreeUpdated), 1, "rejected edits publish nothing")
}

func TestContentService_UpdateAndDelete(t *testing.T) {
	svc, _ := newContentService(t)
	ctx := context.Background()

	_, err := svc.ReplaceTree(ctx, "op", json.RawMessage(`{"tree":[
		{"id":"cat1","name":{"en":"Billing"},"children":[
			{"id":"q1","name":{"en":"Invoice"},"answer":{"en":"See portal"}},
			{"id":"b1","name":{"en":"More"},"children":[{"id":"q2","name":{"en":"Refund"},"answer":{"en":"7 days"}}]}
		]}
	]}`))
	require.NoError(t, err)

	require.NoError(t, svc.UpdateNode(ctx, "op", "cat1", &dto.NodeRequest{Name: knowledge.LocalizedText{knowledge.LangEnglish: "Billing & Fees"}}))
	tree := storedTree(t, svc)
	assert.Equal(t, "Billing & Fees", tree[0].Meta().Name.Text(knowledge.LangEnglish))
	assert.Len(t, knowledge.ChildrenOf(tree[0]), 2, "children survive a rename")

	require.NoError(t, svc.DeleteNode(ctx, "op", "b1"))
	tree = storedTree(t, svc)
	assert.Nil(t, tree.Find("q2"), "subtree removed")
	assert.NotNil(t, tree.Find("q1"))
}

func TestContentService_ReplaceTreeValidation(t *testing.T) {
	svc, _ := newContentService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `nope`},
		{"empty", `{"tree":[]}`},
		{"leaf category", `{"tree":[{"id":"c","name":{"en":"Chat"},"leadsToChat":true}]}`},
		{"malformed node", `{"tree":[{"id":"c","name":{"en":"C"},"children":[{"id":"x","name":{"en":"X"},"answer":{"en":"a"},"leadsToChat":true}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ReplaceTree(ctx, "op", json.RawMessage(tt.raw))
			assert.True(t, apperr.IsValidation(err), "got %v", err)
		})
	}
}

func TestContentService_EditRefusedOnMalformedStoredTree(t *testing.T) {
	svc, sink := newContentService(t)
	ctx := context.Background()

	legacy := `{"tree":[{"id":"cat","name":{"en":"Legacy"},"children":[
		{"id":"mixed","name":{"en":"Mixed"},"answer":{"en":"A"},"children":[{"id":"kid","name":{"en":"Kid"},"answer":{"en":"B"}}]},
		{"id":"other","name":{"en":"Other"},"answer":{"en":"C"}}
	]}]}`
	require.NoError(t, svc.store.SetDocument(ctx, testContent.TreeCollection, testContent.TreeDocument, json.RawMessage(legacy), false))

	err := svc.UpdateNode(ctx, "op", "other", &dto.NodeRequest{
		Name:   knowledge.LocalizedText{knowledge.LangEnglish: "Other"},
		Answer: knowledge.LocalizedText{knowledge.LangEnglish: "D"},
	})
	assert.True(t, apperr.IsValidation(err), "got %v", err)
	assert.True(t, apperr.IsValidation(svc.DeleteNode(ctx, "op", "other")))

	res, err := svc.GetTree(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(res.Document), `"kid"`, "stored subtree must survive a refused edit")
	assert.Contains(t, string(res.Document), `"C"`)
	assert.Empty(t, sink.ofType(events.KnowledgeTreeUpdated))
}

func TestContentService_BrandingMerge(t *testing.T) {
	svc, sink := newContentService(t)
	ctx := context.Background()

	res, err := svc.GetBranding(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", res.OrganizationName)

	name := "Ward 4 Office"
	res, err = svc.UpdateBranding(ctx, "op", &dto.UpdateBrandingRequest{OrganizationName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ward 4 Office", res.OrganizationName)

	logo := "https://example.com/logo.png"
	res, err = svc.UpdateBranding(ctx, "op", &dto.UpdateBrandingRequest{LogoUrl: &logo})
	require.NoError(t, err)
	assert.Equal(t, "Ward 4 Office", res.OrganizationName, "untouched field kept")
	assert.Equal(t, logo, res.LogoUrl)

	_, err = svc.UpdateBranding(ctx, "op", &dto.UpdateBrandingRequest{})
	require.NoError(t, err)
	assert.Len(t, sink.ofType(events.BrandingUpdated), 2)
}
