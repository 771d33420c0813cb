package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"helpdesk-be/internal/config"
	"helpdesk-be/internal/dto"
	"helpdesk-be/internal/mapper"
	"helpdesk-be/internal/metrics"
	"helpdesk-be/internal/pkg/logger"
	"helpdesk-be/pkg/apperr"
	"helpdesk-be/pkg/events"
	"helpdesk-be/pkg/knowledge"
	"helpdesk-be/pkg/store"

	"github.com/google/uuid"
)

// IContentService is the server side of the authoring screens: the knowledge
// tree and the widget branding.
type IContentService interface {
	GetTree(ctx context.Context) (*dto.KnowledgeTreeResponse, error)
	ReplaceTree(ctx context.Context, operatorEmail string, raw json.RawMessage) (*dto.KnowledgeTreeResponse, error)
	AddNode(ctx context.Context, operatorEmail string, req *dto.CreateNodeRequest) (*dto.NodeResponse, error)
	UpdateNode(ctx context.Context, operatorEmail, id string, req *dto.NodeRequest) error
	DeleteNode(ctx context.Context, operatorEmail, id string) error
	GetBranding(ctx context.Context) (*dto.BrandingResponse, error)
	UpdateBranding(ctx context.Context, operatorEmail string, req *dto.UpdateBrandingRequest) (*dto.BrandingResponse, error)
}

type contentService struct {
	store     store.ContentStore
	docs      config.ContentConfig
	publisher *events.Publisher
	logger    logger.ILogger
	mapper    *mapper.ContentMapper
	newID     func() string
}

func NewContentService(st store.ContentStore, docs config.ContentConfig, publisher *events.Publisher, log logger.ILogger) IContentService {
	return &contentService{
		store:     st,
		docs:      docs,
		publisher: publisher,
		logger:    log,
		mapper:    mapper.NewContentMapper(),
		newID:     uuid.NewString,
	}
}

func (s *contentService) GetTree(ctx context.Context) (*dto.KnowledgeTreeResponse, error) {
	doc, err := s.store.GetDocument(ctx, s.docs.TreeCollection, s.docs.TreeDocument)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(s.docs.TreeCollection, s.docs.TreeDocument)
	}
	if err != nil {
		return nil, err
	}

	count := 0
	tree, _, err := knowledge.DecodeTree(doc.Data)
	if err == nil {
		count = tree.Count()
	}
	return &dto.KnowledgeTreeResponse{Document: doc.Data, NodeCount: count}, nil
}

// checkTree rejects what the widget could not render: an empty tree, a
// category that is not a branch, or any malformed node.
func checkTree(tree knowledge.Tree, issues []error) error {
	if len(issues) > 0 {
		return apperr.Invalid("tree", issues[0].Error())
	}
	for _, n := range tree {
		if n.Kind() != knowledge.KindBranch {
			return apperr.Invalid("tree", "top-level node "+n.Meta().ID+" must be a category")
		}
	}
	return nil
}

func (s *contentService) ReplaceTree(ctx context.Context, operatorEmail string, raw json.RawMessage) (*dto.KnowledgeTreeResponse, error) {
	tree, issues, err := knowledge.DecodeTree(raw)
	if errors.Is(err, knowledge.ErrEmptyTree) {
		return nil, apperr.Invalid("tree", "at least one category is required")
	}
	if err != nil {
		return nil, apperr.Invalid("tree", err.Error())
	}
	if err := checkTree(tree, issues); err != nil {
		return nil, err
	}

	data, err := knowledge.EncodeTree(tree)
	if err != nil {
		return nil, err
	}
	err = s.store.SetDocument(ctx, s.docs.TreeCollection, s.docs.TreeDocument, data, false)
	metrics.ObserveWrite("set", err)
	if err != nil {
		return nil, s.writeFailed("set", err)
	}

	s.publisher.PublishKnowledgeTreeUpdated(ctx, operatorEmail, tree.Count())
	return &dto.KnowledgeTreeResponse{Document: data, NodeCount: tree.Count()}, nil
}

func (s *contentService) writeFailed(op string, err error) error {
	s.logger.Error("CONTENT", "Store write failed", map[string]interface{}{"op": op, "error": err})
	return apperr.WriteFailed(op, err)
}

// mutateTree applies edit to the stored tree inside one transaction.
func (s *contentService) mutateTree(ctx context.Context, operatorEmail string, edit func(knowledge.Tree) (knowledge.Tree, error)) error {
	var count int
	err := s.store.MutateDocument(ctx, s.docs.TreeCollection, s.docs.TreeDocument, func(current json.RawMessage) (json.RawMessage, error) {
		tree := knowledge.Tree{}
		if current != nil {
			decoded, issues, err := knowledge.DecodeTree(current)
			switch {
			case errors.Is(err, knowledge.ErrEmptyTree):
			case err != nil:
				return nil, apperr.Invalid("tree", err.Error())
			case len(issues) > 0:
				// re-encoding would silently drop what the decoder could not represent
				return nil, apperr.Invalid("tree", fmt.Sprintf("stored tree is malformed (%v); replace the whole tree to repair it", issues[0]))
			default:
				tree = decoded
			}
		}

		next, err := edit(tree)
		if err != nil {
			return nil, err
		}
		count = next.Count()
		return knowledge.EncodeTree(next)
	})
	if err != nil {
		if apperr.IsValidation(err) || apperr.IsNotFound(err) {
			return err
		}
		metrics.ObserveWrite("mutate", err)
		return s.writeFailed("mutate", err)
	}

	metrics.ObserveWrite("mutate", nil)
	s.publisher.PublishKnowledgeTreeUpdated(ctx, operatorEmail, count)
	return nil
}

func (s *contentService) AddNode(ctx context.Context, operatorEmail string, req *dto.CreateNodeRequest) (*dto.NodeResponse, error) {
	id := s.newID()
	node, err := req.Input().Build(id)
	if err != nil {
		return nil, err
	}
	if req.ParentId == "" && node.Kind() != knowledge.KindBranch {
		return nil, apperr.Invalid("parent_id", "a top-level category cannot be an answer or chat node")
	}

	err = s.mutateTree(ctx, operatorEmail, func(tree knowledge.Tree) (knowledge.Tree, error) {
		return knowledge.AddChild(tree, req.ParentId, node)
	})
	if err != nil {
		return nil, err
	}
	return &dto.NodeResponse{Id: id}, nil
}

func (s *contentService) UpdateNode(ctx context.Context, operatorEmail, id string, req *dto.NodeRequest) error {
	node, err := req.Input().Build(id)
	if err != nil {
		return err
	}

	return s.mutateTree(ctx, operatorEmail, func(tree knowledge.Tree) (knowledge.Tree, error) {
		for _, category := range tree {
			if category.Meta().ID == id && node.Kind() != knowledge.KindBranch {
				return nil, apperr.Invalid("id", "a top-level category must stay a branch")
			}
		}
		return knowledge.ReplaceNode(tree, node)
	})
}

func (s *contentService) DeleteNode(ctx context.Context, operatorEmail, id string) error {
	return s.mutateTree(ctx, operatorEmail, func(tree knowledge.Tree) (knowledge.Tree, error) {
		return knowledge.RemoveNode(tree, id)
	})
}

func (s *contentService) loadBranding(ctx context.Context) (knowledge.Branding, error) {
	doc, err := s.store.GetDocument(ctx, s.docs.BrandingCollection, s.docs.BrandingDocument)
	if errors.Is(err, store.ErrNotFound) {
		return knowledge.DefaultBranding(), nil
	}
	if err != nil {
		return knowledge.Branding{}, err
	}
	branding, err := knowledge.DecodeBranding(doc.Data)
	if err != nil {
		s.logger.Warn("CONTENT", "Unreadable branding document, using defaults", map[string]interface{}{"error": err.Error()})
	}
	return branding, nil
}

func (s *contentService) GetBranding(ctx context.Context) (*dto.BrandingResponse, error) {
	branding, err := s.loadBranding(ctx)
	if err != nil {
		return nil, err
	}
	res := s.mapper.BrandingToResponse(branding)
	return &res, nil
}

// UpdateBranding merge-writes only the fields present in req.
func (s *contentService) UpdateBranding(ctx context.Context, operatorEmail string, req *dto.UpdateBrandingRequest) (*dto.BrandingResponse, error) {
	patch := s.mapper.BrandingPatch(req)
	if len(patch) == 0 {
		return s.GetBranding(ctx)
	}

	data, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}
	err = s.store.SetDocument(ctx, s.docs.BrandingCollection, s.docs.BrandingDocument, data, true)
	metrics.ObserveWrite("set", err)
	if err != nil {
		return nil, s.writeFailed("set", err)
	}

	s.publisher.PublishBrandingUpdated(ctx, operatorEmail)
	return s.GetBranding(ctx)
}
