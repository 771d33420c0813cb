package dto

import (
	"encoding/json"

	"helpdesk-be/pkg/knowledge"
)

// KnowledgeTreeResponse returns the tree in its stored document form.
type KnowledgeTreeResponse struct {
	Document  json.RawMessage `json:"document"`
	NodeCount int             `json:"node_count"`
}

type ReplaceTreeRequest struct {
	Tree json.RawMessage `json:"tree" validate:"required"`
}

// NodeRequest edits one node. Setting both answer and leads_to_chat is
// rejected; setting neither makes a branch.
type NodeRequest struct {
	Name        knowledge.LocalizedText `json:"name" validate:"required"`
	Icon        string                  `json:"icon"`
	Answer      knowledge.LocalizedText `json:"answer,omitempty"`
	LeadsToChat bool                    `json:"leads_to_chat"`
}

func (r NodeRequest) Input() knowledge.NodeInput {
	return knowledge.NodeInput{Name: r.Name, Icon: r.Icon, Answer: r.Answer, LeadsToChat: r.LeadsToChat}
}

// CreateNodeRequest adds a node under ParentId, or a new category when
// ParentId is empty.
type CreateNodeRequest struct {
	ParentId string `json:"parent_id"`
	NodeRequest
}

type NodeResponse struct {
	Id string `json:"id"`
}

type BrandingResponse struct {
	OrganizationName string `json:"organization_name"`
	WelcomeMessage   string `json:"welcome_message"`
	LogoUrl          string `json:"logo_url"`
}

// UpdateBrandingRequest is merged into the stored branding: omitted fields
// keep their stored value.
type UpdateBrandingRequest struct {
	OrganizationName *string `json:"organization_name" validate:"omitempty,min=1"`
	WelcomeMessage   *string `json:"welcome_message"`
	LogoUrl          *string `json:"logo_url" validate:"omitempty,url"`
}

type WidgetBootstrapResponse struct {
	Language  string           `json:"language"`
	Languages []string         `json:"languages"`
	Branding  BrandingResponse `json:"branding"`
	Tree      json.RawMessage  `json:"tree,omitempty"`
	TreeError string           `json:"tree_error,omitempty"`
}
