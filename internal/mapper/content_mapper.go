package mapper

import (
	"helpdesk-be/internal/dto"
	"helpdesk-be/pkg/knowledge"
)

type ContentMapper struct{}

func NewContentMapper() *ContentMapper {
	return &ContentMapper{}
}

func (m *ContentMapper) BrandingToResponse(b knowledge.Branding) dto.BrandingResponse {
	return dto.BrandingResponse{
		OrganizationName: b.OrganizationName,
		WelcomeMessage:   b.WelcomeMessage,
		LogoUrl:          b.LogoURL,
	}
}

// BrandingPatch returns the stored field names of the fields set in req.
func (m *ContentMapper) BrandingPatch(req *dto.UpdateBrandingRequest) map[string]string {
	patch := make(map[string]string, 3)
	if req.OrganizationName != nil {
		patch["organizationName"] = *req.OrganizationName
	}
	if req.WelcomeMessage != nil {
		patch["welcomeMessage"] = *req.WelcomeMessage
	}
	if req.LogoUrl != nil {
		patch["logoUrl"] = *req.LogoUrl
	}
	return patch
}
