package knowledge

import "encoding/json"

// Branding is the office information shown on the widget welcome screen.
type Branding struct {
	OrganizationName string `json:"organizationName"`
	WelcomeMessage   string `json:"welcomeMessage"`
	LogoURL          string `json:"logoUrl"`
}

func DefaultBranding() Branding {
	return Branding{
		OrganizationName: "Welcome",
		WelcomeMessage:   "How can we help you?",
	}
}

// DecodeBranding overlays the stored fields on the defaults, so a partially
// filled document still renders.
func DecodeBranding(data []byte) (Branding, error) {
	b := DefaultBranding()
	if len(data) == 0 {
		return b, nil
	}
	var stored Branding
	if err := json.Unmarshal(data, &stored); err != nil {
		return b, err
	}
	if stored.OrganizationName != "" {
		b.OrganizationName = stored.OrganizationName
	}
	if stored.WelcomeMessage != "" {
		b.WelcomeMessage = stored.WelcomeMessage
	}
	b.LogoURL = stored.LogoURL
	return b, nil
}
