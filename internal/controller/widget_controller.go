package controller

import (
	"helpdesk-be/internal/dto"
	"helpdesk-be/internal/pkg/serverutils"
	"helpdesk-be/internal/service"
	"helpdesk-be/pkg/apperr"
	"helpdesk-be/pkg/knowledge"

	"github.com/gofiber/fiber/v2"
)

// IWidgetController hands the embeddable widget everything it needs for a
// first paint before the socket is up.
type IWidgetController interface {
	RegisterRoutes(r fiber.Router)
	Bootstrap(ctx *fiber.Ctx) error
}

type widgetController struct {
	content     service.IContentService
	defaultLang knowledge.Language
}

func NewWidgetController(content service.IContentService, defaultLang knowledge.Language) IWidgetController {
	return &widgetController{content: content, defaultLang: defaultLang}
}

func (c *widgetController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/widget")
	h.Get("/bootstrap", c.Bootstrap)
}

func (c *widgetController) Bootstrap(ctx *fiber.Ctx) error {
	lang := c.defaultLang
	if q := ctx.Query("lang"); q != "" {
		parsed, ok := knowledge.ParseLanguage(q)
		if !ok {
			return apperr.Invalid("lang", "unsupported language")
		}
		lang = parsed
	}

	branding, err := c.content.GetBranding(ctx.UserContext())
	if err != nil {
		return err
	}

	res := dto.WidgetBootstrapResponse{
		Language: string(lang),
		Branding: *branding,
	}
	for _, l := range knowledge.SupportedLanguages {
		res.Languages = append(res.Languages, string(l))
	}

	tree, err := c.content.GetTree(ctx.UserContext())
	switch {
	case err == nil:
		res.Tree = tree.Document
	case apperr.IsNotFound(err):
		// the widget renders its error screen from this
		res.TreeError = "not_found"
	default:
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Widget bootstrap", res))
}
