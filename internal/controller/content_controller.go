package controller

import (
	"helpdesk-be/internal/dto"
	"helpdesk-be/internal/pkg/serverutils"
	"helpdesk-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// IContentController is the authoring API behind the tree editor and the
// office information screen.
type IContentController interface {
	RegisterRoutes(r fiber.Router)
	GetTree(ctx *fiber.Ctx) error
	ReplaceTree(ctx *fiber.Ctx) error
	AddNode(ctx *fiber.Ctx) error
	UpdateNode(ctx *fiber.Ctx) error
	DeleteNode(ctx *fiber.Ctx) error
	GetBranding(ctx *fiber.Ctx) error
	UpdateBranding(ctx *fiber.Ctx) error
}

type contentController struct {
	service   service.IContentService
	jwtSecret string
}

func NewContentController(service service.IContentService, jwtSecret string) IContentController {
	return &contentController{service: service, jwtSecret: jwtSecret}
}

func (c *contentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/content")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Get("/tree", c.GetTree)
	h.Put("/tree", c.ReplaceTree)
	h.Post("/nodes", c.AddNode)
	h.Put("/nodes/:id", c.UpdateNode)
	h.Delete("/nodes/:id", c.DeleteNode)
	h.Get("/branding", c.GetBranding)
	h.Put("/branding", c.UpdateBranding)
}

func (c *contentController) GetTree(ctx *fiber.Ctx) error {
	res, err := c.service.GetTree(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Knowledge tree", res))
}

func (c *contentController) ReplaceTree(ctx *fiber.Ctx) error {
	var req dto.ReplaceTreeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	// the stored form wraps the categories in a "tree" field
	res, err := c.service.ReplaceTree(ctx.UserContext(), serverutils.OperatorEmail(ctx), wrapTree(req.Tree))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Knowledge tree replaced", res))
}

func wrapTree(categories []byte) []byte {
	out := make([]byte, 0, len(categories)+9)
	out = append(out, `{"tree":`...)
	out = append(out, categories...)
	return append(out, '}')
}

func (c *contentController) AddNode(ctx *fiber.Ctx) error {
	var req dto.CreateNodeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.AddNode(ctx.UserContext(), serverutils.OperatorEmail(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Node created", res))
}

func (c *contentController) UpdateNode(ctx *fiber.Ctx) error {
	var req dto.NodeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.UpdateNode(ctx.UserContext(), serverutils.OperatorEmail(ctx), ctx.Params("id"), &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Node updated", nil))
}

func (c *contentController) DeleteNode(ctx *fiber.Ctx) error {
	if err := c.service.DeleteNode(ctx.UserContext(), serverutils.OperatorEmail(ctx), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Node deleted", nil))
}

func (c *contentController) GetBranding(ctx *fiber.Ctx) error {
	res, err := c.service.GetBranding(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Branding", res))
}

func (c *contentController) UpdateBranding(ctx *fiber.Ctx) error {
	var req dto.UpdateBrandingRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UpdateBranding(ctx.UserContext(), serverutils.OperatorEmail(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Branding updated", res))
}
