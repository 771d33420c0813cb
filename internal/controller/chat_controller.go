package controller

import (
	"helpdesk-be/internal/dto"
	"helpdesk-be/internal/mapper"
	"helpdesk-be/internal/pkg/serverutils"
	"helpdesk-be/internal/service"
	"helpdesk-be/pkg/apperr"
	"helpdesk-be/pkg/chat"
	"helpdesk-be/pkg/knowledge"

	"github.com/gofiber/fiber/v2"
)

// IChatController serves the chat lifecycle to clients that do not hold a
// socket: customers under /chats, operators under /operator/chats.
type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	CustomerMessage(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	OperatorMessage(ctx *fiber.Ctx) error
	End(ctx *fiber.Ctx) error
}

type chatController struct {
	service     service.IChatSessionService
	mapper      *mapper.ChatMapper
	defaultLang knowledge.Language
	jwtSecret   string
}

func NewChatController(service service.IChatSessionService, defaultLang knowledge.Language, jwtSecret string) IChatController {
	return &chatController{
		service:     service,
		mapper:      mapper.NewChatMapper(),
		defaultLang: defaultLang,
		jwtSecret:   jwtSecret,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chats")
	h.Post("", c.Create)
	h.Get("/:id", c.Show)
	h.Post("/:id/messages", c.CustomerMessage)

	op := r.Group("/operator/chats")
	op.Use(serverutils.JwtMiddleware(c.jwtSecret))
	op.Get("", c.List)
	op.Get("/:id", c.Show)
	op.Post("/:id/messages", c.OperatorMessage)
	op.Post("/:id/end", c.End)
}

func (c *chatController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateChatSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	id, err := c.service.Create(ctx.UserContext(), c.mapper.CreateRequestToInput(&req, c.defaultLang))
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Chat session created", dto.CreateChatSessionResponse{Id: id}))
}

func (c *chatController) Show(ctx *fiber.Ctx) error {
	session, err := c.service.Get(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat session", c.mapper.SessionToResponse(session)))
}

func (c *chatController) send(ctx *fiber.Ctx, sender chat.Sender) error {
	var req dto.SendChatMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.SendMessage(ctx.UserContext(), ctx.Params("id"), sender, req.Text); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse[any]("Message sent", nil))
}

func (c *chatController) CustomerMessage(ctx *fiber.Ctx) error {
	return c.send(ctx, chat.SenderCustomer)
}

func (c *chatController) OperatorMessage(ctx *fiber.Ctx) error {
	return c.send(ctx, chat.SenderOperator)
}

func (c *chatController) List(ctx *fiber.Ctx) error {
	view, ok := chat.ParseView(ctx.Query("view"))
	if !ok {
		return apperr.Invalid("view", "must be active or archive")
	}

	sessions, err := c.service.List(ctx.UserContext(), view)
	if err != nil {
		return err
	}
	active, archive, err := c.service.Counts(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Chat sessions", dto.ChatSessionListResponse{
		View:         string(view),
		Sessions:     c.mapper.SessionsToResponse(sessions),
		ActiveCount:  active,
		ArchiveCount: archive,
	}))
}

func (c *chatController) End(ctx *fiber.Ctx) error {
	if err := c.service.End(ctx.UserContext(), ctx.Params("id"), serverutils.OperatorEmail(ctx)); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Chat session ended", nil))
}
