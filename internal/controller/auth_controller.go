package controller

import (
	"helpdesk-be/internal/dto"
	"helpdesk-be/internal/pkg/serverutils"
	"helpdesk-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	Login(ctx *fiber.Ctx) error
	Me(ctx *fiber.Ctx) error
}

type authController struct {
	service   service.IAuthService
	jwtSecret string
}

func NewAuthController(service service.IAuthService, jwtSecret string) IAuthController {
	return &authController{service: service, jwtSecret: jwtSecret}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth")
	h.Post("/login", c.Login)
	h.Get("/me", serverutils.JwtMiddleware(c.jwtSecret), c.Me)
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Login(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Login successful", res))
}

func (c *authController) Me(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Operator", dto.OperatorResponse{Email: serverutils.OperatorEmail(ctx)}))
}
