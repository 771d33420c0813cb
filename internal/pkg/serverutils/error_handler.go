package serverutils

import (
	"errors"

	"helpdesk-be/pkg/apperr"
	"helpdesk-be/pkg/store"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an application error onto an HTTP status code.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case apperr.IsValidation(err):
		return fiber.StatusBadRequest
	case apperr.IsNotFound(err), errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperr.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, apperr.ErrSessionEnded),
		errors.Is(err, apperr.ErrInvalidTransition),
		errors.Is(err, apperr.ErrNotSelectable):
		return fiber.StatusConflict
	case apperr.IsWriteFailure(err):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware turns errors returned by handlers into the standard
// response envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		res := ErrorResponse(code, err.Error())
		var ve *apperr.ValidationError
		if errors.As(err, &ve) && ve.Field != "" {
			res.Message = "Validation failed"
			res.Errors = map[string]string{ve.Field: ve.Reason}
		}
		if code == fiber.StatusInternalServerError {
			res.Message = "Internal server error"
		}
		return ctx.Status(code).JSON(res)
	}
}
