package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"helpdesk-be/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.Invalid("text", "is required"), 400},
		{apperr.NotFound("chats", "x"), 404},
		{apperr.ErrSessionEnded, 409},
		{apperr.WriteFailed("append", errors.New("boom")), 502},
		{apperr.ErrUnauthorized, 401},
		{fiber.ErrUnprocessableEntity, 422},
		{errors.New("boom"), 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), "%v", tt.err)
	}
}

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func TestValidateRequest(t *testing.T) {
	require.NoError(t, ValidateRequest(loginBody{Email: "a@x.com", Password: "secret"}))

	err := ValidateRequest(loginBody{Email: "nope", Password: "secret"})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/ended", func(ctx *fiber.Ctx) error { return apperr.ErrSessionEnded })
	app.Get("/invalid", func(ctx *fiber.Ctx) error { return apperr.Invalid("text", "is required") })

	res, err := app.Test(httptest.NewRequest("GET", "/ended", nil))
	require.NoError(t, err)
	assert.Equal(t, 409, res.StatusCode)

	res, err = app.Test(httptest.NewRequest("GET", "/invalid", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, res.StatusCode)
	body, _ := io.ReadAll(res.Body)
	var parsed BaseResponse[any]
	require.NoError(t, json.Unmarshal(body, &parsed))
	assert.False(t, parsed.Success)
	assert.Equal(t, "is required", parsed.Errors["text"])
}

func TestJwtMiddleware(t *testing.T) {
	const secret = "test-secret"
	app := fiber.New()
	app.Get("/me", JwtMiddleware(secret), func(ctx *fiber.Ctx) error {
		return ctx.SendString(OperatorEmail(ctx))
	})

	token, err := SignOperatorToken(secret, "op@example.com", "Op", time.Now().Add(time.Hour))
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode)
	body, _ := io.ReadAll(res.Body)
	assert.Equal(t, "op@example.com", string(body))

	res, err = app.Test(httptest.NewRequest("GET", "/me?token="+token, nil))
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode, "query token accepted for sockets")

	expired, err := SignOperatorToken(secret, "op@example.com", "Op", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	res, err = app.Test(httptest.NewRequest("GET", "/me?token="+expired, nil))
	require.NoError(t, err)
	assert.Equal(t, 401, res.StatusCode)

	other, err := SignOperatorToken("other", "op@example.com", "Op", time.Now().Add(time.Hour))
	require.NoError(t, err)
	res, err = app.Test(httptest.NewRequest("GET", "/me?token="+other, nil))
	require.NoError(t, err)
	assert.Equal(t, 401, res.StatusCode)

	res, err = app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, res.StatusCode)
}
