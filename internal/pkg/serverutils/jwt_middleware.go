package serverutils

import (
	"errors"
	"strings"
	"time"

	"helpdesk-be/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const localOperatorEmail = "operator_email"

// SignOperatorToken issues an HS256 access token for an operator.
func SignOperatorToken(secret, email, name string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"operator_email": email,
		"name":           name,
		"exp":            expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseOperatorToken validates the token and returns the operator email.
func ParseOperatorToken(secret, tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", apperr.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperr.ErrUnauthorized
	}
	email, _ := claims["operator_email"].(string)
	if email == "" {
		return "", errors.Join(apperr.ErrUnauthorized, errors.New("token carries no operator"))
	}
	return email, nil
}

// JwtMiddleware requires an operator token. Browsers cannot set headers on a
// websocket upgrade, so a "token" query parameter is accepted too.
func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := ctx.Query("token")
		if authHeader := ctx.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr = authHeader[7:]
		}
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		email, err := ParseOperatorToken(secret, tokenStr)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		ctx.Locals(localOperatorEmail, email)
		return ctx.Next()
	}
}

// OperatorEmail returns the identity set by JwtMiddleware.
func OperatorEmail(ctx *fiber.Ctx) string {
	email, _ := ctx.Locals(localOperatorEmail).(string)
	return email
}
