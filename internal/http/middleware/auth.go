package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Mathew-Seliverstov/projectAuthServer/internal/domain/models"
)

// AccountKey is the fiber.Locals key under which the verified token payload
// is stored for downstream handlers.
const AccountKey = "account"

type AccessVerifier interface {
	VerifyAccess(token string) (models.TokenPayload, error)
}

// Auth guards a route with a bearer access token. The payload of a valid
// token is stored in locals; everything else is a uniform 401.
func Auth(verifier AccessVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		payload, err := verifier.VerifyAccess(parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(AccountKey, payload)

		return c.Next()
	}
}
