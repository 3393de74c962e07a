package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"component-catalog-service/internal/auth"
	"component-catalog-service/internal/domain"
	"component-catalog-service/internal/transport/httpserver/dto"
)

// roleKey is the fiber locals key holding the caller role.
const roleKey = "role"

// WithRole returns a middleware that resolves the caller role from the
// Authorization header and stores it in locals. Requests without a usable
// token proceed as anonymous; browsing is open.
func WithRole(verifier *auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := domain.RoleAnonymous

		header := c.Get(fiber.HeaderAuthorization)
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			role = verifier.RoleFor(token)
		}
		c.Locals(roleKey, role)

		return c.Next()
	}
}

// RoleFrom reads the resolved caller role, anonymous when the middleware did
// not run.
func RoleFrom(c *fiber.Ctx) domain.Role {
	if role, ok := c.Locals(roleKey).(domain.Role); ok {
		return role
	}

	return domain.RoleAnonymous
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if RoleFrom(c) != domain.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: "admin role required",
				Code:  "FORBIDDEN",
			})
		}

		return c.Next()
	}
}
