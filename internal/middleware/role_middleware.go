package middleware

import (
	"github.com/gofiber/fiber/v2"

	"appointmenthub_backend/internal/model"
)

// RequireRole rejects requests whose authenticated role is not in the allow list.
// Must run after AuthMiddleware.
func RequireRole(roles ...model.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := CurrentUser(c)
		if claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		for _, role := range roles {
			if claims.Role == role {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}
}
