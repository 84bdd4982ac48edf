package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"appointmenthub_backend/pkg/utils/jwt"
)

// AuthMiddleware validates the bearer token and stores the claims in locals.
func AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header required",
			})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization format",
			})
		}

		claims, err := jwt.ValidateToken(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("user", claims)
		return c.Next()
	}
}

// CurrentUser returns the authenticated claims set by AuthMiddleware.
func CurrentUser(c *fiber.Ctx) *jwt.Claims {
	claims, _ := c.Locals("user").(*jwt.Claims)
	return claims
}
