package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"apexmind_backend/pkg/utils/jwt"
)

// AuthMiddleware validates the Bearer token and stores its claims under
// Locals("user").
func AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header required",
			})
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if tokenString == "" || tokenString == header {
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

// Claims returns the authenticated caller, or nil outside AuthMiddleware.
func Claims(c *fiber.Ctx) *jwt.Claims {
	claims, _ := c.Locals("user").(*jwt.Claims)
	return claims
}
