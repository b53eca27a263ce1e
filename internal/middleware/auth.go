package middleware

import (
	"strings"

	"tasktracker/internal/models"
	"tasktracker/internal/service"
	"tasktracker/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Locals keys set by RequireSession.
const (
	LocalEmail = "email"
	LocalRole  = "role"
)

// SessionVerifier checks a bearer token and returns its claims.
type SessionVerifier interface {
	Verify(token string) (*service.SessionClaims, error)
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"msg":     msg,
		"success": false,
		"status":  fiber.StatusUnauthorized,
	})
}

// RequireSession rejects requests without a valid "Bearer <token>" header.
func RequireSession(sessions SessionVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "No token provided")
		}
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return unauthorized(c, "Invalid token format")
		}
		claims, err := sessions.Verify(parts[1])
		if err != nil {
			logger.SecurityLogger.Warn("Rejected session token", zap.String("path", c.Path()), zap.Error(err))
			return unauthorized(c, "Invalid or expired token")
		}
		c.Locals(LocalEmail, claims.User.Email)
		c.Locals(LocalRole, claims.User.Role)
		return c.Next()
	}
}

// RequireRole must run after RequireSession.
func RequireRole(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		current, _ := c.Locals(LocalRole).(models.Role)
		if current != role {
			email, _ := c.Locals(LocalEmail).(string)
			logger.SecurityLogger.Warn("Role check failed",
				zap.String("email", email),
				zap.String("role", string(current)),
				zap.String("required", string(role)),
			)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"msg":     "Forbidden",
				"success": false,
				"status":  fiber.StatusForbidden,
			})
		}
		return c.Next()
	}
}

// SessionFrom returns the identity RequireSession stored on c.
func SessionFrom(c *fiber.Ctx) (string, models.Role) {
	email, _ := c.Locals(LocalEmail).(string)
	role, _ := c.Locals(LocalRole).(models.Role)
	return email, role
}
