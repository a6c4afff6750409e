package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lumi-ct/backend/internal/auth"
	"github.com/lumi-ct/backend/internal/config"
	"github.com/lumi-ct/backend/internal/models"
	"go.uber.org/zap"
)

const (
	CtxUserID      = "user_id"
	CtxSystemRoles = "system_roles"
)

func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(CtxUserID, claims.UserID)
		c.Locals(CtxSystemRoles, claims.SystemRoles)

		return c.Next()
	}
}

func GetUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(CtxUserID).(uuid.UUID)
	return id
}

func GetSystemRoles(c *fiber.Ctx) []string {
	roles, _ := c.Locals(CtxSystemRoles).([]string)
	return roles
}

// GetActor bundles the authenticated identity for service calls.
func GetActor(c *fiber.Ctx) models.Actor {
	return models.Actor{ID: GetUserID(c), SystemRoles: GetSystemRoles(c)}
}

// ManagerMiddleware restricts an endpoint to the organization-wide manager
// system role.
func ManagerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !GetActor(c).IsManager() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "manager access required"})
		}
		return c.Next()
	}
}
