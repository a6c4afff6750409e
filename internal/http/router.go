package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/lumi-ct/backend/internal/config"
	"github.com/lumi-ct/backend/internal/http/handlers"
	"github.com/lumi-ct/backend/internal/middleware"
	"github.com/lumi-ct/backend/internal/models"
	"github.com/lumi-ct/backend/internal/services"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	collabService *services.CollaboratorService,
	contractFlags services.ContractFlags,
	authHandler *handlers.AuthHandler,
	contractHandler *handlers.ContractHandler,
	collaboratorHandler *handlers.CollaboratorHandler,
	auditHandler *handlers.AuditHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Dev token mint (stands in for the SSO service, disabled by default)
	api.Post("/auth/token", authHandler.MintToken)

	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	guard := func(required ...models.Role) fiber.Handler {
		return middleware.CollaboratorGuard(collabService, contractFlags, log, required...)
	}

	// Contracts
	protected.Post("/contracts", contractHandler.Create)
	protected.Get("/contracts", contractHandler.List)
	protected.Get("/contracts/:id", guard(), contractHandler.Get)
	protected.Patch("/contracts/:id", guard(models.EditGroup...), contractHandler.Update)
	protected.Get("/contracts/:id/permissions", contractHandler.Permissions)

	// Collaborators. The guard only sets the coarse bar; per-target role
	// hierarchy checks happen inside the service.
	protected.Post("/contracts/:id/collaborators", guard(), collaboratorHandler.Add)
	protected.Get("/contracts/:id/collaborators", guard(), collaboratorHandler.List)
	protected.Patch("/contracts/:id/collaborators/:userId", guard(), collaboratorHandler.Update)
	protected.Delete("/contracts/:id/collaborators/:userId", guard(), collaboratorHandler.Remove)
	protected.Post("/contracts/:id/transfer-ownership", guard(models.RoleOwner), collaboratorHandler.TransferOwnership)

	// Audit trail. contract_id arrives as a query parameter; managers may
	// query across contracts, collaborators need an edit-capable role.
	protected.Get("/audit", guard(models.EditGroup...), auditHandler.Search)
	protected.Get("/audit/summary", guard(models.EditGroup...), auditHandler.Summary)

	// Notifications
	protected.Get("/notifications", notificationHandler.ListMine)
	protected.Post("/notifications/:id/read", notificationHandler.MarkRead)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
