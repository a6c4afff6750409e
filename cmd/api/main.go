package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/lumi-ct/backend/internal/config"
	"github.com/lumi-ct/backend/internal/db"
	"github.com/lumi-ct/backend/internal/events"
	apphttp "github.com/lumi-ct/backend/internal/http"
	"github.com/lumi-ct/backend/internal/http/handlers"
	"github.com/lumi-ct/backend/internal/repositories"
	"github.com/lumi-ct/backend/internal/services"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	collaboratorRepo := repositories.NewCollaboratorRepo(pool)
	contractRepo := repositories.NewContractRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	notificationRepo := repositories.NewNotificationRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	auditService := services.NewAuditService(auditRepo, log)
	notifier := services.NewNotifierClient(cfg.NotifyServiceURL, notificationRepo, log)
	collabService := services.NewCollaboratorService(collaboratorRepo, auditService, notifier, publisher, cfg, log)
	policyService := services.NewPolicyService(collabService, contractRepo, log)
	contractService := services.NewContractService(contractRepo, collabService, auditService, publisher, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(cfg, log)
	contractHandler := handlers.NewContractHandler(contractService, policyService, log)
	collaboratorHandler := handlers.NewCollaboratorHandler(collabService, log)
	auditHandler := handlers.NewAuditHandler(auditService, log)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, collabService, contractRepo,
		authHandler, contractHandler, collaboratorHandler, auditHandler, notificationHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
