package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lumi-ct/backend/internal/http/dto"
	"github.com/lumi-ct/backend/internal/middleware"
	"github.com/lumi-ct/backend/internal/repositories"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	repo *repositories.NotificationRepo
	log  *zap.Logger
}

func NewNotificationHandler(repo *repositories.NotificationRepo, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{repo: repo, log: log}
}

func (h *NotificationHandler) ListMine(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	notifications, err := h.repo.ListForUser(c.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, notifications)
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid notification id"})
	}

	if err := h.repo.MarkRead(c.Context(), middleware.GetUserID(c), id); err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, fiber.Map{"read": true})
}
