package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lumi-ct/backend/internal/auth"
	"github.com/lumi-ct/backend/internal/config"
	"github.com/lumi-ct/backend/internal/http/dto"
	"go.uber.org/zap"
)

// AuthHandler mints development tokens. Real authentication lives in the
// neighboring SSO service; this endpoint only exists when DEV_TOKENS_ENABLED
// is set so local and test environments can obtain a (userId, systemRoles)
// identity without standing that service up.
type AuthHandler struct {
	cfg *config.Config
	log *zap.Logger
}

func NewAuthHandler(cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, log: log}
}

func (h *AuthHandler) MintToken(c *fiber.Ctx) error {
	if !h.cfg.DevTokensEnabled {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "not found"})
	}

	var req dto.MintTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid user id"})
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, userID, req.SystemRoles, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("token mint failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.TokenResponse{Token: token})
}
