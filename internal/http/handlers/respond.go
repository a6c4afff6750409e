package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lumi-ct/backend/internal/apperr"
	"github.com/lumi-ct/backend/internal/http/dto"
	"go.uber.org/zap"
)

// writeError maps the error taxonomy onto HTTP status codes. Typed kinds
// carry their own user-facing message; everything else is an opaque 500.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	switch apperr.KindOf(err) {
	case apperr.KindConflict:
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
	case apperr.KindNotFound:
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: err.Error()})
	case apperr.KindBadRequest:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	case apperr.KindForbidden:
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: err.Error()})
	default:
		log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: data})
}

func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: data})
}
