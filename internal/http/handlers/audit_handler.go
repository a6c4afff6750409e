package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lumi-ct/backend/internal/http/dto"
	"github.com/lumi-ct/backend/internal/repositories"
	"github.com/lumi-ct/backend/internal/services"
	"go.uber.org/zap"
)

type AuditHandler struct {
	audit *services.AuditService
	log   *zap.Logger
}

func NewAuditHandler(audit *services.AuditService, log *zap.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, log: log}
}

// Search lists audit entries filtered by contract, user, action, and time
// range, newest first.
func (h *AuditHandler) Search(c *fiber.Ctx) error {
	f := repositories.AuditFilter{Limit: 50}

	if v := c.Query("contract_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract_id"})
		}
		f.ContractID = &id
	}
	if v := c.Query("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid user_id"})
		}
		f.UserID = &id
	}
	if v := c.Query("action"); v != "" {
		f.Action = &v
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid from timestamp"})
		}
		f.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid to timestamp"})
		}
		f.To = &t
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			f.Offset = n
		}
	}

	entries, err := h.audit.Search(c.Context(), f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, entries)
}

// Summary aggregates entry counts, grouped by action (default) or by user.
func (h *AuditHandler) Summary(c *fiber.Ctx) error {
	var contractID *uuid.UUID
	if v := c.Query("contract_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract_id"})
		}
		contractID = &id
	}

	groupBy := c.Query("group_by", "action")
	rows, err := h.audit.Summary(c.Context(), contractID, groupBy)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.AuditSummaryResponse{GroupBy: groupBy, Rows: rows})
}
