package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lumi-ct/backend/internal/http/dto"
	"github.com/lumi-ct/backend/internal/middleware"
	"github.com/lumi-ct/backend/internal/models"
	"github.com/lumi-ct/backend/internal/services"
	"go.uber.org/zap"
)

type CollaboratorHandler struct {
	collab *services.CollaboratorService
	log    *zap.Logger
}

func NewCollaboratorHandler(collab *services.CollaboratorService, log *zap.Logger) *CollaboratorHandler {
	return &CollaboratorHandler{collab: collab, log: log}
}

func (h *CollaboratorHandler) Add(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract id"})
	}

	var req dto.AddCollaboratorRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid user id"})
	}
	role, valid := models.ParseRole(req.Role)
	if !valid {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid role"})
	}

	collab, err := h.collab.Add(c.Context(), contractID, userID, role, middleware.GetActor(c), req.Note)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return created(c, collab)
}

func (h *CollaboratorHandler) List(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract id"})
	}

	collabs, err := h.collab.List(c.Context(), contractID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, collabs)
}

// Update handles role changes, grant changes, and removal in one PATCH:
// active=false removes the collaborator.
func (h *CollaboratorHandler) Update(c *fiber.Ctx) error {
	contractID, userID, ok2 := collaboratorIDs(c)
	if !ok2 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract or user id"})
	}

	var req dto.UpdateCollaboratorRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	actor := middleware.GetActor(c)

	if req.Active != nil && !*req.Active {
		removed, err := h.collab.Remove(c.Context(), contractID, userID, actor)
		if err != nil {
			return writeError(c, h.log, err)
		}
		return ok(c, removed)
	}

	var updated *models.Collaborator
	var err error
	switch {
	case req.Role != nil:
		role, valid := models.ParseRole(*req.Role)
		if !valid {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid role"})
		}
		updated, err = h.collab.UpdateRole(c.Context(), contractID, userID, role, actor)
	case req.CanExport != nil || req.CanManage != nil:
		current, gerr := h.collab.GetActive(c.Context(), contractID, userID)
		if gerr != nil {
			return writeError(c, h.log, gerr)
		}
		canExport := current.CanExport
		canManage := current.CanManageCollaborators
		if req.CanExport != nil {
			canExport = *req.CanExport
		}
		if req.CanManage != nil {
			canManage = *req.CanManage
		}
		updated, err = h.collab.UpdateGrants(c.Context(), contractID, userID, canExport, canManage, actor)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "nothing to update"})
	}
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, updated)
}

func (h *CollaboratorHandler) Remove(c *fiber.Ctx) error {
	contractID, userID, ok2 := collaboratorIDs(c)
	if !ok2 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract or user id"})
	}

	removed, err := h.collab.Remove(c.Context(), contractID, userID, middleware.GetActor(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, removed)
}

func (h *CollaboratorHandler) TransferOwnership(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract id"})
	}

	var req dto.TransferOwnershipRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	fromID, err := uuid.Parse(req.FromUserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid from_user_id"})
	}
	toID, err := uuid.Parse(req.ToUserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid to_user_id"})
	}

	if err := h.collab.TransferOwnership(c.Context(), contractID, fromID, toID, middleware.GetActor(c)); err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, fiber.Map{"transferred": true})
}

// collaboratorIDs parses the contract and user ids from the path, accepting
// both separate params and the composite "contractId_userId" form.
func collaboratorIDs(c *fiber.Ctx) (contractID, userID uuid.UUID, ok bool) {
	raw := c.Params("userId")
	if raw == "" {
		return uuid.Nil, uuid.Nil, false
	}

	contractRaw := c.Params("id")
	if i := strings.IndexByte(raw, '_'); i > 0 {
		contractRaw, raw = raw[:i], raw[i+1:]
	}

	contractID, err := uuid.Parse(contractRaw)
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	userID, err = uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return contractID, userID, true
}
