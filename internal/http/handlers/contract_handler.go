package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lumi-ct/backend/internal/http/dto"
	"github.com/lumi-ct/backend/internal/middleware"
	"github.com/lumi-ct/backend/internal/services"
	"go.uber.org/zap"
)

type ContractHandler struct {
	contracts *services.ContractService
	policy    *services.PolicyService
	log       *zap.Logger
}

func NewContractHandler(contracts *services.ContractService, policy *services.PolicyService, log *zap.Logger) *ContractHandler {
	return &ContractHandler{contracts: contracts, policy: policy, log: log}
}

func (h *ContractHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateContractRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	contract, err := h.contracts.Create(c.Context(), req.Title, req.Description, req.IsPublic, middleware.GetActor(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return created(c, contract)
}

func (h *ContractHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract id"})
	}

	contract, err := h.contracts.Get(c.Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, contract)
}

func (h *ContractHandler) List(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	contracts, err := h.contracts.ListForUser(c.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, contracts)
}

func (h *ContractHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract id"})
	}

	var req dto.UpdateContractRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	contract, err := h.contracts.Update(c.Context(), id, req.Title, req.Status, req.IsPublic, req.Description, middleware.GetActor(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, contract)
}

// Permissions returns the capability snapshot for the calling user.
func (h *ContractHandler) Permissions(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid contract id"})
	}

	caps, err := h.policy.Capabilities(c.Context(), id, middleware.GetActor(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PermissionsResponse{Permissions: caps})
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	limit, offset = 20, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
