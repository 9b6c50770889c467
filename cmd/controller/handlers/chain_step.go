package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfvmesh/sfcd/cmd/controller/service"
	"github.com/nfvmesh/sfcd/common/bootstrap"
)

// ChainStepHandler handles chain step requests
type ChainStepHandler struct {
	components *bootstrap.Components
	steps      *service.ChainStepService
}

// NewChainStepHandler creates a new chain step handler
func NewChainStepHandler(components *bootstrap.Components, steps *service.ChainStepService) *ChainStepHandler {
	return &ChainStepHandler{
		components: components,
		steps:      steps,
	}
}

// CreateStep appends a step to a chain. Duplicate sequence numbers within a
// chain are rejected with Conflict.
// POST /api/v1/chains/:id/steps
func (h *ChainStepHandler) CreateStep(c echo.Context) error {
	chainID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid chain id")
	}

	var req struct {
		ApplianceTemplateID string `json:"appliance_template_id"`
		SequenceNumber      int    `json:"sequence_number"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	templateID, err := pathIDValue(req.ApplianceTemplateID)
	if err != nil {
		return badRequest(c, "invalid appliance_template_id")
	}
	if req.SequenceNumber < 1 {
		return badRequest(c, "sequence_number must be >= 1")
	}

	step, err := h.steps.Create(c.Request().Context(), chainID, templateID, req.SequenceNumber, actorOf(c))
	if err != nil {
		h.components.Logger.Error("failed to create chain step", "error", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, step)
}

// ListSteps lists a chain's steps in launch order
// GET /api/v1/chains/:id/steps
func (h *ChainStepHandler) ListSteps(c echo.Context) error {
	chainID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid chain id")
	}

	steps, err := h.steps.ListByChain(c.Request().Context(), chainID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"steps": steps})
}

// GetStep retrieves one chain step
// GET /api/v1/steps/:id
func (h *ChainStepHandler) GetStep(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid step id")
	}

	step, err := h.steps.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, step)
}

// DeleteStep removes a chain step
// DELETE /api/v1/steps/:id
func (h *ChainStepHandler) DeleteStep(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid step id")
	}

	if err := h.steps.Delete(c.Request().Context(), id, actorOf(c)); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
