package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfvmesh/sfcd/cmd/controller/service"
	"github.com/nfvmesh/sfcd/common/bootstrap"
)

// ChainHandler handles chain CRUD and launch requests
type ChainHandler struct {
	components *bootstrap.Components
	chains     *service.ChainService
	launcher   *service.Launcher
}

// NewChainHandler creates a new chain handler
func NewChainHandler(components *bootstrap.Components, chains *service.ChainService, launcher *service.Launcher) *ChainHandler {
	return &ChainHandler{
		components: components,
		chains:     chains,
		launcher:   launcher,
	}
}

// CreateChain creates a new chain
// POST /api/v1/chains
func (h *ChainHandler) CreateChain(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		TenantID string `json:"tenant_id"`
		Name     string `json:"name"`
		AutoBoot bool   `json:"auto_boot"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.TenantID == "" || req.Name == "" {
		return badRequest(c, "tenant_id and name are required")
	}

	chain, err := h.chains.Create(ctx, req.TenantID, req.Name, req.AutoBoot, actorOf(c))
	if err != nil {
		h.components.Logger.Error("failed to create chain", "error", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, chain)
}

// GetChain retrieves a chain by id
// GET /api/v1/chains/:id
func (h *ChainHandler) GetChain(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid chain id")
	}

	chain, err := h.chains.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, chain)
}

// ListChains lists chains, optionally filtered by tenant
// GET /api/v1/chains?tenant=
func (h *ChainHandler) ListChains(c echo.Context) error {
	chains, err := h.chains.List(c.Request().Context(), c.QueryParam("tenant"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"chains": chains})
}

// DeleteChain deletes a chain; Conflict while steps still reference it
// DELETE /api/v1/chains/:id
func (h *ChainHandler) DeleteChain(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid chain id")
	}

	if err := h.chains.Delete(c.Request().Context(), id, actorOf(c)); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// LaunchChain provisions every step of a chain in sequence order.
// On partial failure the response still carries the per-step outcomes.
// POST /api/v1/chains/:id/launch
func (h *ChainHandler) LaunchChain(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid chain id")
	}

	var req service.LaunchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Actor == "" {
		req.Actor = actorOf(c)
	}

	result, launchErr := h.launcher.Launch(ctx, id, req)
	if launchErr != nil {
		if result == nil {
			return writeError(c, launchErr)
		}
		// Partial failure: report the outcome alongside the error so the
		// caller can see which steps were provisioned.
		status := statusOf(launchErr)
		return c.JSON(status, map[string]any{
			"result": result,
			"error":  launchErr.Error(),
		})
	}

	return c.JSON(http.StatusOK, result)
}
