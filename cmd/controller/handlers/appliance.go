package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfvmesh/sfcd/cmd/controller/service"
	"github.com/nfvmesh/sfcd/common/bootstrap"
)

// ApplianceHandler handles appliance template catalog requests
type ApplianceHandler struct {
	components *bootstrap.Components
	appliances *service.ApplianceService
}

// NewApplianceHandler creates a new appliance handler
func NewApplianceHandler(components *bootstrap.Components, appliances *service.ApplianceService) *ApplianceHandler {
	return &ApplianceHandler{
		components: components,
		appliances: appliances,
	}
}

// CreateAppliance adds a template to the catalog
// POST /api/v1/appliances
func (h *ApplianceHandler) CreateAppliance(c echo.Context) error {
	var req service.ApplianceInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.TenantID == "" || req.Category == "" || req.ImageRef == "" {
		return badRequest(c, "tenant_id, category and image_ref are required")
	}

	tpl, err := h.appliances.Create(c.Request().Context(), req, actorOf(c))
	if err != nil {
		h.components.Logger.Error("failed to create appliance template", "error", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, tpl)
}

// GetAppliance retrieves a template by id
// GET /api/v1/appliances/:id
func (h *ApplianceHandler) GetAppliance(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid appliance template id")
	}

	tpl, err := h.appliances.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, tpl)
}

// ListAppliances lists catalog templates, optionally filtered by tenant
// GET /api/v1/appliances?tenant=
func (h *ApplianceHandler) ListAppliances(c echo.Context) error {
	templates, err := h.appliances.List(c.Request().Context(), c.QueryParam("tenant"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"appliances": templates})
}

// DeleteAppliance removes a template from the catalog. Instances already
// provisioned from it are unaffected.
// DELETE /api/v1/appliances/:id
func (h *ApplianceHandler) DeleteAppliance(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid appliance template id")
	}

	if err := h.appliances.Delete(c.Request().Context(), id, actorOf(c)); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
