package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfvmesh/sfcd/cmd/controller/service"
	"github.com/nfvmesh/sfcd/common/bootstrap"
)

// StepInstanceHandler exposes the read side of provisioned step instances.
// Writes go through the launcher and the lifecycle reconciler.
type StepInstanceHandler struct {
	components *bootstrap.Components
	instances  *service.StepInstanceService
}

// NewStepInstanceHandler creates a new step instance handler
func NewStepInstanceHandler(components *bootstrap.Components, instances *service.StepInstanceService) *StepInstanceHandler {
	return &StepInstanceHandler{
		components: components,
		instances:  instances,
	}
}

// GetInstance retrieves a step instance by id
// GET /api/v1/instances/:id
func (h *StepInstanceHandler) GetInstance(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid instance id")
	}

	inst, err := h.instances.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, inst)
}

// ListInstances lists step instances, optionally filtered by tenant
// GET /api/v1/instances?tenant=
func (h *StepInstanceHandler) ListInstances(c echo.Context) error {
	instances, err := h.instances.List(c.Request().Context(), c.QueryParam("tenant"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"instances": instances})
}
