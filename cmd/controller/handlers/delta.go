package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/nfvmesh/sfcd/cmd/controller/service"
	"github.com/nfvmesh/sfcd/common/bootstrap"
	"github.com/nfvmesh/sfcd/common/models"
)

// DeltaHandler serves the catch-up surface consumers hit after missing
// broadcasts.
type DeltaHandler struct {
	components *bootstrap.Components
	catchup    *service.CatchupService
}

// NewDeltaHandler creates a new delta handler
func NewDeltaHandler(components *bootstrap.Components, catchup *service.CatchupService) *DeltaHandler {
	return &DeltaHandler{
		components: components,
		catchup:    catchup,
	}
}

// Catchup returns the ordered delta history for one entity kind and tenant.
// since_version is optional; absent or zero means full history.
// GET /api/v1/deltas/:kind?tenant=&since_version=
func (h *DeltaHandler) Catchup(c echo.Context) error {
	kind := models.EntityKind(c.Param("kind"))
	if !kind.Valid() {
		return badRequest(c, "unknown entity kind")
	}

	tenantID := c.QueryParam("tenant")
	if tenantID == "" {
		return badRequest(c, "tenant is required")
	}

	var sinceVersion uint64
	if raw := c.QueryParam("since_version"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return badRequest(c, "invalid since_version")
		}
		sinceVersion = parsed
	}

	envelopes, err := h.catchup.Catchup(c.Request().Context(), kind, tenantID, sinceVersion)
	if err != nil {
		h.components.Logger.Error("catch-up failed", "entity_kind", kind, "error", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"delta":     envelopes,
		"keyword":   string(kind),
		"tenant_id": tenantID,
	})
}
