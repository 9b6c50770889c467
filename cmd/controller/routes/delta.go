package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/nfvmesh/sfcd/cmd/controller/container"
	"github.com/nfvmesh/sfcd/cmd/controller/handlers"
)

// RegisterDeltaRoutes registers the catch-up surface
func RegisterDeltaRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewDeltaHandler(c.Components, c.CatchupService)

	// GET /api/v1/deltas/{kind}?tenant=&since_version=
	e.GET("/api/v1/deltas/:kind", h.Catchup)
}
