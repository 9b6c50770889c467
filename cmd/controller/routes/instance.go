package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/nfvmesh/sfcd/cmd/controller/container"
	"github.com/nfvmesh/sfcd/cmd/controller/handlers"
)

// RegisterInstanceRoutes registers step instance read routes
func RegisterInstanceRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewStepInstanceHandler(c.Components, c.InstanceService)

	instances := e.Group("/api/v1/instances")
	{
		instances.GET("", h.ListInstances)   // GET /api/v1/instances?tenant=
		instances.GET("/:id", h.GetInstance) // GET /api/v1/instances/{id}
	}
}
