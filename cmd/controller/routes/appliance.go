package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/nfvmesh/sfcd/cmd/controller/container"
	"github.com/nfvmesh/sfcd/cmd/controller/handlers"
)

// RegisterApplianceRoutes registers appliance template catalog routes
func RegisterApplianceRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewApplianceHandler(c.Components, c.ApplianceService)

	appliances := e.Group("/api/v1/appliances")
	{
		appliances.POST("", h.CreateAppliance)       // POST /api/v1/appliances
		appliances.GET("", h.ListAppliances)         // GET /api/v1/appliances?tenant=
		appliances.GET("/:id", h.GetAppliance)       // GET /api/v1/appliances/{id}
		appliances.DELETE("/:id", h.DeleteAppliance) // DELETE /api/v1/appliances/{id}
	}
}
