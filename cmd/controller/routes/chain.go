package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/nfvmesh/sfcd/cmd/controller/container"
	"github.com/nfvmesh/sfcd/cmd/controller/handlers"
)

// RegisterChainRoutes registers chain and chain step routes
func RegisterChainRoutes(e *echo.Echo, c *container.Container) {
	chainHandler := handlers.NewChainHandler(c.Components, c.ChainService, c.Launcher)
	stepHandler := handlers.NewChainStepHandler(c.Components, c.StepService)

	chains := e.Group("/api/v1/chains")
	{
		chains.POST("", chainHandler.CreateChain)        // POST /api/v1/chains
		chains.GET("", chainHandler.ListChains)          // GET /api/v1/chains?tenant=
		chains.GET("/:id", chainHandler.GetChain)        // GET /api/v1/chains/{id}
		chains.DELETE("/:id", chainHandler.DeleteChain)  // DELETE /api/v1/chains/{id}
		chains.POST("/:id/launch", chainHandler.LaunchChain) // POST /api/v1/chains/{id}/launch
		chains.POST("/:id/steps", stepHandler.CreateStep)    // POST /api/v1/chains/{id}/steps
		chains.GET("/:id/steps", stepHandler.ListSteps)      // GET /api/v1/chains/{id}/steps
	}

	steps := e.Group("/api/v1/steps")
	{
		steps.GET("/:id", stepHandler.GetStep)       // GET /api/v1/steps/{id}
		steps.DELETE("/:id", stepHandler.DeleteStep) // DELETE /api/v1/steps/{id}
	}
}
