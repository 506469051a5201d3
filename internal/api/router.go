// Package api is the HTTP surface of the run service.
package api

import (
	"net/http"

	"community-load/internal/api/handlers"
	"community-load/internal/api/middleware"
	"community-load/internal/runner"
	"community-load/internal/store"

	"github.com/gin-gonic/gin"
)

type Deps struct {
	Store          store.Store
	Hub            *runner.Hub
	AllowedOrigins string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// NewRouter wires middleware and routes.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.CORS(d.AllowedOrigins))
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	configHandler := handlers.NewConfigHandler(d.Store)
	runHandler := handlers.NewRunHandler(d.Store, d.Hub)

	router.GET("/health", handlers.Health)
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/configs", configHandler.ListConfigs)
		v1.POST("/configs", configHandler.CreateConfig)
		v1.GET("/configs/:id", configHandler.GetConfig)
		v1.PUT("/configs/:id", configHandler.UpdateConfig)

		v1.POST("/runs", runHandler.CreateRun)
		v1.GET("/runs", runHandler.ListRuns)
		v1.GET("/runs/:id", runHandler.GetRun)
		v1.GET("/runs/:id/log", runHandler.GetLog)
		v1.GET("/runs/:id/ws", runHandler.StreamLog)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "no such route"}})
	})
	return router
}
