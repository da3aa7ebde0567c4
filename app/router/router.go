package router

import (
	"net/http"

	"loanpilot/app/handler"
	"loanpilot/app/middleware"

	"github.com/gin-gonic/gin"
)

// Router Router
type Router struct {
	applicationHandler *handler.ApplicationHandler
	modelHandler       *handler.ModelHandler
	releaseHandler     *handler.ReleaseHandler
}

// NewRouter creates a new Router
func NewRouter(applicationHandler *handler.ApplicationHandler, modelHandler *handler.ModelHandler, releaseHandler *handler.ReleaseHandler) *Router {
	return &Router{
		applicationHandler: applicationHandler,
		modelHandler:       modelHandler,
		releaseHandler:     releaseHandler,
	}
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// V1 API - Scoring interface
	v1 := engine.Group("/v1")
	{
		v1.POST("/applications", r.applicationHandler.Submit)
		v1.POST("/applications/sync", r.applicationHandler.SubmitSync)
		v1.GET("/applications", r.applicationHandler.List)
		v1.GET("/applications/:application_id", r.applicationHandler.Status)
		v1.POST("/score", r.applicationHandler.Score)
		v1.GET("/model", r.modelHandler.Info)
	}

	// API v1 - Release management interface (if deployment management is enabled)
	if r.releaseHandler != nil {
		api := engine.Group("/api/v1")
		{
			releases := api.Group("/releases")
			{
				releases.GET("", r.releaseHandler.List)
				releases.GET("/:release_id", r.releaseHandler.Get)
				releases.POST("/preview", r.releaseHandler.Preview)
				releases.POST("/validate", r.releaseHandler.Validate)
			}

			deployment := api.Group("/deployment")
			{
				deployment.GET("/status", r.releaseHandler.Status)
				deployment.GET("/watch", r.releaseHandler.WatchReplicas)
			}

			// Mutating operations require the configured API key.
			mutating := api.Group("")
			mutating.Use(middleware.AuthMiddleware())
			{
				mutating.POST("/releases", r.releaseHandler.Rollout)
				mutating.PUT("/deployment/scale", r.releaseHandler.Scale)
				mutating.DELETE("/deployment", r.releaseHandler.Delete)
			}
		}
	}
}
