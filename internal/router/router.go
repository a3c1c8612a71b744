package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/itsmesamster/reduce-app/internal/handlers"
	"github.com/itsmesamster/reduce-app/internal/middleware"
	"github.com/itsmesamster/reduce-app/internal/services"
	"github.com/itsmesamster/reduce-app/pkg/response"
)

// SetupRouter wires the monitoring HTTP surface: health, scheduler
// state, manual triggers and the stored sync reports.
func SetupRouter(scheduler *services.SyncScheduler, reports *services.ReportService) *gin.Engine {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS())

	registerRoutes(router, scheduler, reports)
	return router
}

func registerRoutes(router *gin.Engine, scheduler *services.SyncScheduler, reports *services.ReportService) {
	api := router.Group("/api/v1")
	{
		api.GET("/health", healthCheck)
		api.GET("/ping", ping)

		syncHandler := handlers.NewSyncHandler(scheduler)
		sync := api.Group("/sync")
		{
			sync.GET("/status", syncHandler.Status)
			sync.POST("/kpm", syncHandler.TriggerKpmSync)
			sync.POST("/jira", syncHandler.TriggerJiraSync)
		}

		reportHandler := handlers.NewReportHandler(reports)
		reportGroup := api.Group("/reports")
		{
			reportGroup.GET("", reportHandler.List)
			reportGroup.GET("/latest", reportHandler.Latest)
			reportGroup.GET("/:name", reportHandler.Get)
		}
	}
}

func healthCheck(c *gin.Context) {
	data := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"service":   "issue-sync",
		"version":   "1.0.0",
	}
	response.Success(c, data)
}

func ping(c *gin.Context) {
	response.SuccessWithMessage(c, "pong", nil)
}
