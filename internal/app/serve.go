package app

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/itsmesamster/reduce-app/internal/router"
	"github.com/itsmesamster/reduce-app/internal/services"
	"github.com/itsmesamster/reduce-app/pkg/config"
	"github.com/itsmesamster/reduce-app/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync scheduler with the monitoring HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	cfg := config.GetConfig()
	appLogger := logger.GetLogger()
	appLogger.Info("Starting issue sync service...")

	ctx, err := buildSyncContext(cfg)
	if err != nil {
		return err
	}

	scheduler := services.NewSyncScheduler(ctx.kpmSync, ctx.jiraSync)
	if err := scheduler.Start(cfg.Sync.CronSpec, cfg.Sync.DailyTimes); err != nil {
		return err
	}
	defer scheduler.Stop()

	gin.SetMode(cfg.Server.Mode)
	r := router.SetupRouter(scheduler, ctx.reports)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()
	appLogger.Infof("Server started on port %s", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	if err := server.Close(); err != nil {
		appLogger.Error("Server forced to shutdown:", err)
	}
	appLogger.Info("Server exited")
	return nil
}
