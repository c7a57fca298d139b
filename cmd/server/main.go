package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleet-manager/internal/api/middleware"
	"fleet-manager/internal/api/routes"
	"fleet-manager/internal/app"
	"fleet-manager/internal/config"
	"fleet-manager/internal/jobs"
	"fleet-manager/pkg/logger"
	"fleet-manager/pkg/scheduler"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	application, err := app.New(connectCtx, cfg)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("Failed to start")
	}
	defer application.Close()

	// Background work
	go application.Cleanup().Start(ctx)

	var sched *scheduler.Scheduler
	if cfg.Jobs.SchedulerEnabled {
		sched = startScheduler(application, cfg)
	} else {
		log.Info("Scheduler disabled, jobs run only when triggered")
	}

	// Setup Gin router
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-API-Key", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
	}
	// Handle wildcard origin for development
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, application.Handlers(cfg.Jobs.SchedulerEnabled), application.Limiter, application.LimitsConfig)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	log.Info("Server stopped")
}

func startScheduler(application *app.App, cfg *config.Config) *scheduler.Scheduler {
	sched := scheduler.New(cfg.Location())

	if _, err := sched.Add(jobs.ReconcileJob, cfg.Jobs.ReconcileSchedule, func(ctx context.Context) error {
		_, err := application.Reconciler.Run(ctx)
		return err
	}); err != nil {
		log.WithError(err).Fatal("Failed to schedule reconciliation")
	}

	if _, err := sched.Add(jobs.DispatchJob, cfg.Jobs.DispatchSchedule, func(ctx context.Context) error {
		_, err := application.Dispatcher.Run(ctx)
		return err
	}); err != nil {
		log.WithError(err).Fatal("Failed to schedule notification dispatch")
	}

	sched.Start()
	return sched
}
