package routes

import (
	"fleet-manager/internal/api/handlers"
	"fleet-manager/internal/api/middleware"
	"fleet-manager/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups every HTTP handler of the API.
type Handlers struct {
	Health        *handlers.HealthHandler
	Vehicles      *handlers.VehicleHandler
	Users         *handlers.UserHandler
	Maintenance   *handlers.MaintenanceHandler
	Tasks         *handlers.TaskHandler
	Jobs          *handlers.JobHandler
	Notifications *handlers.NotificationHandler
	Reports       *handlers.ReportHandler
}

// SetupRoutes registers the API on router. Job triggers, the WhatsApp test
// and the public confirmation link are rate limited when limiter is set.
func SetupRoutes(router *gin.Engine, h *Handlers, limiter ratelimit.RateLimiter, limits *ratelimit.Config) {
	router.Use(middleware.Metrics())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limited := func(c *gin.Context) { c.Next() }
	if limiter != nil && limits != nil && limits.Enabled {
		limited = middleware.RateLimitMiddleware(limiter, limits)
	}

	api := router.Group("/api/v1")
	api.GET("/health", h.Health.HealthCheck)

	// Vehicles
	vehicles := api.Group("/vehicles")
	{
		vehicles.GET("", h.Vehicles.GetVehicles)
		vehicles.POST("", h.Vehicles.CreateVehicle)
		vehicles.GET("/:id", h.Vehicles.GetVehicle)
		vehicles.PATCH("/:id", h.Vehicles.UpdateVehicle)
		vehicles.DELETE("/:id", h.Vehicles.DeleteVehicle)
		vehicles.POST("/:id/confirm-inspection", h.Vehicles.ConfirmInspection)
	}
	api.GET("/inspections/confirm", limited, h.Vehicles.ConfirmByLink)

	// Users
	users := api.Group("/users")
	{
		users.GET("", h.Users.GetUsers)
		users.POST("", h.Users.CreateUser)
		users.GET("/:id", h.Users.GetUser)
		users.PATCH("/:id", h.Users.UpdateUser)
		users.DELETE("/:id", h.Users.DeleteUser)
	}

	// Maintenance
	maintenance := api.Group("/maintenance")
	{
		maintenance.GET("", h.Maintenance.GetMaintenanceRecords)
		maintenance.POST("", h.Maintenance.CreateMaintenanceRecord)
		maintenance.GET("/vehicle/:id", h.Maintenance.GetVehicleMaintenance)
		maintenance.GET("/:id", h.Maintenance.GetMaintenanceRecord)
		maintenance.PATCH("/:id", h.Maintenance.UpdateMaintenanceRecord)
		maintenance.DELETE("/:id", h.Maintenance.DeleteMaintenanceRecord)
	}

	// Tasks
	tasks := api.Group("/tasks")
	{
		tasks.GET("", h.Tasks.GetTasks)
		tasks.POST("", h.Tasks.CreateTask)
		tasks.GET("/vehicle/:id", h.Tasks.GetVehicleTasks)
		tasks.GET("/:id", h.Tasks.GetTask)
		tasks.PATCH("/:id", h.Tasks.UpdateTask)
		tasks.DELETE("/:id", h.Tasks.DeleteTask)
	}

	// Jobs
	jobs := api.Group("/jobs", limited)
	{
		jobs.POST("/reconcile", h.Jobs.RunReconcile)
		jobs.POST("/dispatch", h.Jobs.RunDispatch)
	}

	api.POST("/whatsapp/test", limited, h.Notifications.SendWhatsAppTest)
	api.GET("/notifications", h.Notifications.GetNotifications)
	api.GET("/reports/fleet", h.Reports.GetFleetReport)
}
