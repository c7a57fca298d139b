package handlers

import (
	"context"
	"net/http"
	"time"

	"fleet-manager/pkg/database"
	"fleet-manager/pkg/redis"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

type HealthHandler struct {
	db          *mongo.Database
	redisClient *redis.Client
	scheduler   bool
}

type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Services  map[string]interface{} `json:"services"`
}

// NewHealthHandler reports on the database and, when configured, Redis.
// A nil redisClient means Redis is disabled and does not count against health.
func NewHealthHandler(db *mongo.Database, redisClient *redis.Client, schedulerEnabled bool) *HealthHandler {
	return &HealthHandler{
		db:          db,
		redisClient: redisClient,
		scheduler:   schedulerEnabled,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Timestamp: time.Now().UTC(),
		Services:  make(map[string]interface{}),
	}

	mongoStatus := h.checkMongoDB(c.Request.Context())
	response.Services["mongodb"] = mongoStatus
	response.Services["redis"] = h.checkRedis(c.Request.Context())
	response.Services["scheduler"] = map[string]interface{}{"enabled": h.scheduler}

	// Redis is optional: the cache, limiter and job lock degrade without it.
	if mongoStatus["healthy"] == true {
		response.Status = "healthy"
		c.JSON(http.StatusOK, response)
	} else {
		response.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
	}
}

func (h *HealthHandler) checkMongoDB(ctx context.Context) map[string]interface{} {
	status := map[string]interface{}{
		"service": "mongodb",
		"healthy": false,
	}

	if h.db == nil {
		status["error"] = "Database client not initialized"
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := database.Health(ctx, h.db); err != nil {
		status["error"] = err.Error()
		return status
	}
	status["healthy"] = true
	status["message"] = "Connected"
	return status
}

func (h *HealthHandler) checkRedis(ctx context.Context) map[string]interface{} {
	status := map[string]interface{}{
		"service": "redis",
	}

	if h.redisClient == nil {
		status["enabled"] = false
		return status
	}

	health := h.redisClient.HealthCheck(ctx)
	status["enabled"] = true
	status["healthy"] = health.IsConnected
	status["connectionInfo"] = health.ConnectionInfo
	status["responseTime"] = health.ResponseTime.String()
	status["lastPing"] = health.LastPing
	status["connectionStats"] = h.redisClient.GetConnectionStats()
	if health.Error != "" {
		status["error"] = health.Error
	}
	return status
}
