package cache

import (
	"context"
	"time"

	"fleet-manager/internal/models"
)

// Tags shared by writers that need to drop cached entries in bulk.
const (
	TagAllVehicles  = "vehicles"
	TagVehicleLists = "vehicle_lists"
	TagReports      = "reports"
)

// CacheManager defines the interface for caching operations. A miss is
// reported as (nil, nil).
type CacheManager interface {
	GetVehicle(ctx context.Context, vehicleID string) (*models.Vehicle, error)
	SetVehicle(ctx context.Context, vehicle *models.Vehicle, ttl time.Duration) error
	InvalidateVehicle(ctx context.Context, vehicleID string) error

	GetVehicleList(ctx context.Context, key string) ([]*models.Vehicle, error)
	SetVehicleList(ctx context.Context, key string, vehicles []*models.Vehicle, ttl time.Duration) error

	// Get reports whether the key was found.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration, tags ...string) error

	TagKey(ctx context.Context, key string, ttl time.Duration, tags ...string) error
	InvalidateByTag(ctx context.Context, tag string) error

	GetCacheStats(ctx context.Context) CacheStats
	HealthCheck(ctx context.Context) error
}

// CacheStats provides cache performance metrics
type CacheStats struct {
	HitRate       float64 `json:"hitRate"`
	MissRate      float64 `json:"missRate"`
	KeyCount      int     `json:"keyCount"`
	EvictionCount int64   `json:"evictionCount"`
	TotalHits     int64   `json:"totalHits"`
	TotalMisses   int64   `json:"totalMisses"`
}
