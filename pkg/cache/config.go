package cache

import "time"

// CacheConfig holds TTLs and key prefixes.
type CacheConfig struct {
	VehicleDataTTL time.Duration `json:"vehicleDataTTL"`
	VehicleListTTL time.Duration `json:"vehicleListTTL"`
	ReportTTL      time.Duration `json:"reportTTL"`
	KeyPrefix      string        `json:"keyPrefix"`
	TagPrefix      string        `json:"tagPrefix"`
}

// DefaultCacheConfig returns default cache configuration
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		VehicleDataTTL: 5 * time.Minute,
		VehicleListTTL: 2 * time.Minute,
		ReportTTL:      10 * time.Minute,
		KeyPrefix:      "fleet:",
		TagPrefix:      "tag:",
	}
}

// GetTTLForDataType returns the TTL for a kind of cached data.
func (c CacheConfig) GetTTLForDataType(dataType string) time.Duration {
	switch dataType {
	case "vehicle":
		return c.VehicleDataTTL
	case "vehicle_list":
		return c.VehicleListTTL
	case "report":
		return c.ReportTTL
	default:
		return c.VehicleDataTTL
	}
}
