package ratelimit

import (
	"strings"
	"time"
)

// Rate limit categories
const (
	CategoryJobs     = "jobs"
	CategoryWhatsApp = "whatsapp"
	CategoryConfirm  = "confirm"
	CategoryDefault  = "default"
)

// Config holds the configuration for rate limiting
type Config struct {
	DefaultLimits  map[string]RateLimit `json:"defaultLimits"`
	RedisKeyPrefix string               `json:"redisKeyPrefix"`
	Enabled        bool                 `json:"enabled"`
}

// DefaultConfig returns a default rate limiting configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultLimits: map[string]RateLimit{
			// Manual job triggers; the scheduler runs them daily anyway.
			CategoryJobs: {RequestsPerMinute: 2, BurstSize: 2, WindowSize: time.Minute},

			// Every call sends a real message.
			CategoryWhatsApp: {RequestsPerMinute: 5, BurstSize: 5, WindowSize: time.Minute},

			// Public links from reminder e-mails.
			CategoryConfirm: {RequestsPerMinute: 20, BurstSize: 10, WindowSize: time.Minute},

			CategoryDefault: {RequestsPerMinute: 60, BurstSize: 15, WindowSize: time.Minute},
		},
		RedisKeyPrefix: "ratelimit:",
		Enabled:        true,
	}
}

// Limit returns the limit configured for category, falling back to default.
func (c *Config) Limit(category string) RateLimit {
	if limit, ok := c.DefaultLimits[category]; ok {
		return limit
	}
	if limit, ok := c.DefaultLimits[CategoryDefault]; ok {
		return limit
	}
	return RateLimit{RequestsPerMinute: 60, BurstSize: 15, WindowSize: time.Minute}
}

var endpointMap = map[string]string{
	"POST:/api/v1/jobs/*":             CategoryJobs,
	"POST:/api/v1/whatsapp/test":      CategoryWhatsApp,
	"GET:/api/v1/inspections/confirm": CategoryConfirm,
}

// GetEndpointKey maps a method and route to a rate limit category.
func (c *Config) GetEndpointKey(endpoint, method string) string {
	key := method + ":" + endpoint
	if category, exists := endpointMap[key]; exists {
		return category
	}

	for pattern, category := range endpointMap {
		if matchesPattern(key, pattern) {
			return category
		}
	}

	return CategoryDefault
}

func matchesPattern(key, pattern string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(key, prefix)
	}
	return key == pattern
}
