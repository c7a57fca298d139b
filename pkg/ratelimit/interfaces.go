package ratelimit

import (
	"context"
	"time"
)

// RateLimiter decides whether a client may make another request in a category.
// When a request is refused the returned duration is the time until the
// window resets.
type RateLimiter interface {
	Allow(ctx context.Context, clientID, category string) (bool, time.Duration, error)
	Limit(category string) RateLimit
	GetStats() RateLimiterStats
}

// RateLimit allows BurstSize requests per WindowSize.
type RateLimit struct {
	RequestsPerMinute int           `json:"requestsPerMinute"`
	BurstSize         int           `json:"burstSize"`
	WindowSize        time.Duration `json:"windowSize"`
}

type RateLimiterStats struct {
	TotalRequests   int64   `json:"totalRequests"`
	BlockedRequests int64   `json:"blockedRequests"`
	BlockedRatio    float64 `json:"blockedRatio"`
}

func statsSnapshot(total, blocked int64) RateLimiterStats {
	stats := RateLimiterStats{TotalRequests: total, BlockedRequests: blocked}
	if total > 0 {
		stats.BlockedRatio = float64(blocked) / float64(total)
	}
	return stats
}
