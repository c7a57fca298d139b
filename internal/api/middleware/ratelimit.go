package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fleet-manager/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RateLimitMiddleware limits the routes it is attached to. The category is
// resolved from the matched route, so /jobs/reconcile and /jobs/dispatch
// share one budget.
func RateLimitMiddleware(limiter ratelimit.RateLimiter, config *ratelimit.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		category := config.GetEndpointKey(route, c.Request.Method)
		clientID := getClientID(c)

		allowed, resetTime, err := limiter.Allow(c.Request.Context(), clientID, category)
		if err != nil {
			// Fail open: a broken limiter must not take the API down.
			log.WithError(err).WithField("category", category).Warn("Rate limiter unavailable")
			c.Header("X-RateLimit-Error", "Rate limiter unavailable")
			c.Next()
			return
		}

		setRateLimitHeaders(c, limiter.Limit(category), allowed, resetTime)

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":    false,
				"error":      "Rate limit exceeded",
				"message":    fmt.Sprintf("Too many requests. Try again in %v", resetTime.Round(time.Second)),
				"code":       "RATE_LIMIT_EXCEEDED",
				"retryAfter": retryAfterSeconds(resetTime),
			})
			return
		}

		c.Next()
	}
}

// getClientID identifies the caller by API key when present, else by IP.
func getClientID(c *gin.Context) string {
	if apiKey := c.GetHeader("X-API-Key"); apiKey != "" {
		return "api:" + apiKey
	}
	return "ip:" + c.ClientIP()
}

func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

func setRateLimitHeaders(c *gin.Context, limit ratelimit.RateLimit, allowed bool, resetTime time.Duration) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(limit.BurstSize))
	c.Header("X-RateLimit-Window", strconv.Itoa(int(limit.WindowSize.Seconds())))

	if !allowed {
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(resetTime)))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(resetTime).Unix(), 10))
	}
}
