package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryRateLimiter keeps fixed windows in process memory. Used when Redis is
// disabled; limits then apply per instance.
type MemoryRateLimiter struct {
	config  *Config
	now     func() time.Time
	mu      sync.Mutex
	windows map[string]*window
	total   atomic.Int64
	blocked atomic.Int64
}

type window struct {
	start time.Time
	count int
}

func NewMemoryRateLimiter(config *Config) *MemoryRateLimiter {
	if config == nil {
		config = DefaultConfig()
	}
	return &MemoryRateLimiter{
		config:  config,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

func (m *MemoryRateLimiter) Allow(_ context.Context, clientID, category string) (bool, time.Duration, error) {
	if !m.config.Enabled {
		return true, 0, nil
	}

	m.total.Add(1)
	limit := m.config.Limit(category)
	key := category + ":" + clientID
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictExpired(now)

	w, ok := m.windows[key]
	if !ok || now.Sub(w.start) >= limit.WindowSize {
		w = &window{start: now}
		m.windows[key] = w
	}

	if w.count >= limit.BurstSize {
		m.blocked.Add(1)
		return false, w.start.Add(limit.WindowSize).Sub(now), nil
	}

	w.count++
	return true, 0, nil
}

// evictExpired drops windows older than the longest configured window.
func (m *MemoryRateLimiter) evictExpired(now time.Time) {
	longest := time.Duration(0)
	for _, l := range m.config.DefaultLimits {
		if l.WindowSize > longest {
			longest = l.WindowSize
		}
	}
	for key, w := range m.windows {
		if now.Sub(w.start) > longest {
			delete(m.windows, key)
		}
	}
}

func (m *MemoryRateLimiter) Limit(category string) RateLimit {
	return m.config.Limit(category)
}

func (m *MemoryRateLimiter) GetStats() RateLimiterStats {
	return statsSnapshot(m.total.Load(), m.blocked.Load())
}
