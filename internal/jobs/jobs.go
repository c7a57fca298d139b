// Package jobs holds the two fleet wide batch jobs: schedule reconciliation
// and reminder dispatch.
package jobs

import (
	"context"
	"errors"
	"time"

	"fleet-manager/pkg/apperr"
	fleetredis "fleet-manager/pkg/redis"

	log "github.com/sirupsen/logrus"
)

// Job names, used for locks, metrics and logs.
const (
	ReconcileJob = "reconcile"
	DispatchJob  = "dispatch"
)

// Locker keeps two runs of the same job from overlapping.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (*fleetredis.Lock, error)
}

// CacheInvalidator drops cached vehicle reads after a job wrote vehicles.
type CacheInvalidator interface {
	InvalidateByTag(ctx context.Context, tag string) error
}

// acquireLock takes the job lock. A held lock is a Conflict. Any other lock
// failure (Redis down) is logged and the run goes ahead unguarded.
func acquireLock(ctx context.Context, locker Locker, job string, ttl time.Duration, entry *log.Entry) (func(), error) {
	if locker == nil {
		return func() {}, nil
	}

	lock, err := locker.Acquire(ctx, job, ttl)
	if errors.Is(err, fleetredis.ErrLockHeld) {
		return nil, apperr.Conflict("%s job is already running", job)
	}
	if err != nil {
		entry.WithError(err).Warn("Job lock unavailable, running without it")
		return func() {}, nil
	}

	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			entry.WithError(err).Warn("Failed to release job lock")
		}
	}, nil
}

func withJobTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func invalidate(ctx context.Context, c CacheInvalidator, tag string, entry *log.Entry) {
	if c == nil {
		return
	}
	if err := c.InvalidateByTag(ctx, tag); err != nil {
		entry.WithError(err).WithField("tag", tag).Warn("Failed to invalidate cache tag")
	}
}
