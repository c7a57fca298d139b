// Package scheduler runs the periodic jobs on cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner. A run that is still going when its next
// tick arrives makes that tick a no-op; panics are recovered and logged.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	logger := cron.PrintfLogger(log.StandardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers job under a standard five field cron spec.
func (s *Scheduler) Add(name, spec string, job Job) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() {
		entry := log.WithField("job", name)
		entry.Info("Scheduled job starting")

		start := time.Now()
		if err := job(s.ctx); err != nil {
			entry.WithError(err).Error("Scheduled job failed")
			return
		}
		entry.WithField("duration", time.Since(start)).Info("Scheduled job finished")
	})
	if err != nil {
		return 0, fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}

	log.WithFields(log.Fields{"job": name, "schedule": spec}).Info("Job scheduled")
	return id, nil
}

// Next returns the next activation time of an entry.
func (s *Scheduler) Next(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs, cancels the context given to running jobs and
// waits for them to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn("Scheduled jobs did not finish before shutdown")
	}
}
