package cleanup

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Pruner deletes log entries older than a cutoff.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupService periodically removes notification log entries past their
// retention period.
type CleanupService struct {
	pruner    Pruner
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

func NewCleanupService(pruner Pruner, retention, interval time.Duration) *CleanupService {
	return &CleanupService{
		pruner:    pruner,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

// Start runs a cleanup immediately and then on every tick until ctx is done.
func (s *CleanupService) Start(ctx context.Context) {
	log.WithFields(log.Fields{"interval": s.interval, "retention": s.retention}).Info("Starting notification log cleanup service")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			log.Info("Stopping notification log cleanup service")
			return
		}
	}
}

// RunOnce prunes entries older than the retention period.
func (s *CleanupService) RunOnce(ctx context.Context) int64 {
	cutoff := s.now().Add(-s.retention)

	count, err := s.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.WithError(err).Error("Error cleaning up notification log")
		return 0
	}

	if count > 0 {
		log.WithFields(log.Fields{"deleted": count, "cutoff": cutoff}).Info("Cleaned up notification log")
	}
	return count
}
