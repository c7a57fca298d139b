package batch

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"fleet-manager/internal/models"
	"fleet-manager/pkg/apperr"

	log "github.com/sirupsen/logrus"
)

// Processor writes vehicle patches in bulk. A batch that keeps failing, or
// whose matched count is short, is replayed one vehicle at a time so every
// vehicle ends up applied, missing or failed.
type Processor struct {
	config     BatchConfig
	repository VehicleRepository

	stats    BatchStats
	statsMux sync.RWMutex
}

func NewProcessor(config BatchConfig, repository VehicleRepository) *Processor {
	return &Processor{config: config, repository: repository}
}

// Process applies updates. Missing vehicles are never created.
func (bp *Processor) Process(ctx context.Context, updates map[string]models.VehiclePatch) Result {
	result := Result{Failed: map[string]error{}}
	if len(updates) == 0 {
		return result
	}

	startTime := time.Now()
	batches := bp.splitIntoBatches(updates)

	for _, batch := range batches {
		bp.processSingleBatch(ctx, batch, &result)
	}

	bp.updateStats(len(batches), len(updates), len(result.Failed), time.Since(startTime))
	return result
}

func (bp *Processor) processSingleBatch(ctx context.Context, batch map[string]models.VehiclePatch, result *Result) {
	for attempt := 0; attempt <= bp.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * bp.config.RetryBackoff
			log.WithFields(log.Fields{"attempt": attempt, "backoff": backoff}).Warn("Retrying batch write")

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				for id := range batch {
					result.Failed[id] = ctx.Err()
				}
				return
			}
		}

		matched, err := bp.repository.UpdateVehiclesBatch(ctx, batch)
		if err == nil && matched == int64(len(batch)) {
			result.Applied = append(result.Applied, sortedIDs(batch)...)
			return
		}
		if err == nil {
			log.WithFields(log.Fields{"expected": len(batch), "matched": matched}).Info("Batch matched fewer vehicles than expected")
			break
		}

		log.WithError(err).WithField("attempt", attempt+1).Warn("Batch write failed")
	}

	bp.fallbackToIndividualUpdates(ctx, batch, result)
}

func (bp *Processor) fallbackToIndividualUpdates(ctx context.Context, batch map[string]models.VehiclePatch, result *Result) {
	for _, id := range sortedIDs(batch) {
		err := bp.repository.UpdateVehicle(ctx, id, batch[id])
		switch {
		case err == nil:
			result.Applied = append(result.Applied, id)
		case apperr.IsNotFound(err):
			result.Missing = append(result.Missing, id)
		default:
			result.Failed[id] = fmt.Errorf("vehicle %s: %w", id, err)
		}
	}
}

func (bp *Processor) splitIntoBatches(updates map[string]models.VehiclePatch) []map[string]models.VehiclePatch {
	size := bp.config.MaxBatchSize
	if size <= 0 {
		size = len(updates)
	}

	var batches []map[string]models.VehiclePatch
	current := make(map[string]models.VehiclePatch)

	for _, id := range sortedIDs(updates) {
		current[id] = updates[id]
		if len(current) >= size {
			batches = append(batches, current)
			current = make(map[string]models.VehiclePatch)
		}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}

// GetBatchStats returns current batch processing statistics
func (bp *Processor) GetBatchStats() BatchStats {
	bp.statsMux.RLock()
	defer bp.statsMux.RUnlock()
	return bp.stats
}

func (bp *Processor) updateStats(batchCount, updateCount, failedCount int, processingTime time.Duration) {
	bp.statsMux.Lock()
	defer bp.statsMux.Unlock()

	bp.stats.BatchesProcessed += batchCount
	bp.stats.TotalUpdates += int64(updateCount)
	bp.stats.FailedUpdates += int64(failedCount)
	bp.stats.LastProcessedAt = time.Now()
	bp.stats.ProcessingTime = processingTime

	if bp.stats.BatchesProcessed > 0 {
		bp.stats.AverageSize = float64(bp.stats.TotalUpdates) / float64(bp.stats.BatchesProcessed)
	}
	if bp.stats.TotalUpdates > 0 {
		bp.stats.ErrorRate = float64(bp.stats.FailedUpdates) / float64(bp.stats.TotalUpdates)
	}
}

func sortedIDs(batch map[string]models.VehiclePatch) []string {
	ids := make([]string, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
