package batch

import (
	"context"
	"errors"
	"time"

	"fleet-manager/internal/models"
)

// VehicleRepository is the persistence the processor writes through.
// UpdateVehicle must return an apperr not-found error for a missing vehicle;
// UpdateVehiclesBatch reports how many vehicles matched.
type VehicleRepository interface {
	UpdateVehicle(ctx context.Context, vehicleID string, patch models.VehiclePatch) error
	UpdateVehiclesBatch(ctx context.Context, updates map[string]models.VehiclePatch) (int64, error)
}

// BatchConfig holds configuration for batch processing
type BatchConfig struct {
	MaxBatchSize  int           `json:"maxBatchSize"`
	RetryAttempts int           `json:"retryAttempts"`
	RetryBackoff  time.Duration `json:"retryBackoff"`
}

// BatchStats provides statistics about batch processing
type BatchStats struct {
	BatchesProcessed int           `json:"batchesProcessed"`
	AverageSize      float64       `json:"averageSize"`
	ProcessingTime   time.Duration `json:"processingTime"`
	ErrorRate        float64       `json:"errorRate"`
	TotalUpdates     int64         `json:"totalUpdates"`
	FailedUpdates    int64         `json:"failedUpdates"`
	LastProcessedAt  time.Time     `json:"lastProcessedAt"`
}

// Result classifies every vehicle handed to Process.
type Result struct {
	Applied []string
	Missing []string
	Failed  map[string]error
}

var (
	ErrInvalidBatchSize     = errors.New("invalid batch size: must be greater than 0")
	ErrInvalidRetryAttempts = errors.New("invalid retry attempts: must be greater than or equal to 0")
	ErrInvalidRetryBackoff  = errors.New("invalid retry backoff: must be greater than or equal to 0")
)
