package batch

import (
	"os"
	"strconv"
	"time"
)

// DefaultBatchConfig returns the default configuration for batch processing
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxBatchSize:  50,
		RetryAttempts: 3,
		RetryBackoff:  500 * time.Millisecond,
	}
}

// LoadBatchConfigFromEnv loads batch configuration from environment variables
func LoadBatchConfigFromEnv() BatchConfig {
	config := DefaultBatchConfig()

	if val := os.Getenv("BATCH_MAX_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			config.MaxBatchSize = size
		}
	}

	if val := os.Getenv("BATCH_RETRY_ATTEMPTS"); val != "" {
		if attempts, err := strconv.Atoi(val); err == nil && attempts >= 0 {
			config.RetryAttempts = attempts
		}
	}

	if val := os.Getenv("BATCH_RETRY_BACKOFF"); val != "" {
		if backoff, err := time.ParseDuration(val); err == nil {
			config.RetryBackoff = backoff
		}
	}

	return config
}

// ValidateConfig validates the batch configuration
func ValidateConfig(config BatchConfig) error {
	if config.MaxBatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if config.RetryAttempts < 0 {
		return ErrInvalidRetryAttempts
	}
	if config.RetryBackoff < 0 {
		return ErrInvalidRetryBackoff
	}
	return nil
}
