package client

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quarrydata/quarry/errors"
	"github.com/quarrydata/quarry/logger"
)

// TriggerConfig bounds the automatic retry around execution triggering.
type TriggerConfig struct {
	Retries int
	Delay   time.Duration
}

// DefaultTriggerConfig returns the standard two-retry policy.
func DefaultTriggerConfig() TriggerConfig {
	return TriggerConfig{Retries: 2, Delay: time.Second}
}

// Trigger starts executions with bounded automatic retry before surfacing
// failure to the caller.
type Trigger struct {
	api API
	cfg TriggerConfig
	log *zap.SugaredLogger
}

// NewTrigger creates a trigger. A negative retry count is treated as zero.
func NewTrigger(api API, cfg TriggerConfig, log *zap.SugaredLogger) *Trigger {
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultTriggerConfig().Delay
	}
	return &Trigger{api: api, cfg: cfg, log: logger.Or(log)}
}

// Run requests an execution for the dataset, retrying with a fixed delay.
// Resolution errors are not retried: a missing dataset or broken config
// will not fix itself between attempts.
func (t *Trigger) Run(ctx context.Context, datasetID, ownerID string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= t.cfg.Retries; attempt++ {
		if attempt > 0 {
			t.log.Infow("Retrying execution trigger",
				logger.FieldDatasetID, datasetID,
				logger.FieldAttempt, attempt,
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(t.cfg.Delay):
			}
		}

		executionID, err := t.api.TriggerExecution(ctx, datasetID, ownerID)
		if err == nil {
			return executionID, nil
		}
		lastErr = err

		if errors.IsResolutionError(err) {
			break
		}
	}

	return "", errors.WithMessagef(lastErr, "failed to trigger execution for dataset %s", datasetID)
}
