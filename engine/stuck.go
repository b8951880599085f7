package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/quarrydata/quarry/errors"
	"github.com/quarrydata/quarry/logger"
)

// DefaultStuckThreshold is how long an execution may sit non-terminal
// before the server-side check classifies it stuck.
const DefaultStuckThreshold = 15 * time.Minute

// IsStuck reports whether an execution has been non-terminal longer than
// the threshold. Pending executions that never started are measured from
// creation. Advisory only; callers decide what to do with it.
func IsStuck(exec *Execution, now time.Time, threshold time.Duration) bool {
	if exec.Status.IsTerminal() {
		return false
	}
	since := exec.CreatedAt
	if exec.StartedAt != nil {
		since = *exec.StartedAt
	}
	return now.Sub(since) > threshold
}

// StuckDetector runs the on-demand server-side stuck check and the explicit
// reset action that forces a wedged execution to a terminal state.
type StuckDetector struct {
	executions *Store
	threshold  time.Duration
	log        *zap.SugaredLogger
}

// NewStuckDetector creates a detector. A nonpositive threshold uses the
// default.
func NewStuckDetector(executions *Store, threshold time.Duration, log *zap.SugaredLogger) *StuckDetector {
	if threshold <= 0 {
		threshold = DefaultStuckThreshold
	}
	return &StuckDetector{
		executions: executions,
		threshold:  threshold,
		log:        logger.Or(log),
	}
}

// Check classifies one execution. The record is never mutated; stuck is a
// classification, not a state transition.
func (d *StuckDetector) Check(executionID string) (bool, error) {
	exec, err := d.executions.GetExecution(executionID)
	if err != nil {
		return false, err
	}
	stuck := IsStuck(exec, time.Now(), d.threshold)
	if stuck {
		d.log.Warnw("Execution classified as stuck",
			logger.FieldExecutionID, executionID,
			logger.FieldStatus, exec.Status,
		)
	}
	return stuck, nil
}

// Reset forces a non-terminal execution to failed so a fresh one can be
// started. Resetting an already-terminal execution is a no-op.
func (d *StuckDetector) Reset(executionID string) error {
	exec, err := d.executions.GetExecution(executionID)
	if err != nil {
		return err
	}
	if exec.Status.IsTerminal() {
		return nil
	}

	if err := exec.Fail(errors.New("execution reset after being stuck"), exec.APICallCount); err != nil {
		return err
	}
	if err := d.executions.UpdateExecution(exec); err != nil {
		return err
	}

	d.log.Infow("Execution reset to failed",
		logger.FieldExecutionID, executionID,
	)
	return nil
}
