package client

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quarrydata/quarry/engine"
	"github.com/quarrydata/quarry/logger"
)

// PollConfig bounds a polling loop.
type PollConfig struct {
	Interval             time.Duration
	MaxPolls             int
	MaxConsecutiveErrors int

	// Stuck heuristics: once StuckPollThreshold polls have passed with a
	// non-terminal status, exceeding either timer flags the execution.
	StuckPollThreshold int
	StuckStartedAfter  time.Duration
	StuckLocalAfter    time.Duration
}

// DefaultPollConfig returns the standard polling bounds.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:             2 * time.Second,
		MaxPolls:             120,
		MaxConsecutiveErrors: 3,
		StuckPollThreshold:   45,
		StuckStartedAfter:    120 * time.Second,
		StuckLocalAfter:      180 * time.Second,
	}
}

// StopReason says why a polling loop ended.
type StopReason string

const (
	StopCompleted StopReason = "completed"
	StopFailed    StopReason = "failed"
	StopStuck     StopReason = "stuck"
	StopMaxPolls  StopReason = "max_polls"
	StopErrors    StopReason = "errors"
	StopCancelled StopReason = "cancelled"
)

// PollOutcome is the final state of one polling loop.
type PollOutcome struct {
	Result *engine.StatusResult
	Reason StopReason
	Polls  int
	Err    error
}

// PollHandle is the cancellation token for one polling loop. A loop never
// restarts; a fresh poll means a fresh handle.
type PollHandle struct {
	cancel  context.CancelFunc
	done    chan struct{}
	outcome PollOutcome
}

// Cancel detaches from the loop. Any in-flight request resolving afterwards
// is discarded, never delivered to the tick callback.
func (h *PollHandle) Cancel() { h.cancel() }

// Done is closed when the loop has fully stopped.
func (h *PollHandle) Done() <-chan struct{} { return h.done }

// Outcome returns the final result. Valid only after Done is closed.
func (h *PollHandle) Outcome() PollOutcome { return h.outcome }

// Poller drives bounded status polling over a Retriever. One loop issues
// one request at a time; a tick never starts while the previous request is
// outstanding.
type Poller struct {
	retriever *Retriever
	cfg       PollConfig
	log       *zap.SugaredLogger
}

// NewPoller creates a poller. Zero-valued config fields fall back to the
// defaults.
func NewPoller(retriever *Retriever, cfg PollConfig, log *zap.SugaredLogger) *Poller {
	def := DefaultPollConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = def.MaxPolls
	}
	if cfg.MaxConsecutiveErrors <= 0 {
		cfg.MaxConsecutiveErrors = def.MaxConsecutiveErrors
	}
	if cfg.StuckPollThreshold <= 0 {
		cfg.StuckPollThreshold = def.StuckPollThreshold
	}
	if cfg.StuckStartedAfter <= 0 {
		cfg.StuckStartedAfter = def.StuckStartedAfter
	}
	if cfg.StuckLocalAfter <= 0 {
		cfg.StuckLocalAfter = def.StuckLocalAfter
	}
	return &Poller{retriever: retriever, cfg: cfg, log: logger.Or(log)}
}

// Start begins polling in the background and returns the handle. onTick is
// invoked after every successful fetch while the handle is still attached;
// it may be nil.
func (p *Poller) Start(ctx context.Context, executionID string, limit int, onTick func(*engine.StatusResult, int)) *PollHandle {
	ctx, cancel := context.WithCancel(ctx)
	handle := &PollHandle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(handle.done)
		handle.outcome = p.loop(ctx, executionID, limit, onTick)
		cancel()
	}()

	return handle
}

// Poll runs the loop synchronously.
func (p *Poller) Poll(ctx context.Context, executionID string, limit int, onTick func(*engine.StatusResult, int)) PollOutcome {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	return p.loop(ctx, executionID, limit, onTick)
}

func (p *Poller) loop(ctx context.Context, executionID string, limit int, onTick func(*engine.StatusResult, int)) PollOutcome {
	localStart := time.Now()
	consecutiveErrors := 0
	var last *engine.StatusResult

	for poll := 1; poll <= p.cfg.MaxPolls; poll++ {
		if ctx.Err() != nil {
			return PollOutcome{Result: last, Reason: StopCancelled, Polls: poll - 1}
		}

		result, err := p.retriever.Fetch(ctx, executionID, limit)
		if ctx.Err() != nil {
			// Detached mid-flight: discard whatever resolved.
			return PollOutcome{Result: last, Reason: StopCancelled, Polls: poll - 1}
		}

		if err != nil {
			consecutiveErrors++
			p.log.Warnw("Status poll failed",
				logger.FieldExecutionID, executionID,
				logger.FieldAttempt, poll,
				"consecutive_errors", consecutiveErrors,
				"error", err,
			)
			if consecutiveErrors >= p.cfg.MaxConsecutiveErrors {
				return PollOutcome{Result: last, Reason: StopErrors, Polls: poll, Err: err}
			}
		} else {
			consecutiveErrors = 0
			last = result
			if onTick != nil {
				onTick(result, poll)
			}

			switch result.Status {
			case string(engine.ExecutionStatusCompleted):
				return PollOutcome{Result: result, Reason: StopCompleted, Polls: poll}
			case string(engine.ExecutionStatusFailed):
				return PollOutcome{Result: result, Reason: StopFailed, Polls: poll}
			case engine.StatusStuck:
				return PollOutcome{Result: result, Reason: StopStuck, Polls: poll}
			}

			if p.shouldFlagStuck(result, poll, localStart) {
				p.log.Warnw("Polling flagged execution as stuck",
					logger.FieldExecutionID, executionID,
					logger.FieldAttempt, poll,
				)
				return PollOutcome{Result: result, Reason: StopStuck, Polls: poll}
			}
		}

		select {
		case <-ctx.Done():
			return PollOutcome{Result: last, Reason: StopCancelled, Polls: poll}
		case <-time.After(p.cfg.Interval):
		}
	}

	return PollOutcome{Result: last, Reason: StopMaxPolls, Polls: p.cfg.MaxPolls}
}

// shouldFlagStuck applies the client-side heuristic: enough polls have
// passed and either the execution's own start time or the local polling
// start exceeds its threshold.
func (p *Poller) shouldFlagStuck(result *engine.StatusResult, polls int, localStart time.Time) bool {
	if polls <= p.cfg.StuckPollThreshold {
		return false
	}
	now := time.Now()
	if result.Execution.StartTime != nil && now.Sub(*result.Execution.StartTime) > p.cfg.StuckStartedAfter {
		return true
	}
	return now.Sub(localStart) > p.cfg.StuckLocalAfter
}
