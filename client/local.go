package client

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quarrydata/quarry/dataset"
	"github.com/quarrydata/quarry/engine"
	"github.com/quarrydata/quarry/logger"
)

// LocalAPI serves the client surface in-process, straight off the engine
// stores. It is the API implementation the CLI uses.
type LocalAPI struct {
	datasets       *dataset.Store
	executions     *engine.Store
	runner         *engine.Runner
	stuckThreshold time.Duration
	log            *zap.SugaredLogger
}

// NewLocalAPI wires a local API. A nonpositive stuck threshold uses the
// engine default.
func NewLocalAPI(datasets *dataset.Store, executions *engine.Store, runner *engine.Runner, stuckThreshold time.Duration, log *zap.SugaredLogger) *LocalAPI {
	if stuckThreshold <= 0 {
		stuckThreshold = engine.DefaultStuckThreshold
	}
	return &LocalAPI{
		datasets:       datasets,
		executions:     executions,
		runner:         runner,
		stuckThreshold: stuckThreshold,
		log:            logger.Or(log),
	}
}

// FetchPreview is the rich status+preview strategy, including the
// server-side stuck classification.
func (a *LocalAPI) FetchPreview(ctx context.Context, executionID string, limit int) (*engine.StatusResult, error) {
	exec, err := a.executions.GetExecution(executionID)
	if err != nil {
		return nil, err
	}

	// Dataset metadata enriches the response but its absence never blocks
	// a status read.
	ds, err := a.datasets.GetDataset(exec.DatasetID)
	if err != nil {
		a.log.Debugw("Dataset lookup failed during preview",
			logger.FieldDatasetID, exec.DatasetID,
			"error", err,
		)
		ds = nil
	}

	markStuck := engine.IsStuck(exec, time.Now(), a.stuckThreshold)
	return engine.BuildStatusResult(exec, ds, limit, markStuck), nil
}

// FetchDirect is the lower-level record strategy: same rows, no derived
// columns and no stuck classification.
func (a *LocalAPI) FetchDirect(ctx context.Context, executionID string, limit int) (*engine.StatusResult, error) {
	exec, err := a.executions.GetExecution(executionID)
	if err != nil {
		return nil, err
	}

	result := engine.BuildStatusResult(exec, nil, limit, false)
	result.Columns = nil
	return result, nil
}

// FetchMinimal is the status-only strategy: no payload at all.
func (a *LocalAPI) FetchMinimal(ctx context.Context, executionID string) (*engine.StatusResult, error) {
	exec, err := a.executions.GetExecution(executionID)
	if err != nil {
		return nil, err
	}

	result := engine.BuildStatusResult(exec, nil, 0, false)
	result.Columns = nil
	result.Preview = nil
	result.TotalCount = 0
	return result, nil
}

// TriggerExecution creates the pending record and runs the execution in the
// background. The work deliberately outlives the caller's context: a client
// that stops asking does not stop the run.
func (a *LocalAPI) TriggerExecution(ctx context.Context, datasetID, ownerID string) (string, error) {
	exec, err := a.runner.Trigger(ctx, datasetID, ownerID)
	if err != nil {
		return "", err
	}

	go func() {
		if _, err := a.runner.Execute(context.WithoutCancel(ctx), exec.ID); err != nil {
			a.log.Warnw("Background execution failed",
				logger.FieldExecutionID, exec.ID,
				"error", err,
			)
		}
	}()

	return exec.ID, nil
}
