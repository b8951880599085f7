package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/quarrydata/quarry/dataset"
	"github.com/quarrydata/quarry/errors"
	"github.com/quarrydata/quarry/graphql"
	"github.com/quarrydata/quarry/logger"
)

// Runner owns the execution lifecycle: Trigger creates the durable pending
// record, Execute resolves the dataset's plan and drives it to a terminal
// state.
type Runner struct {
	datasets   *dataset.Store
	resolver   *dataset.Resolver
	executions *Store
	fetcher    *graphql.Fetcher
	dependent  *DependentOrchestrator
	remote     RemoteInvoker
	log        *zap.SugaredLogger
}

// NewRunner wires a runner from its collaborators.
func NewRunner(datasets *dataset.Store, resolver *dataset.Resolver, executions *Store, fetcher *graphql.Fetcher, dependent *DependentOrchestrator, remote RemoteInvoker, log *zap.SugaredLogger) *Runner {
	return &Runner{
		datasets:   datasets,
		resolver:   resolver,
		executions: executions,
		fetcher:    fetcher,
		dependent:  dependent,
		remote:     remote,
		log:        logger.Or(log),
	}
}

// Trigger creates a pending execution for a dataset and returns it. The
// dataset must exist; resolution problems beyond existence surface later,
// in Execute, where they are recorded on the execution itself.
func (r *Runner) Trigger(ctx context.Context, datasetID, ownerID string) (*Execution, error) {
	if _, err := r.datasets.GetDataset(datasetID); err != nil {
		return nil, err
	}

	exec, err := NewExecution(datasetID, ownerID)
	if err != nil {
		return nil, err
	}
	if err := r.executions.CreateExecution(exec); err != nil {
		return nil, err
	}

	r.log.Infow("Execution triggered",
		logger.FieldExecutionID, exec.ID,
		logger.FieldDatasetID, datasetID,
		logger.FieldOwnerID, exec.OwnerID,
	)
	return exec, nil
}

// Execute runs one triggered execution to a terminal state. Every failure
// path writes status failed with the error message before returning.
func (r *Runner) Execute(ctx context.Context, executionID string) (*Execution, error) {
	exec, err := r.executions.GetExecution(executionID)
	if err != nil {
		return nil, err
	}
	if exec.Status.IsTerminal() {
		return nil, errors.Newf("execution %s is already %s", exec.ID, exec.Status)
	}

	if err := exec.Start(); err != nil {
		return nil, err
	}
	if err := r.executions.UpdateExecution(exec); err != nil {
		return nil, err
	}

	plan, err := r.resolver.Resolve(ctx, exec.DatasetID)
	if err != nil {
		return exec, r.fail(exec, err, 0)
	}

	records, apiCalls, err := r.run(ctx, plan)
	if err != nil {
		return exec, r.fail(exec, err, apiCalls)
	}

	if err := exec.Complete(records, apiCalls); err != nil {
		return exec, err
	}
	if err := r.executions.UpdateExecution(exec); err != nil {
		return exec, err
	}

	// Best effort: a stale pointer is an inconvenience, not a failed run.
	if err := r.datasets.SetLastExecution(exec.DatasetID, exec.ID); err != nil {
		r.log.Warnw("Failed to update dataset last-execution pointer",
			logger.FieldDatasetID, exec.DatasetID,
			logger.FieldExecutionID, exec.ID,
			"error", err,
		)
	}

	r.log.Infow("Execution completed",
		logger.FieldExecutionID, exec.ID,
		logger.FieldDatasetID, exec.DatasetID,
		logger.FieldRowCount, exec.RowCount,
		logger.FieldAPICalls, exec.APICallCount,
	)
	return exec, nil
}

// Run is Trigger followed by Execute.
func (r *Runner) Run(ctx context.Context, datasetID, ownerID string) (*Execution, error) {
	exec, err := r.Trigger(ctx, datasetID, ownerID)
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx, exec.ID)
}

// run dispatches a resolved plan to the matching execution path.
func (r *Runner) run(ctx context.Context, plan *dataset.Plan) ([]map[string]interface{}, int, error) {
	switch plan.DatasetType {
	case dataset.TypeDependent:
		result, err := r.dependent.Run(ctx, plan)
		if result == nil {
			return nil, 0, err
		}
		return result.Records, result.CallCount, err

	case dataset.TypeDirectAPI:
		if r.remote == nil {
			return nil, 0, errors.Wrap(errors.ErrConfigInvalid, "no remote function invoker configured")
		}
		return r.remote.Invoke(ctx, plan.Credentials, plan.RemoteFunction)

	default:
		result, err := r.fetcher.FetchAll(ctx, plan.Credentials, plan.QueryTemplate, plan.ResourceHint)
		if err != nil {
			var fetchErr *graphql.FetchError
			if errors.As(err, &fetchErr) {
				return nil, fetchErr.CallCount, err
			}
			return nil, 0, err
		}
		return result.Records, result.CallCount, nil
	}
}

// fail records a terminal failure, preferring the original error if the
// status write also fails.
func (r *Runner) fail(exec *Execution, cause error, apiCalls int) error {
	if err := exec.Fail(cause, apiCalls); err != nil {
		return errors.WithMessagef(cause, "also failed to mark execution failed: %v", err)
	}
	if err := r.executions.UpdateExecution(exec); err != nil {
		r.log.Errorw("Failed to persist execution failure",
			logger.FieldExecutionID, exec.ID,
			"error", err,
		)
	}

	r.log.Warnw("Execution failed",
		logger.FieldExecutionID, exec.ID,
		logger.FieldDatasetID, exec.DatasetID,
		logger.FieldAPICalls, apiCalls,
		"error", cause,
	)
	return cause
}
