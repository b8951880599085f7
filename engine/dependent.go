package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/quarrydata/quarry/dataset"
	"github.com/quarrydata/quarry/errors"
	"github.com/quarrydata/quarry/graphql"
	"github.com/quarrydata/quarry/logger"
)

// idPlaceholder is the secondary-query marker replaced per entity id.
const idPlaceholder = "{id}"

// DependentResult is the outcome of one dependent run. Records covers only
// this run's secondary fetches; ProcessedCount is the cumulative total
// across all resumptions.
type DependentResult struct {
	Records        []map[string]interface{}
	CallCount      int
	ProcessedCount int
}

// DependentOrchestrator runs two-phase dependent executions: walk the
// primary query's pages extracting entity ids, then issue one secondary
// query per id, checkpointing progress so an interrupted run resumes where
// it left off. An id's secondary query runs at most once across
// resumptions; a per-id failure is skipped and retried on the next resume.
type DependentOrchestrator struct {
	fetcher         *graphql.Fetcher
	exec            graphql.Executor
	checkpoints     *CheckpointStore
	checkpointEvery int
	maxPages        int
	log             *zap.SugaredLogger
}

// NewDependentOrchestrator wires an orchestrator. checkpointEvery is how
// many secondary calls run between checkpoint writes; page boundaries
// always persist regardless.
func NewDependentOrchestrator(fetcher *graphql.Fetcher, exec graphql.Executor, checkpoints *CheckpointStore, checkpointEvery, maxPages int, log *zap.SugaredLogger) *DependentOrchestrator {
	if checkpointEvery <= 0 {
		checkpointEvery = 5
	}
	return &DependentOrchestrator{
		fetcher:         fetcher,
		exec:            exec,
		checkpoints:     checkpoints,
		checkpointEvery: checkpointEvery,
		maxPages:        maxPages,
		log:             logger.Or(log),
	}
}

// Run executes the dependent plan to completion or failure. Individual
// secondary failures are skipped, but a run where every attempted secondary
// query failed is itself a failure. The returned result carries this run's
// records and call count even when an error is also returned.
func (o *DependentOrchestrator) Run(ctx context.Context, plan *dataset.Plan) (*DependentResult, error) {
	checkpoint, err := o.checkpoints.Load(plan.DatasetID)
	if err != nil {
		return nil, err
	}
	resumed := checkpoint != nil
	if checkpoint == nil {
		checkpoint = NewCheckpoint(plan.DatasetID)
	}
	checkpoint.Status = CheckpointStatusInProgress
	checkpoint.ErrorMessage = ""

	if resumed {
		o.log.Infow("Resuming dependent execution from checkpoint",
			logger.FieldDatasetID, plan.DatasetID,
			logger.FieldCursor, checkpoint.Cursor,
			"processed", len(checkpoint.Processed),
		)
	}

	result := &DependentResult{}
	sinceCheckpoint := 0
	walkCursor := checkpoint.Cursor
	failedIDs := 0
	anchored := false

	for page := 0; o.maxPages <= 0 || page < o.maxPages; page++ {
		if page > 0 {
			if err := o.fetcher.Pace(ctx); err != nil {
				return result, o.failCheckpoint(checkpoint, err)
			}
		}

		result.CallCount++
		primaryPage, err := o.fetcher.FetchPage(ctx, plan.Credentials, plan.PrimaryQuery, walkCursor, plan.ResourceHint)
		if err != nil {
			return result, o.failCheckpoint(checkpoint, err)
		}

		actions := Advance(checkpoint, primaryPage, plan.IDPath)

		pageFailed := 0
		for _, id := range actions.NewIDs {
			if err := o.fetcher.Pace(ctx); err != nil {
				return result, o.failCheckpoint(checkpoint, err)
			}

			result.CallCount++
			record, err := o.fetchSecondary(ctx, plan, id)
			if err != nil {
				// Skipped, not marked processed: the next resume retries it.
				pageFailed++
				o.log.Warnw("Secondary query failed, will retry on resume",
					logger.FieldDatasetID, plan.DatasetID,
					"entity_id", id,
					"error", err,
				)
				continue
			}

			result.Records = append(result.Records, record)
			checkpoint.MarkProcessed(id)
			sinceCheckpoint++

			if sinceCheckpoint >= o.checkpointEvery {
				o.persist(checkpoint)
				sinceCheckpoint = 0
			}
		}
		failedIDs += pageFailed

		// A page still holding failed ids pins the checkpoint cursor, so
		// the next resume re-fetches that page and retries exactly those
		// ids. The walk itself continues past it.
		if pageFailed > 0 {
			anchored = true
		}
		if !anchored {
			checkpoint.Cursor = actions.NextCursor
			checkpoint.HasNextPage = actions.HasNextPage
			if !actions.HasNextPage {
				checkpoint.Status = CheckpointStatusCompleted
			}
		}
		o.persist(checkpoint)
		sinceCheckpoint = 0

		if !actions.HasNextPage {
			break
		}
		walkCursor = actions.NextCursor
	}

	if failedIDs > 0 && len(result.Records) == 0 {
		return result, o.failCheckpoint(checkpoint,
			errors.Wrapf(errors.ErrExternalAPI, "all %d secondary queries failed", failedIDs))
	}

	result.ProcessedCount = len(checkpoint.Processed)
	o.log.Infow("Dependent execution finished",
		logger.FieldDatasetID, plan.DatasetID,
		logger.FieldRowCount, len(result.Records),
		logger.FieldAPICalls, result.CallCount,
		"processed_total", result.ProcessedCount,
	)
	return result, nil
}

// fetchSecondary substitutes one id into the secondary query and flattens
// the response into a single record.
func (o *DependentOrchestrator) fetchSecondary(ctx context.Context, plan *dataset.Plan, id string) (map[string]interface{}, error) {
	query := strings.ReplaceAll(plan.SecondaryQuery, idPlaceholder, id)

	data, err := o.exec.Execute(ctx, plan.Credentials, query)
	if err != nil {
		return nil, err
	}
	return secondaryRecord(data, id), nil
}

// secondaryRecord unwraps a single-entity response. A lone object field is
// the record; anything else keeps the raw data so no response is dropped.
func secondaryRecord(data map[string]interface{}, id string) map[string]interface{} {
	if len(data) == 1 {
		for _, v := range data {
			if record, ok := v.(map[string]interface{}); ok {
				return record
			}
		}
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	if _, ok := data["id"]; !ok {
		data["id"] = id
	}
	return data
}

// failCheckpoint persists a failed phase before re-raising so the next run
// resumes rather than restarting.
func (o *DependentOrchestrator) failCheckpoint(checkpoint *Checkpoint, cause error) error {
	checkpoint.Status = CheckpointStatusFailed
	checkpoint.ErrorMessage = cause.Error()
	o.persist(checkpoint)
	return cause
}

// persist writes the checkpoint, logging rather than failing on error:
// losing a checkpoint write costs re-work on resume, not correctness.
func (o *DependentOrchestrator) persist(checkpoint *Checkpoint) {
	if err := o.checkpoints.Save(checkpoint); err != nil {
		o.log.Errorw("Checkpoint persist failed",
			logger.FieldDatasetID, checkpoint.DatasetID,
			"error", err,
		)
	}
}
