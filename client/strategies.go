package client

import (
	"context"

	"go.uber.org/zap"

	"github.com/quarrydata/quarry/engine"
	"github.com/quarrydata/quarry/errors"
	"github.com/quarrydata/quarry/logger"
)

// Retriever obtains execution status through the ordered strategy chain:
// preview, then direct, then minimal. Each strategy is attempted only when
// every strategy before it failed, and the result is tagged with the
// strategy that satisfied it.
type Retriever struct {
	api API
	log *zap.SugaredLogger
}

// NewRetriever creates a retriever over a backend API
func NewRetriever(api API, log *zap.SugaredLogger) *Retriever {
	return &Retriever{api: api, log: logger.Or(log)}
}

// Fetch retrieves status for an execution, falling back across strategies.
// The error is returned only when all three strategies fail, wrapped with
// each strategy's failure.
func (r *Retriever) Fetch(ctx context.Context, executionID string, limit int) (*engine.StatusResult, error) {
	result, previewErr := r.api.FetchPreview(ctx, executionID, limit)
	if previewErr == nil {
		result.Strategy = string(StrategyPreview)
		return result, nil
	}
	r.log.Warnw("Preview fetch failed, falling back to direct",
		logger.FieldExecutionID, executionID,
		logger.FieldStrategy, StrategyPreview,
		"error", previewErr,
	)

	result, directErr := r.api.FetchDirect(ctx, executionID, limit)
	if directErr == nil {
		result.Strategy = string(StrategyDirect)
		return result, nil
	}
	r.log.Warnw("Direct fetch failed, falling back to minimal",
		logger.FieldExecutionID, executionID,
		logger.FieldStrategy, StrategyDirect,
		"error", directErr,
	)

	result, minimalErr := r.api.FetchMinimal(ctx, executionID)
	if minimalErr == nil {
		result.Strategy = string(StrategyMinimal)
		return result, nil
	}

	err := errors.WithMessage(minimalErr, "all retrieval strategies failed")
	err = errors.WithDetailf(err, "preview: %v", previewErr)
	err = errors.WithDetailf(err, "direct: %v", directErr)
	return nil, err
}
