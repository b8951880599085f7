// Package client drives execution status retrieval for a consumer: ordered
// strategy fallback, bounded polling with stuck detection, and triggering
// with automatic retry.
package client

import (
	"context"

	"github.com/quarrydata/quarry/engine"
)

// Strategy names which retrieval path satisfied a request, so consumers can
// annotate degraded fidelity.
type Strategy string

const (
	StrategyPreview Strategy = "preview"
	StrategyDirect  Strategy = "direct"
	StrategyMinimal Strategy = "minimal"
)

// API is the backend surface the client retrieves through. The three fetch
// methods are ordered fallbacks: preview is the rich status+preview call,
// direct is the lower-level record fetch, minimal is status-only.
type API interface {
	FetchPreview(ctx context.Context, executionID string, limit int) (*engine.StatusResult, error)
	FetchDirect(ctx context.Context, executionID string, limit int) (*engine.StatusResult, error)
	FetchMinimal(ctx context.Context, executionID string) (*engine.StatusResult, error)
	TriggerExecution(ctx context.Context, datasetID, ownerID string) (string, error)
}
