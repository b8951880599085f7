// Package engine runs dataset executions: a durable execution state
// machine, resumable two-phase dependent orchestration with checkpoints,
// and stuck-execution detection.
package engine

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quarrydata/quarry/errors"
)

// ExecutionStatus represents the current state of an execution
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// IsValidStatus returns true if the status string is a valid ExecutionStatus
func IsValidStatus(s string) bool {
	switch ExecutionStatus(s) {
	case ExecutionStatusPending, ExecutionStatusRunning,
		ExecutionStatusCompleted, ExecutionStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for states no transition leaves.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// Execution is one durable attempt to run a dataset's query plan.
//
// Status moves pending -> running -> completed|failed and never out of a
// terminal state. All mutation after creation goes through the Start,
// Complete and Fail transitions; direct field writes bypass the invariants.
type Execution struct {
	ID           string                   `json:"id"`
	DatasetID    string                   `json:"dataset_id"`
	OwnerID      string                   `json:"owner_id"`
	Status       ExecutionStatus          `json:"status"`
	RowCount     int                      `json:"row_count"`
	DurationMS   *int64                   `json:"duration_ms,omitempty"`
	APICallCount int                      `json:"api_call_count"`
	Error        string                   `json:"error,omitempty"`
	Result       []map[string]interface{} `json:"result,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	StartedAt    *time.Time               `json:"started_at,omitempty"`
	CompletedAt  *time.Time               `json:"completed_at,omitempty"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

const executionIDPrefix = "EXE_"

// NewExecution creates a pending execution for a dataset.
func NewExecution(datasetID, ownerID string) (*Execution, error) {
	if datasetID == "" {
		return nil, errors.New("datasetID cannot be empty")
	}
	if ownerID == "" {
		ownerID = "system"
	}

	now := time.Now()
	return &Execution{
		ID:        executionIDPrefix + uuid.NewString(),
		DatasetID: datasetID,
		OwnerID:   ownerID,
		Status:    ExecutionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsExecutionID reports whether a string looks like an execution id.
func IsExecutionID(s string) bool {
	return strings.HasPrefix(s, executionIDPrefix)
}

// Start marks the execution as running. Restarting a terminal execution is
// an error; a new execution should be created instead.
func (e *Execution) Start() error {
	if e.Status.IsTerminal() {
		return errors.Newf("execution %s is already %s", e.ID, e.Status)
	}
	now := time.Now()
	e.Status = ExecutionStatusRunning
	e.StartedAt = &now
	e.UpdatedAt = now
	return nil
}

// Complete marks the execution as completed, recording the result payload,
// row count, API call count and wall-clock duration.
func (e *Execution) Complete(result []map[string]interface{}, apiCalls int) error {
	if e.Status.IsTerminal() {
		return errors.Newf("execution %s is already %s", e.ID, e.Status)
	}
	now := time.Now()
	e.Status = ExecutionStatusCompleted
	e.Result = result
	e.RowCount = len(result)
	e.APICallCount = apiCalls
	e.CompletedAt = &now
	e.UpdatedAt = now
	if e.StartedAt != nil {
		d := now.Sub(*e.StartedAt).Milliseconds()
		e.DurationMS = &d
	}
	return nil
}

// Fail marks the execution as failed. Row count is left as-is.
func (e *Execution) Fail(err error, apiCalls int) error {
	if e.Status.IsTerminal() {
		return errors.Newf("execution %s is already %s", e.ID, e.Status)
	}
	now := time.Now()
	e.Status = ExecutionStatusFailed
	e.Error = err.Error()
	e.APICallCount = apiCalls
	e.CompletedAt = &now
	e.UpdatedAt = now
	if e.StartedAt != nil {
		d := now.Sub(*e.StartedAt).Milliseconds()
		e.DurationMS = &d
	}
	return nil
}

// MarshalResult converts a result payload to its stored JSON string.
func MarshalResult(result []map[string]interface{}) (string, error) {
	if result == nil {
		return "", nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal result")
	}
	return string(data), nil
}

// UnmarshalResult converts a stored JSON string back into a result payload.
func UnmarshalResult(data string) ([]map[string]interface{}, error) {
	if data == "" {
		return nil, nil
	}
	var result []map[string]interface{}
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal result")
	}
	return result, nil
}
