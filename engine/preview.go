package engine

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/quarrydata/quarry/dataset"
)

// StatusStuck is the advisory status returned when the server-side stuck
// heuristic trips. It never appears in the stored execution record.
const StatusStuck = "stuck"

// Column describes one preview column: the record key and a display label.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ExecutionSummary is the execution metadata carried on every status
// response regardless of terminal state.
type ExecutionSummary struct {
	ID              string     `json:"id"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	RowCount        int        `json:"rowCount"`
	ExecutionTimeMS *int64     `json:"executionTimeMs,omitempty"`
	APICallCount    int        `json:"apiCallCount"`
}

// DatasetSummary identifies the dataset a status response belongs to.
type DatasetSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// StatusResult is the status/preview response shape. Columns, Preview and
// TotalCount are populated only for completed executions; Error only for
// failed ones.
type StatusResult struct {
	Status     string                   `json:"status"`
	Execution  ExecutionSummary         `json:"execution"`
	Dataset    DatasetSummary           `json:"dataset"`
	Columns    []Column                 `json:"columns,omitempty"`
	Preview    []map[string]interface{} `json:"preview,omitempty"`
	TotalCount int                      `json:"totalCount"`
	Error      string                   `json:"error,omitempty"`
	Strategy   string                   `json:"strategy,omitempty"`
}

// BuildStatusResult assembles the status response for one execution.
// markStuck applies the advisory stuck classification on top of the stored
// status without touching the record.
func BuildStatusResult(exec *Execution, ds *dataset.Dataset, limit int, markStuck bool) *StatusResult {
	result := &StatusResult{
		Status: string(exec.Status),
		Execution: ExecutionSummary{
			ID:              exec.ID,
			StartTime:       exec.StartedAt,
			EndTime:         exec.CompletedAt,
			RowCount:        exec.RowCount,
			ExecutionTimeMS: exec.DurationMS,
			APICallCount:    exec.APICallCount,
		},
	}
	if ds != nil {
		result.Dataset = DatasetSummary{ID: ds.ID, Name: ds.Name, Type: string(ds.Type)}
	}

	if markStuck && !exec.Status.IsTerminal() {
		result.Status = StatusStuck
	}

	switch exec.Status {
	case ExecutionStatusCompleted:
		result.Columns = DeriveColumns(exec.Result)
		result.Preview = previewRows(exec.Result, limit)
		result.TotalCount = exec.RowCount
	case ExecutionStatusFailed:
		result.Error = exec.Error
	}

	return result
}

// DeriveColumns derives display columns from the first record's keys,
// sorted for a stable order.
func DeriveColumns(records []map[string]interface{}) []Column {
	if len(records) == 0 {
		return nil
	}

	keys := make([]string, 0, len(records[0]))
	for k := range records[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	columns := make([]Column, len(keys))
	for i, k := range keys {
		columns[i] = Column{Key: k, Label: humanizeKey(k)}
	}
	return columns
}

func previewRows(records []map[string]interface{}, limit int) []map[string]interface{} {
	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}
	return records[:limit]
}

// humanizeKey turns a snake_case or camelCase record key into a Title Case
// label: "created_at" and "createdAt" both become "Created At".
func humanizeKey(key string) string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	for _, r := range key {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case r >= 'A' && r <= 'Z':
			flush()
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	flush()

	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
