package engine

import (
	"database/sql"
	"fmt"
)

// ExecutionScanArgs holds the nullable columns scanned from an execution row.
type ExecutionScanArgs struct {
	DurationMS  sql.NullInt64
	ErrorMsg    sql.NullString
	ResultJSON  sql.NullString
	StartedAt   sql.NullTime
	CompletedAt sql.NullTime
}

// GetExecutionScanArgs returns scan args ready for a row scan
func GetExecutionScanArgs() *ExecutionScanArgs {
	return &ExecutionScanArgs{}
}

// GetExecutionScanTargets returns scan targets in the order of the standard
// execution SELECT column list
func GetExecutionScanTargets(exec *Execution, args *ExecutionScanArgs) []interface{} {
	return []interface{}{
		&exec.ID,
		&exec.DatasetID,
		&exec.OwnerID,
		&exec.Status,
		&exec.RowCount,
		&args.DurationMS,
		&exec.APICallCount,
		&args.ErrorMsg,
		&args.ResultJSON,
		&exec.CreatedAt,
		&args.StartedAt,
		&args.CompletedAt,
		&exec.UpdatedAt,
	}
}

// ProcessExecutionScanArgs populates the execution from scanned nullables.
func ProcessExecutionScanArgs(exec *Execution, args *ExecutionScanArgs) error {
	if args.DurationMS.Valid {
		d := args.DurationMS.Int64
		exec.DurationMS = &d
	}
	if args.ErrorMsg.Valid {
		exec.Error = args.ErrorMsg.String
	}
	if args.ResultJSON.Valid {
		result, err := UnmarshalResult(args.ResultJSON.String)
		if err != nil {
			return fmt.Errorf("failed to unmarshal result for execution %s: %w", exec.ID, err)
		}
		exec.Result = result
	}
	if args.StartedAt.Valid {
		exec.StartedAt = &args.StartedAt.Time
	}
	if args.CompletedAt.Valid {
		exec.CompletedAt = &args.CompletedAt.Time
	}
	return nil
}

// ScanExecutionFromRow scans a single execution from a sql.Row
func ScanExecutionFromRow(row *sql.Row, exec *Execution) error {
	args := GetExecutionScanArgs()
	targets := GetExecutionScanTargets(exec, args)

	if err := row.Scan(targets...); err != nil {
		return err
	}
	return ProcessExecutionScanArgs(exec, args)
}

// ScanExecutionFromRows scans a single execution from sql.Rows inside a loop
func ScanExecutionFromRows(rows *sql.Rows, exec *Execution) error {
	args := GetExecutionScanArgs()
	targets := GetExecutionScanTargets(exec, args)

	if err := rows.Scan(targets...); err != nil {
		return err
	}
	return ProcessExecutionScanArgs(exec, args)
}

// StandardExecutionSelectColumns returns the column list every execution
// SELECT uses, matching the scan target order.
func StandardExecutionSelectColumns() string {
	return `id, dataset_id, owner_id, status,
		row_count, duration_ms, api_call_count,
		error, result,
		created_at, started_at, completed_at, updated_at`
}
