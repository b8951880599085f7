package engine

import (
	"database/sql"

	"github.com/quarrydata/quarry/errors"
)

// Store handles persistence of dataset executions
type Store struct {
	db *sql.DB
}

// NewStore creates a new execution store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateExecution inserts a new execution into the database
func (s *Store) CreateExecution(exec *Execution) error {
	resultJSON, err := MarshalResult(exec.Result)
	if err != nil {
		return errors.Wrap(err, "failed to marshal result")
	}

	query := `
		INSERT INTO dataset_executions (
			id, dataset_id, owner_id, status,
			row_count, duration_ms, api_call_count,
			error, result,
			created_at, started_at, completed_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	errorMsg := sql.NullString{String: exec.Error, Valid: exec.Error != ""}
	result := sql.NullString{String: resultJSON, Valid: resultJSON != ""}
	durationMS := sql.NullInt64{}
	if exec.DurationMS != nil {
		durationMS = sql.NullInt64{Int64: *exec.DurationMS, Valid: true}
	}

	_, err = s.db.Exec(query,
		exec.ID,
		exec.DatasetID,
		exec.OwnerID,
		exec.Status,
		exec.RowCount,
		durationMS,
		exec.APICallCount,
		errorMsg,
		result,
		exec.CreatedAt,
		exec.StartedAt,
		exec.CompletedAt,
		exec.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create execution")
	}

	return nil
}

// GetExecution retrieves an execution by ID
func (s *Store) GetExecution(id string) (*Execution, error) {
	query := `SELECT ` + StandardExecutionSelectColumns() + ` FROM dataset_executions WHERE id = ?`

	var exec Execution
	err := ScanExecutionFromRow(s.db.QueryRow(query, id), &exec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "execution not found: %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get execution")
	}

	return &exec, nil
}

// UpdateExecution writes an execution's mutable fields back. Rows already in
// a terminal state refuse status changes; the WHERE clause enforces the
// invariant even against a stale in-memory copy.
func (s *Store) UpdateExecution(exec *Execution) error {
	resultJSON, err := MarshalResult(exec.Result)
	if err != nil {
		return errors.Wrap(err, "failed to marshal result")
	}

	query := `
		UPDATE dataset_executions
		SET status = ?,
		    row_count = ?,
		    duration_ms = ?,
		    api_call_count = ?,
		    error = ?,
		    result = ?,
		    started_at = ?,
		    completed_at = ?,
		    updated_at = ?
		WHERE id = ?
		  AND (status NOT IN ('completed', 'failed') OR status = ?)
	`

	errorMsg := sql.NullString{String: exec.Error, Valid: exec.Error != ""}
	result := sql.NullString{String: resultJSON, Valid: resultJSON != ""}
	durationMS := sql.NullInt64{}
	if exec.DurationMS != nil {
		durationMS = sql.NullInt64{Int64: *exec.DurationMS, Valid: true}
	}

	res, err := s.db.Exec(query,
		exec.Status,
		exec.RowCount,
		durationMS,
		exec.APICallCount,
		errorMsg,
		result,
		exec.StartedAt,
		exec.CompletedAt,
		exec.UpdatedAt,
		exec.ID,
		exec.Status,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update execution")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Newf("execution %s not updated: missing or already terminal", exec.ID)
	}

	return nil
}

// ListExecutionsByDataset returns executions for a dataset, newest first
func (s *Store) ListExecutionsByDataset(datasetID string, limit int) ([]*Execution, error) {
	query := `SELECT ` + StandardExecutionSelectColumns() + `
		FROM dataset_executions
		WHERE dataset_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := s.db.Query(query, datasetID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list executions")
	}
	defer rows.Close()

	return scanExecutions(rows, "executions")
}

// ListActiveExecutions returns executions still pending or running
func (s *Store) ListActiveExecutions(limit int) ([]*Execution, error) {
	query := `SELECT ` + StandardExecutionSelectColumns() + `
		FROM dataset_executions
		WHERE status IN ('pending', 'running')
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active executions")
	}
	defer rows.Close()

	return scanExecutions(rows, "active executions")
}

func scanExecutions(rows *sql.Rows, context string) ([]*Execution, error) {
	var execs []*Execution
	for rows.Next() {
		var exec Execution
		if err := ScanExecutionFromRows(rows, &exec); err != nil {
			return nil, errors.Wrap(err, "failed to scan execution")
		}
		execs = append(execs, &exec)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "error iterating %s", context)
	}

	return execs, nil
}

// CountExecutionsByStatus returns how many executions sit in each status.
func (s *Store) CountExecutionsByStatus() (map[ExecutionStatus]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM dataset_executions GROUP BY status`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count executions")
	}
	defer rows.Close()

	counts := make(map[ExecutionStatus]int)
	for rows.Next() {
		var status ExecutionStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.Wrap(err, "failed to scan status count")
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating status counts")
	}
	return counts, nil
}
