package engine

import (
	"database/sql"
	"time"

	"github.com/quarrydata/quarry/errors"
)

// CheckpointStore persists dependent-execution checkpoints, one row per
// dataset. Saves are upserts so the first write and every later progress
// write go through the same path.
type CheckpointStore struct {
	db *sql.DB
}

// NewCheckpointStore creates a new checkpoint store
func NewCheckpointStore(db *sql.DB) *CheckpointStore {
	return &CheckpointStore{db: db}
}

// Load retrieves the checkpoint for a dataset. A missing row returns
// (nil, nil): no checkpoint means a fresh run, not an error.
func (s *CheckpointStore) Load(datasetID string) (*Checkpoint, error) {
	query := `
		SELECT dataset_id, status, cursor, processed_ids, has_next_page, error_message, updated_at
		FROM dataset_job_queue
		WHERE dataset_id = ?
	`

	var (
		cp           Checkpoint
		cursor       sql.NullString
		processedIDs string
		errorMessage sql.NullString
	)
	err := s.db.QueryRow(query, datasetID).Scan(
		&cp.DatasetID,
		&cp.Status,
		&cursor,
		&processedIDs,
		&cp.HasNextPage,
		&errorMessage,
		&cp.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load checkpoint")
	}

	cp.Cursor = cursor.String
	cp.ErrorMessage = errorMessage.String
	cp.Processed, err = UnmarshalProcessed(processedIDs)
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt checkpoint for dataset %s", datasetID)
	}

	return &cp, nil
}

// Save upserts the checkpoint row for its dataset.
func (s *CheckpointStore) Save(cp *Checkpoint) error {
	processedJSON, err := MarshalProcessed(cp)
	if err != nil {
		return errors.Wrap(errors.ErrCheckpointPersist, err.Error())
	}

	query := `
		INSERT INTO dataset_job_queue (
			dataset_id, status, cursor, processed_ids, has_next_page, error_message, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dataset_id) DO UPDATE SET
			status = excluded.status,
			cursor = excluded.cursor,
			processed_ids = excluded.processed_ids,
			has_next_page = excluded.has_next_page,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at
	`

	cursor := sql.NullString{String: cp.Cursor, Valid: cp.Cursor != ""}
	errorMessage := sql.NullString{String: cp.ErrorMessage, Valid: cp.ErrorMessage != ""}
	cp.UpdatedAt = time.Now()

	_, err = s.db.Exec(query,
		cp.DatasetID,
		cp.Status,
		cursor,
		processedJSON,
		cp.HasNextPage,
		errorMessage,
		cp.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(errors.ErrCheckpointPersist, err.Error())
	}

	return nil
}

// Delete removes a dataset's checkpoint so the next run starts fresh.
func (s *CheckpointStore) Delete(datasetID string) error {
	_, err := s.db.Exec(`DELETE FROM dataset_job_queue WHERE dataset_id = ?`, datasetID)
	if err != nil {
		return errors.Wrap(err, "failed to delete checkpoint")
	}
	return nil
}
