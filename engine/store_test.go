package engine

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydata/quarry/errors"
)

func TestExecutionStoreRoundTrip(t *testing.T) {
	_, store, _ := executionFixture(t, "ds_1")

	exec, err := NewExecution("ds_1", "user")
	require.NoError(t, err)
	require.NoError(t, store.CreateExecution(exec))

	got, err := store.GetExecution(exec.ID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionStatusPending, got.Status)
	assert.Equal(t, "ds_1", got.DatasetID)
	assert.Nil(t, got.StartedAt)

	_, err = store.GetExecution("EXE_missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestExecutionStoreUpdate(t *testing.T) {
	_, store, _ := executionFixture(t, "ds_1")

	exec, err := NewExecution("ds_1", "user")
	require.NoError(t, err)
	require.NoError(t, store.CreateExecution(exec))

	require.NoError(t, exec.Start())
	require.NoError(t, store.UpdateExecution(exec))

	require.NoError(t, exec.Complete([]map[string]interface{}{{"id": "a"}}, 4))
	require.NoError(t, store.UpdateExecution(exec))

	got, err := store.GetExecution(exec.ID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionStatusCompleted, got.Status)
	assert.Equal(t, 1, got.RowCount)
	assert.Equal(t, 4, got.APICallCount)
	require.NotNil(t, got.DurationMS)
	require.Len(t, got.Result, 1)
	assert.Equal(t, "a", got.Result[0]["id"])
}

// A terminal row refuses status changes even from a stale in-memory copy.
func TestExecutionStoreRejectsTerminalOverwrite(t *testing.T) {
	_, store, _ := executionFixture(t, "ds_1")

	exec, err := NewExecution("ds_1", "user")
	require.NoError(t, err)
	require.NoError(t, store.CreateExecution(exec))
	require.NoError(t, exec.Start())
	require.NoError(t, store.UpdateExecution(exec))
	require.NoError(t, exec.Complete(nil, 1))
	require.NoError(t, store.UpdateExecution(exec))

	stale, err := store.GetExecution(exec.ID)
	require.NoError(t, err)
	stale.Status = ExecutionStatusRunning

	err = store.UpdateExecution(stale)
	require.Error(t, err)

	got, err := store.GetExecution(exec.ID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionStatusCompleted, got.Status)
}

// --- Sqlmock Tests ---
// Minimal sqlmock tests to verify SQL query structure and error paths that
// the sqlite-backed tests above cannot reach.

func TestCreateExecution_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	exec, err := NewExecution("ds_1", "user")
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO dataset_executions`).
		WithArgs(
			exec.ID,
			exec.DatasetID,
			exec.OwnerID,
			exec.Status,
			exec.RowCount,
			sqlmock.AnyArg(), // duration_ms
			exec.APICallCount,
			sqlmock.AnyArg(), // error
			sqlmock.AnyArg(), // result
			sqlmock.AnyArg(), // created_at
			sqlmock.AnyArg(), // started_at
			sqlmock.AnyArg(), // completed_at
			sqlmock.AnyArg(), // updated_at
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.CreateExecution(exec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateExecution_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	exec, err := NewExecution("ds_1", "user")
	require.NoError(t, err)
	require.NoError(t, exec.Start())

	// The UPDATE must carry the terminal-status guard in its WHERE clause.
	mock.ExpectExec(`UPDATE dataset_executions.*WHERE id = \?.*status NOT IN \('completed', 'failed'\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpdateExecution(exec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateExecutionNoRowsAffected_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	exec, err := NewExecution("ds_1", "user")
	require.NoError(t, err)
	require.NoError(t, exec.Start())

	mock.ExpectExec(`UPDATE dataset_executions`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.UpdateExecution(exec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing or already terminal")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListExecutionsByDataset(t *testing.T) {
	_, store, _ := executionFixture(t, "ds_1")

	for i := 0; i < 3; i++ {
		exec, err := NewExecution("ds_1", "user")
		require.NoError(t, err)
		require.NoError(t, store.CreateExecution(exec))
	}

	execs, err := store.ListExecutionsByDataset("ds_1", 10)
	require.NoError(t, err)
	assert.Len(t, execs, 3)

	limited, err := store.ListExecutionsByDataset("ds_1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListActiveExecutions(t *testing.T) {
	_, store, _ := executionFixture(t, "ds_1")

	active, err := NewExecution("ds_1", "user")
	require.NoError(t, err)
	require.NoError(t, store.CreateExecution(active))

	done, err := NewExecution("ds_1", "user")
	require.NoError(t, err)
	require.NoError(t, store.CreateExecution(done))
	require.NoError(t, done.Start())
	require.NoError(t, done.Complete(nil, 1))
	require.NoError(t, store.UpdateExecution(done))

	execs, err := store.ListActiveExecutions(10)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, active.ID, execs[0].ID)

	counts, err := store.CountExecutionsByStatus()
	require.NoError(t, err)
	assert.Equal(t, 1, counts[ExecutionStatusPending])
	assert.Equal(t, 1, counts[ExecutionStatusCompleted])
}
