package engine

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quarrydata/quarry/dataset"
	quarrytest "github.com/quarrydata/quarry/internal/testing"
)

// seedDataset creates a source and dataset so execution rows satisfy their
// foreign keys.
func seedDataset(t *testing.T, conn *sql.DB, datasetID string, dsType dataset.Type) *dataset.Store {
	t.Helper()
	store := dataset.NewStore(conn)

	src := &dataset.Source{
		ID:        "src_" + datasetID,
		Name:      "test source",
		APIURL:    "https://api.example.com/graphql",
		APIKey:    "key-123",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, store.CreateSource(src))

	ds := &dataset.Dataset{
		ID:        datasetID,
		Name:      "test dataset",
		SourceID:  src.ID,
		Type:      dsType,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, store.CreateDataset(ds))
	return store
}

func executionFixture(t *testing.T, datasetID string) (*sql.DB, *Store, *dataset.Store) {
	t.Helper()
	conn := quarrytest.CreateTestDB(t)
	datasets := seedDataset(t, conn, datasetID, dataset.TypePredefined)
	return conn, NewStore(conn), datasets
}
