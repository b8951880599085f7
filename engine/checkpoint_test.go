package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydata/quarry/graphql"
	quarrytest "github.com/quarrydata/quarry/internal/testing"

	"github.com/quarrydata/quarry/dataset"
)

func TestCheckpointProcessedSet(t *testing.T) {
	cp := NewCheckpoint("ds_1")

	assert.False(t, cp.IsProcessed("a"))
	cp.MarkProcessed("a")
	cp.MarkProcessed("b")
	cp.MarkProcessed("a")

	assert.True(t, cp.IsProcessed("a"))
	assert.Equal(t, []string{"a", "b"}, cp.ProcessedList())
}

func TestProcessedRoundTrip(t *testing.T) {
	cp := NewCheckpoint("ds_1")
	cp.MarkProcessed("z")
	cp.MarkProcessed("a")

	encoded, err := MarshalProcessed(cp)
	require.NoError(t, err)
	assert.Equal(t, `["a","z"]`, encoded)

	decoded, err := UnmarshalProcessed(encoded)
	require.NoError(t, err)
	assert.Equal(t, cp.Processed, decoded)

	empty, err := UnmarshalProcessed("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// Advance is pure: it reports the new work without touching the checkpoint.
func TestAdvanceFiltersProcessedIDs(t *testing.T) {
	cp := NewCheckpoint("ds_1")
	cp.MarkProcessed("a")
	cp.MarkProcessed("c")

	page := &graphql.Page{
		Raw: map[string]interface{}{
			"items": map[string]interface{}{
				"edges": []interface{}{
					map[string]interface{}{"node": map[string]interface{}{"id": "a"}},
					map[string]interface{}{"node": map[string]interface{}{"id": "b"}},
					map[string]interface{}{"node": map[string]interface{}{"id": "c"}},
					map[string]interface{}{"node": map[string]interface{}{"id": "d"}},
				},
			},
		},
		HasNextPage: true,
		EndCursor:   "next",
	}

	actions := Advance(cp, page, "node.id")
	assert.Equal(t, []string{"b", "d"}, actions.NewIDs)
	assert.Equal(t, "next", actions.NextCursor)
	assert.True(t, actions.HasNextPage)

	assert.Equal(t, []string{"a", "c"}, cp.ProcessedList())
	assert.Empty(t, cp.Cursor)
}

func TestAdvanceTerminalPage(t *testing.T) {
	cp := NewCheckpoint("ds_1")
	page := &graphql.Page{
		Raw:         map[string]interface{}{"items": map[string]interface{}{"edges": []interface{}{}}},
		HasNextPage: false,
	}

	actions := Advance(cp, page, "node.id")
	assert.Empty(t, actions.NewIDs)
	assert.False(t, actions.HasNextPage)
}

func TestCheckpointStoreUpsert(t *testing.T) {
	conn := quarrytest.CreateTestDB(t)
	seedDataset(t, conn, "ds_1", dataset.TypeDependent)
	store := NewCheckpointStore(conn)

	missing, err := store.Load("ds_1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	cp := NewCheckpoint("ds_1")
	cp.Status = CheckpointStatusInProgress
	cp.Cursor = "page-2"
	cp.MarkProcessed("a")
	require.NoError(t, store.Save(cp))

	got, err := store.Load("ds_1")
	require.NoError(t, err)
	assert.Equal(t, CheckpointStatusInProgress, got.Status)
	assert.Equal(t, "page-2", got.Cursor)
	assert.True(t, got.IsProcessed("a"))
	assert.True(t, got.HasNextPage)

	cp.MarkProcessed("b")
	cp.Cursor = "page-3"
	cp.Status = CheckpointStatusCompleted
	cp.HasNextPage = false
	require.NoError(t, store.Save(cp))

	got, err = store.Load("ds_1")
	require.NoError(t, err)
	assert.Equal(t, CheckpointStatusCompleted, got.Status)
	assert.Equal(t, []string{"a", "b"}, got.ProcessedList())
	assert.False(t, got.HasNextPage)

	require.NoError(t, store.Delete("ds_1"))
	missing, err = store.Load("ds_1")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
