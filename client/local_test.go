package client

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydata/quarry/dataset"
	"github.com/quarrydata/quarry/engine"
	"github.com/quarrydata/quarry/errors"
	"github.com/quarrydata/quarry/graphql"
	quarrytest "github.com/quarrydata/quarry/internal/testing"
)

const localTestQuery = `query { items(after: {cursor}) { edges { node { id } } pageInfo { hasNextPage endCursor } } }`

// singlePageExecutor serves one fixed page for any query.
type singlePageExecutor struct{}

func (singlePageExecutor) Execute(_ context.Context, _ dataset.Credentials, query string) (map[string]interface{}, error) {
	if !strings.Contains(query, "after: null") {
		return nil, errors.Newf("unexpected cursor in %q", query)
	}
	return map[string]interface{}{
		"items": map[string]interface{}{
			"edges": []interface{}{
				map[string]interface{}{"node": map[string]interface{}{"id": "a", "created_at": "2026-01-01"}},
				map[string]interface{}{"node": map[string]interface{}{"id": "b", "created_at": "2026-01-02"}},
			},
			"pageInfo": map[string]interface{}{"hasNextPage": false, "endCursor": ""},
		},
	}, nil
}

func localAPIFixture(t *testing.T) (*LocalAPI, *engine.Store) {
	t.Helper()
	conn := quarrytest.CreateTestDB(t)
	datasets := dataset.NewStore(conn)
	executions := engine.NewStore(conn)
	checkpoints := engine.NewCheckpointStore(conn)

	src := &dataset.Source{
		ID: "src_1", Name: "src", APIURL: "https://api.example.com/graphql", APIKey: "k",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, datasets.CreateSource(src))
	tmpl := &dataset.Template{ID: "tpl_1", Name: "items", QueryTemplate: localTestQuery, CreatedAt: time.Now()}
	require.NoError(t, datasets.CreateTemplate(tmpl, false))
	ds := &dataset.Dataset{
		ID: "ds_1", Name: "items", SourceID: "src_1", Type: dataset.TypePredefined,
		TemplateID: "tpl_1", CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, datasets.CreateDataset(ds))

	fetcher := graphql.NewFetcher(singlePageExecutor{}, 0, 100, nil)
	orch := engine.NewDependentOrchestrator(fetcher, singlePageExecutor{}, checkpoints, 5, 100, nil)
	runner := engine.NewRunner(datasets, dataset.NewResolver(datasets, nil), executions, fetcher, orch, nil, nil)

	return NewLocalAPI(datasets, executions, runner, 0, nil), executions
}

func TestLocalAPITriggerAndPollToCompletion(t *testing.T) {
	api, _ := localAPIFixture(t)

	execID, err := api.TriggerExecution(context.Background(), "ds_1", "user")
	require.NoError(t, err)
	assert.True(t, engine.IsExecutionID(execID))

	cfg := DefaultPollConfig()
	cfg.Interval = 5 * time.Millisecond
	poller := NewPoller(NewRetriever(api, nil), cfg, nil)

	outcome := poller.Poll(context.Background(), execID, 10, nil)
	require.Equal(t, StopCompleted, outcome.Reason)

	result := outcome.Result
	assert.Equal(t, string(StrategyPreview), result.Strategy)
	assert.Equal(t, 2, result.TotalCount)
	assert.Len(t, result.Preview, 2)
	require.Len(t, result.Columns, 2)
	assert.Equal(t, "Created At", result.Columns[0].Label)
	assert.Equal(t, "items", result.Dataset.Name)
}

func TestLocalAPIDirectOmitsColumns(t *testing.T) {
	api, executions := localAPIFixture(t)

	exec, err := engine.NewExecution("ds_1", "user")
	require.NoError(t, err)
	require.NoError(t, executions.CreateExecution(exec))
	require.NoError(t, exec.Start())
	require.NoError(t, exec.Complete([]map[string]interface{}{{"id": "a"}}, 1))
	require.NoError(t, executions.UpdateExecution(exec))

	result, err := api.FetchDirect(context.Background(), exec.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, result.Columns)
	assert.Len(t, result.Preview, 1)
	assert.Equal(t, 1, result.TotalCount)
}

func TestLocalAPIMinimalIsStatusOnly(t *testing.T) {
	api, executions := localAPIFixture(t)

	exec, err := engine.NewExecution("ds_1", "user")
	require.NoError(t, err)
	require.NoError(t, executions.CreateExecution(exec))
	require.NoError(t, exec.Start())
	require.NoError(t, exec.Complete([]map[string]interface{}{{"id": "a"}}, 1))
	require.NoError(t, executions.UpdateExecution(exec))

	result, err := api.FetchMinimal(context.Background(), exec.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", result.Status)
	assert.Empty(t, result.Preview)
	assert.Empty(t, result.Columns)
	assert.Zero(t, result.TotalCount)
	assert.Equal(t, 1, result.Execution.RowCount)
}

func TestLocalAPIPreviewMarksStuck(t *testing.T) {
	api, executions := localAPIFixture(t)

	exec, err := engine.NewExecution("ds_1", "user")
	require.NoError(t, err)
	started := time.Now().Add(-20 * time.Minute)
	exec.Status = engine.ExecutionStatusRunning
	exec.CreatedAt = started
	exec.StartedAt = &started
	require.NoError(t, executions.CreateExecution(exec))

	result, err := api.FetchPreview(context.Background(), exec.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusStuck, result.Status)
}

func TestLocalAPIUnknownExecution(t *testing.T) {
	api, _ := localAPIFixture(t)

	_, err := api.FetchPreview(context.Background(), "EXE_missing", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
