package graphql

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydata/quarry/dataset"
	"github.com/quarrydata/quarry/errors"
)

// pagedExecutor serves a fixed sequence of cursor-keyed pages and records
// every query it sees.
type pagedExecutor struct {
	pages   map[string]map[string]interface{}
	queries []string
	failOn  string
}

func (p *pagedExecutor) Execute(_ context.Context, _ dataset.Credentials, query string) (map[string]interface{}, error) {
	p.queries = append(p.queries, query)
	cursor := cursorIn(query)
	if p.failOn != "" && cursor == p.failOn {
		return nil, errors.Wrap(errors.ErrExternalAPI, "upstream failure")
	}
	pg, ok := p.pages[cursor]
	if !ok {
		return nil, errors.Newf("unexpected cursor %q", cursor)
	}
	return pg, nil
}

func cursorIn(query string) string {
	if strings.Contains(query, "after: null") {
		return ""
	}
	idx := strings.Index(query, `after: "`)
	if idx < 0 {
		return ""
	}
	start := idx + len(`after: "`)
	end := strings.Index(query[start:], `"`)
	return query[start : start+end]
}

func connectionPage(ids []string, endCursor string, hasNext bool) map[string]interface{} {
	edges := make([]interface{}, len(ids))
	for i, id := range ids {
		edges[i] = map[string]interface{}{"node": map[string]interface{}{"id": id}}
	}
	return map[string]interface{}{
		"items": map[string]interface{}{
			"edges": edges,
			"pageInfo": map[string]interface{}{
				"hasNextPage": hasNext,
				"endCursor":   endCursor,
			},
		},
	}
}

const testQuery = `query { items(after: {cursor}) { edges { node { id } } pageInfo { hasNextPage endCursor } } }`

func TestFetchAllWalksEveryPage(t *testing.T) {
	exec := &pagedExecutor{pages: map[string]map[string]interface{}{
		"":   connectionPage([]string{"a", "b"}, "c1", true),
		"c1": connectionPage([]string{"c", "d"}, "c2", true),
		"c2": connectionPage([]string{"e"}, "", false),
	}}

	fetcher := NewFetcher(exec, 0, 100, nil)
	result, err := fetcher.FetchAll(context.Background(), dataset.Credentials{}, testQuery, "")
	require.NoError(t, err)

	var ids []string
	for _, rec := range result.Records {
		ids = append(ids, rec["id"].(string))
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
	assert.Equal(t, 3, result.CallCount)
}

func TestFetchAllFirstPageUsesNullCursor(t *testing.T) {
	exec := &pagedExecutor{pages: map[string]map[string]interface{}{
		"": connectionPage([]string{"a"}, "", false),
	}}

	fetcher := NewFetcher(exec, 0, 100, nil)
	_, err := fetcher.FetchAll(context.Background(), dataset.Credentials{}, testQuery, "")
	require.NoError(t, err)

	require.Len(t, exec.queries, 1)
	assert.Contains(t, exec.queries[0], "after: null")
	assert.NotContains(t, exec.queries[0], "{cursor}")
}

func TestFetchAllBareArrayIsTerminal(t *testing.T) {
	exec := &pagedExecutor{pages: map[string]map[string]interface{}{
		"": {
			"results": []interface{}{
				map[string]interface{}{"id": "x"},
				map[string]interface{}{"id": "y"},
			},
		},
	}}

	fetcher := NewFetcher(exec, 0, 100, nil)
	result, err := fetcher.FetchAll(context.Background(), dataset.Credentials{}, `query { results { id } }`, "")
	require.NoError(t, err)

	assert.Len(t, result.Records, 2)
	assert.Equal(t, 1, result.CallCount)
}

func TestFetchAllErrorCarriesCallCount(t *testing.T) {
	exec := &pagedExecutor{
		pages: map[string]map[string]interface{}{
			"":   connectionPage([]string{"a"}, "c1", true),
			"c1": connectionPage([]string{"b"}, "c2", true),
		},
		failOn: "c2",
	}

	fetcher := NewFetcher(exec, 0, 100, nil)
	_, err := fetcher.FetchAll(context.Background(), dataset.Credentials{}, testQuery, "")
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 3, fetchErr.CallCount)
	assert.True(t, errors.IsExternalAPIError(err))
}

// A resource hint selects the named field even when another
// connection-shaped field sorts ahead of it.
func TestFetchPageHonorsResourceHint(t *testing.T) {
	page := connectionPage([]string{"a", "b"}, "", false)
	page["audit"] = map[string]interface{}{
		"edges":    []interface{}{map[string]interface{}{"node": map[string]interface{}{"id": "log-entry"}}},
		"pageInfo": map[string]interface{}{"hasNextPage": false, "endCursor": ""},
	}
	exec := &pagedExecutor{pages: map[string]map[string]interface{}{"": page}}

	fetcher := NewFetcher(exec, 0, 100, nil)

	hinted, err := fetcher.FetchPage(context.Background(), dataset.Credentials{}, testQuery, "", "items")
	require.NoError(t, err)
	require.Len(t, hinted.Records, 2)
	assert.Equal(t, "a", hinted.Records[0]["id"])

	// Without a hint, detection falls back to key order.
	detected, err := fetcher.FetchPage(context.Background(), dataset.Credentials{}, testQuery, "", "")
	require.NoError(t, err)
	require.Len(t, detected.Records, 1)
	assert.Equal(t, "log-entry", detected.Records[0]["id"])

	// A hint naming a missing field falls back to detection.
	fallback, err := fetcher.FetchPage(context.Background(), dataset.Credentials{}, testQuery, "", "missing")
	require.NoError(t, err)
	assert.Equal(t, "log-entry", fallback.Records[0]["id"])
}

func TestFetchAllStopsAtPageBound(t *testing.T) {
	pages := map[string]map[string]interface{}{
		"": connectionPage([]string{"r0"}, "c0", true),
	}
	for i := 0; i < 10; i++ {
		pages[fmt.Sprintf("c%d", i)] = connectionPage(
			[]string{fmt.Sprintf("r%d", i+1)}, fmt.Sprintf("c%d", i+1), true)
	}

	exec := &pagedExecutor{pages: pages}
	fetcher := NewFetcher(exec, 0, 3, nil)
	result, err := fetcher.FetchAll(context.Background(), dataset.Credentials{}, testQuery, "")
	require.NoError(t, err)

	assert.Equal(t, 3, result.CallCount)
	assert.Len(t, result.Records, 3)
}

func TestFetchAllEmptyResponse(t *testing.T) {
	exec := &pagedExecutor{pages: map[string]map[string]interface{}{
		"": {"items": map[string]interface{}{"edges": []interface{}{}, "pageInfo": map[string]interface{}{"hasNextPage": false}}},
	}}

	fetcher := NewFetcher(exec, 0, 100, nil)
	result, err := fetcher.FetchAll(context.Background(), dataset.Credentials{}, testQuery, "")
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Equal(t, 1, result.CallCount)
}
