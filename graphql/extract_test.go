package graphql

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

// The same logical list of ids must come back identically no matter which
// connection encoding the API chose.
func TestExtractIDsShapeIndependence(t *testing.T) {
	want := []string{"id-1", "id-2", "id-3"}

	encodings := map[string]string{
		"edges": `{"items":{"edges":[
			{"node":{"id":"id-1"}},{"node":{"id":"id-2"}},{"node":{"id":"id-3"}}]}}`,
		"nodes": `{"items":{"nodes":[
			{"id":"id-1"},{"id":"id-2"},{"id":"id-3"}]}}`,
		"bare array": `{"items":[
			{"id":"id-1"},{"id":"id-2"},{"id":"id-3"}]}`,
		"nested one level": `{"data":{"items":{"edges":[
			{"node":{"id":"id-1"}},{"node":{"id":"id-2"}},{"node":{"id":"id-3"}}]}}}`,
	}

	for name, raw := range encodings {
		t.Run(name, func(t *testing.T) {
			got := ExtractIDs(decode(t, raw), "node.id")
			assert.Equal(t, want, got)
		})
	}
}

func TestExtractIDsTopLevelWinsOverNested(t *testing.T) {
	payload := decode(t, `{
		"wrapper": {"items": {"nodes": [{"id": "nested"}]}},
		"zitems": {"nodes": [{"id": "top"}]}
	}`)

	got := ExtractIDs(payload, "node.id")
	assert.Equal(t, []string{"top"}, got)
}

func TestExtractIDsCustomPath(t *testing.T) {
	payload := decode(t, `{"orders":{"edges":[
		{"node":{"order":{"number":"A100"}}},
		{"node":{"order":{"number":"A101"}}}]}}`)

	got := ExtractIDs(payload, "node.order.number")
	assert.Equal(t, []string{"A100", "A101"}, got)
}

func TestExtractIDsNumericIDs(t *testing.T) {
	payload := decode(t, `{"items":{"nodes":[{"id":42},{"id":43}]}}`)

	got := ExtractIDs(payload, "node.id")
	assert.Equal(t, []string{"42", "43"}, got)
}

func TestExtractIDsSkipsMalformedItems(t *testing.T) {
	payload := decode(t, `{"items":{"edges":[
		{"node":{"id":"good"}},
		{"node":{"name":"no id"}},
		"not an object"]}}`)

	got := ExtractIDs(payload, "node.id")
	assert.Equal(t, []string{"good"}, got)
}

func TestExtractIDsEmptyPayload(t *testing.T) {
	assert.Nil(t, ExtractIDs(nil, "node.id"))
	assert.Nil(t, ExtractIDs(map[string]interface{}{}, "node.id"))
	assert.Nil(t, ExtractIDs(decode(t, `{"items":{"edges":[]}}`), "node.id"))
}

func TestExtractIDsDeterministicAcrossFields(t *testing.T) {
	payload := decode(t, `{
		"alpha": {"nodes": [{"id": "from-alpha"}]},
		"beta":  {"nodes": [{"id": "from-beta"}]}
	}`)

	for i := 0; i < 20; i++ {
		got := ExtractIDs(payload, "node.id")
		require.Equal(t, []string{"from-alpha"}, got)
	}
}
