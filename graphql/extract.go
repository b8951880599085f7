package graphql

import (
	"fmt"
	"strings"
)

// ExtractIDs pulls the identifier list out of a primary-query result
// regardless of how the API encodes its connection. Each candidate field is
// checked against a closed set of shapes, top-level fields before nested
// ones, and the first shape that yields a non-empty set wins:
//
//	edges:   field.edges[].<id-path>
//	nodes:   field.nodes[].<id-path minus leading "node">
//	bare:    field[].<id-path>, retried without the leading "node" segment
//
// Field order is alphabetical so the result is deterministic for a given
// payload. An empty payload is not an error; callers decide what zero ids
// mean.
func ExtractIDs(payload map[string]interface{}, idPath string) []string {
	if len(payload) == 0 {
		return nil
	}
	segments := strings.Split(idPath, ".")

	for _, key := range sortedKeys(payload) {
		if ids := extractFromField(payload[key], segments); len(ids) > 0 {
			return ids
		}
	}

	for _, key := range sortedKeys(payload) {
		nested, ok := payload[key].(map[string]interface{})
		if !ok {
			continue
		}
		for _, nestedKey := range sortedKeys(nested) {
			if ids := extractFromField(nested[nestedKey], segments); len(ids) > 0 {
				return ids
			}
		}
	}

	return nil
}

func extractFromField(value interface{}, segments []string) []string {
	if conn, ok := value.(map[string]interface{}); ok {
		if edges, ok := conn["edges"].([]interface{}); ok {
			return idsFromList(edges, segments)
		}
		if nodes, ok := conn["nodes"].([]interface{}); ok {
			return idsFromList(nodes, stripNodeSegment(segments))
		}
	}
	if arr, ok := value.([]interface{}); ok {
		if ids := idsFromList(arr, segments); len(ids) > 0 {
			return ids
		}
		return idsFromList(arr, stripNodeSegment(segments))
	}
	return nil
}

func idsFromList(items []interface{}, segments []string) []string {
	var ids []string
	for _, item := range items {
		if id, ok := walkPath(item, segments); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// walkPath descends through map keys following the path segments and
// stringifies the leaf. Numeric ids arrive as float64 from JSON decoding.
func walkPath(value interface{}, segments []string) (string, bool) {
	current := value
	for _, seg := range segments {
		m, ok := current.(map[string]interface{})
		if !ok {
			return "", false
		}
		current, ok = m[seg]
		if !ok {
			return "", false
		}
	}
	switch v := current.(type) {
	case string:
		return v, v != ""
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v)), true
		}
		return fmt.Sprintf("%v", v), true
	default:
		return "", false
	}
}

func stripNodeSegment(segments []string) []string {
	if len(segments) > 1 && segments[0] == "node" {
		return segments[1:]
	}
	return segments
}
