package graphstore

import (
	"encoding/json"
	"strings"
)

// graphTypeSuffixes are the annotations the graph extension appends to
// vertex/edge/path return values. They are stripped before the
// remainder is parsed as JSON.
var graphTypeSuffixes = []string{"::vertex", "::edge", "::path"}

// decodeGraphValue parses one column's raw text as returned by the graph
// extension: strip a trailing::vertex/::edge/::path annotation if present,
// then JSON-decode the remainder. Primitive values unwrap to their natural
// scalar type (string, float64, bool, nil, map, or slice).
func decodeGraphValue(raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	for _, suffix := range graphTypeSuffixes {
		if strings.HasSuffix(trimmed, suffix) {
			trimmed = strings.TrimSuffix(trimmed, suffix)
			break
		}
	}
	if trimmed == "" {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		// Not JSON at all (a bare scalar the driver already decoded,
		// e.g. a plain integer column) — return as-is.
		return raw, nil
	}
	return out, nil
}

// Row is one decoded result row, keyed by the RETURN clause's computed
// column names (see parseReturnColumns).
type Row map[string]any

// VertexProperties extracts the `properties` object the graph extension
// embeds in a decoded vertex/edge JSON object, or nil if value isn't shaped
// that way.
func VertexProperties(value any) map[string]any {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	props, ok := obj["properties"].(map[string]any)
	if !ok {
		return nil
	}
	return props
}
