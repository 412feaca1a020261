package graphstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// escapeParam turns a Go value into a graph-query-language literal, because
// the graph extension underneath has no native parameter binding. Strings are escaped by doubling backslashes then escaping single
// quotes; lists and maps are JSON-encoded then escaped the same way;
// numbers and nil are literalized directly.
//
// This is deliberate string interpolation, not a vulnerability: every
// caller is internal code building a fixed query shape, never
// user-controlled Cypher.
func escapeParam(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case string:
		return quoteString(val), nil
	case bool:
		if val {
			return "true", nil
		}
		return "false", nil
	case int:
		return strconv.Itoa(val), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	default:
		// Lists, maps, and anything else JSON-serializable.
		encoded, err := json.Marshal(val)
		if err != nil {
			return "", fmt.Errorf("graphstore: cannot escape parameter of type %T: %w", v, err)
		}
		return escapeBackslashesAndQuotes(string(encoded)), nil
	}
}

func quoteString(s string) string {
	return "'" + escapeBackslashesAndQuotes(s) + "'"
}

// escapeBackslashesAndQuotes doubles backslashes first, then escapes single
// quotes. Reversing the order would under-escape a quote that was itself
// preceded by a literal backslash in the input.
func escapeBackslashesAndQuotes(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return s
}

// buildParams substitutes named placeholders of the form $name in query with
// their escaped literal form. Substitution happens longest-name-first so
// that e.g. $label and $label2 never collide.
func buildParams(query string, params map[string]any) (string, error) {
	if len(params) == 0 {
		return query, nil
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sortByLengthDesc(names)

	out := query
	for _, name := range names {
		literal, err := escapeParam(params[name])
		if err != nil {
			return "", err
		}
		out = strings.ReplaceAll(out, "$"+name, literal)
	}
	return out, nil
}

func sortByLengthDesc(names []string) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && len(names[j-1]) < len(names[j]); j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
}
