package graphstore

import (
	"regexp"
	"strings"
)

var returnClauseRe = regexp.MustCompile(`(?is)\bRETURN\b(.*?)(?:\bORDER\s+BY\b|\bSKIP\b|\bLIMIT\b|$)`)
var asAliasRe = regexp.MustCompile(`(?is)^(.*)\bAS\b\s*([A-Za-z_][A-Za-z0-9_]*)\s*$`)
var identTokenRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// parseReturnColumns computes the output column names a graph query's RETURN
// clause produces: for each comma-separated
// item, the `AS alias` wins if present, else the last identifier token of
// the expression; duplicate names get `_2`, `_3`, … suffixes.
//
// It is intentionally a simple regex, not a real parser, matching the
// original system's own tie-break rules rather than handling every
// possible graph-query-language expression.
func parseReturnColumns(query string) []string {
	m := returnClauseRe.FindStringSubmatch(query)
	if m == nil {
		return nil
	}
	items := splitTopLevelCommas(m[1])

	seen := make(map[string]int)
	columns := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name := columnNameFor(item)
		seen[name]++
		if n := seen[name]; n > 1 {
			name = name + "_" + itoa(n)
		}
		columns = append(columns, name)
	}
	return columns
}

func columnNameFor(item string) string {
	if am := asAliasRe.FindStringSubmatch(item); am != nil {
		return am[2]
	}
	tokens := identTokenRe.FindAllString(item, -1)
	if len(tokens) == 0 {
		return item
	}
	return tokens[len(tokens)-1]
}

// splitTopLevelCommas splits on commas that are not nested inside
// parentheses, brackets, or braces — so `count(a, b) AS c, d` splits into
// two items, not three.
func splitTopLevelCommas(s string) []string {
	var items []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				items = append(items, s[start:i])
				start = i + 1
			}
		}
	}
	items = append(items, s[start:])
	return items
}

func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	// Duplicate counts beyond single digits are not expected in practice
	// (a RETURN clause with 10+ identically-named items), but handle it
	// rather than silently truncating.
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
