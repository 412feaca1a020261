package ingestion

import (
	"regexp"
	"strings"

	"kgraph-core/internal/domain"
)

// builtinSynonyms maps a handful of relationship-type spellings the
// extraction LLM commonly emits onto the canonical vocabulary name, applied
// before stemming. This is intentionally a
// small static seed, not a learned table — the vocabulary manager's SyncFromGraph is what keeps
// the vocabulary itself authoritative over time.
var builtinSynonyms = map[string]string{
	"SUPPORTED_BY":   "SUPPORTS",
	"IS_SUPPORTED_BY": "SUPPORTS",
	"CONTRADICTED_BY": "CONTRADICTS",
	"CAUSED_BY":      "CAUSES",
	"RELATED_TO":     "RELATES_TO",
	"PART_OF":        "CONTAINS",
	"IS_A":           "INSTANCE_OF",
}

var nonAlnumRun = regexp.MustCompile(`[^A-Z0-9]+`)

// normalizeTypeName upper-snake-cases a raw relationship-type string the way
// every VocabType.Name is expected to look: uppercase,
// non-alphanumeric runs collapsed to a single underscore, no leading or
// trailing underscore.
func normalizeTypeName(raw string) string {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	collapsed := nonAlnumRun.ReplaceAllString(upper, "_")
	return strings.Trim(collapsed, "_")
}

// stemLite is a deliberately small suffix-stripper, not a full Porter
// stemmer implementation — the pack carries no stemming library to ground
// a faithful one on (see DESIGN.md), and the only thing this needs to do is
// fold trivial morphological variants ("CAUSES" / "CAUSED" / "CAUSING")
// onto the same key before vocabulary lookup.
func stemLite(word string) string {
	for _, suffix := range []string{"IONS", "ION", "ING", "ERS", "ER", "ED", "ES", "S"} {
		if len(word) > len(suffix)+2 && strings.HasSuffix(word, suffix) {
			return word[:len(word)-len(suffix)]
		}
	}
	return word
}

// Matcher resolves a freshly extracted relationship-type string onto an
// already-active VocabType name, or reports that none matched so the
// caller can register it as a new "llm_generated" type.
type Matcher struct {
	stemToName map[string]string
}

// NewMatcher indexes active by the stemmed form of each word in its name,
// split on underscores, so "CAUSES" matches "CAUSED" and "CAUSING" alike.
func NewMatcher(active []domain.VocabType) *Matcher {
	m := &Matcher{stemToName: make(map[string]string, len(active))}
	for _, vt := range active {
		m.index(vt.Name)
	}
	return m
}

func (m *Matcher) index(name string) {
	key := stemKey(name)
	if _, exists := m.stemToName[key]; !exists {
		m.stemToName[key] = name
	}
}

func stemKey(name string) string {
	parts := strings.Split(name, "_")
	stemmed := make([]string, len(parts))
	for i, p := range parts {
		stemmed[i] = stemLite(p)
	}
	return strings.Join(stemmed, "_")
}

// Match normalizes raw, applies the synonym table, then looks it up by
// stem. Returns the matched active VocabType name and true, or the
// normalized (but unmatched) name and false.
func (m *Matcher) Match(raw string) (name string, matched bool) {
	normalized := normalizeTypeName(raw)
	if canonical, ok := builtinSynonyms[normalized]; ok {
		normalized = canonical
	}
	if existing, ok := m.stemToName[stemKey(normalized)]; ok {
		return existing, true
	}
	return normalized, false
}
