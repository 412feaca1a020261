// Package graphfacade is the namespace-safe query facade over the graph
// store. Every method other than ExecuteRaw must emit a query containing at
// least one explicit label from {Concept, Source, Instance, VocabType,
// VocabCategory, DocumentMeta}, so a caller cannot
// accidentally conflate the concept graph, the vocabulary graph, and
// provenance metadata.
package graphfacade

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"kgraph-core/internal/domain"
	"kgraph-core/internal/graphstore"
)

// Namespace identifies which disjoint region of the graph a raw query
// targets, required on every ExecuteRaw call.
type Namespace string

const (
	NamespaceConceptGraph   Namespace = "concept_graph"
	NamespaceVocabularyGraph Namespace = "vocabulary_graph"
	NamespaceProvenance     Namespace = "provenance"
)

// AuditLog is the in-process safety ledger: every facade call
// is counted as safe, every ExecuteRaw call as raw.
type AuditLog struct {
	total int64
	safe  int64
	raw   int64
}

func (a *AuditLog) recordSafe() { atomic.AddInt64(&a.total, 1); atomic.AddInt64(&a.safe, 1) }
func (a *AuditLog) recordRaw()  { atomic.AddInt64(&a.total, 1); atomic.AddInt64(&a.raw, 1) }

// Snapshot is the `{total, safe, raw, safety_ratio}` audit view.
type Snapshot struct {
	Total       int64   `json:"total"`
	Safe        int64   `json:"safe"`
	Raw         int64   `json:"raw"`
	SafetyRatio float64 `json:"safety_ratio"`
}

func (a *AuditLog) Snapshot() Snapshot {
	total := atomic.LoadInt64(&a.total)
	safe := atomic.LoadInt64(&a.safe)
	raw := atomic.LoadInt64(&a.raw)
	ratio := 0.0
	if total > 0 {
		ratio = float64(safe) / float64(total)
	}
	return Snapshot{Total: total, Safe: safe, Raw: raw, SafetyRatio: ratio}
}

// Facade is a namespace-safe wrapper over *graphstore.Client.
type Facade struct {
	store  *graphstore.Client
	audit  AuditLog
	logger *zap.Logger
}

func New(store *graphstore.Client, logger *zap.Logger) *Facade {
	return &Facade{store: store, logger: logger}
}

func (f *Facade) AuditSnapshot() Snapshot { return f.audit.Snapshot() }

// MatchConcepts is namespace-qualified to the Concept label by construction.
func (f *Facade) MatchConcepts(ctx context.Context, where string, params map[string]any, limit int, returnClause string) ([]graphstore.Row, error) {
	if returnClause == "" {
		returnClause = "c"
	}
	query := "MATCH (c:Concept)"
	if where != "" {
		query += " WHERE " + where
	}
	query += fmt.Sprintf(" RETURN %s AS result", returnClause)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	f.audit.recordSafe()
	return f.store.Execute(ctx, query, params, false)
}

// CountConcepts returns the number of Concept nodes matching where.
func (f *Facade) CountConcepts(ctx context.Context, where string, params map[string]any) (int64, error) {
	query := "MATCH (c:Concept)"
	if where != "" {
		query += " WHERE " + where
	}
	query += " RETURN count(c) AS total"
	f.audit.recordSafe()
	rows, err := f.store.Execute(ctx, query, params, true)
	if err != nil {
		return 0, err
	}
	return firstCount(rows), nil
}

// MatchConceptRelationships composes an epistemic-status filter (when
// requested) with an explicit rel_types list: it first queries the
// vocabulary graph, then intersects with the caller's types, then issues
// the concept-graph query with the resulting explicit list.
func (f *Facade) MatchConceptRelationships(ctx context.Context, relTypes []string, where string, includeStatus, excludeStatus []domain.EpistemicStatus, limit int) ([]graphstore.Row, error) {
	effectiveTypes := relTypes
	if len(includeStatus) > 0 || len(excludeStatus) > 0 {
		vocabTypes, err := f.vocabTypesMatchingStatus(ctx, includeStatus, excludeStatus)
		if err != nil {
			return nil, err
		}
		effectiveTypes = intersectOrReplace(relTypes, vocabTypes)
		if len(effectiveTypes) == 0 {
			return nil, nil
		}
	}

	relPattern := "r"
	if len(effectiveTypes) > 0 {
		relPattern = "r:" + joinTypes(effectiveTypes)
	}
	query := fmt.Sprintf("MATCH (a:Concept)-[%s]->(b:Concept)", relPattern)
	if where != "" {
		query += " WHERE " + where
	}
	query += " RETURN a AS a, type(r) AS rel_type, r AS r, b AS b"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	f.audit.recordSafe()
	return f.store.Execute(ctx, query, nil, false)
}

func (f *Facade) vocabTypesMatchingStatus(ctx context.Context, include, exclude []domain.EpistemicStatus) ([]string, error) {
	f.audit.recordSafe()
	rows, err := f.store.Execute(ctx, `MATCH (v:VocabType) RETURN v.name AS name, v.epistemic_status AS epistemic_status`, nil, false)
	if err != nil {
		return nil, err
	}
	includeSet := statusSet(include)
	excludeSet := statusSet(exclude)
	var out []string
	for _, row := range rows {
		name, _ := row["name"].(string)
		status := domain.EpistemicStatus(fmt.Sprint(row["epistemic_status"]))
		if len(includeSet) > 0 {
			if _, ok := includeSet[status]; !ok {
				continue
			}
		}
		if _, ok := excludeSet[status]; ok {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

// MatchVocabTypes is namespace-qualified to the VocabType label.
func (f *Facade) MatchVocabTypes(ctx context.Context, where string, limit int) ([]domain.VocabType, error) {
	f.audit.recordSafe()
	return f.store.ListVocabTypes(ctx, limit)
}

// CountVocabTypes returns the number of VocabType nodes matching where.
func (f *Facade) CountVocabTypes(ctx context.Context, where string) (int64, error) {
	query := "MATCH (v:VocabType)"
	if where != "" {
		query += " WHERE " + where
	}
	query += " RETURN count(v) AS total"
	f.audit.recordSafe()
	rows, err := f.store.Execute(ctx, query, nil, true)
	if err != nil {
		return 0, err
	}
	return firstCount(rows), nil
}

// MatchVocabCategories is namespace-qualified to the VocabCategory label.
func (f *Facade) MatchVocabCategories(ctx context.Context, where string) ([]domain.VocabCategory, error) {
	query := "MATCH (cat:VocabCategory)"
	if where != "" {
		query += " WHERE " + where
	}
	query += " RETURN cat.name AS name"
	f.audit.recordSafe()
	rows, err := f.store.Execute(ctx, query, nil, false)
	if err != nil {
		return nil, err
	}
	out := make([]domain.VocabCategory, 0, len(rows))
	for _, row := range rows {
		name, _ := row["name"].(string)
		out = append(out, domain.VocabCategory{Name: name})
	}
	return out, nil
}

// FindVocabularySynonyms returns VocabType pairs connected by SIMILAR_TO
// with similarity >= minSimilarity.
func (f *Facade) FindVocabularySynonyms(ctx context.Context, minSimilarity float64, category string, limit int) ([]graphstore.Row, error) {
	query := "MATCH (a:VocabType)-[s:SIMILAR_TO]->(b:VocabType) WHERE s.similarity >= $min_similarity"
	params := map[string]any{"min_similarity": minSimilarity}
	if category != "" {
		query += " MATCH (a)-[:IN_CATEGORY]->(cat:VocabCategory {name: $category})"
		params["category"] = category
	}
	query += " RETURN a.name AS type_a, b.name AS type_b, s.similarity AS similarity"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	f.audit.recordSafe()
	return f.store.Execute(ctx, query, params, false)
}

// MatchSources is namespace-qualified to the Source label.
func (f *Facade) MatchSources(ctx context.Context, where string, limit int) ([]graphstore.Row, error) {
	query := "MATCH (s:Source)"
	if where != "" {
		query += " WHERE " + where
	}
	query += " RETURN s AS s"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	f.audit.recordSafe()
	return f.store.Execute(ctx, query, nil, false)
}

// MatchInstances is namespace-qualified to the Instance label.
func (f *Facade) MatchInstances(ctx context.Context, where string, limit int) ([]graphstore.Row, error) {
	query := "MATCH (i:Instance)"
	if where != "" {
		query += " WHERE " + where
	}
	query += " RETURN i AS i"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	f.audit.recordSafe()
	return f.store.Execute(ctx, query, nil, false)
}

// GraphStats is the GetGraphStats response shape.
type GraphStats struct {
	ConceptGraph struct {
		Concepts  int64 `json:"concepts"`
		Sources   int64 `json:"sources"`
		Instances int64 `json:"instances"`
	} `json:"concept_graph"`
	VocabularyGraph struct {
		Types      int64 `json:"types"`
		Categories int64 `json:"categories"`
	} `json:"vocabulary_graph"`
	TotalNodes int64 `json:"total_nodes"`
}

func (f *Facade) GetGraphStats(ctx context.Context) (GraphStats, error) {
	var stats GraphStats
	concepts, err := f.CountConcepts(ctx, "", nil)
	if err != nil {
		return stats, err
	}
	sources, err := f.countLabel(ctx, "Source")
	if err != nil {
		return stats, err
	}
	instances, err := f.countLabel(ctx, "Instance")
	if err != nil {
		return stats, err
	}
	types, err := f.CountVocabTypes(ctx, "")
	if err != nil {
		return stats, err
	}
	categories, err := f.countLabel(ctx, "VocabCategory")
	if err != nil {
		return stats, err
	}

	stats.ConceptGraph.Concepts = concepts
	stats.ConceptGraph.Sources = sources
	stats.ConceptGraph.Instances = instances
	stats.VocabularyGraph.Types = types
	stats.VocabularyGraph.Categories = categories
	stats.TotalNodes = concepts + sources + instances + types + categories
	return stats, nil
}

func (f *Facade) countLabel(ctx context.Context, label string) (int64, error) {
	query := fmt.Sprintf("MATCH (n:%s) RETURN count(n) AS total", label)
	f.audit.recordSafe()
	rows, err := f.store.Execute(ctx, query, nil, true)
	if err != nil {
		return 0, err
	}
	return firstCount(rows), nil
}

// ExecuteRaw is the escape hatch: logs a WARNING with the namespace and
// query, and counts the call as raw in the audit log. The audit log keeps
// counts only, not the queries, and no per-namespace raw-query budget is
// enforced. Callers
// are responsible for supplying a query that actually stays within
// namespace — this method performs no label enforcement.
func (f *Facade) ExecuteRaw(ctx context.Context, query string, params map[string]any, namespace Namespace) ([]graphstore.Row, error) {
	f.logger.Warn("raw graph query executed", zap.String("namespace", string(namespace)), zap.String("query", query))
	f.audit.recordRaw()
	return f.store.Execute(ctx, query, params, false)
}

func firstCount(rows []graphstore.Row) int64 {
	if len(rows) == 0 {
		return 0
	}
	switch v := rows[0]["total"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

func statusSet(statuses []domain.EpistemicStatus) map[domain.EpistemicStatus]struct{} {
	out := make(map[domain.EpistemicStatus]struct{}, len(statuses))
	for _, s := range statuses {
		out[s] = struct{}{}
	}
	return out
}

func intersectOrReplace(relTypes, vocabTypes []string) []string {
	if len(relTypes) == 0 {
		return vocabTypes
	}
	allowed := make(map[string]struct{}, len(vocabTypes))
	for _, t := range vocabTypes {
		allowed[t] = struct{}{}
	}
	var out []string
	for _, t := range relTypes {
		if _, ok := allowed[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func joinTypes(types []string) string {
	out := ""
	for i, t := range types {
		if i > 0 {
			out += "|"
		}
		out += t
	}
	return out
}
