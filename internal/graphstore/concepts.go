package graphstore

import (
	"context"
	"math"
	"sort"
	"time"

	"kgraph-core/internal/domain"
)

// CreateConcept creates a new Concept node. Callers are responsible for
// having already run VectorSearch and decided this is genuinely novel
// — this method does not itself enforce the upsert
// threshold.
func (c *Client) CreateConcept(ctx context.Context, concept domain.Concept) error {
	_, err := c.Execute(ctx, `
		CREATE (c:Concept {
			concept_id: $concept_id, label: $label, description: $description,
			embedding: $embedding, search_terms: $search_terms
		})
		RETURN c AS c`, map[string]any{
		"concept_id":   concept.ConceptID,
		"label":        concept.Label,
		"description":  concept.Description,
		"embedding":    concept.Embedding,
		"search_terms": concept.SearchTerms,
	}, true)
	return err
}

// ExtendConceptSearchTerms overwrites an existing Concept's search_terms
// with newTerms (callers pass the already-merged list) without touching
// embedding or label.
func (c *Client) ExtendConceptSearchTerms(ctx context.Context, conceptID string, newTerms []string) error {
	_, err := c.Execute(ctx, `
		MATCH (c:Concept {concept_id: $concept_id})
		SET c.search_terms = $search_terms
		RETURN c AS c`, map[string]any{
		"concept_id":   conceptID,
		"search_terms": newTerms,
	}, true)
	return err
}

// VectorSearch streams all Concepts carrying an embedding, computes cosine
// similarity against query in memory, filters by threshold, sorts
// descending, and truncates to topK. This is the in-memory fallback path;
// no native vector index dependency is taken.
func (c *Client) VectorSearch(ctx context.Context, ontology string, query []float32, threshold float64, topK int) ([]domain.ScoredConcept, error) {
	rows, err := c.Execute(ctx, `
		MATCH (c:Concept)
		WHERE c.embedding IS NOT NULL
		RETURN c.concept_id AS concept_id, c.label AS label, c.description AS description,
		       c.embedding AS embedding, c.search_terms AS search_terms`, nil, false)
	if err != nil {
		return nil, err
	}

	var results []domain.ScoredConcept
	for _, row := range rows {
		embedding, ok := toFloat32Slice(row["embedding"])
		if !ok {
			continue
		}
		sim := cosineSimilarity(query, embedding)
		if sim < threshold {
			continue
		}
		results = append(results, domain.ScoredConcept{
			Concept: domain.Concept{
				ConceptID:   stringField(row["concept_id"]),
				Label:       stringField(row["label"]),
				Description: stringField(row["description"]),
				Embedding:   embedding,
				SearchTerms: stringSliceField(row["search_terms"]),
			},
			Similarity: sim,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Search returns the k concepts most similar to an already-embedded query;
// callers embed the query text via the active provider first.
func (c *Client) Search(ctx context.Context, ontology string, embedding []float32, k int, threshold float64) ([]domain.ScoredConcept, error) {
	return c.VectorSearch(ctx, ontology, embedding, threshold, k)
}

// SetConceptGrounding writes back the grounding scalar computed for a
// Concept.
func (c *Client) SetConceptGrounding(ctx context.Context, conceptID string, value float64) error {
	_, err := c.Execute(ctx, `
		MATCH (c:Concept {concept_id: $concept_id})
		SET c.grounding_strength = $value
		RETURN c AS c`, map[string]any{
		"concept_id": conceptID,
		"value":      value,
	}, true)
	return err
}

// PageConceptIDs returns one page of Concept ids ordered by concept_id, the
// enumeration the batch grounding-persistence job and the epistemic classifier both
// page through rather than loading the whole graph at once.
func (c *Client) PageConceptIDs(ctx context.Context, offset, limit int) ([]string, error) {
	rows, err := c.Execute(ctx, `
		MATCH (c:Concept)
		RETURN c.concept_id AS concept_id
		ORDER BY c.concept_id
		SKIP $offset LIMIT $limit`, map[string]any{
		"offset": offset,
		"limit":  limit,
	}, false)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, stringField(row["concept_id"]))
	}
	return out, nil
}

// CountConcepts returns the number of distinct Concepts with at least one
// APPEARS edge into a Source belonging to ontology — the `projection`
// launcher's drift check against a cached projection's
// statistics.concept_count.
func (c *Client) CountConcepts(ctx context.Context, ontology string) (int, error) {
	rows, err := c.Execute(ctx, `
		MATCH (c:Concept)-[:APPEARS]->(s:Source {document: $ontology})
		RETURN count(DISTINCT c) AS count`, map[string]any{"ontology": ontology}, false)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	count, _ := rows[0]["count"].(float64)
	return int(count), nil
}

// ProjectableConcept is one row of the population the projection worker
// feeds to its external dimensionality-reduction algorithm.
type ProjectableConcept struct {
	ConceptID         string
	Label             string
	Embedding         []float32
	GroundingStrength *float64
}

// ConceptsForOntology returns every Concept discussed in ontology (via
// APPEARS) that carries an embedding — the population a projection
// recompute runs its external algorithm over.
func (c *Client) ConceptsForOntology(ctx context.Context, ontology string) ([]ProjectableConcept, error) {
	rows, err := c.Execute(ctx, `
		MATCH (c:Concept)-[:APPEARS]->(s:Source {document: $ontology})
		WHERE c.embedding IS NOT NULL
		RETURN DISTINCT c.concept_id AS concept_id, c.label AS label,
		       c.embedding AS embedding, c.grounding_strength AS grounding_strength`,
		map[string]any{"ontology": ontology}, false)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectableConcept, 0, len(rows))
	for _, row := range rows {
		embedding, ok := toFloat32Slice(row["embedding"])
		if !ok {
			continue
		}
		pc := ProjectableConcept{
			ConceptID: stringField(row["concept_id"]),
			Label:     stringField(row["label"]),
			Embedding: embedding,
		}
		if g, ok := row["grounding_strength"].(float64); ok {
			pc.GroundingStrength = &g
		}
		out = append(out, pc)
	}
	return out, nil
}

// RenameOntology updates Source.document for every Source in oldName to
// newName.
func (c *Client) RenameOntology(ctx context.Context, oldName, newName string) error {
	_, err := c.Execute(ctx, `
		MATCH (s:Source {document: $old_name})
		SET s.document = $new_name
		RETURN s AS s`, map[string]any{
		"old_name": oldName,
		"new_name": newName,
	}, false)
	return err
}

func toFloat32Slice(v any) ([]float32, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]float32, 0, len(raw))
	for _, item := range raw {
		f, ok := item.(float64)
		if !ok {
			return nil, false
		}
		out = append(out, float32(f))
	}
	return out, true
}

func stringField(v any) string {
	s, _ := v.(string)
	return s
}

func stringSliceField(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func nowISO8601() string {
	return time.Now().UTC().Format(time.RFC3339)
}
