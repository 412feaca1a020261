// Package domain holds the property-graph entities shared across every
// component of the ingestion core: Concept, Source, Instance, DocumentMeta,
// and the typed-edge vocabulary. Nothing here talks to a store; these are
// plain structs plus the handful of pure invariant checks that apply to all
// of them regardless of backend.
package domain

// Concept is a deduplicated meaning unit. Two Concepts whose embeddings are
// cosine-similar above the configured upsert threshold must never both
// exist; callers enforce that via vector search before creating one.
type Concept struct {
	ConceptID         string    `json:"concept_id"`
	Label             string    `json:"label"`
	Description       string    `json:"description"`
	Embedding         []float32 `json:"embedding,omitempty"`
	SearchTerms       []string  `json:"search_terms,omitempty"`
	GroundingStrength *float64  `json:"grounding_strength,omitempty"`
}

// ExtendSearchTerms merges newTerms into the concept's existing search_terms,
// skipping anything already present. Upsert-by-meaning never overwrites
// Embedding or Label on merge, only grows SearchTerms.
func (c *Concept) ExtendSearchTerms(newTerms []string) {
	seen := make(map[string]struct{}, len(c.SearchTerms))
	for _, t := range c.SearchTerms {
		seen[t] = struct{}{}
	}
	for _, t := range newTerms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		c.SearchTerms = append(c.SearchTerms, t)
	}
}

// ScoredConcept pairs a Concept with a vector-search similarity score.
type ScoredConcept struct {
	Concept
	Similarity float64 `json:"similarity"`
}

// IncomingEdge is one inbound typed edge on a Concept: a VocabType name plus
// the provenance confidence it was created with. This is the enumeration
// population the grounding engine projects onto the polarity axis.
type IncomingEdge struct {
	Type       string
	Confidence float64
}
