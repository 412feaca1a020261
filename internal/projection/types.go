// Package projection owns the projection cache. The
// dimensionality-reduction algorithm itself (t-SNE, UMAP) is an external
// collaborator — this package owns only the caching
// contract (read with conditional changelist_id, write latest + history,
// invalidate) and the drift check the `projection` launcher uses to
// decide whether a recompute is warranted.
package projection

// Point is one Concept's placement in the reduced space, plus the
// optional grounding/diversity enrichments of the cache JSON.
type Point struct {
	ConceptID           string   `json:"concept_id"`
	Label               string   `json:"label"`
	X                   float64  `json:"x"`
	Y                   float64  `json:"y"`
	Z                   float64  `json:"z"`
	GroundingStrength   *float64 `json:"grounding_strength,omitempty"`
	DiversityScore      *float64 `json:"diversity_score,omitempty"`
	DiversityRelated    *int     `json:"diversity_related_count,omitempty"`
}

// Parameters is the per-algorithm parameter block; unused fields for a
// given algorithm are left nil.
type Parameters struct {
	NComponents int      `json:"n_components"`
	Perplexity  *float64 `json:"perplexity,omitempty"`
	NNeighbors  *int     `json:"n_neighbors,omitempty"`
	MinDist     *float64 `json:"min_dist,omitempty"`
}

// Statistics is the cache JSON statistics block.
type Statistics struct {
	ConceptCount      int        `json:"concept_count"`
	ComputationTimeMs int64      `json:"computation_time_ms"`
	EmbeddingDims     int        `json:"embedding_dims"`
	GroundingRange    *[2]float64 `json:"grounding_range,omitempty"`
	DiversityRange    *[2]float64 `json:"diversity_range,omitempty"`
}

// Dataset is the complete projection cache JSON document.
type Dataset struct {
	Ontology      string     `json:"ontology"`
	ChangelistID  string     `json:"changelist_id"`
	Algorithm     string     `json:"algorithm"`
	Parameters    Parameters `json:"parameters"`
	ComputedAt    string     `json:"computed_at"`
	Concepts      []Point    `json:"concepts"`
	Statistics    Statistics `json:"statistics"`
}
