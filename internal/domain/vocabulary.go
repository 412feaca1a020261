package domain

// DirectionSemantics constrains how a VocabType's edges may be oriented
// between Concepts.
type DirectionSemantics string

const (
	DirectionOutward      DirectionSemantics = "outward"
	DirectionInward       DirectionSemantics = "inward"
	DirectionBidirectional DirectionSemantics = "bidirectional"
)

// EpistemicStatus is the classification of a VocabType from sampled
// grounding scalars of its edge targets.
type EpistemicStatus string

const (
	StatusAffirmative      EpistemicStatus = "AFFIRMATIVE"
	StatusContested        EpistemicStatus = "CONTESTED"
	StatusEmerging         EpistemicStatus = "EMERGING"
	StatusContradictory    EpistemicStatus = "CONTRADICTORY"
	StatusHistorical       EpistemicStatus = "HISTORICAL"
	StatusInsufficientData EpistemicStatus = "INSUFFICIENT_DATA"
	StatusUnclassified     EpistemicStatus = "UNCLASSIFIED"
)

// CategorySource records whether a VocabType's category assignment came
// from the builtin seed table or the probabilistic categorizer.
type CategorySource string

const (
	CategorySourceBuiltin  CategorySource = "builtin"
	CategorySourceComputed CategorySource = "computed"
)

// VocabType is a relationship type in the concept graph's typed-edge
// vocabulary. Name is always UPPER_SNAKE.
type VocabType struct {
	Name                 string              `json:"name"`
	IsActive             bool                `json:"is_active"`
	IsBuiltin            bool                `json:"is_builtin"`
	UsageCount           int64               `json:"usage_count"`
	DirectionSemantics   *DirectionSemantics `json:"direction_semantics,omitempty"`
	EpistemicStatus      EpistemicStatus     `json:"epistemic_status"`
	EpistemicRationale   string              `json:"epistemic_rationale,omitempty"`
	EpistemicMeasuredAt  *string             `json:"epistemic_measured_at,omitempty"`
}

// VocabCategory is a semantic bucket for VocabTypes (e.g. "causation").
type VocabCategory struct {
	Name string `json:"name"`
}

// VocabularyRow is the relational-side-table row backing a VocabType node
// (side table `relationship_vocabulary`). The graph node is
// authoritative for IsActive; this row is authoritative for Embedding.
type VocabularyRow struct {
	RelationshipType    string         `db:"relationship_type"`
	Embedding           []float32      `db:"-"` // stored as jsonb, decoded by the store
	EmbeddingModel      string         `db:"embedding_model"`
	CategorySource      CategorySource `db:"category_source"`
	CategoryConfidence  *float64       `db:"category_confidence"`
	CategoryScores      map[string]float64 `db:"-"` // stored as jsonb, decoded by the store
	CategoryAmbiguous   bool           `db:"category_ambiguous"`
	Category            string         `db:"category"`
	Description         string         `db:"description"`
	AddedBy              string        `db:"added_by"`
	AddedAt              string        `db:"added_at"`
	Synonyms             []string      `db:"-"`
	DeprecationReason    *string       `db:"deprecation_reason"`
}

// EdgeSource records how a concept-to-concept edge was produced.
type EdgeSource string

const (
	EdgeSourceLLMExtraction EdgeSource = "llm_extraction"
	EdgeSourceHumanCuration EdgeSource = "human_curation"
)

// EdgeProvenance is the property bag every concept-to-concept edge
// carries. Edges are never mutated; merges copy this struct onto a new
// edge
// and delete the old one.
type EdgeProvenance struct {
	Confidence float64    `json:"confidence"`
	Category   string     `json:"category"`
	Source     EdgeSource `json:"source"`
	CreatedAt  string     `json:"created_at"`
	CreatedBy  *string    `json:"created_by,omitempty"`
	JobID      *string    `json:"job_id,omitempty"`
	DocumentID *string    `json:"document_id,omitempty"`
}

// SystemTypeBlacklist is the set of relationship-type names SyncFromGraph
// must never register as a VocabType, because they are
// structural to the graph query language itself or to fixed provenance
// edges rather than extracted domain relationships.
var SystemTypeBlacklist = map[string]struct{}{
	"APPEARS_IN":    {},
	"EVIDENCED_BY":  {},
	"FROM_SOURCE":   {},
	"IN_CATEGORY":   {},
	"LOAD":          {},
	"SET":           {},
	"APPEARS":       {},
}

// HistoricalNameMarkers are the uppercase substrings that force an
// EpistemicStatus of HISTORICAL regardless of measured grounding.
var HistoricalNameMarkers = []string{
	"WAS", "WERE", "HAD", "HISTORICAL", "FORMER", "PREVIOUS", "PAST", "ANCIENT", "ORIGINALLY",
}
