package ingestion

import (
	"encoding/json"
	"fmt"
	"strings"

	"kgraph-core/internal/apperrors"
	"kgraph-core/internal/domain"
)

// ExtractedConcept is one element of the extraction LLM's `concepts`
// array.
type ExtractedConcept struct {
	Label       string   `json:"label"`
	Description string   `json:"description"`
	SearchTerms []string `json:"search_terms"`
	Quotes      []string `json:"quotes"`
}

// ExtractedRelationship is one element of the extraction LLM's
// `relationships` array.
type ExtractedRelationship struct {
	FromLabel  string  `json:"from_label"`
	ToLabel    string  `json:"to_label"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// ExtractionPayload is the full JSON shape expected from the extraction
// LLM.
type ExtractionPayload struct {
	Concepts      []ExtractedConcept       `json:"concepts"`
	Relationships []ExtractedRelationship  `json:"relationships"`
}

// parseExtractionResponse unmarshals the extractor's raw JSON and rejects
// out-of-range confidence values up front rather than letting them leak
// into edge provenance.
func parseExtractionResponse(raw string) (ExtractionPayload, error) {
	var payload ExtractionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return ExtractionPayload{}, apperrors.Validationf("parse extraction response: %v", err)
	}
	for i, rel := range payload.Relationships {
		if rel.Confidence < 0 || rel.Confidence > 1 {
			return ExtractionPayload{}, apperrors.Validationf("relationship %d confidence %v out of [0,1]", i, rel.Confidence)
		}
	}
	return payload, nil
}

// buildExtractionPrompt assembles the chunk text, context window, and
// active vocabulary listing into the extraction LLM's input.
func buildExtractionPrompt(chunkText string, contextWindow []domain.Concept, activeVocabulary []domain.VocabType) string {
	var b strings.Builder
	b.WriteString("Extract concepts, supporting quotes, and typed relationships between concepts from the following text.\n\n")

	if len(activeVocabulary) > 0 {
		b.WriteString("Active relationship vocabulary (prefer these types when one fits):\n")
		for _, vt := range activeVocabulary {
			b.WriteString("- " + vt.Name + "\n")
		}
		b.WriteString("\n")
	}

	if len(contextWindow) > 0 {
		b.WriteString("Concepts already known in this document (reuse their exact label when the text refers to the same thing):\n")
		for _, c := range contextWindow {
			b.WriteString(fmt.Sprintf("- %s\n", c.Label))
		}
		b.WriteString("\n")
	}

	b.WriteString("Respond with JSON of the exact shape:\n")
	b.WriteString(`{"concepts":[{"label":"...","description":"...","search_terms":["..."],"quotes":["..."]}],`)
	b.WriteString(`"relationships":[{"from_label":"...","to_label":"...","type":"...","confidence":0.0}]}`)
	b.WriteString("\n\nText:\n")
	b.WriteString(chunkText)
	return b.String()
}
