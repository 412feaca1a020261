package graphstore

import (
	"context"

	"kgraph-core/internal/domain"
)

// CreateConceptEdge MERGEs a typed edge fromID -[type]-> toID carrying full
// provenance. Edges are never mutated in place —
// VocabularyManager.Merge creates a fresh edge and deletes the old one
// rather than calling this with a different type.
func (c *Client) CreateConceptEdge(ctx context.Context, fromID, toID, edgeType string, prov domain.EdgeProvenance) error {
	query := "MATCH (a:Concept {concept_id: $from_id}), (b:Concept {concept_id: $to_id}) " +
		"MERGE (a)-[r:" + edgeType + "]->(b) " +
		"ON CREATE SET r.confidence = $confidence, r.category = $category, r.source = $source, " +
		"r.created_at = $created_at, r.created_by = $created_by, r.job_id = $job_id, r.document_id = $document_id " +
		"RETURN r AS r"

	_, err := c.Execute(ctx, query, map[string]any{
		"from_id":     fromID,
		"to_id":       toID,
		"confidence":  prov.Confidence,
		"category":    prov.Category,
		"source":      string(prov.Source),
		"created_at":  prov.CreatedAt,
		"created_by":  derefString(prov.CreatedBy),
		"job_id":      derefString(prov.JobID),
		"document_id": derefString(prov.DocumentID),
	}, true)
	return err
}

// IncomingConceptEdges enumerates every edge r: (source)->(concept) pointing
// at conceptID, with its type and confidence — the enumeration population
// for the polarity-axis projection. Confidence defaults to
// 1.0 when an edge was written without one.
func (c *Client) IncomingConceptEdges(ctx context.Context, conceptID string) ([]domain.IncomingEdge, error) {
	rows, err := c.Execute(ctx, `
		MATCH (:Concept)-[r]->(target:Concept {concept_id: $concept_id})
		RETURN type(r) AS rel_type, r.confidence AS confidence`, map[string]any{
		"concept_id": conceptID,
	}, false)
	if err != nil {
		return nil, err
	}
	out := make([]domain.IncomingEdge, 0, len(rows))
	for _, row := range rows {
		confidence := 1.0
		if v, ok := row["confidence"].(float64); ok {
			confidence = v
		}
		out = append(out, domain.IncomingEdge{
			Type:       stringField(row["rel_type"]),
			Confidence: confidence,
		})
	}
	return out, nil
}

// DistinctConceptEdgeTypes enumerates every distinct relationship type used
// in the concept graph — the input to VocabularyManager.SyncFromGraph.
func (c *Client) DistinctConceptEdgeTypes(ctx context.Context) ([]string, error) {
	rows, err := c.Execute(ctx, `
		MATCH (:Concept)-[r]->(:Concept)
		RETURN DISTINCT type(r) AS rel_type`, nil, false)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, stringField(row["rel_type"]))
	}
	return out, nil
}

// RetargetEdgesByType re-creates every concept-to-concept edge of oldType
// as newType between the same endpoints (copying properties), then deletes
// the old edges — the merge mechanics behind VocabularyManager.Merge.
func (c *Client) RetargetEdgesByType(ctx context.Context, oldType, newType string) (int, error) {
	query := "MATCH (a:Concept)-[r:" + oldType + "]->(b:Concept) " +
		"MERGE (a)-[r2:" + newType + "]->(b) " +
		"ON CREATE SET r2 = properties(r) " +
		"WITH r, a, b " +
		"DELETE r " +
		"RETURN a.concept_id AS a"

	rows, err := c.Execute(ctx, query, nil, false)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
