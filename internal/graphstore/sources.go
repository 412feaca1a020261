package graphstore

import (
	"context"

	"kgraph-core/internal/domain"
)

// CreateSource creates a Source node.
func (c *Client) CreateSource(ctx context.Context, src domain.Source) error {
	_, err := c.Execute(ctx, `
		CREATE (s:Source {
			source_id: $source_id, document: $document, paragraph: $paragraph,
			full_text: $full_text, content_type: $content_type, storage_key: $storage_key,
			garage_key: $garage_key, content_hash: $content_hash,
			char_offset_start: $char_offset_start, char_offset_end: $char_offset_end,
			chunk_index: $chunk_index
		})
		RETURN s AS s`, map[string]any{
		"source_id":         src.SourceID,
		"document":          src.Document,
		"paragraph":         src.Paragraph,
		"full_text":         src.FullText,
		"content_type":      string(src.ContentType),
		"storage_key":       derefString(src.StorageKey),
		"garage_key":        derefString(src.GarageKey),
		"content_hash":      derefString(src.ContentHash),
		"char_offset_start": derefInt(src.CharOffsetStart),
		"char_offset_end":   derefInt(src.CharOffsetEnd),
		"chunk_index":       derefInt(src.ChunkIndex),
	}, true)
	return err
}

// CreateInstance creates an Instance quote node, or returns the existing
// instance_id if one with the same (quote, source_id) already links to this
// Source (MERGE-by-quote).
func (c *Client) CreateInstance(ctx context.Context, sourceID, quote string) (string, error) {
	rows, err := c.Execute(ctx, `
		MATCH (s:Source {source_id: $source_id})
		OPTIONAL MATCH (i:Instance {quote: $quote})-[:FROM_SOURCE]->(s)
		RETURN i.instance_id AS instance_id`, map[string]any{
		"source_id": sourceID,
		"quote":     quote,
	}, true)
	if err != nil {
		return "", err
	}
	if len(rows) > 0 {
		if existing := stringField(rows[0]["instance_id"]); existing != "" {
			return existing, nil
		}
	}

	instanceID := domain.NewInstanceID()
	_, err = c.Execute(ctx, `
		MATCH (s:Source {source_id: $source_id})
		CREATE (i:Instance {instance_id: $instance_id, quote: $quote})-[:FROM_SOURCE]->(s)
		RETURN i AS i`, map[string]any{
		"source_id":   sourceID,
		"instance_id": instanceID,
		"quote":       quote,
	}, true)
	if err != nil {
		return "", err
	}
	return instanceID, nil
}

// LinkAppears ensures Concept -[:APPEARS]-> Source (MERGE semantics: a
// second call with the same endpoints is a no-op, not a duplicate edge).
func (c *Client) LinkAppears(ctx context.Context, conceptID, sourceID string) error {
	_, err := c.Execute(ctx, `
		MATCH (c:Concept {concept_id: $concept_id}), (s:Source {source_id: $source_id})
		MERGE (c)-[:APPEARS]->(s)
		RETURN c AS c`, map[string]any{
		"concept_id": conceptID,
		"source_id":  sourceID,
	}, true)
	return err
}

// LinkEvidence links Concept -[:EVIDENCED_BY]-> Instance (the FROM_SOURCE
// half is created alongside the Instance in CreateInstance).
func (c *Client) LinkEvidence(ctx context.Context, conceptID, instanceID string) error {
	_, err := c.Execute(ctx, `
		MATCH (c:Concept {concept_id: $concept_id}), (i:Instance {instance_id: $instance_id})
		MERGE (c)-[:EVIDENCED_BY]->(i)
		RETURN c AS c`, map[string]any{
		"concept_id":  conceptID,
		"instance_id": instanceID,
	}, true)
	return err
}

// DocumentContext fetches up to limit distinct (concept_id, label) pairs for
// Concepts that appear in ontology's Sources, for the ingestion context
// window. The result is not ordered by recency; which pairs are returned
// when more than limit exist is not defined.
func (c *Client) DocumentContext(ctx context.Context, ontology string, limit int) ([]domain.Concept, error) {
	rows, err := c.Execute(ctx, `
		MATCH (c:Concept)-[:APPEARS]->(s:Source {document: $ontology})
		RETURN DISTINCT c.concept_id AS concept_id, c.label AS label
		LIMIT $limit`, map[string]any{
		"ontology": ontology,
		"limit":    limit,
	}, false)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Concept, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Concept{
			ConceptID: stringField(row["concept_id"]),
			Label:     stringField(row["label"]),
		})
	}
	return out, nil
}

// GetSource fetches a Source by id, or nil, nil if it doesn't exist — the
// `GetDocumentSources` external-interface operation: callers then
// fetch the blob itself from the object-storage client using GarageKey or
// StorageKey directly.
func (c *Client) GetSource(ctx context.Context, sourceID string) (*domain.Source, error) {
	rows, err := c.Execute(ctx, `
		MATCH (s:Source {source_id: $source_id})
		RETURN s.source_id AS source_id, s.document AS document, s.paragraph AS paragraph,
		       s.full_text AS full_text, s.content_type AS content_type, s.storage_key AS storage_key,
		       s.garage_key AS garage_key, s.content_hash AS content_hash,
		       s.char_offset_start AS char_offset_start, s.char_offset_end AS char_offset_end,
		       s.chunk_index AS chunk_index`, map[string]any{
		"source_id": sourceID,
	}, true)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]
	paragraph, _ := row["paragraph"].(float64)
	src := &domain.Source{
		SourceID:    stringField(row["source_id"]),
		Document:    stringField(row["document"]),
		Paragraph:   int(paragraph),
		FullText:    stringField(row["full_text"]),
		ContentType: domain.ContentType(stringField(row["content_type"])),
	}
	if v := stringField(row["storage_key"]); v != "" {
		src.StorageKey = &v
	}
	if v := stringField(row["garage_key"]); v != "" {
		src.GarageKey = &v
	}
	if v := stringField(row["content_hash"]); v != "" {
		src.ContentHash = &v
	}
	return src, nil
}

// SetSourceEmbedding persists a freshly computed text embedding for a
// Source, the write-back half of the `source_embedding` job type.
func (c *Client) SetSourceEmbedding(ctx context.Context, sourceID string, embedding []float32) error {
	_, err := c.Execute(ctx, `
		MATCH (s:Source {source_id: $source_id})
		SET s.embedding = $embedding
		RETURN s AS s`, map[string]any{
		"source_id": sourceID,
		"embedding": embedding,
	}, true)
	return err
}

// SourcesMissingEmbedding returns source_ids for an ontology whose Source
// node has no embedding property yet, the `source_embedding` job's input
// set.
func (c *Client) SourcesMissingEmbedding(ctx context.Context, ontology string, limit int) ([]string, error) {
	rows, err := c.Execute(ctx, `
		MATCH (s:Source {document: $ontology})
		WHERE s.embedding IS NULL AND s.full_text IS NOT NULL
		RETURN s.source_id AS source_id
		LIMIT $limit`, map[string]any{
		"ontology": ontology,
		"limit":    limit,
	}, false)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, stringField(row["source_id"]))
	}
	return out, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}
