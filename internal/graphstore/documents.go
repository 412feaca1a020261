package graphstore

import (
	"context"

	"kgraph-core/internal/domain"
)

// CreateDocumentMeta creates a DocumentMeta node and links it to every
// Source it owns via HAS_SOURCE.
func (c *Client) CreateDocumentMeta(ctx context.Context, meta domain.DocumentMeta, sourceIDs []string) error {
	_, err := c.Execute(ctx, `
		CREATE (d:DocumentMeta {
			document_id: $document_id, content_hash: $content_hash, ontology: $ontology,
			source_count: $source_count, ingested_by: $ingested_by, job_id: $job_id,
			filename: $filename, source_type: $source_type, file_path: $file_path,
			hostname: $hostname, ingested_at: $ingested_at, garage_key: $garage_key
		})
		RETURN d AS d`, map[string]any{
		"document_id":  meta.DocumentID,
		"content_hash": meta.ContentHash,
		"ontology":     meta.Ontology,
		"source_count": meta.SourceCount,
		"ingested_by":  meta.IngestedBy,
		"job_id":       meta.JobID,
		"filename":     derefString(meta.Filename),
		"source_type":  string(meta.SourceType),
		"file_path":    derefString(meta.FilePath),
		"hostname":     derefString(meta.Hostname),
		"ingested_at":  meta.IngestedAt,
		"garage_key":   derefString(meta.GarageKey),
	}, true)
	if err != nil {
		return err
	}

	for _, sourceID := range sourceIDs {
		_, err := c.Execute(ctx, `
			MATCH (d:DocumentMeta {document_id: $document_id}), (s:Source {source_id: $source_id})
			MERGE (d)-[:HAS_SOURCE]->(s)
			RETURN d AS d`, map[string]any{
			"document_id": meta.DocumentID,
			"source_id":   sourceID,
		}, true)
		if err != nil {
			return err
		}
	}
	return nil
}

// FindDocumentMeta looks up a DocumentMeta by its (content_hash, ontology)
// dedup key. Returns nil, nil when no match exists.
func (c *Client) FindDocumentMeta(ctx context.Context, contentHash, ontology string) (*domain.DocumentMeta, error) {
	rows, err := c.Execute(ctx, `
		MATCH (d:DocumentMeta {content_hash: $content_hash, ontology: $ontology})
		RETURN d.document_id AS document_id, d.content_hash AS content_hash, d.ontology AS ontology,
		       d.source_count AS source_count, d.ingested_by AS ingested_by, d.job_id AS job_id,
		       d.ingested_at AS ingested_at`, map[string]any{
		"content_hash": contentHash,
		"ontology":     ontology,
	}, true)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]
	count, _ := row["source_count"].(float64)
	return &domain.DocumentMeta{
		DocumentID:  stringField(row["document_id"]),
		ContentHash: stringField(row["content_hash"]),
		Ontology:    stringField(row["ontology"]),
		SourceCount: int(count),
		IngestedBy:  stringField(row["ingested_by"]),
		JobID:       stringField(row["job_id"]),
		IngestedAt:  stringField(row["ingested_at"]),
	}, nil
}

// ListOntologies returns every distinct ontology name with at least one
// DocumentMeta node — the enumeration the `projection` launcher walks
// to find which ontologies' cached projections have drifted.
func (c *Client) ListOntologies(ctx context.Context) ([]string, error) {
	rows, err := c.Execute(ctx, `
		MATCH (d:DocumentMeta)
		RETURN DISTINCT d.ontology AS ontology`, nil, false)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, stringField(row["ontology"]))
	}
	return out, nil
}

// DeleteOntology detach-deletes every Instance, Source, and DocumentMeta
// belonging to ontology, then removes any Concept left with no outgoing
// APPEARS edge to a Source (orphan cleanup). It
// does not touch object storage or the jobs table — those are separate
// best-effort cleanup steps the caller (internal/ingestion) orchestrates.
func (c *Client) DeleteOntology(ctx context.Context, ontology string) (orphansRemoved int, err error) {
	_, err = c.Execute(ctx, `
		MATCH (s:Source {document: $ontology})
		OPTIONAL MATCH (i:Instance)-[:FROM_SOURCE]->(s)
		DETACH DELETE i, s`, map[string]any{"ontology": ontology}, false)
	if err != nil {
		return 0, err
	}

	_, err = c.Execute(ctx, `
		MATCH (d:DocumentMeta {ontology: $ontology})
		DETACH DELETE d`, map[string]any{"ontology": ontology}, false)
	if err != nil {
		return 0, err
	}

	rows, err := c.Execute(ctx, `
		MATCH (c:Concept)
		WHERE NOT (c)-[:APPEARS]->(:Source)
		WITH c
		DETACH DELETE c
		RETURN c.concept_id AS concept_id`, nil, false)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
