package graphstore

import (
	"context"

	"kgraph-core/internal/domain"
)

// CreateVocabType creates a VocabType node and links it to category via
// IN_CATEGORY.
func (c *Client) CreateVocabType(ctx context.Context, vt domain.VocabType, category string) error {
	_, err := c.Execute(ctx, `
		MERGE (v:VocabType {name: $name})
		ON CREATE SET v.is_active = true, v.is_builtin = $is_builtin, v.usage_count = 0,
		              v.epistemic_status = $epistemic_status
		WITH v
		MATCH (cat:VocabCategory {name: $category})
		MERGE (v)-[:IN_CATEGORY]->(cat)
		RETURN v AS v`, map[string]any{
		"name":             vt.Name,
		"is_builtin":       vt.IsBuiltin,
		"epistemic_status": string(domain.StatusInsufficientData),
		"category":         category,
	}, true)
	return err
}

// EnsureVocabCategory creates a VocabCategory node if one with this name
// doesn't already exist.
func (c *Client) EnsureVocabCategory(ctx context.Context, name string) error {
	_, err := c.Execute(ctx, `
		MERGE (cat:VocabCategory {name: $name})
		RETURN cat AS cat`, map[string]any{"name": name}, true)
	return err
}

// DeactivateVocabType marks a VocabType node is_active = false (used on
// merge).
func (c *Client) DeactivateVocabType(ctx context.Context, name string) error {
	_, err := c.Execute(ctx, `
		MATCH (v:VocabType {name: $name})
		SET v.is_active = false
		RETURN v AS v`, map[string]any{"name": name}, true)
	return err
}

// WriteEpistemicStatus persists an epistemic classification result back to a
// VocabType node.
func (c *Client) WriteEpistemicStatus(ctx context.Context, name string, status domain.EpistemicStatus, rationale, measuredAt string) error {
	_, err := c.Execute(ctx, `
		MATCH (v:VocabType {name: $name})
		SET v.epistemic_status = $status, v.epistemic_rationale = $rationale, v.epistemic_measured_at = $measured_at
		RETURN v AS v`, map[string]any{
		"name":        name,
		"status":      string(status),
		"rationale":   rationale,
		"measured_at": measuredAt,
	}, true)
	return err
}

// ListVocabTypes returns every VocabType node. limit <= 0 means unbounded.
func (c *Client) ListVocabTypes(ctx context.Context, limit int) ([]domain.VocabType, error) {
	query := `
		MATCH (v:VocabType)
		RETURN v.name AS name, v.is_active AS is_active, v.is_builtin AS is_builtin,
		       v.usage_count AS usage_count, v.epistemic_status AS epistemic_status`
	params := map[string]any{}
	if limit > 0 {
		query += " LIMIT $limit"
		params["limit"] = limit
	}
	rows, err := c.Execute(ctx, query, params, false)
	if err != nil {
		return nil, err
	}
	out := make([]domain.VocabType, 0, len(rows))
	for _, row := range rows {
		active, _ := row["is_active"].(bool)
		builtin, _ := row["is_builtin"].(bool)
		usage, _ := row["usage_count"].(float64)
		out = append(out, domain.VocabType{
			Name:            stringField(row["name"]),
			IsActive:        active,
			IsBuiltin:       builtin,
			UsageCount:      int64(usage),
			EpistemicStatus: domain.EpistemicStatus(stringField(row["epistemic_status"])),
		})
	}
	return out, nil
}

// VocabActivityCounts returns how many VocabType nodes are active vs.
// inactive — the vocab_consolidation launcher's active/inactive
// ratio and hysteresis population.
func (c *Client) VocabActivityCounts(ctx context.Context) (active, inactive int, err error) {
	rows, err := c.Execute(ctx, `
		MATCH (v:VocabType)
		RETURN v.is_active AS is_active, count(*) AS count`, nil, false)
	if err != nil {
		return 0, 0, err
	}
	for _, row := range rows {
		isActive, _ := row["is_active"].(bool)
		count, _ := row["count"].(float64)
		if isActive {
			active += int(count)
		} else {
			inactive += int(count)
		}
	}
	return active, inactive, nil
}

// TargetsOfType fetches the concept_id of every Concept targeted by an edge
// of the given type — the epistemic classifier's sampling population.
func (c *Client) TargetsOfType(ctx context.Context, edgeType string) ([]string, error) {
	query := "MATCH (:Concept)-[r:" + edgeType + "]->(target:Concept) RETURN target.concept_id AS concept_id"
	rows, err := c.Execute(ctx, query, nil, false)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, stringField(row["concept_id"]))
	}
	return out, nil
}

// CreateLearnedSource creates a Source with content_type = "learned" and no
// garage_key, for human-synthesized knowledge added directly by an
// operator rather than by the ingestion pipeline.
func (c *Client) CreateLearnedSource(ctx context.Context, sourceID, ontology, fullText string) error {
	_, err := c.Execute(ctx, `
		CREATE (s:Source {
			source_id: $source_id, document: $ontology, full_text: $full_text,
			content_type: $content_type
		})
		RETURN s AS s`, map[string]any{
		"source_id":    sourceID,
		"ontology":     ontology,
		"full_text":    fullText,
		"content_type": "learned",
	}, true)
	return err
}

// GetLearnedSource fetches a learned Source by id, or nil if not found or
// not actually a learned source.
func (c *Client) GetLearnedSource(ctx context.Context, sourceID string) (*domain.Source, error) {
	rows, err := c.Execute(ctx, `
		MATCH (s:Source {source_id: $source_id, content_type: $content_type})
		RETURN s.source_id AS source_id, s.document AS document, s.full_text AS full_text`, map[string]any{
		"source_id":    sourceID,
		"content_type": "learned",
	}, true)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]
	return &domain.Source{
		SourceID:    stringField(row["source_id"]),
		Document:    stringField(row["document"]),
		FullText:    stringField(row["full_text"]),
		ContentType: "learned",
	}, nil
}

// DeleteLearnedSource removes a learned Source node.
func (c *Client) DeleteLearnedSource(ctx context.Context, sourceID string) error {
	_, err := c.Execute(ctx, `
		MATCH (s:Source {source_id: $source_id, content_type: $content_type})
		DETACH DELETE s`, map[string]any{
		"source_id":    sourceID,
		"content_type": "learned",
	}, false)
	return err
}
