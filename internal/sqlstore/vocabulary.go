package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"kgraph-core/internal/domain"
)

// vocabularyRowScan mirrors domain.VocabularyRow's db tags but adds a raw
// jsonb column for CategoryScores, which sqlx can't unmarshal directly into
// a map[string]float64 without a Scanner.
type vocabularyRowScan struct {
	domain.VocabularyRow
	CategoryScoresJSON []byte `db:"category_scores"`
	EmbeddingJSON      []byte `db:"embedding"`
}

// UpsertVocabularyRow inserts or updates the relational side of a
// VocabType. Returns false if the row already existed
// (the "already exists" no-op path).
func (d *DB) UpsertVocabularyRow(ctx context.Context, row domain.VocabularyRow) (created bool, err error) {
	scoresJSON, err := json.Marshal(row.CategoryScores)
	if err != nil {
		return false, fmt.Errorf("marshal category scores: %w", err)
	}

	var rowsAffected int64
	result, err := d.conn.ExecContext(ctx, `
		INSERT INTO relationship_vocabulary (
			relationship_type, embedding_model, category_source, category_confidence,
			category_scores, category_ambiguous, category, description, added_by, added_at,
			deprecation_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (relationship_type) DO NOTHING`,
		row.RelationshipType, row.EmbeddingModel, row.CategorySource, row.CategoryConfidence,
		scoresJSON, row.CategoryAmbiguous, row.Category, row.Description, row.AddedBy, row.AddedAt,
		row.DeprecationReason)
	if err != nil {
		return false, fmt.Errorf("upsert vocabulary row: %w", err)
	}
	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// UpdateVocabularyRowFields applies a partial update: fields
// left nil are left unchanged, and a call with every field nil is a no-op.
func (d *DB) UpdateVocabularyRowFields(ctx context.Context, relationshipType string, description, category, deprecationReason *string) error {
	if description == nil && category == nil && deprecationReason == nil {
		return nil
	}
	_, err := d.conn.ExecContext(ctx, `
		UPDATE relationship_vocabulary
		SET description = COALESCE($2, description),
		    category = COALESCE($3, category),
		    deprecation_reason = COALESCE($4, deprecation_reason)
		WHERE relationship_type = $1`,
		relationshipType, description, category, deprecationReason)
	if err != nil {
		return fmt.Errorf("update vocabulary row: %w", err)
	}
	return nil
}

// SetVocabularyEmbedding writes or refreshes a VocabType's embedding.
func (d *DB) SetVocabularyEmbedding(ctx context.Context, relationshipType string, embedding []float32, model string) error {
	_, err := d.conn.ExecContext(ctx, `
		UPDATE relationship_vocabulary
		SET embedding = $2, embedding_model = $3
		WHERE relationship_type = $1`, relationshipType, float32SliceToJSON(embedding), model)
	if err != nil {
		return fmt.Errorf("set vocabulary embedding: %w", err)
	}
	return nil
}

// GetVocabularyRow fetches a single row by relationship_type, or nil, nil
// if it doesn't exist.
func (d *DB) GetVocabularyRow(ctx context.Context, relationshipType string) (*domain.VocabularyRow, error) {
	var scan vocabularyRowScan
	err := d.conn.GetContext(ctx, &scan, `
		SELECT relationship_type, embedding, embedding_model, category_source, category_confidence,
		       category_scores, category_ambiguous, category, description, added_by, added_at,
		       deprecation_reason
		FROM relationship_vocabulary WHERE relationship_type = $1`, relationshipType)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get vocabulary row: %w", err)
	}
	if len(scan.CategoryScoresJSON) > 0 {
		if err := json.Unmarshal(scan.CategoryScoresJSON, &scan.CategoryScores); err != nil {
			return nil, fmt.Errorf("unmarshal category scores: %w", err)
		}
	}
	if len(scan.EmbeddingJSON) > 0 {
		if err := json.Unmarshal(scan.EmbeddingJSON, &scan.Embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding: %w", err)
		}
	}
	return &scan.VocabularyRow, nil
}

// RowsMissingEmbedding returns every vocabulary row with no embedding yet,
// the population for a bulk "only-missing" regeneration pass.
func (d *DB) RowsMissingEmbedding(ctx context.Context) ([]string, error) {
	var types []string
	err := d.conn.SelectContext(ctx, &types, `
		SELECT relationship_type FROM relationship_vocabulary WHERE embedding IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("rows missing embedding: %w", err)
	}
	return types, nil
}

// RowsWithIncompatibleEmbedding returns rows whose stored embedding_model
// doesn't match currentModel — the population for a bulk "only-incompatible"
// regeneration pass.
func (d *DB) RowsWithIncompatibleEmbedding(ctx context.Context, currentModel string) ([]string, error) {
	var types []string
	err := d.conn.SelectContext(ctx, &types, `
		SELECT relationship_type FROM relationship_vocabulary
		WHERE embedding IS NOT NULL AND embedding_model IS DISTINCT FROM $1`, currentModel)
	if err != nil {
		return nil, fmt.Errorf("rows with incompatible embedding: %w", err)
	}
	return types, nil
}

// CountPendingCategoryTypes counts vocabulary rows still sitting at the raw
// "llm_generated" sentinel category — ones the extraction pipeline
// registered (internal/ingestion's resolveEdgeType) without ever running
// through the probabilistic categorizer. This is the `category_refresh`
// launcher's condition.
func (d *DB) CountPendingCategoryTypes(ctx context.Context) (int, error) {
	var count int
	err := d.conn.GetContext(ctx, &count, `
		SELECT count(*) FROM relationship_vocabulary WHERE category = $1`,
		"llm_generated")
	if err != nil {
		return 0, fmt.Errorf("count pending-category vocabulary rows: %w", err)
	}
	return count, nil
}

func float32SliceToJSON(v []float32) string {
	b, _ := json.Marshal(v)
	return string(b)
}
