package sqlstore

import (
	"context"
	"fmt"

	"kgraph-core/internal/vocabulary"
)

// InsertVocabularyHistory appends one audit-trail row,
// written on every Add, Update (deactivation included) and Merge in
// internal/vocabulary.
func (d *DB) InsertVocabularyHistory(ctx context.Context, entry vocabulary.HistoryEntry) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO vocabulary_history (relationship_type, action, performed_by, target_type, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		entry.RelationshipType, entry.Action, entry.PerformedBy, entry.TargetType, entry.Reason)
	if err != nil {
		return fmt.Errorf("insert vocabulary history: %w", err)
	}
	return nil
}

// ListVocabularyHistory returns every audit-trail row for a type, oldest first.
func (d *DB) ListVocabularyHistory(ctx context.Context, relationshipType string) ([]vocabulary.HistoryEntry, error) {
	var entries []vocabulary.HistoryEntry
	err := d.conn.SelectContext(ctx, &entries, `
		SELECT id, relationship_type, action, performed_by, target_type, reason, occurred_at
		FROM vocabulary_history WHERE relationship_type = $1 ORDER BY occurred_at ASC`, relationshipType)
	if err != nil {
		return nil, fmt.Errorf("list vocabulary history: %w", err)
	}
	return entries, nil
}
