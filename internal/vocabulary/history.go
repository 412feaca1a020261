package vocabulary

import (
	"context"
	"fmt"
)

// HistoryAction enumerates the vocabulary_history audit events.
type HistoryAction string

const (
	ActionAdded       HistoryAction = "added"
	ActionUpdated     HistoryAction = "updated"
	ActionMerged      HistoryAction = "merged"
	ActionDeactivated HistoryAction = "deactivated"
)

// HistoryEntry is one row of the audit trail.
type HistoryEntry struct {
	ID              int64         `db:"id"`
	RelationshipType string       `db:"relationship_type"`
	Action          HistoryAction `db:"action"`
	PerformedBy     string        `db:"performed_by"`
	TargetType      *string       `db:"target_type"`
	Reason          *string       `db:"reason"`
	OccurredAt      string        `db:"occurred_at"`
}

// historyRepo is the narrow persistence surface history.go needs from
// internal/sqlstore — declared here rather than imported directly so this
// package's tests can fake it without a live database.
type historyRepo interface {
	InsertVocabularyHistory(ctx context.Context, entry HistoryEntry) error
	ListVocabularyHistory(ctx context.Context, relationshipType string) ([]HistoryEntry, error)
}

func (m *Manager) recordHistory(ctx context.Context, relationshipType string, action HistoryAction, performedBy string, targetType, reason *string) error {
	err := m.history.InsertVocabularyHistory(ctx, HistoryEntry{
		RelationshipType: relationshipType,
		Action:           action,
		PerformedBy:      performedBy,
		TargetType:       targetType,
		Reason:           reason,
	})
	if err != nil {
		return fmt.Errorf("record vocabulary history: %w", err)
	}
	return nil
}

// ListHistory exposes the audit trail for a given vocabulary type, for
// diagnostics.
func (m *Manager) ListHistory(ctx context.Context, relationshipType string) ([]HistoryEntry, error) {
	return m.history.ListVocabularyHistory(ctx, relationshipType)
}
