// Package vocabulary is the vocabulary manager responsible for
// adding, updating, merging, and syncing the concept graph's typed-edge
// vocabulary, plus the probabilistic categorizer and embedding-store ops.
package vocabulary

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"kgraph-core/internal/aiprovider"
	"kgraph-core/internal/domain"
)

// graphRepo is the narrow slice of *graphstore.Client the manager depends
// on.
type graphRepo interface {
	CreateVocabType(ctx context.Context, vt domain.VocabType, category string) error
	EnsureVocabCategory(ctx context.Context, name string) error
	DeactivateVocabType(ctx context.Context, name string) error
	ListVocabTypes(ctx context.Context, limit int) ([]domain.VocabType, error)
	DistinctConceptEdgeTypes(ctx context.Context) ([]string, error)
	RetargetEdgesByType(ctx context.Context, oldType, newType string) (int, error)
}

// sqlRepo is the narrow slice of *sqlstore.DB the manager depends on.
type sqlRepo interface {
	UpsertVocabularyRow(ctx context.Context, row domain.VocabularyRow) (bool, error)
	UpdateVocabularyRowFields(ctx context.Context, relationshipType string, description, category, deprecationReason *string) error
	GetVocabularyRow(ctx context.Context, relationshipType string) (*domain.VocabularyRow, error)
	SetVocabularyEmbedding(ctx context.Context, relationshipType string, embedding []float32, model string) error
	RowsMissingEmbedding(ctx context.Context) ([]string, error)
	RowsWithIncompatibleEmbedding(ctx context.Context, currentModel string) ([]string, error)
}

// metricsSink is the narrow slice of internal/metrics.Service the manager
// needs. Nil is a valid value — the manager works without it, useful in
// tests and any caller that doesn't wire the metrics service.
type metricsSink interface {
	Increment(ctx context.Context, metric string) error
}

// Manager owns the typed-edge vocabulary.
type Manager struct {
	graph       graphRepo
	sql         sqlRepo
	history     historyRepo
	embedder    aiprovider.Embedder // nil when no AI provider is bound
	metrics     metricsSink         // nil when graph-change metrics aren't wired
	autoCategorize bool
	logger      *zap.Logger
}

func New(graph graphRepo, sql sqlRepo, history historyRepo, embedder aiprovider.Embedder, metrics metricsSink, autoCategorize bool, logger *zap.Logger) *Manager {
	return &Manager{graph: graph, sql: sql, history: history, embedder: embedder, metrics: metrics, autoCategorize: autoCategorize, logger: logger}
}

// bumpVocabularyChangeCounter increments the vocabulary_change_counter,
// tolerating an unwired metrics sink.
func (m *Manager) bumpVocabularyChangeCounter(ctx context.Context) {
	if m.metrics == nil {
		return
	}
	if err := m.metrics.Increment(ctx, "vocabulary_change_counter"); err != nil {
		m.logger.Warn("failed to increment vocabulary_change_counter", zap.Error(err))
	}
}

// AddParams is the add request. CategoryEmbeddings is only
// consulted when Category == "llm_generated" and the manager was
// constructed with autoCategorize = true: it is the mean embedding of every
// existing VocabCategory's members, the categorizer's comparison set.
type AddParams struct {
	Name               string
	Category           string
	Description        string
	AddedBy            string
	IsBuiltin          bool
	DirectionSemantics *domain.DirectionSemantics
	CategoryEmbeddings map[string][]float32
}

// Add idempotently inserts a new VocabType. A pre-existing
// type is a no-op success, not an error.
func (m *Manager) Add(ctx context.Context, p AddParams) error {
	row := domain.VocabularyRow{
		RelationshipType: p.Name,
		Category:         p.Category,
		CategorySource:    domain.CategorySourceBuiltin,
		Description:       p.Description,
		AddedBy:           p.AddedBy,
	}

	if m.embedder != nil {
		embedding, err := m.embedder.Embed(ctx, p.Name+": "+p.Description)
		if err != nil {
			return fmt.Errorf("embed vocabulary type %q: %w", p.Name, err)
		}
		row.Embedding = embedding.Vector
		row.EmbeddingModel = embedding.Model
	}

	if p.Category == "llm_generated" && m.autoCategorize && len(row.Embedding) > 0 && len(p.CategoryEmbeddings) > 0 {
		assignment := Categorize(row.Embedding, p.CategoryEmbeddings)
		row.Category = assignment.Category
		row.CategorySource = domain.CategorySourceComputed
		confidence := assignment.Confidence
		row.CategoryConfidence = &confidence
		row.CategoryScores = assignment.Scores
		row.CategoryAmbiguous = assignment.Ambiguous
		p.Category = assignment.Category
		m.logger.Debug("probabilistic categorizer assigned category",
			zap.String("type", p.Name), zap.String("category", assignment.Category), zap.Bool("ambiguous", assignment.Ambiguous))
	}

	created, err := m.sql.UpsertVocabularyRow(ctx, row)
	if err != nil {
		return fmt.Errorf("upsert vocabulary row %q: %w", p.Name, err)
	}
	if !created {
		m.logger.Debug("vocabulary type already exists", zap.String("type", p.Name))
		return nil
	}

	if err := m.graph.EnsureVocabCategory(ctx, p.Category); err != nil {
		return fmt.Errorf("ensure vocab category %q: %w", p.Category, err)
	}
	vt := domain.VocabType{
		Name:               p.Name,
		IsActive:           true,
		IsBuiltin:          p.IsBuiltin,
		DirectionSemantics: p.DirectionSemantics,
		EpistemicStatus:    domain.StatusInsufficientData,
	}
	if err := m.graph.CreateVocabType(ctx, vt, p.Category); err != nil {
		return fmt.Errorf("create vocab type node %q: %w", p.Name, err)
	}

	m.bumpVocabularyChangeCounter(ctx)
	return m.recordHistory(ctx, p.Name, ActionAdded, p.AddedBy, nil, nil)
}

// Update applies a partial update: no-op when no fields are
// provided, partial update otherwise.
func (m *Manager) Update(ctx context.Context, relationshipType string, update UpdateParams) error {
	if update.Description == nil && update.Category == nil && update.IsActive == nil && update.DeprecationReason == nil {
		return nil
	}
	if update.IsActive != nil && !*update.IsActive {
		if err := m.graph.DeactivateVocabType(ctx, relationshipType); err != nil {
			return fmt.Errorf("deactivate vocab type %q: %w", relationshipType, err)
		}
		m.bumpVocabularyChangeCounter(ctx)
	}
	if err := m.sql.UpdateVocabularyRowFields(ctx, relationshipType, update.Description, update.Category, update.DeprecationReason); err != nil {
		return fmt.Errorf("update vocabulary row %q: %w", relationshipType, err)
	}
	return m.recordHistory(ctx, relationshipType, ActionUpdated, update.PerformedBy, nil, nil)
}

// UpdateParams is the partial-update request. Fields left nil are
// unchanged; a call with every field nil is a no-op (Update returns before
// writing anything).
type UpdateParams struct {
	PerformedBy       string
	Description       *string
	Category          *string
	IsActive          *bool
	DeprecationReason *string
}

// Merge retargets every edge of deprecatedType onto targetType and
// deactivates deprecatedType.
func (m *Manager) Merge(ctx context.Context, deprecatedType, targetType, performedBy, reason string) (edgesRetargeted int, err error) {
	edgesRetargeted, err = m.graph.RetargetEdgesByType(ctx, deprecatedType, targetType)
	if err != nil {
		return 0, fmt.Errorf("retarget edges %q -> %q: %w", deprecatedType, targetType, err)
	}
	if err := m.graph.DeactivateVocabType(ctx, deprecatedType); err != nil {
		return edgesRetargeted, fmt.Errorf("deactivate merged type %q: %w", deprecatedType, err)
	}
	depReason := fmt.Sprintf("Merged into %s", targetType)
	if err := m.sql.UpdateVocabularyRowFields(ctx, deprecatedType, nil, nil, &depReason); err != nil {
		return edgesRetargeted, fmt.Errorf("record deprecation reason %q: %w", deprecatedType, err)
	}
	if err := m.recordHistory(ctx, deprecatedType, ActionMerged, performedBy, &targetType, &reason); err != nil {
		return edgesRetargeted, err
	}
	m.bumpVocabularyChangeCounter(ctx)
	return edgesRetargeted, nil
}

// SyncFromGraph registers any distinct concept-graph relationship type that
// is uppercase, not system-blacklisted, and not already a VocabType.
func (m *Manager) SyncFromGraph(ctx context.Context, performedBy string) (added []string, err error) {
	distinctTypes, err := m.graph.DistinctConceptEdgeTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("distinct concept edge types: %w", err)
	}
	existing, err := m.graph.ListVocabTypes(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list vocab types: %w", err)
	}
	registered := make(map[string]struct{}, len(existing))
	for _, vt := range existing {
		registered[vt.Name] = struct{}{}
	}

	for _, relType := range distinctTypes {
		if relType != strings.ToUpper(relType) {
			continue
		}
		if _, blacklisted := domain.SystemTypeBlacklist[relType]; blacklisted {
			continue
		}
		if _, alreadyRegistered := registered[relType]; alreadyRegistered {
			continue
		}
		if err := m.Add(ctx, AddParams{Name: relType, Category: "uncategorized", AddedBy: performedBy}); err != nil {
			return added, fmt.Errorf("sync-add %q: %w", relType, err)
		}
		added = append(added, relType)
	}
	return added, nil
}

// RegenerateEmbeddings bulk-regenerates vocabulary embeddings per the
// "all"/"only-missing"/"only-incompatible" modes.
type RegenerateScope string

const (
	RegenerateAll              RegenerateScope = "all"
	RegenerateOnlyMissing      RegenerateScope = "only_missing"
	RegenerateOnlyIncompatible RegenerateScope = "only_incompatible"
)

func (m *Manager) RegenerateEmbeddings(ctx context.Context, scope RegenerateScope, currentModel string) (regenerated int, err error) {
	if m.embedder == nil {
		return 0, fmt.Errorf("regenerate embeddings: no embedding provider bound")
	}

	var targets []string
	switch scope {
	case RegenerateAll:
		rows, err := m.graph.ListVocabTypes(ctx, 0)
		if err != nil {
			return 0, fmt.Errorf("list vocab types: %w", err)
		}
		for _, r := range rows {
			targets = append(targets, r.Name)
		}
	case RegenerateOnlyMissing:
		targets, err = m.sql.RowsMissingEmbedding(ctx)
	case RegenerateOnlyIncompatible:
		targets, err = m.sql.RowsWithIncompatibleEmbedding(ctx, currentModel)
	default:
		return 0, fmt.Errorf("unknown regenerate scope %q", scope)
	}
	if err != nil {
		return 0, fmt.Errorf("list regeneration targets: %w", err)
	}

	for _, name := range targets {
		embedding, err := m.embedder.Embed(ctx, name)
		if err != nil {
			return regenerated, fmt.Errorf("embed %q: %w", name, err)
		}
		if err := m.sql.SetVocabularyEmbedding(ctx, name, embedding.Vector, embedding.Model); err != nil {
			return regenerated, fmt.Errorf("set embedding %q: %w", name, err)
		}
		regenerated++
	}
	return regenerated, nil
}
