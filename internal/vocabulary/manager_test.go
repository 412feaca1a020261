package vocabulary

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kgraph-core/internal/domain"
)

type fakeGraphRepo struct {
	vocabTypes   map[string]domain.VocabType
	categories   map[string]bool
	edgeTypes    []string
	retargeted   map[string]int
}

func newFakeGraphRepo() *fakeGraphRepo {
	return &fakeGraphRepo{vocabTypes: map[string]domain.VocabType{}, categories: map[string]bool{}, retargeted: map[string]int{}}
}

func (f *fakeGraphRepo) CreateVocabType(ctx context.Context, vt domain.VocabType, category string) error {
	f.vocabTypes[vt.Name] = vt
	return nil
}
func (f *fakeGraphRepo) EnsureVocabCategory(ctx context.Context, name string) error {
	f.categories[name] = true
	return nil
}
func (f *fakeGraphRepo) DeactivateVocabType(ctx context.Context, name string) error {
	vt := f.vocabTypes[name]
	vt.IsActive = false
	f.vocabTypes[name] = vt
	return nil
}
func (f *fakeGraphRepo) ListVocabTypes(ctx context.Context, limit int) ([]domain.VocabType, error) {
	var out []domain.VocabType
	for _, vt := range f.vocabTypes {
		out = append(out, vt)
	}
	return out, nil
}
func (f *fakeGraphRepo) DistinctConceptEdgeTypes(ctx context.Context) ([]string, error) {
	return f.edgeTypes, nil
}
func (f *fakeGraphRepo) RetargetEdgesByType(ctx context.Context, oldType, newType string) (int, error) {
	f.retargeted[oldType+"->"+newType]++
	return 3, nil
}

type fakeSQLRepo struct {
	rows      map[string]domain.VocabularyRow
	embeddings map[string][]float32
}

func newFakeSQLRepo() *fakeSQLRepo {
	return &fakeSQLRepo{rows: map[string]domain.VocabularyRow{}, embeddings: map[string][]float32{}}
}

func (f *fakeSQLRepo) UpsertVocabularyRow(ctx context.Context, row domain.VocabularyRow) (bool, error) {
	if _, exists := f.rows[row.RelationshipType]; exists {
		return false, nil
	}
	f.rows[row.RelationshipType] = row
	return true, nil
}
func (f *fakeSQLRepo) UpdateVocabularyRowFields(ctx context.Context, relationshipType string, description, category, deprecationReason *string) error {
	row := f.rows[relationshipType]
	if description != nil {
		row.Description = *description
	}
	if category != nil {
		row.Category = *category
	}
	if deprecationReason != nil {
		row.DeprecationReason = deprecationReason
	}
	f.rows[relationshipType] = row
	return nil
}
func (f *fakeSQLRepo) GetVocabularyRow(ctx context.Context, relationshipType string) (*domain.VocabularyRow, error) {
	row, ok := f.rows[relationshipType]
	if !ok {
		return nil, nil
	}
	return &row, nil
}
func (f *fakeSQLRepo) SetVocabularyEmbedding(ctx context.Context, relationshipType string, embedding []float32, model string) error {
	f.embeddings[relationshipType] = embedding
	return nil
}
func (f *fakeSQLRepo) RowsMissingEmbedding(ctx context.Context) ([]string, error) {
	var out []string
	for name := range f.rows {
		if _, hasEmbedding := f.embeddings[name]; !hasEmbedding {
			out = append(out, name)
		}
	}
	return out, nil
}
func (f *fakeSQLRepo) RowsWithIncompatibleEmbedding(ctx context.Context, currentModel string) ([]string, error) {
	return nil, nil
}

type fakeHistoryRepo struct {
	entries []HistoryEntry
}

func (f *fakeHistoryRepo) InsertVocabularyHistory(ctx context.Context, entry HistoryEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}
func (f *fakeHistoryRepo) ListVocabularyHistory(ctx context.Context, relationshipType string) ([]HistoryEntry, error) {
	var out []HistoryEntry
	for _, e := range f.entries {
		if e.RelationshipType == relationshipType {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestManager() (*Manager, *fakeGraphRepo, *fakeSQLRepo, *fakeHistoryRepo) {
	g := newFakeGraphRepo()
	s := newFakeSQLRepo()
	h := &fakeHistoryRepo{}
	m := New(g, s, h, nil, nil, false, zap.NewNop())
	return m, g, s, h
}

func TestAddCreatesTypeAndCategoryAndHistory(t *testing.T) {
	m, g, s, h := newTestManager()
	err := m.Add(context.Background(), AddParams{Name: "CAUSES", Category: "causation", AddedBy: "tester"})
	require.NoError(t, err)

	assert.True(t, g.categories["causation"])
	assert.Contains(t, g.vocabTypes, "CAUSES")
	assert.Contains(t, s.rows, "CAUSES")
	require.Len(t, h.entries, 1)
	assert.Equal(t, ActionAdded, h.entries[0].Action)
}

func TestAddIsIdempotentOnDuplicate(t *testing.T) {
	m, g, _, h := newTestManager()
	ctx := context.Background()
	require.NoError(t, m.Add(ctx, AddParams{Name: "CAUSES", Category: "causation", AddedBy: "tester"}))
	require.NoError(t, m.Add(ctx, AddParams{Name: "CAUSES", Category: "causation", AddedBy: "tester"}))

	assert.Len(t, g.vocabTypes, 1)
	assert.Len(t, h.entries, 1) // second call is a no-op, no new history row
}

func TestMergeRetargetsAndDeactivatesAndRecordsHistory(t *testing.T) {
	m, g, s, h := newTestManager()
	ctx := context.Background()
	require.NoError(t, m.Add(ctx, AddParams{Name: "LEADS_TO", Category: "causation", AddedBy: "tester"}))

	count, err := m.Merge(ctx, "LEADS_TO", "CAUSES", "tester", "duplicate semantics")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.False(t, g.vocabTypes["LEADS_TO"].IsActive)
	require.NotNil(t, s.rows["LEADS_TO"].DeprecationReason)
	assert.Equal(t, "Merged into CAUSES", *s.rows["LEADS_TO"].DeprecationReason)

	require.Len(t, h.entries, 2)
	assert.Equal(t, ActionMerged, h.entries[1].Action)
}

func TestSyncFromGraphSkipsBlacklistedAndLowercaseAndExisting(t *testing.T) {
	m, g, _, _ := newTestManager()
	ctx := context.Background()
	require.NoError(t, m.Add(ctx, AddParams{Name: "CAUSES", Category: "causation", AddedBy: "tester"}))

	g.edgeTypes = []string{"CAUSES", "APPEARS_IN", "lowercase_type", "CONTRADICTS"}
	added, err := m.SyncFromGraph(ctx, "sync-job")
	require.NoError(t, err)
	assert.Equal(t, []string{"CONTRADICTS"}, added)
}

func TestRegenerateEmbeddingsRequiresEmbedder(t *testing.T) {
	m, _, _, _ := newTestManager()
	_, err := m.RegenerateEmbeddings(context.Background(), RegenerateAll, "model-x")
	assert.Error(t, err)
}
