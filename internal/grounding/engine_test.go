package grounding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgraph-core/internal/domain"
	"kgraph-core/internal/platform/logging"
)

type fakeGraphRepo struct {
	edges       map[string][]domain.IncomingEdge
	pages       [][]string
	groundings  map[string]float64
	pageCalls   int
}

func (f *fakeGraphRepo) IncomingConceptEdges(_ context.Context, conceptID string) ([]domain.IncomingEdge, error) {
	return f.edges[conceptID], nil
}

func (f *fakeGraphRepo) PageConceptIDs(_ context.Context, offset, limit int) ([]string, error) {
	idx := offset / limit
	if idx >= len(f.pages) {
		return nil, nil
	}
	f.pageCalls++
	return f.pages[idx], nil
}

func (f *fakeGraphRepo) SetConceptGrounding(_ context.Context, conceptID string, value float64) error {
	if f.groundings == nil {
		f.groundings = map[string]float64{}
	}
	f.groundings[conceptID] = value
	return nil
}

type fakeVocabRepo struct {
	rows map[string]*domain.VocabularyRow
}

func (f *fakeVocabRepo) GetVocabularyRow(_ context.Context, relationshipType string) (*domain.VocabularyRow, error) {
	return f.rows[relationshipType], nil
}

func newFakeVocabRepo() *fakeVocabRepo {
	return &fakeVocabRepo{rows: map[string]*domain.VocabularyRow{
		"SUPPORTS":    {RelationshipType: "SUPPORTS", Embedding: []float32{1, 0}},
		"CONTRADICTS": {RelationshipType: "CONTRADICTS", Embedding: []float32{-1, 0}},
	}}
}

func TestCompute_NoAxisReturnsZero(t *testing.T) {
	graph := &fakeGraphRepo{}
	vocab := &fakeVocabRepo{rows: map[string]*domain.VocabularyRow{}}
	e := New(graph, vocab, logging.Nop())

	got, err := e.Compute(context.Background(), "concept_1", Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestCompute_NoIncomingEdgesReturnsZero(t *testing.T) {
	graph := &fakeGraphRepo{edges: map[string][]domain.IncomingEdge{}}
	vocab := newFakeVocabRepo()
	e := New(graph, vocab, logging.Nop())

	got, err := e.Compute(context.Background(), "concept_1", Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestCompute_WeightsByConfidence(t *testing.T) {
	graph := &fakeGraphRepo{edges: map[string][]domain.IncomingEdge{
		"concept_1": {
			{Type: "SUPPORTS", Confidence: 1.0},
			{Type: "CONTRADICTS", Confidence: 0.0}, // defaults to 1.0
		},
	}}
	vocab := newFakeVocabRepo()
	e := New(graph, vocab, logging.Nop())

	got, err := e.Compute(context.Background(), "concept_1", Filter{})
	require.NoError(t, err)
	// axis is [1,0]; SUPPORTS projects to +1, CONTRADICTS projects to -1, equal weight -> 0
	assert.InDelta(t, 0.0, got, 1e-6)
}

func TestCompute_FilterExcludesType(t *testing.T) {
	graph := &fakeGraphRepo{edges: map[string][]domain.IncomingEdge{
		"concept_1": {
			{Type: "SUPPORTS", Confidence: 1.0},
			{Type: "CONTRADICTS", Confidence: 1.0},
		},
	}}
	vocab := newFakeVocabRepo()
	e := New(graph, vocab, logging.Nop())

	got, err := e.Compute(context.Background(), "concept_1", Filter{ExcludeTypes: []string{"CONTRADICTS"}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-6)
}

func TestCompute_UnknownEdgeTypeSkipped(t *testing.T) {
	graph := &fakeGraphRepo{edges: map[string][]domain.IncomingEdge{
		"concept_1": {{Type: "MYSTERY", Confidence: 1.0}},
	}}
	vocab := newFakeVocabRepo()
	e := New(graph, vocab, logging.Nop())

	got, err := e.Compute(context.Background(), "concept_1", Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestPersistAll_PagesAndBucketsResults(t *testing.T) {
	graph := &fakeGraphRepo{
		edges: map[string][]domain.IncomingEdge{
			"c1": {{Type: "SUPPORTS", Confidence: 1.0}},
			"c2": {{Type: "CONTRADICTS", Confidence: 1.0}},
		},
		pages: [][]string{{"c1", "c2"}},
	}
	vocab := newFakeVocabRepo()
	e := New(graph, vocab, logging.Nop())

	result, err := e.PersistAll(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.ConceptsProcessed)
	assert.InDelta(t, 1.0, graph.groundings["c1"], 1e-6)
	assert.InDelta(t, -1.0, graph.groundings["c2"], 1e-6)
	assert.Equal(t, 1, result.Buckets[BucketStrongPositive])
	assert.Equal(t, 1, result.Buckets[BucketStrongNegative])
}
