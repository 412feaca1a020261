package projection

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgraph-core/internal/graphstore"
	"kgraph-core/internal/platform/logging"
)

type fakeGraph struct {
	concepts []graphstore.ProjectableConcept
	count    int
}

func (f *fakeGraph) ConceptsForOntology(_ context.Context, _ string) ([]graphstore.ProjectableConcept, error) {
	return f.concepts, nil
}

func (f *fakeGraph) CountConcepts(_ context.Context, _ string) (int, error) {
	return f.count, nil
}

type fakeCache struct {
	latest map[string][]byte
}

func (f *fakeCache) GetProjectionLatest(_ context.Context, ontology, embeddingSource string) ([]byte, error) {
	return f.latest[ontology+"/"+embeddingSource], nil
}

func (f *fakeCache) PutProjectionLatest(_ context.Context, ontology, embeddingSource, _ string, data []byte) error {
	if f.latest == nil {
		f.latest = map[string][]byte{}
	}
	f.latest[ontology+"/"+embeddingSource] = data
	return nil
}

func (f *fakeCache) InvalidateProjection(_ context.Context, ontology, embeddingSource string) error {
	delete(f.latest, ontology+"/"+embeddingSource)
	return nil
}

type fakeAlgorithm struct{}

func (fakeAlgorithm) Reduce(_ context.Context, inputs []Input) (Result, error) {
	points := make([]Point, 0, len(inputs))
	for i, in := range inputs {
		points = append(points, Point{ConceptID: in.ConceptID, Label: in.Label, X: float64(i), Y: 0, Z: 0})
	}
	return Result{Algorithm: "tsne", Parameters: Parameters{NComponents: 3}, Points: points}, nil
}

func g(v float64) *float64 { return &v }

func TestRefreshWritesLatestCache(t *testing.T) {
	graph := &fakeGraph{concepts: []graphstore.ProjectableConcept{
		{ConceptID: "c1", Label: "alpha", Embedding: []float32{0.1, 0.2}, GroundingStrength: g(0.5)},
		{ConceptID: "c2", Label: "beta", Embedding: []float32{0.3, 0.4}, GroundingStrength: g(-0.2)},
	}}
	cache := &fakeCache{}
	svc := New(graph, cache, fakeAlgorithm{}, "default", logging.Nop())

	err := svc.Refresh(context.Background(), "onto1")
	require.NoError(t, err)

	raw := cache.latest["onto1/default"]
	require.NotNil(t, raw)

	var dataset Dataset
	require.NoError(t, json.Unmarshal(raw, &dataset))
	assert.Equal(t, "onto1", dataset.Ontology)
	assert.Equal(t, "tsne", dataset.Algorithm)
	assert.Len(t, dataset.Concepts, 2)
	assert.Equal(t, 2, dataset.Statistics.ConceptCount)
	assert.Equal(t, 2, dataset.Statistics.EmbeddingDims)
	require.NotNil(t, dataset.Statistics.GroundingRange)
	assert.Equal(t, [2]float64{-0.2, 0.5}, *dataset.Statistics.GroundingRange)
	assert.NotEmpty(t, dataset.ChangelistID)
}

func TestNeedsRefreshWhenCacheAbsent(t *testing.T) {
	graph := &fakeGraph{count: 10}
	cache := &fakeCache{}
	svc := New(graph, cache, fakeAlgorithm{}, "default", logging.Nop())

	needs, err := svc.NeedsRefresh(context.Background(), "onto1")
	require.NoError(t, err)
	assert.True(t, needs)
}

func TestNeedsRefreshDriftThreshold(t *testing.T) {
	cached := Dataset{Statistics: Statistics{ConceptCount: 100}}
	raw, err := json.Marshal(cached)
	require.NoError(t, err)
	cache := &fakeCache{latest: map[string][]byte{"onto1/default": raw}}

	below := &fakeGraph{count: 103}
	svc := New(below, cache, fakeAlgorithm{}, "default", logging.Nop())
	needs, err := svc.NeedsRefresh(context.Background(), "onto1")
	require.NoError(t, err)
	assert.False(t, needs, "delta of 3 is below the drift threshold of 5")

	above := &fakeGraph{count: 106}
	svc2 := New(above, cache, fakeAlgorithm{}, "default", logging.Nop())
	needs2, err := svc2.NeedsRefresh(context.Background(), "onto1")
	require.NoError(t, err)
	assert.True(t, needs2, "delta of 6 meets the drift threshold of 5")
}

func TestInvalidateDropsLatest(t *testing.T) {
	cache := &fakeCache{latest: map[string][]byte{"onto1/default": []byte(`{}`)}}
	svc := New(&fakeGraph{}, cache, fakeAlgorithm{}, "default", logging.Nop())

	require.NoError(t, svc.Invalidate(context.Background(), "onto1"))
	assert.Nil(t, cache.latest["onto1/default"])
}
