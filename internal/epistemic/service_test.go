package epistemic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgraph-core/internal/domain"
	"kgraph-core/internal/grounding"
	"kgraph-core/internal/platform/logging"
)

type fakeGraphRepo struct {
	targets       map[string][]string
	vocabTypes    []domain.VocabType
	writtenStatus map[string]domain.EpistemicStatus
	writtenRatl   map[string]string
}

func (f *fakeGraphRepo) TargetsOfType(_ context.Context, edgeType string) ([]string, error) {
	return f.targets[edgeType], nil
}

func (f *fakeGraphRepo) WriteEpistemicStatus(_ context.Context, name string, status domain.EpistemicStatus, rationale, _ string) error {
	if f.writtenStatus == nil {
		f.writtenStatus = map[string]domain.EpistemicStatus{}
		f.writtenRatl = map[string]string{}
	}
	f.writtenStatus[name] = status
	f.writtenRatl[name] = rationale
	return nil
}

func (f *fakeGraphRepo) ListVocabTypes(_ context.Context, _ int) ([]domain.VocabType, error) {
	return f.vocabTypes, nil
}

type fakeGroundingEngine struct {
	scores map[string]float64
}

func (f *fakeGroundingEngine) Compute(_ context.Context, conceptID string, _ grounding.Filter) (float64, error) {
	return f.scores[conceptID], nil
}

type fakeMetricsSink struct {
	incremented []string
	measured    []string
}

func (f *fakeMetricsSink) Increment(_ context.Context, metric string) error {
	f.incremented = append(f.incremented, metric)
	return nil
}

func (f *fakeMetricsSink) MarkMeasurementComplete(_ context.Context, metric string) error {
	f.measured = append(f.measured, metric)
	return nil
}

func TestMeasure_NoTargetsIsInsufficientData(t *testing.T) {
	graph := &fakeGraphRepo{targets: map[string][]string{}}
	ge := &fakeGroundingEngine{}
	metrics := &fakeMetricsSink{}
	svc := New(graph, ge, metrics, 0, logging.Nop())

	result, err := svc.Measure(context.Background(), "SUPPORTS", time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInsufficientData, result.Status)
	assert.Equal(t, domain.StatusInsufficientData, graph.writtenStatus["SUPPORTS"])
	assert.Contains(t, metrics.incremented, MetricEpistemicMeasurement)
	assert.Contains(t, metrics.measured, MetricVocabularyChange)
}

func TestMeasure_SamplesAndClassifiesAffirmative(t *testing.T) {
	graph := &fakeGraphRepo{targets: map[string][]string{
		"SUPPORTS": {"c1", "c2", "c3"},
	}}
	ge := &fakeGroundingEngine{scores: map[string]float64{"c1": 0.9, "c2": 0.95, "c3": 0.99}}
	metrics := &fakeMetricsSink{}
	svc := New(graph, ge, metrics, 0, logging.Nop())

	result, err := svc.Measure(context.Background(), "SUPPORTS", time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAffirmative, result.Status)
	assert.Equal(t, 3, result.SampleN)
}

func TestMeasure_SampleSizeCapsPopulation(t *testing.T) {
	targets := make([]string, 10)
	scores := map[string]float64{}
	for i := range targets {
		targets[i] = "c" + string(rune('0'+i))
		scores[targets[i]] = 0.9
	}
	graph := &fakeGraphRepo{targets: map[string][]string{"SUPPORTS": targets}}
	ge := &fakeGroundingEngine{scores: scores}
	metrics := &fakeMetricsSink{}
	svc := New(graph, ge, metrics, 4, logging.Nop())

	result, err := svc.Measure(context.Background(), "SUPPORTS", time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 4, result.SampleN)
}

func TestMeasureAll_SkipsInactiveTypes(t *testing.T) {
	graph := &fakeGraphRepo{
		targets: map[string][]string{"SUPPORTS": {"c1", "c2", "c3"}},
		vocabTypes: []domain.VocabType{
			{Name: "SUPPORTS", IsActive: true},
			{Name: "DEPRECATED_TYPE", IsActive: false},
		},
	}
	ge := &fakeGroundingEngine{scores: map[string]float64{"c1": 0.9, "c2": 0.9, "c3": 0.9}}
	metrics := &fakeMetricsSink{}
	svc := New(graph, ge, metrics, 0, logging.Nop())

	results, err := svc.MeasureAll(context.Background(), time.Unix(0, 0))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "SUPPORTS", results[0].Name)
}
