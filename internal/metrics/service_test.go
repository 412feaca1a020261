package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgraph-core/internal/ingestion"
	"kgraph-core/internal/sqlstore"
)

type fakeRepo struct {
	rows map[string]*sqlstore.MetricRow
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[string]*sqlstore.MetricRow{}}
}

func (f *fakeRepo) row(name string) *sqlstore.MetricRow {
	row, ok := f.rows[name]
	if !ok {
		row = &sqlstore.MetricRow{Name: name}
		f.rows[name] = row
	}
	return row
}

func (f *fakeRepo) IncrementMetric(ctx context.Context, name string) error {
	return f.IncrementMetricBy(ctx, name, 1)
}

func (f *fakeRepo) IncrementMetricBy(_ context.Context, name string, delta int64) error {
	f.row(name).Counter += delta
	return nil
}

func (f *fakeRepo) MarkMetricMeasured(_ context.Context, name string) error {
	row := f.row(name)
	row.LastMeasuredCounter = row.Counter
	return nil
}

func (f *fakeRepo) ResetMetric(_ context.Context, name string) error {
	row := f.row(name)
	row.Counter = 0
	row.LastMeasuredCounter = 0
	return nil
}

func (f *fakeRepo) GetMetric(_ context.Context, name string) (*sqlstore.MetricRow, error) {
	row, ok := f.rows[name]
	if !ok {
		return nil, nil
	}
	return row, nil
}

func (f *fakeRepo) GetAllMetrics(_ context.Context) ([]sqlstore.MetricRow, error) {
	out := make([]sqlstore.MetricRow, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, *row)
	}
	return out, nil
}

func TestIncrementAndGetDelta(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, "kgraph_test_increment")

	require.NoError(t, svc.Increment(context.Background(), ConceptCreationCounter))
	require.NoError(t, svc.Increment(context.Background(), ConceptCreationCounter))

	delta, err := svc.GetDelta(context.Background(), ConceptCreationCounter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), delta)
}

func TestMarkMeasurementCompleteResetsDelta(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, "kgraph_test_mark")

	require.NoError(t, svc.IncrementBy(context.Background(), VocabularyChangeCounter, 12))
	require.NoError(t, svc.MarkMeasurementComplete(context.Background(), VocabularyChangeCounter))

	delta, err := svc.GetDelta(context.Background(), VocabularyChangeCounter)
	require.NoError(t, err)
	assert.Equal(t, int64(0), delta)
}

func TestGetStalenessInfoBands(t *testing.T) {
	cases := []struct {
		delta int64
		want  Urgency
	}{
		{0, UrgencyNone},
		{9, UrgencyNone},
		{10, UrgencyLow},
		{19, UrgencyLow},
		{20, UrgencyMedium},
		{49, UrgencyMedium},
		{50, UrgencyHigh},
		{100, UrgencyHigh},
	}
	for _, tc := range cases {
		repo := newFakeRepo()
		svc := New(repo, "kgraph_test_staleness")
		require.NoError(t, svc.IncrementBy(context.Background(), VocabularyChangeCounter, tc.delta))

		urgency, delta, err := svc.GetStalenessInfo(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tc.delta, delta)
		assert.Equal(t, tc.want, urgency, "delta=%d", tc.delta)
	}
}

func TestReset(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, "kgraph_test_reset")
	require.NoError(t, svc.IncrementBy(context.Background(), ConceptCreationCounter, 5))
	require.NoError(t, svc.Reset(context.Background(), ConceptCreationCounter))

	delta, err := svc.GetDelta(context.Background(), ConceptCreationCounter)
	require.NoError(t, err)
	assert.Equal(t, int64(0), delta)
}

func TestRecordImplementsIngestionMetricsSink(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, "kgraph_test_record")
	var sink ingestion.MetricsSink = svc

	err := sink.Record(context.Background(), "some-ontology", ingestion.Stats{
		ConceptsCreated:      3,
		RelationshipsCreated: 2,
	})
	require.NoError(t, err)

	conceptDelta, err := svc.GetDelta(context.Background(), ConceptCreationCounter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), conceptDelta)

	relDelta, err := svc.GetDelta(context.Background(), RelationshipCreationCounter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), relDelta)

	docDelta, err := svc.GetDelta(context.Background(), DocumentIngestionCounter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), docDelta)
}
