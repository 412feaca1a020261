package jobqueue

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgraph-core/internal/aiprovider"
	"kgraph-core/internal/apperrors"
	"kgraph-core/internal/domain"
)

type fakeSourceRepo struct {
	missing []string
	sources map[string]*domain.Source
	written map[string][]float32
}

func (f *fakeSourceRepo) SourcesMissingEmbedding(_ context.Context, _ string, _ int) ([]string, error) {
	return f.missing, nil
}

func (f *fakeSourceRepo) GetSource(_ context.Context, sourceID string) (*domain.Source, error) {
	return f.sources[sourceID], nil
}

func (f *fakeSourceRepo) SetSourceEmbedding(_ context.Context, sourceID string, embedding []float32) error {
	if f.written == nil {
		f.written = map[string][]float32{}
	}
	f.written[sourceID] = embedding
	return nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string) (aiprovider.EmbeddingResult, error) {
	return aiprovider.EmbeddingResult{Vector: []float32{1, 2, 3}}, nil
}

func (fakeEmbedder) Dimensions() int { return 3 }

func TestSourceEmbeddingWorker_EmbedsSourcesMissingEmbedding(t *testing.T) {
	repo := &fakeSourceRepo{
		missing: []string{"source_1"},
		sources: map[string]*domain.Source{
			"source_1": {SourceID: "source_1", FullText: "some extracted text"},
		},
	}
	worker := sourceEmbeddingWorker(repo, fakeEmbedder{})

	err := worker(context.Background(), Job{Ontology: "acme"}, noopReporter{})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, repo.written["source_1"])
}

func TestSourceEmbeddingWorker_SkipsSourceWithNoFullText(t *testing.T) {
	repo := &fakeSourceRepo{
		missing: []string{"source_1"},
		sources: map[string]*domain.Source{
			"source_1": {SourceID: "source_1"},
		},
	}
	worker := sourceEmbeddingWorker(repo, fakeEmbedder{})

	err := worker(context.Background(), Job{Ontology: "acme"}, noopReporter{})
	require.NoError(t, err)
	assert.Empty(t, repo.written)
}

func TestIngestionWorker_NilPipelineReturnsNotImplemented(t *testing.T) {
	worker := ingestionWorker(nil)
	err := worker(context.Background(), Job{Data: map[string]any{"raw_base64": base64.StdEncoding.EncodeToString([]byte("hi"))}}, noopReporter{})
	assert.True(t, apperrors.IsNotImplemented(err))
}

func TestProposalExecutionWorker_AlwaysNotImplemented(t *testing.T) {
	worker := proposalExecutionWorker()
	err := worker(context.Background(), Job{}, noopReporter{})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotImplemented(err))
}

func TestArtifactCleanupWorker_NilRepoReturnsNotImplemented(t *testing.T) {
	worker := artifactCleanupWorker(nil)
	err := worker(context.Background(), Job{}, noopReporter{})
	assert.True(t, apperrors.IsNotImplemented(err))
}

func TestVocabConsolidateWorker_NilManagerReturnsNotImplemented(t *testing.T) {
	worker := vocabConsolidateWorker(nil)
	err := worker(context.Background(), Job{}, noopReporter{})
	assert.True(t, apperrors.IsNotImplemented(err))
}

func TestDecodeJobData_RoundTripsThroughJSON(t *testing.T) {
	var dest ingestionJobData
	err := decodeJobData(map[string]any{"ontology": "acme", "is_image": true}, &dest)
	require.NoError(t, err)
	assert.Equal(t, "acme", dest.Ontology)
	assert.True(t, dest.IsImage)
}

func TestStringDataField_FallsBackWhenAbsent(t *testing.T) {
	assert.Equal(t, "default", stringDataField(map[string]any{}, "key", "default"))
	assert.Equal(t, "set", stringDataField(map[string]any{"key": "set"}, "key", "default"))
}

func TestIntDataField_HandlesJSONNumberFloat(t *testing.T) {
	assert.Equal(t, 7, intDataField(map[string]any{"limit": float64(7)}, "limit", 100))
	assert.Equal(t, 100, intDataField(map[string]any{}, "limit", 100))
}

type noopReporter struct{}

func (noopReporter) ReportProgress(_, _ map[string]any) error { return nil }
