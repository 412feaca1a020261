package chunker

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgraph-core/internal/aiprovider"
)

type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeExtractor) Extract(ctx context.Context, prompt string) (aiprovider.ExtractionResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail {
		return aiprovider.ExtractionResult{}, assert.AnError
	}
	return aiprovider.ExtractionResult{RawJSON: "Describes a helper function. labels: arithmetic, addition, helper"}, nil
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func longCodeBlock(lines int) string {
	parts := make([]string, lines)
	for i := range parts {
		parts[i] = "line of code"
	}
	return strings.Join(parts, "\n")
}

func TestTranslateCodeBlocksOmitsShortNodesWithoutCallingExtractor(t *testing.T) {
	extractor := &fakeExtractor{}
	out, err := TranslateCodeBlocks(context.Background(), []string{"one\ntwo"}, extractor, 2)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "omitted")
	assert.Equal(t, 0, extractor.callCount())
}

func TestTranslateCodeBlocksCallsExtractorForLongNodes(t *testing.T) {
	extractor := &fakeExtractor{}
	out, err := TranslateCodeBlocks(context.Background(), []string{longCodeBlock(10)}, extractor, 2)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "helper function")
	assert.Equal(t, 1, extractor.callCount())
}

func TestTranslateCodeBlocksRunsAllNodesConcurrentlyWithBoundedPool(t *testing.T) {
	extractor := &fakeExtractor{}
	nodes := make([]string, 5)
	for i := range nodes {
		nodes[i] = longCodeBlock(10)
	}
	out, err := TranslateCodeBlocks(context.Background(), nodes, extractor, 2)
	require.NoError(t, err)
	assert.Len(t, out, 5)
	assert.Equal(t, 5, extractor.callCount())
}

func TestTranslateCodeBlocksPropagatesExtractorError(t *testing.T) {
	extractor := &fakeExtractor{fail: true}
	_, err := TranslateCodeBlocks(context.Background(), []string{longCodeBlock(10)}, extractor, 2)
	assert.Error(t, err)
}

func TestTranslateCodeBlocksDefaultsWorkerCountWhenNonPositive(t *testing.T) {
	extractor := &fakeExtractor{}
	nodes := []string{longCodeBlock(10), longCodeBlock(10)}
	out, err := TranslateCodeBlocks(context.Background(), nodes, extractor, 0)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
