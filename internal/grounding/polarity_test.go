package grounding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAxis_NoSurvivingPairs(t *testing.T) {
	axis, ok := BuildAxis(DefaultOpposingPairs, map[string][]float32{
		"SUPPORTS": {1, 0},
	})
	assert.False(t, ok)
	assert.Nil(t, axis)
}

func TestBuildAxis_SinglePairIsUnitNormalized(t *testing.T) {
	pairs := []OpposingPair{{Positive: "SUPPORTS", Negative: "CONTRADICTS"}}
	embeddings := map[string][]float32{
		"SUPPORTS":    {3, 4},
		"CONTRADICTS": {0, 0},
	}
	axis, ok := BuildAxis(pairs, embeddings)
	require.True(t, ok)
	var norm float64
	for _, v := range axis {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
	assert.InDelta(t, 0.6, axis[0], 1e-6)
	assert.InDelta(t, 0.8, axis[1], 1e-6)
}

func TestBuildAxis_SkipsIncompleteAndMismatchedPairs(t *testing.T) {
	pairs := []OpposingPair{
		{Positive: "SUPPORTS", Negative: "CONTRADICTS"},
		{Positive: "VALIDATES", Negative: "REFUTES"}, // missing both
		{Positive: "CONFIRMS", Negative: "DISPROVES"},
	}
	embeddings := map[string][]float32{
		"SUPPORTS":    {1, 0},
		"CONTRADICTS": {0, 0},
		"CONFIRMS":    {1, 0, 0}, // wrong dimensionality, must be skipped
		"DISPROVES":   {0, 0, 0},
	}
	axis, ok := BuildAxis(pairs, embeddings)
	require.True(t, ok)
	assert.Len(t, axis, 2)
}

func TestProject_MismatchedDimensionsIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Project([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Equal(t, 0.0, Project(nil, nil))
}

func TestProject_DotProduct(t *testing.T) {
	got := Project([]float32{2, 3}, []float32{0.6, 0.8})
	assert.InDelta(t, 2*0.6+3*0.8, got, 1e-6)
}

func TestBucketFor(t *testing.T) {
	cases := []struct {
		v    float64
		want Bucket
	}{
		{0.9, BucketStrongPositive},
		{0.71, BucketStrongPositive},
		{0.7, BucketModeratePositive},
		{0.5, BucketModeratePositive},
		{0.31, BucketModeratePositive},
		{0.3, BucketWeakPositive},
		{0, BucketWeakPositive},
		{-0.1, BucketWeakNegative},
		{-0.3, BucketWeakNegative},
		{-0.31, BucketModerateNegative},
		{-0.7, BucketModerateNegative},
		{-0.71, BucketStrongNegative},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BucketFor(tc.v), "v=%v", tc.v)
	}
}
