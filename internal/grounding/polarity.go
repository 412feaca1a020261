// Package grounding is the polarity-axis grounding calculator
// that assigns a per-concept scalar in approximately [-1, 1] by projecting
// incoming edge embeddings onto a triangulated support<->contradict
// semantic axis.
package grounding

import "math"

// OpposingPair is one of the fixed candidate axis-defining pairs.
// Both members are VocabType names; a pair only contributes to the
// axis when both have a stored embedding.
type OpposingPair struct {
	Positive string
	Negative string
}

// DefaultOpposingPairs is the fixed candidate set. At least three pairs
// must stay available, or the axis collapses to the zero-grounding
// fallback.
var DefaultOpposingPairs = []OpposingPair{
	{Positive: "SUPPORTS", Negative: "CONTRADICTS"},
	{Positive: "VALIDATES", Negative: "REFUTES"},
	{Positive: "CONFIRMS", Negative: "DISPROVES"},
	{Positive: "REINFORCES", Negative: "OPPOSES"},
	{Positive: "ENABLES", Negative: "PREVENTS"},
}

// BuildAxis computes the unit-normalized polarity axis from every pair in
// pairs whose positive and negative members both have an entry in
// embeddings. Returns ok=false when no pair survives, the
// caller's signal to return a grounding scalar of exactly 0.0.
func BuildAxis(pairs []OpposingPair, embeddings map[string][]float32) (axis []float32, ok bool) {
	var sum []float64
	var surviving int
	for _, pair := range pairs {
		pos, hasPos := embeddings[pair.Positive]
		neg, hasNeg := embeddings[pair.Negative]
		if !hasPos || !hasNeg || len(pos) == 0 || len(neg) == 0 || len(pos) != len(neg) {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(pos))
		} else if len(sum) != len(pos) {
			continue // inconsistent embedding dimensionality, skip this pair
		}
		for i := range pos {
			sum[i] += float64(pos[i]) - float64(neg[i])
		}
		surviving++
	}
	if surviving == 0 {
		return nil, false
	}

	axis = make([]float32, len(sum))
	var norm float64
	for i := range sum {
		avg := sum[i] / float64(surviving)
		axis[i] = float32(avg)
		norm += avg * avg
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil, false
	}
	for i := range axis {
		axis[i] = float32(float64(axis[i]) / norm)
	}
	return axis, true
}

// Project computes dot(embedding, axis), the per-edge projection.
// Mismatched or empty dimensions project to 0.
func Project(embedding, axis []float32) float64 {
	if len(embedding) != len(axis) || len(axis) == 0 {
		return 0
	}
	var dot float64
	for i := range axis {
		dot += float64(embedding[i]) * float64(axis[i])
	}
	return dot
}
