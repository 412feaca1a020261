// Package epistemic classifies each VocabType's epistemic
// standing from a random sample of its edge targets' grounding scalars.
package epistemic

import (
	"strings"

	"kgraph-core/internal/domain"
)

// minSamples is the floor below which a VocabType is classified
// INSUFFICIENT_DATA regardless of what the samples say.
const minSamples = 3

// DefaultSampleSize bounds how many edge targets are sampled per type.
const DefaultSampleSize = 100

// classify is the pure decision function behind Measure: given a VocabType
// name and its successfully-sampled grounding scalars, return the status and
// a human-readable rationale string suitable for epistemic_rationale.
func classify(name string, samples []float64) (domain.EpistemicStatus, string) {
	if len(samples) == 0 {
		return domain.StatusInsufficientData, "no incoming edges of this type"
	}
	if len(samples) < minSamples {
		return domain.StatusInsufficientData, "fewer than 3 successful grounding samples"
	}

	upper := strings.ToUpper(name)
	for _, marker := range domain.HistoricalNameMarkers {
		if strings.Contains(upper, marker) {
			return domain.StatusHistorical, "name contains historical marker \"" + marker + "\""
		}
	}

	mean := meanOf(samples)
	switch {
	case mean > 0.8:
		return domain.StatusAffirmative, "mean sampled grounding above 0.8"
	case mean >= 0.15:
		return domain.StatusContested, "mean sampled grounding in 0.15-0.8"
	case mean > 0.0:
		return domain.StatusEmerging, "mean sampled grounding in 0.0-0.15"
	case mean < -0.5:
		return domain.StatusContradictory, "mean sampled grounding below -0.5"
	default:
		return domain.StatusUnclassified, "mean sampled grounding in -0.5-0.0"
	}
}

// meanOf averages samples incrementally, so identical samples average to
// exactly their own value and a band edge such as 0.8 stays on its side.
func meanOf(samples []float64) float64 {
	var mean float64
	for i, s := range samples {
		mean += (s - mean) / float64(i+1)
	}
	return mean
}
