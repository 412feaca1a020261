package epistemic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kgraph-core/internal/domain"
)

func TestClassify_NoSamples(t *testing.T) {
	status, _ := classify("SUPPORTS", nil)
	assert.Equal(t, domain.StatusInsufficientData, status)
}

func TestClassify_FewerThanThreeSamples(t *testing.T) {
	status, _ := classify("SUPPORTS", []float64{0.9, 0.95})
	assert.Equal(t, domain.StatusInsufficientData, status)
}

func TestClassify_HistoricalOverrideWinsRegardlessOfMean(t *testing.T) {
	status, rationale := classify("WAS_CAPITAL_OF", []float64{0.9, 0.95, 0.99})
	assert.Equal(t, domain.StatusHistorical, status)
	assert.Contains(t, rationale, "WAS")
}

func TestClassify_HistoricalOverrideCaseInsensitive(t *testing.T) {
	status, _ := classify("formerly_led_by", []float64{0.9, 0.95, 0.99})
	assert.Equal(t, domain.StatusHistorical, status)
}

func TestClassify_Bands(t *testing.T) {
	cases := []struct {
		mean float64
		want domain.EpistemicStatus
	}{
		{0.9, domain.StatusAffirmative},
		{0.81, domain.StatusAffirmative},
		{0.8, domain.StatusContested},
		{0.15, domain.StatusContested},
		{0.14, domain.StatusEmerging},
		{0.01, domain.StatusEmerging},
		{0.0, domain.StatusUnclassified},
		{-0.3, domain.StatusUnclassified},
		{-0.5, domain.StatusUnclassified},
		{-0.51, domain.StatusContradictory},
		{-0.9, domain.StatusContradictory},
	}
	for _, tc := range cases {
		samples := []float64{tc.mean, tc.mean, tc.mean}
		status, _ := classify("SUPPORTS", samples)
		assert.Equal(t, tc.want, status, "mean=%v", tc.mean)
	}
}
