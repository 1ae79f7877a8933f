package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPatternsNilAnalysis(t *testing.T) {
	assert.Nil(t, DetectPatterns(nil))
}

func TestDominantTimeframePattern(t *testing.T) {
	a := &AggregateAnalysis{
		Timeframes: map[string]*TimeframeStats{
			"M15": {Count: 5, Reliability: 2.1},
			"H1":  {Count: 5, Reliability: 0.9},
		},
	}

	p, ok := dominantTimeframe(a)
	require.True(t, ok)
	assert.Contains(t, p.Title, "M15")
	assert.Equal(t, confidenceDominantTimeframe, p.Confidence)

	a.Timeframes["M15"].Reliability = 1.2
	_, ok = dominantTimeframe(a)
	assert.False(t, ok)
}

func TestStrongSynergyPatternNeedsSamples(t *testing.T) {
	a := &AggregateAnalysis{
		Correlations: map[string]*SynergyCell{
			"SPP-EURUSD": {Technique: "SPP", Asset: "EURUSD", Count: 2, Synergy: 0.8},
		},
	}

	// Two samples is below the minimum
	_, ok := strongSynergy(a)
	assert.False(t, ok)

	a.Correlations["SPP-EURUSD"].Count = 3
	p, ok := strongSynergy(a)
	require.True(t, ok)
	assert.Equal(t, ImpactVeryHigh, p.Impact)
}

func TestTechniqueEfficiencyPattern(t *testing.T) {
	a := &AggregateAnalysis{
		Techniques: map[string]*TechniqueStats{
			"SPP": {Count: 2, Reliability: 4.0}, // 2.0 per configuration
			"WFM": {Count: 4, Reliability: 4.0}, // 1.0 per configuration
		},
	}

	p, ok := techniqueEfficiency(a)
	require.True(t, ok)
	assert.Contains(t, p.Title, "SPP")

	// Lead below 1.5x does not qualify
	a.Techniques["SPP"].Reliability = 2.5
	_, ok = techniqueEfficiency(a)
	assert.False(t, ok)
}

func TestConcentrationPattern(t *testing.T) {
	a := &AggregateAnalysis{
		Techniques: map[string]*TechniqueStats{
			"SPP": {Reliability: 5.0},
			"WFM": {Reliability: 4.0},
			"MC":  {Reliability: 1.0},
		},
	}

	p, ok := reliabilityConcentration(a)
	require.True(t, ok)
	assert.Equal(t, ImpactHigh, p.Impact)

	// Fewer than three techniques never counts as concentration
	delete(a.Techniques, "MC")
	_, ok = reliabilityConcentration(a)
	assert.False(t, ok)
}

func TestMarketSpecializationPattern(t *testing.T) {
	a := &AggregateAnalysis{
		TotalResults: 10,
		MarketConditions: MarketConditions{
			HighVolatility: 6,
			Trending:       7,
		},
	}

	p, ok := marketSpecialization(a)
	require.True(t, ok)
	assert.Equal(t, confidenceSpecialization, p.Confidence)

	a.MarketConditions.Trending = 4
	_, ok = marketSpecialization(a)
	assert.False(t, ok)
}

func TestDetectPatternsSortedByImpact(t *testing.T) {
	a := &AggregateAnalysis{
		TotalResults: 10,
		Techniques: map[string]*TechniqueStats{
			"SPP": {Count: 2, Reliability: 6.0},
			"WFM": {Count: 4, Reliability: 3.0},
			"MC":  {Count: 4, Reliability: 1.0},
		},
		Timeframes: map[string]*TimeframeStats{
			"M15": {Count: 10, Reliability: 2.0},
		},
		Correlations: map[string]*SynergyCell{
			"SPP-EURUSD": {Technique: "SPP", Asset: "EURUSD", Count: 4, Synergy: 0.5},
		},
	}

	patterns := DetectPatterns(a)
	require.NotEmpty(t, patterns)
	for i := 1; i < len(patterns); i++ {
		assert.GreaterOrEqual(t, impactRank[patterns[i-1].Impact], impactRank[patterns[i].Impact])
	}
	assert.Equal(t, ImpactVeryHigh, patterns[0].Impact)
}
