package analysis

import (
	"fmt"
	"math"
	"sort"
)

// Pattern is a structural regularity found in the result set, distinct
// from the actionable recommendations
type Pattern struct {
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Impact      Impact  `json:"impact"`
	Confidence  float64 `json:"confidence"`
}

// Detection thresholds and fixed per-pattern confidence constants
const (
	dominantTimeframeReliability = 1.5
	strongSynergyThreshold       = 0.3
	strongSynergyMinSamples      = 3
	efficiencyLeadRatio          = 1.5
	specializationShare          = 50.0
	concentrationShare           = 70.0

	confidenceDominantTimeframe = 88.0
	confidenceStrongSynergy     = 85.0
	confidenceConcentration     = 82.0
	confidenceEfficiency        = 80.0
	confidenceSpecialization    = 75.0
)

// DetectPatterns scans an analysis for hidden patterns, sorted by
// impact descending. A nil analysis produces no patterns.
func DetectPatterns(a *AggregateAnalysis) []Pattern {
	if a == nil {
		return nil
	}

	var patterns []Pattern

	if p, ok := dominantTimeframe(a); ok {
		patterns = append(patterns, p)
	}
	if p, ok := strongSynergy(a); ok {
		patterns = append(patterns, p)
	}
	if p, ok := techniqueEfficiency(a); ok {
		patterns = append(patterns, p)
	}
	if p, ok := marketSpecialization(a); ok {
		patterns = append(patterns, p)
	}
	if p, ok := reliabilityConcentration(a); ok {
		patterns = append(patterns, p)
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return impactRank[patterns[i].Impact] > impactRank[patterns[j].Impact]
	})

	return patterns
}

func dominantTimeframe(a *AggregateAnalysis) (Pattern, bool) {
	var bestName string
	best := math.Inf(-1)
	for _, name := range sortedKeys(a.Timeframes) {
		if s := a.Timeframes[name]; s.Reliability > best {
			best = s.Reliability
			bestName = name
		}
	}
	if bestName == "" || best <= dominantTimeframeReliability {
		return Pattern{}, false
	}
	return Pattern{
		Type:        "dominant_timeframe",
		Title:       fmt.Sprintf("Timeframe %s dominates", bestName),
		Description: fmt.Sprintf("Reliability %.2f on %s stands clear of every other timeframe.", best, bestName),
		Impact:      ImpactHigh,
		Confidence:  confidenceDominantTimeframe,
	}, true
}

func strongSynergy(a *AggregateAnalysis) (Pattern, bool) {
	var bestCell *SynergyCell
	best := strongSynergyThreshold
	for _, key := range sortedKeys(a.Correlations) {
		cell := a.Correlations[key]
		if cell.Count >= strongSynergyMinSamples && cell.Synergy > best {
			best = cell.Synergy
			bestCell = cell
		}
	}
	if bestCell == nil {
		return Pattern{}, false
	}
	return Pattern{
		Type:        "strong_synergy",
		Title:       fmt.Sprintf("%s and %s reinforce each other", bestCell.Technique, bestCell.Asset),
		Description: fmt.Sprintf("The pair exceeds its expected Sharpe by %.2f across %d results.", bestCell.Synergy, bestCell.Count),
		Impact:      ImpactVeryHigh,
		Confidence:  confidenceStrongSynergy,
	}, true
}

// techniqueEfficiency flags a technique whose reliability per
// configuration clearly outpaces the runner-up
func techniqueEfficiency(a *AggregateAnalysis) (Pattern, bool) {
	if len(a.Techniques) < 2 {
		return Pattern{}, false
	}

	type efficiency struct {
		name  string
		value float64
	}
	ranked := make([]efficiency, 0, len(a.Techniques))
	for _, name := range sortedKeys(a.Techniques) {
		s := a.Techniques[name]
		ranked = append(ranked, efficiency{name: name, value: s.Reliability / float64(s.Count)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].value > ranked[j].value })

	top, second := ranked[0], ranked[1]
	if second.value <= 0 || top.value < second.value*efficiencyLeadRatio {
		return Pattern{}, false
	}
	return Pattern{
		Type:        "technique_efficiency",
		Title:       fmt.Sprintf("%s delivers more per configuration", top.name),
		Description: fmt.Sprintf("%s yields %.2f reliability per configuration, at least %.1fx the runner-up %s.", top.name, top.value, efficiencyLeadRatio, second.name),
		Impact:      ImpactMedium,
		Confidence:  confidenceEfficiency,
	}, true
}

func marketSpecialization(a *AggregateAnalysis) (Pattern, bool) {
	total := float64(a.TotalResults)
	highVolShare := float64(a.MarketConditions.HighVolatility) / total * 100
	trendingShare := float64(a.MarketConditions.Trending) / total * 100

	if highVolShare <= specializationShare || trendingShare <= specializationShare {
		return Pattern{}, false
	}
	return Pattern{
		Type:        "market_specialization",
		Title:       "Portfolio specializes in volatile, trending markets",
		Description: fmt.Sprintf("%.0f%% of results are high-volatility and %.0f%% trending; calm markets are underrepresented.", highVolShare, trendingShare),
		Impact:      ImpactMedium,
		Confidence:  confidenceSpecialization,
	}, true
}

// reliabilityConcentration flags when the top two techniques carry most
// of the portfolio's total reliability
func reliabilityConcentration(a *AggregateAnalysis) (Pattern, bool) {
	if len(a.Techniques) < 3 {
		return Pattern{}, false
	}

	reliabilities := make([]float64, 0, len(a.Techniques))
	var total float64
	for _, name := range sortedKeys(a.Techniques) {
		r := a.Techniques[name].Reliability
		reliabilities = append(reliabilities, r)
		total += r
	}
	if total <= 0 {
		return Pattern{}, false
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(reliabilities)))

	topShare := (reliabilities[0] + reliabilities[1]) / total * 100
	if topShare <= concentrationShare {
		return Pattern{}, false
	}
	return Pattern{
		Type:        "concentration",
		Title:       "Reliability concentrated in two techniques",
		Description: fmt.Sprintf("The top two techniques account for %.0f%% of total reliability.", topShare),
		Impact:      ImpactHigh,
		Confidence:  confidenceConcentration,
	}, true
}
