package analysis

import (
	"fmt"
	"math"
	"sort"
)

// Priority of a recommendation
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Impact of acting on a recommendation
type Impact string

const (
	ImpactVeryHigh Impact = "very-high"
	ImpactHigh     Impact = "high"
	ImpactMedium   Impact = "medium"
	ImpactLow      Impact = "low"
)

var priorityRank = map[Priority]int{PriorityHigh: 3, PriorityMedium: 2, PriorityLow: 1}
var impactRank = map[Impact]int{ImpactVeryHigh: 4, ImpactHigh: 3, ImpactMedium: 2, ImpactLow: 1}

// Recommendation is one actionable finding derived from an analysis
type Recommendation struct {
	Type       string   `json:"type"`
	Priority   Priority `json:"priority"`
	Impact     Impact   `json:"impact"`
	Title      string   `json:"title"`
	Message    string   `json:"message"`
	Confidence float64  `json:"confidence"`
}

// Fixed confidence constants for the diversification rules, in rule order
const (
	confidenceFewTechniques = 85.0
	confidenceFewAssets     = 80.0
	confidenceOverloaded    = 75.0
	confidenceFewTimeframes = 70.0
)

// Confidence is the shared confidence helper: a base of 40 plus a
// capped sample-size term, a performance-above-parity term and a small
// bonus for well-sampled groups, clamped to [10, 98].
func Confidence(sampleSize int, performance float64) float64 {
	c := 40.0
	c += math.Min(float64(sampleSize)*3, 35)
	c += math.Max(0, (performance-1)*25)
	if sampleSize > 5 {
		c += 10
	}
	return math.Min(98, math.Max(10, c))
}

// Recommend derives the full recommendation list from an analysis,
// sorted by priority then impact, both descending. A nil analysis
// produces no recommendations.
func Recommend(a *AggregateAnalysis) []Recommendation {
	if a == nil {
		return nil
	}

	var recs []Recommendation

	if rec, ok := bestTechnique(a); ok {
		recs = append(recs, rec)
	}
	if rec, ok := bestAsset(a); ok {
		recs = append(recs, rec)
	}
	if rec, ok := bestPair(a); ok {
		recs = append(recs, rec)
	}
	if rec, ok := bestTimeframe(a); ok {
		recs = append(recs, rec)
	}
	if rec, ok := diversification(a); ok {
		recs = append(recs, rec)
	}
	if rec, ok := riskOptimization(a); ok {
		recs = append(recs, rec)
	}
	if rec, ok := marketCondition(a); ok {
		recs = append(recs, rec)
	}
	if rec, ok := techniqueHealth(a); ok {
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if priorityRank[recs[i].Priority] != priorityRank[recs[j].Priority] {
			return priorityRank[recs[i].Priority] > priorityRank[recs[j].Priority]
		}
		return impactRank[recs[i].Impact] > impactRank[recs[j].Impact]
	})

	return recs
}

// sortedKeys gives a deterministic iteration order over group maps so
// ties always resolve the same way
func sortedKeys[T any](m map[string]*T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func bestTechnique(a *AggregateAnalysis) (Recommendation, bool) {
	var bestName string
	best := math.Inf(-1)
	for _, name := range sortedKeys(a.Techniques) {
		if s := a.Techniques[name]; s.Reliability > best {
			best = s.Reliability
			bestName = name
		}
	}
	if bestName == "" {
		return Recommendation{}, false
	}
	s := a.Techniques[bestName]
	return Recommendation{
		Type:       "best_technique",
		Priority:   PriorityHigh,
		Impact:     ImpactHigh,
		Title:      fmt.Sprintf("Favor technique %s", bestName),
		Message:    fmt.Sprintf("%s has the highest reliability (%.2f) across %d results.", bestName, s.Reliability, s.Count),
		Confidence: Confidence(s.Count, s.Reliability),
	}, true
}

func bestAsset(a *AggregateAnalysis) (Recommendation, bool) {
	var bestName string
	best := math.Inf(-1)
	for _, name := range sortedKeys(a.Assets) {
		if s := a.Assets[name]; s.AvgSharpe > best {
			best = s.AvgSharpe
			bestName = name
		}
	}
	if bestName == "" {
		return Recommendation{}, false
	}
	s := a.Assets[bestName]
	return Recommendation{
		Type:       "best_asset",
		Priority:   PriorityHigh,
		Impact:     ImpactHigh,
		Title:      fmt.Sprintf("Focus on %s", bestName),
		Message:    fmt.Sprintf("%s leads with an average Sharpe of %.2f over %d results.", bestName, s.AvgSharpe, s.Count),
		Confidence: Confidence(s.Count, s.AvgSharpe),
	}, true
}

func bestPair(a *AggregateAnalysis) (Recommendation, bool) {
	var bestCell *SynergyCell
	best := 0.0
	for _, key := range sortedKeys(a.Correlations) {
		cell := a.Correlations[key]
		if cell.Count >= 2 && cell.Synergy > best {
			best = cell.Synergy
			bestCell = cell
		}
	}
	if bestCell == nil {
		return Recommendation{}, false
	}
	return Recommendation{
		Type:       "best_combination",
		Priority:   PriorityHigh,
		Impact:     ImpactVeryHigh,
		Title:      fmt.Sprintf("Combine %s with %s", bestCell.Technique, bestCell.Asset),
		Message:    fmt.Sprintf("The %s/%s pair outperforms its parts by %.2f Sharpe over %d results.", bestCell.Technique, bestCell.Asset, bestCell.Synergy, bestCell.Count),
		Confidence: Confidence(bestCell.Count, bestCell.AvgSharpe),
	}, true
}

func bestTimeframe(a *AggregateAnalysis) (Recommendation, bool) {
	var bestName string
	best := math.Inf(-1)
	for _, name := range sortedKeys(a.Timeframes) {
		if s := a.Timeframes[name]; s.Reliability > best {
			best = s.Reliability
			bestName = name
		}
	}
	if bestName == "" {
		return Recommendation{}, false
	}
	s := a.Timeframes[bestName]
	return Recommendation{
		Type:       "best_timeframe",
		Priority:   PriorityMedium,
		Impact:     ImpactMedium,
		Title:      fmt.Sprintf("Prefer the %s timeframe", bestName),
		Message:    fmt.Sprintf("%s is the most reliable timeframe (%.2f) across %d results.", bestName, s.Reliability, s.Count),
		Confidence: Confidence(s.Count, s.Reliability),
	}, true
}

// diversification applies the diversification checks in order; the
// first matching check wins and carries its fixed confidence.
func diversification(a *AggregateAnalysis) (Recommendation, bool) {
	switch {
	case len(a.Techniques) < 3:
		return Recommendation{
			Type:       "diversification",
			Priority:   PriorityMedium,
			Impact:     ImpactMedium,
			Title:      "Add more techniques",
			Message:    fmt.Sprintf("Only %d technique(s) in use; spreading across at least 3 reduces model risk.", len(a.Techniques)),
			Confidence: confidenceFewTechniques,
		}, true
	case len(a.Assets) < 4:
		return Recommendation{
			Type:       "diversification",
			Priority:   PriorityMedium,
			Impact:     ImpactMedium,
			Title:      "Add more instruments",
			Message:    fmt.Sprintf("Only %d instrument(s) in use; broader coverage smooths portfolio returns.", len(a.Assets)),
			Confidence: confidenceFewAssets,
		}, true
	case float64(a.TotalResults)/float64(len(a.Techniques)) > 10:
		return Recommendation{
			Type:       "diversification",
			Priority:   PriorityMedium,
			Impact:     ImpactLow,
			Title:      "Rebalance configurations across techniques",
			Message:    fmt.Sprintf("An average of %.0f configurations per technique concentrates exposure.", float64(a.TotalResults)/float64(len(a.Techniques))),
			Confidence: confidenceOverloaded,
		}, true
	case a.TotalResults > 20 && len(a.Timeframes) < 3:
		return Recommendation{
			Type:       "diversification",
			Priority:   PriorityMedium,
			Impact:     ImpactLow,
			Title:      "Test more timeframes",
			Message:    fmt.Sprintf("%d results cover only %d timeframe(s).", a.TotalResults, len(a.Timeframes)),
			Confidence: confidenceFewTimeframes,
		}, true
	}
	return Recommendation{}, false
}

// riskOptimization fires at most one risk tip, most severe first
func riskOptimization(a *AggregateAnalysis) (Recommendation, bool) {
	switch {
	case a.Risk.StdReturn > 25:
		return Recommendation{
			Type:       "risk",
			Priority:   PriorityHigh,
			Impact:     ImpactHigh,
			Title:      "Portfolio volatility is high",
			Message:    fmt.Sprintf("Return volatility of %.1f%% suggests reducing position sizes or trimming outliers.", a.Risk.StdReturn),
			Confidence: Confidence(a.TotalResults, a.Risk.StdReturn/25),
		}, true
	case a.Risk.StdSharpe > 1.5:
		return Recommendation{
			Type:       "risk",
			Priority:   PriorityMedium,
			Impact:     ImpactMedium,
			Title:      "Inconsistent risk-adjusted performance",
			Message:    fmt.Sprintf("Sharpe ratios vary widely (stddev %.2f); investigate the unstable configurations.", a.Risk.StdSharpe),
			Confidence: Confidence(a.TotalResults, a.Risk.StdSharpe),
		}, true
	case a.Risk.StabilityScore < 1.0:
		return Recommendation{
			Type:       "risk",
			Priority:   PriorityLow,
			Impact:     ImpactLow,
			Title:      "Improve portfolio stability",
			Message:    fmt.Sprintf("Stability score %.2f is below 1; favor configurations with steadier Sharpe ratios.", a.Risk.StabilityScore),
			Confidence: Confidence(a.TotalResults, a.Risk.StabilityScore),
		}, true
	}
	return Recommendation{}, false
}

// marketCondition fires at most one regime tip, first match wins
func marketCondition(a *AggregateAnalysis) (Recommendation, bool) {
	total := float64(a.TotalResults)
	highVolShare := float64(a.MarketConditions.HighVolatility) / total * 100
	trendingShare := float64(a.MarketConditions.Trending) / total * 100
	bullishShare := float64(a.MarketConditions.Bullish) / total * 100

	switch {
	case highVolShare > 60:
		return Recommendation{
			Type:       "market",
			Priority:   PriorityMedium,
			Impact:     ImpactMedium,
			Title:      "Most results show high volatility",
			Message:    fmt.Sprintf("%.0f%% of results exceed %.0f%% drawdown; tighten risk controls.", highVolShare, highVolatilityDrawdown),
			Confidence: Confidence(a.MarketConditions.HighVolatility, highVolShare/60),
		}, true
	case trendingShare > 70:
		return Recommendation{
			Type:       "market",
			Priority:   PriorityLow,
			Impact:     ImpactLow,
			Title:      "Portfolio favors trending markets",
			Message:    fmt.Sprintf("%.0f%% of results are trend-driven; consider adding range-bound strategies.", trendingShare),
			Confidence: Confidence(a.MarketConditions.Trending, trendingShare/70),
		}, true
	case math.Abs(bullishShare-50) > 25:
		return Recommendation{
			Type:       "market",
			Priority:   PriorityLow,
			Impact:     ImpactLow,
			Title:      "Directional bias detected",
			Message:    fmt.Sprintf("%.0f%% of results are bullish; the portfolio leans heavily one way.", bullishShare),
			Confidence: Confidence(a.TotalResults, math.Abs(bullishShare-50)/25),
		}, true
	}
	return Recommendation{}, false
}

// techniqueHealth reports the worst underperforming technique, or, when
// all techniques pass, checks for a likely-overfit technique whose high
// Sharpe rests entirely on thin trade samples.
func techniqueHealth(a *AggregateAnalysis) (Recommendation, bool) {
	var worstName string
	worst := math.Inf(1)
	for _, name := range sortedKeys(a.Techniques) {
		s := a.Techniques[name]
		if (s.AvgSharpe < 0.5 || s.Reliability < 1.0) && s.AvgSharpe < worst {
			worst = s.AvgSharpe
			worstName = name
		}
	}
	if worstName != "" {
		s := a.Techniques[worstName]
		return Recommendation{
			Type:       "underperformance",
			Priority:   PriorityLow,
			Impact:     ImpactLow,
			Title:      fmt.Sprintf("Review technique %s", worstName),
			Message:    fmt.Sprintf("%s averages a Sharpe of %.2f with reliability %.2f; consider retiring or retuning it.", worstName, s.AvgSharpe, s.Reliability),
			Confidence: Confidence(s.Count, 1),
		}, true
	}

	for _, name := range sortedKeys(a.Techniques) {
		s := a.Techniques[name]
		if s.AvgSharpe > 2.0 && s.MaxTrades < 10 {
			return Recommendation{
				Type:       "overfitting",
				Priority:   PriorityMedium,
				Impact:     ImpactMedium,
				Title:      fmt.Sprintf("Possible overfitting in %s", name),
				Message:    fmt.Sprintf("%s shows a %.2f average Sharpe but never more than %d trades per result.", name, s.AvgSharpe, s.MaxTrades),
				Confidence: Confidence(s.Count, s.AvgSharpe/2),
			}, true
		}
	}
	return Recommendation{}, false
}
