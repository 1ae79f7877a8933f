// Package analysis aggregates backtest results into per-group
// statistics, portfolio recommendations and hidden-pattern findings.
package analysis

import (
	"fmt"
	"math"

	"github.com/minelab/botmine/internal/modules/backtest"
	"github.com/minelab/botmine/pkg/formulas"
)

// TechniqueStats summarizes all results sharing a primary technique
type TechniqueStats struct {
	Count           int     `json:"count"`
	AvgSharpe       float64 `json:"avg_sharpe"`
	AvgWinRate      float64 `json:"avg_win_rate"`
	AvgProfitFactor float64 `json:"avg_profit_factor"`
	AvgReturn       float64 `json:"avg_return"`
	MaxTrades       int     `json:"max_trades"`
	Consistency     float64 `json:"consistency"`
	Reliability     float64 `json:"reliability"`
}

// AssetStats summarizes all results for one instrument
type AssetStats struct {
	Count       int     `json:"count"`
	AvgSharpe   float64 `json:"avg_sharpe"`
	AvgWinRate  float64 `json:"avg_win_rate"`
	AvgReturn   float64 `json:"avg_return"`
	Volatility  float64 `json:"volatility"`
	Consistency float64 `json:"consistency"`
}

// TimeframeStats summarizes all results for one timeframe
type TimeframeStats struct {
	Count       int     `json:"count"`
	AvgSharpe   float64 `json:"avg_sharpe"`
	AvgWinRate  float64 `json:"avg_win_rate"`
	AvgTrades   float64 `json:"avg_trades"`
	Reliability float64 `json:"reliability"`
}

// SynergyCell is one entry of the technique/asset correlation matrix.
// Synergy is the pair's average Sharpe minus the mean of the two
// individual group averages; positive means the combination outperforms
// its parts.
type SynergyCell struct {
	Technique string  `json:"technique"`
	Asset     string  `json:"asset"`
	Count     int     `json:"count"`
	AvgSharpe float64 `json:"avg_sharpe"`
	Synergy   float64 `json:"synergy"`
}

// MarketConditions counts how many results fall into each market regime
type MarketConditions struct {
	HighVolatility int `json:"high_volatility"`
	LowVolatility  int `json:"low_volatility"`
	Trending       int `json:"trending"`
	Ranging        int `json:"ranging"`
	Bullish        int `json:"bullish"`
	Bearish        int `json:"bearish"`
}

// RiskMetrics are population statistics across all results
type RiskMetrics struct {
	MeanReturn         float64 `json:"mean_return"`
	StdReturn          float64 `json:"std_return"`
	MeanSharpe         float64 `json:"mean_sharpe"`
	StdSharpe          float64 `json:"std_sharpe"`
	RiskAdjustedReturn float64 `json:"risk_adjusted_return"`
	StabilityScore     float64 `json:"stability_score"`
}

// AggregateAnalysis is the full output of one analysis pass
type AggregateAnalysis struct {
	TotalResults     int                        `json:"total_results"`
	Techniques       map[string]*TechniqueStats `json:"techniques"`
	Assets           map[string]*AssetStats     `json:"assets"`
	Timeframes       map[string]*TimeframeStats `json:"timeframes"`
	Correlations     map[string]*SynergyCell    `json:"correlations"`
	MarketConditions MarketConditions           `json:"market_conditions"`
	Risk             RiskMetrics                `json:"risk"`
}

// Market regime thresholds, as percentages
const (
	highVolatilityDrawdown = 15.0
	trendingReturn         = 10.0
)

// Analyze aggregates a result set. Returns nil when there is nothing to
// analyze; callers render that as an insufficient-data state.
func Analyze(results []backtest.BacktestResult) *AggregateAnalysis {
	if len(results) == 0 {
		return nil
	}

	a := &AggregateAnalysis{
		TotalResults: len(results),
		Techniques:   make(map[string]*TechniqueStats),
		Assets:       make(map[string]*AssetStats),
		Timeframes:   make(map[string]*TimeframeStats),
		Correlations: make(map[string]*SynergyCell),
	}

	byTechnique := make(map[string][]backtest.BacktestResult)
	byAsset := make(map[string][]backtest.BacktestResult)
	byTimeframe := make(map[string][]backtest.BacktestResult)
	byPair := make(map[string][]backtest.BacktestResult)

	for _, res := range results {
		technique := res.PrimaryTechnique()
		byTechnique[technique] = append(byTechnique[technique], res)
		byAsset[res.Asset] = append(byAsset[res.Asset], res)
		byTimeframe[res.Timeframe] = append(byTimeframe[res.Timeframe], res)
		byPair[pairKey(technique, res.Asset)] = append(byPair[pairKey(technique, res.Asset)], res)

		a.classifyMarket(res.Metrics)
	}

	for technique, group := range byTechnique {
		a.Techniques[technique] = techniqueStats(group)
	}
	for asset, group := range byAsset {
		a.Assets[asset] = assetStats(group)
	}
	for timeframe, group := range byTimeframe {
		a.Timeframes[timeframe] = timeframeStats(group)
	}

	for key, group := range byPair {
		technique, asset := splitPairKey(key, group[0])
		pairAvg := avgSharpe(group)
		a.Correlations[key] = &SynergyCell{
			Technique: technique,
			Asset:     asset,
			Count:     len(group),
			AvgSharpe: pairAvg,
			Synergy:   pairAvg - (a.Techniques[technique].AvgSharpe+a.Assets[asset].AvgSharpe)/2,
		}
	}

	a.Risk = riskMetrics(results)

	return a
}

func pairKey(technique, asset string) string {
	return fmt.Sprintf("%s-%s", technique, asset)
}

// splitPairKey recovers the pair from a representative group member,
// avoiding ambiguity when technique names themselves contain dashes
func splitPairKey(_ string, sample backtest.BacktestResult) (string, string) {
	return sample.PrimaryTechnique(), sample.Asset
}

func (a *AggregateAnalysis) classifyMarket(m backtest.Metrics) {
	if m.MaxDrawdown*100 > highVolatilityDrawdown {
		a.MarketConditions.HighVolatility++
	} else {
		a.MarketConditions.LowVolatility++
	}
	if math.Abs(m.TotalReturn) > trendingReturn {
		a.MarketConditions.Trending++
	} else {
		a.MarketConditions.Ranging++
	}
	if m.TotalReturn > 0 {
		a.MarketConditions.Bullish++
	} else {
		a.MarketConditions.Bearish++
	}
}

func techniqueStats(group []backtest.BacktestResult) *TechniqueStats {
	s := &TechniqueStats{Count: len(group)}

	drawdowns := make([]float64, 0, len(group))
	for _, res := range group {
		s.AvgSharpe += res.Metrics.SharpeRatio
		s.AvgWinRate += res.Metrics.WinRate
		s.AvgProfitFactor += res.Metrics.ProfitFactor
		s.AvgReturn += res.Metrics.TotalReturn
		if res.Metrics.TotalTrades > s.MaxTrades {
			s.MaxTrades = res.Metrics.TotalTrades
		}
		drawdowns = append(drawdowns, res.Metrics.MaxDrawdown)
	}
	n := float64(len(group))
	s.AvgSharpe /= n
	s.AvgWinRate /= n
	s.AvgProfitFactor /= n
	s.AvgReturn /= n

	// Consistency is the inverse of the drawdown variance; a group that
	// never varies counts as perfectly consistent.
	variance := formulas.PopVariance(drawdowns)
	if variance == 0 {
		s.Consistency = 1
	} else {
		s.Consistency = 1 / variance
	}

	s.Reliability = 0.4*s.AvgSharpe + 0.003*s.AvgWinRate + 0.3*s.Consistency + 0.3*s.AvgProfitFactor
	return s
}

func assetStats(group []backtest.BacktestResult) *AssetStats {
	s := &AssetStats{Count: len(group)}

	best := math.Inf(-1)
	worst := math.Inf(1)
	for _, res := range group {
		s.AvgSharpe += res.Metrics.SharpeRatio
		s.AvgWinRate += res.Metrics.WinRate
		s.AvgReturn += res.Metrics.TotalReturn
		if res.Metrics.SharpeRatio > best {
			best = res.Metrics.SharpeRatio
		}
		if res.Metrics.SharpeRatio < worst {
			worst = res.Metrics.SharpeRatio
		}
	}
	n := float64(len(group))
	s.AvgSharpe /= n
	s.AvgWinRate /= n
	s.AvgReturn /= n

	s.Volatility = math.Abs(best - worst)
	if s.Volatility == 0 {
		s.Consistency = 1
	} else {
		s.Consistency = 1 / s.Volatility
	}
	return s
}

func timeframeStats(group []backtest.BacktestResult) *TimeframeStats {
	s := &TimeframeStats{Count: len(group)}

	for _, res := range group {
		s.AvgSharpe += res.Metrics.SharpeRatio
		s.AvgWinRate += res.Metrics.WinRate
		s.AvgTrades += float64(res.Metrics.TotalTrades)
	}
	n := float64(len(group))
	s.AvgSharpe /= n
	s.AvgWinRate /= n
	s.AvgTrades /= n

	s.Reliability = 0.5*s.AvgSharpe + 0.002*s.AvgWinRate + 0.01*s.AvgTrades
	return s
}

func riskMetrics(results []backtest.BacktestResult) RiskMetrics {
	returns := make([]float64, len(results))
	sharpes := make([]float64, len(results))
	for i, res := range results {
		returns[i] = res.Metrics.TotalReturn
		sharpes[i] = res.Metrics.SharpeRatio
	}

	r := RiskMetrics{
		MeanReturn: formulas.Mean(returns),
		StdReturn:  formulas.PopStdDev(returns),
		MeanSharpe: formulas.Mean(sharpes),
		StdSharpe:  formulas.PopStdDev(sharpes),
	}
	if r.StdReturn != 0 {
		r.RiskAdjustedReturn = r.MeanReturn / r.StdReturn
	}
	if r.StdSharpe != 0 {
		r.StabilityScore = r.MeanSharpe / r.StdSharpe
	}
	return r
}

func avgSharpe(group []backtest.BacktestResult) float64 {
	var sum float64
	for _, res := range group {
		sum += res.Metrics.SharpeRatio
	}
	return sum / float64(len(group))
}
