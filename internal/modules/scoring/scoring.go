// Package scoring ranks backtest results with an additive tiered model.
// The tier breakpoints are hand-tuned heuristics carried over intact;
// do not rederive them.
package scoring

import (
	"sort"

	"github.com/minelab/botmine/internal/modules/backtest"
)

const (
	baseScore = 40.0
	minScore  = 0.0
	maxScore  = 100.0
)

// Breakdown carries a display label per factor. Label thresholds are
// deliberately independent of the scoring tiers.
type Breakdown struct {
	Sharpe       string `json:"sharpe"`
	WinRate      string `json:"win_rate"`
	ProfitFactor string `json:"profit_factor"`
	Drawdown     string `json:"drawdown"`
	Activity     string `json:"activity"`
}

// ScoredResult pairs a result with its score and factor breakdown
type ScoredResult struct {
	Result    backtest.BacktestResult `json:"result"`
	Score     float64                 `json:"score"`
	Breakdown Breakdown               `json:"breakdown"`
}

// Score applies the additive model to one set of metrics and clamps the
// total to [0, 100].
func Score(m backtest.Metrics) (float64, Breakdown) {
	score := baseScore

	score += sharpeBonus(m.SharpeRatio)
	score += winRateBonus(m.WinRate)
	score += profitFactorBonus(m.ProfitFactor)
	score += drawdownBonus(m.MaxDrawdown * 100)
	score += tradeCountBonus(m.TotalTrades)

	if m.SharpeRatio > 1 && m.WinRate > 60 && m.ProfitFactor > 1.5 && m.MaxDrawdown*100 < 10 {
		score += 5
	}

	// Penalize results whose headline numbers rest on too few trades,
	// a typical signature of an overfit or degenerate simulation.
	if m.SharpeRatio > 3 && m.TotalTrades < 5 {
		score -= 10
	}
	if m.WinRate > 90 && m.TotalTrades < 10 {
		score -= 15
	}
	if m.MaxDrawdown == 0 && m.TotalTrades > 0 {
		score -= 5
	}

	if score < minScore {
		score = minScore
	} else if score > maxScore {
		score = maxScore
	}

	return score, buildBreakdown(m)
}

// Rank scores every result and sorts descending. Ties keep input order.
func Rank(results []backtest.BacktestResult) []ScoredResult {
	scored := make([]ScoredResult, 0, len(results))
	for _, res := range results {
		score, breakdown := Score(res.Metrics)
		scored = append(scored, ScoredResult{Result: res, Score: score, Breakdown: breakdown})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

func sharpeBonus(sharpe float64) float64 {
	switch {
	case sharpe > 3:
		return 35
	case sharpe > 2:
		return 30
	case sharpe > 1.5:
		return 25
	case sharpe > 1:
		return 20
	case sharpe > 0.5:
		return 10
	case sharpe > 0:
		return 5
	}
	return 0
}

func winRateBonus(winRate float64) float64 {
	switch {
	case winRate > 80:
		return 25
	case winRate > 70:
		return 20
	case winRate > 60:
		return 15
	case winRate > 50:
		return 12
	case winRate > 40:
		return 10
	}
	return 5
}

func profitFactorBonus(pf float64) float64 {
	switch {
	case pf > 3:
		return 20
	case pf > 2:
		return 15
	case pf > 1.5:
		return 12
	case pf > 1.2:
		return 8
	case pf > 0.8:
		return 5
	}
	return 0
}

// drawdownBonus takes the drawdown as a percentage; smaller is better
func drawdownBonus(ddPercent float64) float64 {
	switch {
	case ddPercent < 3:
		return 15
	case ddPercent < 5:
		return 12
	case ddPercent < 10:
		return 8
	case ddPercent < 20:
		return 4
	case ddPercent < 30:
		return 2
	}
	return 0
}

func tradeCountBonus(trades int) float64 {
	switch {
	case trades >= 100:
		return 5
	case trades >= 50:
		return 4
	case trades >= 20:
		return 3
	case trades >= 10:
		return 2
	case trades >= 5:
		return 1
	}
	return 0
}

// Display labels, kept in the product's original Spanish
const (
	labelExcellent  = "Excelente"
	labelGood       = "Bueno"
	labelAcceptable = "Aceptable"
	labelPoor       = "Deficiente"
)

func buildBreakdown(m backtest.Metrics) Breakdown {
	return Breakdown{
		Sharpe:       labelFor(m.SharpeRatio, 2, 1, 0.5),
		WinRate:      labelFor(m.WinRate, 70, 55, 45),
		ProfitFactor: labelFor(m.ProfitFactor, 2, 1.5, 1),
		Drawdown:     labelForInverse(m.MaxDrawdown*100, 5, 10, 20),
		Activity:     labelFor(float64(m.TotalTrades), 50, 20, 10),
	}
}

// labelFor maps a value to a tier where larger is better
func labelFor(v, excellent, good, acceptable float64) string {
	switch {
	case v >= excellent:
		return labelExcellent
	case v >= good:
		return labelGood
	case v >= acceptable:
		return labelAcceptable
	}
	return labelPoor
}

// labelForInverse maps a value to a tier where smaller is better
func labelForInverse(v, excellent, good, acceptable float64) string {
	switch {
	case v < excellent:
		return labelExcellent
	case v < good:
		return labelGood
	case v < acceptable:
		return labelAcceptable
	}
	return labelPoor
}
