package backtest

import (
	"math"

	"github.com/minelab/botmine/pkg/formulas"
)

// Sentinel for ratios whose denominator is empty (no losing trades)
const ratioSentinel = 999.0

// ComputeMetrics derives the summary statistics of one simulation run.
// A run with no trades returns the zero Metrics value.
func ComputeMetrics(trades []Trade, equity []EquityPoint) Metrics {
	if len(trades) == 0 {
		return Metrics{}
	}

	var (
		wins      int
		grossWin  float64
		grossLoss float64
	)
	for _, t := range trades {
		if t.IsWin {
			wins++
			grossWin += t.PnL
		} else {
			grossLoss += -t.PnL
		}
	}

	m := Metrics{
		WinRate:     float64(wins) / float64(len(trades)) * 100,
		TotalTrades: len(trades),
	}

	if grossLoss > 0 {
		m.ProfitFactor = grossWin / grossLoss
	} else if grossWin > 0 {
		m.ProfitFactor = ratioSentinel
	}

	m.AvgWinLoss = avgWinLoss(trades, wins)

	if len(equity) > 0 {
		balances := make([]float64, len(equity))
		for i, p := range equity {
			balances[i] = p.Balance
		}
		m.MaxDrawdown = formulas.MaxDrawdown(balances)
		m.SharpeRatio = sharpeRatio(balances)
		if balances[0] != 0 {
			m.TotalReturn = (balances[len(balances)-1] - balances[0]) / balances[0] * 100
		}
	}

	return m
}

// avgWinLoss is the ratio of the average winning trade to the average
// losing trade. With no losers the average loss defaults to 1, matching
// the historical behavior; an all-loss run yields 0.
func avgWinLoss(trades []Trade, wins int) float64 {
	var winSum, lossSum float64
	losses := 0
	for _, t := range trades {
		if t.IsWin {
			winSum += t.PnL
		} else {
			lossSum += -t.PnL
			losses++
		}
	}

	avgLoss := 1.0
	if losses > 0 {
		avgLoss = lossSum / float64(losses)
	}
	if wins == 0 {
		return 0
	}
	avgWin := winSum / float64(wins)
	if avgLoss == 0 {
		return ratioSentinel
	}
	return avgWin / avgLoss
}

// sharpeRatio is mean over population standard deviation of the stepwise
// equity returns. Zero when the curve never moves.
func sharpeRatio(balances []float64) float64 {
	returns := formulas.CalculateReturns(balances)
	if len(returns) == 0 {
		return 0
	}
	sd := formulas.PopStdDev(returns)
	if sd == 0 {
		return 0
	}
	return formulas.Mean(returns) / sd
}

// FormattedMetrics carries boundary-rounded metric values. Percentages
// and ratios round to one decimal, the Sharpe ratio and win/loss ratio
// to two.
type FormattedMetrics struct {
	WinRate      float64 `json:"win_rate"`
	TotalTrades  int     `json:"total_trades"`
	ProfitFactor float64 `json:"profit_factor"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	AvgWinLoss   float64 `json:"avg_win_loss"`
	TotalReturn  float64 `json:"total_return"`
}

// Format rounds metrics for presentation. The drawdown converts from a
// fraction to a percentage on the way out.
func (m Metrics) Format() FormattedMetrics {
	return FormattedMetrics{
		WinRate:      round(m.WinRate, 1),
		TotalTrades:  m.TotalTrades,
		ProfitFactor: round(m.ProfitFactor, 2),
		MaxDrawdown:  round(m.MaxDrawdown*100, 1),
		SharpeRatio:  round(m.SharpeRatio, 2),
		AvgWinLoss:   round(m.AvgWinLoss, 2),
		TotalReturn:  round(m.TotalReturn, 1),
	}
}

func round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
