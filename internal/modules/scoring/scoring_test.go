package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minelab/botmine/internal/modules/backtest"
)

func metrics(sharpe, winRate, pf, drawdown float64, trades int) backtest.Metrics {
	return backtest.Metrics{
		SharpeRatio:  sharpe,
		WinRate:      winRate,
		ProfitFactor: pf,
		MaxDrawdown:  drawdown,
		TotalTrades:  trades,
	}
}

func TestScoreStaysInRange(t *testing.T) {
	cases := []backtest.Metrics{
		{},
		metrics(5, 95, 10, 0.001, 500),
		metrics(-3, 0, 0, 0.9, 1),
		metrics(3.5, 92, 4, 0, 3),
	}
	for _, m := range cases {
		score, _ := Score(m)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
	}
}

func TestScoreAdditiveModel(t *testing.T) {
	// 40 base + 20 (sharpe>1) + 15 (winRate>60) + 12 (pf>1.5) + 8 (dd<10)
	// + 3 (>=20 trades) + 5 consistency bonus = 103, clamped to 100
	score, _ := Score(metrics(1.2, 65, 1.8, 0.05, 25))
	assert.Equal(t, 100.0, score)

	// 40 base + 5 (sharpe>0) + 5 (winRate<=40) + 0 (pf<=0.8) + 0 (dd>=30) + 0 trades
	score, _ = Score(metrics(0.1, 30, 0.5, 0.35, 2))
	assert.Equal(t, 50.0, score)
}

func TestScoreSharpeMonotonicity(t *testing.T) {
	base := metrics(0, 55, 1.3, 0.12, 30)
	prev := -1.0
	for _, sharpe := range []float64{0.1, 0.6, 1.1, 1.6, 2.1, 3.1} {
		m := base
		m.SharpeRatio = sharpe
		score, _ := Score(m)
		assert.GreaterOrEqual(t, score, prev, "sharpe %f must not lower the score", sharpe)
		prev = score
	}
}

func TestScoreSuspicionPenalties(t *testing.T) {
	// Same headline numbers, thin sample vs healthy sample
	thin, _ := Score(metrics(0.6, 95, 1.0, 0.05, 5))
	healthy, _ := Score(metrics(0.6, 95, 1.0, 0.05, 50))
	assert.Less(t, thin, healthy)

	// Zero drawdown with trades present is suspicious
	zeroDD, _ := Score(metrics(0.6, 55, 1.3, 0, 30))
	smallDD, _ := Score(metrics(0.6, 55, 1.3, 0.01, 30))
	assert.Less(t, zeroDD, smallDD)
}

func TestRankIsStableOnTies(t *testing.T) {
	m := metrics(1.2, 65, 1.8, 0.05, 25)
	results := []backtest.BacktestResult{
		{ID: "first", Metrics: m},
		{ID: "second", Metrics: m},
		{ID: "third", Metrics: m},
	}

	ranked := Rank(results)
	require.Len(t, ranked, 3)
	assert.Equal(t, "first", ranked[0].Result.ID)
	assert.Equal(t, "second", ranked[1].Result.ID)
	assert.Equal(t, "third", ranked[2].Result.ID)
}

func TestRankOrdersByScore(t *testing.T) {
	results := []backtest.BacktestResult{
		{ID: "weak", Metrics: metrics(0.1, 30, 0.5, 0.35, 2)},
		{ID: "strong", Metrics: metrics(2.5, 75, 2.5, 0.04, 120)},
	}

	ranked := Rank(results)
	assert.Equal(t, "strong", ranked[0].Result.ID)
	assert.Equal(t, "weak", ranked[1].Result.ID)
}

func TestBreakdownLabels(t *testing.T) {
	_, breakdown := Score(metrics(2.5, 75, 2.5, 0.04, 120))
	assert.Equal(t, "Excelente", breakdown.Sharpe)
	assert.Equal(t, "Excelente", breakdown.WinRate)
	assert.Equal(t, "Excelente", breakdown.Drawdown)

	_, breakdown = Score(metrics(0.1, 30, 0.5, 0.35, 2))
	assert.Equal(t, "Deficiente", breakdown.Sharpe)
	assert.Equal(t, "Deficiente", breakdown.WinRate)
	assert.Equal(t, "Deficiente", breakdown.Drawdown)
}
