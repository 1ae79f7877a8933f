package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minelab/botmine/internal/modules/backtest"
)

func result(technique, asset, timeframe string, m backtest.Metrics) backtest.BacktestResult {
	return backtest.BacktestResult{
		Asset:      asset,
		Timeframe:  timeframe,
		Techniques: map[string]int{technique: 100},
		Metrics:    m,
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	assert.Nil(t, Analyze(nil))
	assert.Nil(t, Analyze([]backtest.BacktestResult{}))
}

func TestAnalyzeSingleGroupSynergyIsZero(t *testing.T) {
	results := []backtest.BacktestResult{
		result("SPP", "EURUSD", "M15", backtest.Metrics{SharpeRatio: 1.5, WinRate: 60, ProfitFactor: 1.8, MaxDrawdown: 0.05, TotalReturn: 8, TotalTrades: 40}),
		result("SPP", "EURUSD", "M15", backtest.Metrics{SharpeRatio: 0.5, WinRate: 50, ProfitFactor: 1.2, MaxDrawdown: 0.08, TotalReturn: 4, TotalTrades: 30}),
	}

	a := Analyze(results)
	require.NotNil(t, a)

	require.Len(t, a.Correlations, 1)
	cell, ok := a.Correlations["SPP-EURUSD"]
	require.True(t, ok)
	assert.Equal(t, 2, cell.Count)
	assert.InDelta(t, 0.0, cell.Synergy, 1e-9)
}

func TestAnalyzeTechniqueGroupStats(t *testing.T) {
	results := []backtest.BacktestResult{
		result("SPP", "EURUSD", "M15", backtest.Metrics{SharpeRatio: 2, WinRate: 70, ProfitFactor: 2, MaxDrawdown: 0.05, TotalReturn: 10}),
		result("SPP", "GOLD", "H1", backtest.Metrics{SharpeRatio: 1, WinRate: 50, ProfitFactor: 1, MaxDrawdown: 0.05, TotalReturn: 6}),
	}

	a := Analyze(results)
	require.NotNil(t, a)

	spp := a.Techniques["SPP"]
	require.NotNil(t, spp)
	assert.Equal(t, 2, spp.Count)
	assert.InDelta(t, 1.5, spp.AvgSharpe, 1e-9)
	assert.InDelta(t, 60.0, spp.AvgWinRate, 1e-9)
	assert.InDelta(t, 8.0, spp.AvgReturn, 1e-9)

	// Identical drawdowns: zero variance means consistency 1
	assert.Equal(t, 1.0, spp.Consistency)
	assert.InDelta(t, 0.4*1.5+0.003*60+0.3*1+0.3*1.5, spp.Reliability, 1e-9)
}

func TestAnalyzeAssetVolatilityAndConsistency(t *testing.T) {
	results := []backtest.BacktestResult{
		result("SPP", "BTC", "M15", backtest.Metrics{SharpeRatio: 3}),
		result("WFM", "BTC", "M15", backtest.Metrics{SharpeRatio: 1}),
	}

	a := Analyze(results)
	btc := a.Assets["BTC"]
	require.NotNil(t, btc)
	assert.InDelta(t, 2.0, btc.Volatility, 1e-9)
	assert.InDelta(t, 0.5, btc.Consistency, 1e-9)
}

func TestAnalyzeTimeframeReliability(t *testing.T) {
	results := []backtest.BacktestResult{
		result("SPP", "EURUSD", "H1", backtest.Metrics{SharpeRatio: 2, WinRate: 60, TotalTrades: 50}),
	}

	a := Analyze(results)
	h1 := a.Timeframes["H1"]
	require.NotNil(t, h1)
	assert.InDelta(t, 0.5*2+0.002*60+0.01*50, h1.Reliability, 1e-9)
}

func TestAnalyzeMarketConditions(t *testing.T) {
	results := []backtest.BacktestResult{
		result("SPP", "EURUSD", "M15", backtest.Metrics{MaxDrawdown: 0.20, TotalReturn: 15}),  // high vol, trending, bullish
		result("SPP", "EURUSD", "M15", backtest.Metrics{MaxDrawdown: 0.05, TotalReturn: -2}), // low vol, ranging, bearish
	}

	a := Analyze(results)
	assert.Equal(t, 1, a.MarketConditions.HighVolatility)
	assert.Equal(t, 1, a.MarketConditions.LowVolatility)
	assert.Equal(t, 1, a.MarketConditions.Trending)
	assert.Equal(t, 1, a.MarketConditions.Ranging)
	assert.Equal(t, 1, a.MarketConditions.Bullish)
	assert.Equal(t, 1, a.MarketConditions.Bearish)
}

func TestAnalyzeRiskMetricsZeroGuards(t *testing.T) {
	// Identical results: stddev 0 means the ratios stay 0
	m := backtest.Metrics{SharpeRatio: 1.2, TotalReturn: 5}
	results := []backtest.BacktestResult{
		result("SPP", "EURUSD", "M15", m),
		result("SPP", "EURUSD", "M15", m),
	}

	a := Analyze(results)
	assert.Equal(t, 0.0, a.Risk.StdReturn)
	assert.Equal(t, 0.0, a.Risk.RiskAdjustedReturn)
	assert.Equal(t, 0.0, a.Risk.StabilityScore)
}

func TestAnalyzeRiskMetrics(t *testing.T) {
	results := []backtest.BacktestResult{
		result("SPP", "EURUSD", "M15", backtest.Metrics{SharpeRatio: 1, TotalReturn: 10}),
		result("SPP", "EURUSD", "M15", backtest.Metrics{SharpeRatio: 3, TotalReturn: 20}),
	}

	a := Analyze(results)
	assert.InDelta(t, 15.0, a.Risk.MeanReturn, 1e-9)
	assert.InDelta(t, 5.0, a.Risk.StdReturn, 1e-9) // population stddev
	assert.InDelta(t, 3.0, a.Risk.RiskAdjustedReturn, 1e-9)
	assert.InDelta(t, 2.0, a.Risk.StabilityScore, 1e-9)
}
