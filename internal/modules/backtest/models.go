// Package backtest implements the synthetic backtest engine: price path
// generation, strategy simulation and metric computation.
package backtest

import (
	"sort"
	"time"
)

// PricePoint is one OHLCV bar of the synthetic series
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// PriceSeries is an ordered, finite sequence of hourly bars
type PriceSeries []PricePoint

// PositionType is the direction of an open position
type PositionType string

const (
	Long  PositionType = "LONG"
	Short PositionType = "SHORT"
)

// Position is transient simulation state between entry and exit.
// At most one position is open at a time per simulation run.
type Position struct {
	Type       PositionType `json:"type"`
	EntryPrice float64      `json:"entry_price"`
	EntryTime  time.Time    `json:"entry_time"`
	Size       float64      `json:"size"`
	Technique  string       `json:"technique"`
}

// Trade is a closed position
type Trade struct {
	Position
	ExitPrice float64       `json:"exit_price" msgpack:"exit_price"`
	ExitTime  time.Time     `json:"exit_time" msgpack:"exit_time"`
	PnL       float64       `json:"pnl" msgpack:"pnl"`
	Duration  time.Duration `json:"duration" msgpack:"duration"`
	IsWin     bool          `json:"is_win" msgpack:"is_win"`
}

// EquityPoint is the account value at one bar: realized balance plus the
// unrealized P&L of any open position.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
	Balance   float64   `json:"balance" msgpack:"balance"`
}

// SimulationOutput is the raw outcome of one simulation run
type SimulationOutput struct {
	Trades       []Trade       `json:"trades"`
	Equity       []EquityPoint `json:"equity"`
	FinalBalance float64       `json:"final_balance"`
}

// Metrics are the summary statistics of one simulation run. Ratios are
// kept numeric here; formatting happens at the API boundary.
type Metrics struct {
	WinRate      float64 `json:"win_rate"`      // percent, 0-100
	TotalTrades  int     `json:"total_trades"`  //
	ProfitFactor float64 `json:"profit_factor"` // 999 when there are wins but no losses
	MaxDrawdown  float64 `json:"max_drawdown"`  // fraction, 0.1 = 10%
	SharpeRatio  float64 `json:"sharpe_ratio"`  //
	AvgWinLoss   float64 `json:"avg_win_loss"`  //
	TotalReturn  float64 `json:"total_return"`  // percent
}

// BacktestResult is the immutable outcome of one (configuration, run) pair
type BacktestResult struct {
	ID         string         `json:"id"`
	RunID      string         `json:"run_id"`
	UserID     string         `json:"user_id"`
	ConfigID   string         `json:"config_id"`
	ConfigName string         `json:"config_name"`
	Asset      string         `json:"asset"`
	Timeframe  string         `json:"timeframe"`
	Techniques map[string]int `json:"techniques"`
	Metrics    Metrics        `json:"metrics"`
	Trades     []Trade        `json:"trades,omitempty"`
	Equity     []EquityPoint  `json:"equity,omitempty"`
	ExecutedAt time.Time      `json:"executed_at"`
}

// PrimaryTechnique mirrors the configuration convention: first technique
// name in lexical order, SPP when the map is empty.
func (r *BacktestResult) PrimaryTechnique() string {
	if len(r.Techniques) == 0 {
		return fallbackTechnique
	}
	names := make([]string, 0, len(r.Techniques))
	for name := range r.Techniques {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0]
}
