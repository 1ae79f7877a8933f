package backtest

import (
	"time"

	talib "github.com/markcheno/go-talib"

	"github.com/minelab/botmine/internal/modules/bots"
)

const (
	// Fraction of the current balance risked per trade
	riskPerTrade = 0.02

	// Stop-loss magnitude relative to the profit target
	stopLossRatio = 0.6

	// Forced-exit hold window bounds, in hours. The max hold is redrawn
	// uniformly inside this window on every exit evaluation.
	minHoldHours  = 4.0
	holdSpanHours = 20.0

	// Volume spike threshold relative to the previous bar
	volumeSpikeRatio = 1.5

	fallbackTechnique = bots.FallbackTechnique
)

// TechniqueParams are the entry/exit constants of one technique
type TechniqueParams struct {
	EntryThreshold   float64
	ExitThreshold    float64
	RiskMultiplier   float64
	EntryProbability float64
}

// Hand-tuned per-technique constants, preserved as-is. Do not rederive.
var techniqueParams = map[string]TechniqueParams{
	"SPP":                      {EntryThreshold: 0.002, ExitThreshold: 0.005, RiskMultiplier: 1.0, EntryProbability: 0.15},
	"WFM":                      {EntryThreshold: 0.0015, ExitThreshold: 0.008, RiskMultiplier: 1.2, EntryProbability: 0.12},
	"MC Trade":                 {EntryThreshold: 0.003, ExitThreshold: 0.004, RiskMultiplier: 0.8, EntryProbability: 0.20},
	"MC Lento":                 {EntryThreshold: 0.001, ExitThreshold: 0.010, RiskMultiplier: 1.5, EntryProbability: 0.08},
	"Secuencial":               {EntryThreshold: 0.0025, ExitThreshold: 0.006, RiskMultiplier: 1.1, EntryProbability: 0.10},
	"High Back Test Precision": {EntryThreshold: 0.0005, ExitThreshold: 0.012, RiskMultiplier: 2.0, EntryProbability: 0.05},
}

const defaultEntryProbability = 0.10

// ResolveTechniqueParams is the single fallback point for technique
// lookups: a known technique returns its own constants, an unknown one
// returns SPP thresholds with the default entry probability.
func ResolveTechniqueParams(technique string) TechniqueParams {
	if p, ok := techniqueParams[technique]; ok {
		return p
	}
	p := techniqueParams[fallbackTechnique]
	p.EntryProbability = defaultEntryProbability
	return p
}

// Simulator replays a price series against one configuration
type Simulator struct {
	rng            Source
	initialBalance float64
}

// NewSimulator creates a simulator with the given randomness source and
// starting balance
func NewSimulator(rng Source, initialBalance float64) *Simulator {
	return &Simulator{rng: rng, initialBalance: initialBalance}
}

// Simulate runs the two-state (flat / in-position) machine over the
// series. One equity point is appended per bar; the equity curve has the
// same length as the price series.
func (s *Simulator) Simulate(cfg *bots.Configuration, series PriceSeries) SimulationOutput {
	out := SimulationOutput{FinalBalance: s.initialBalance}
	if len(series) == 0 {
		return out
	}

	balance := s.initialBalance
	out.Equity = append(out.Equity, EquityPoint{Timestamp: series[0].Timestamp, Balance: balance})

	params := ResolveTechniqueParams(cfg.PrimaryTechnique())
	atrFactors := atrSensitivity(cfg, series)

	var position *Position

	for i := 1; i < len(series); i++ {
		current := series[i]
		previous := series[i-1]

		if position == nil && s.shouldEnter(current, previous, params, atrFactors[i]) {
			position = &Position{
				Type:       s.pickDirection(cfg),
				EntryPrice: current.Close,
				EntryTime:  current.Timestamp,
				Size:       balance * riskPerTrade,
				Technique:  s.pickTechnique(cfg),
			}
		} else if position != nil && s.shouldExit(current, position, params, atrFactors[i]) {
			pnl := unrealizedPnL(position, current.Close)
			balance += pnl

			out.Trades = append(out.Trades, Trade{
				Position:  *position,
				ExitPrice: current.Close,
				ExitTime:  current.Timestamp,
				PnL:       pnl,
				Duration:  current.Timestamp.Sub(position.EntryTime),
				IsWin:     pnl > 0,
			})
			position = nil
		}

		out.Equity = append(out.Equity, EquityPoint{
			Timestamp: current.Timestamp,
			Balance:   balance + unrealizedPnL(position, current.Close),
		})
	}

	out.FinalBalance = balance
	return out
}

// shouldEnter requires both a probability draw and a market trigger:
// a price move beyond the technique threshold, or a volume spike.
func (s *Simulator) shouldEnter(current, previous PricePoint, params TechniqueParams, atrFactor float64) bool {
	if s.rng.Float64() >= params.EntryProbability {
		return false
	}

	priceChange := (current.Close - previous.Close) / previous.Close
	volumeSpike := current.Volume > previous.Volume*volumeSpikeRatio

	return abs(priceChange) > params.EntryThreshold*atrFactor || volumeSpike
}

// shouldExit forces an exit after a randomly drawn max-hold window, or
// when the move from entry crosses the profit target or stop loss.
func (s *Simulator) shouldExit(current PricePoint, position *Position, params TechniqueParams, atrFactor float64) bool {
	holdTime := current.Timestamp.Sub(position.EntryTime)
	maxHold := time.Duration((minHoldHours + s.rng.Float64()*holdSpanHours) * float64(time.Hour))
	if holdTime > maxHold {
		return true
	}

	priceChange := (current.Close - position.EntryPrice) / position.EntryPrice
	profitTarget := params.ExitThreshold * atrFactor
	stopLoss := -profitTarget * stopLossRatio

	if position.Type == Long {
		return priceChange > profitTarget || priceChange < stopLoss
	}
	return priceChange < -profitTarget || priceChange > -stopLoss
}

// pickDirection honors the configured trade direction; "both" draws
// uniformly at random.
func (s *Simulator) pickDirection(cfg *bots.Configuration) PositionType {
	switch cfg.Direction {
	case "long":
		return Long
	case "short":
		return Short
	}
	if s.rng.Float64() > 0.5 {
		return Long
	}
	return Short
}

// pickTechnique tags the position with a technique sampled in proportion
// to the configuration's simulation-count weights.
func (s *Simulator) pickTechnique(cfg *bots.Configuration) string {
	if t := PickWeighted(cfg.Techniques, s.rng.Float64()); t != "" {
		return t
	}
	return cfg.PrimaryTechnique()
}

// unrealizedPnL is the directional P&L of an open position against a
// price; zero when flat.
func unrealizedPnL(position *Position, price float64) float64 {
	if position == nil {
		return 0
	}
	priceChange := (price - position.EntryPrice) / position.EntryPrice
	if position.Type == Short {
		priceChange = -priceChange
	}
	return position.Size * priceChange
}

// atrSensitivity returns a per-bar factor that widens or tightens the
// entry/exit thresholds with realized volatility. The ATR relative to
// price is compared against the symbol's baseline volatility and scaled
// by the configuration's ATR multiplier midpoint (neutral at the default
// 1.0-3.0 range). Factors are clamped to [0.5, 2.0]; warmup bars get 1.
func atrSensitivity(cfg *bots.Configuration, series PriceSeries) []float64 {
	factors := make([]float64, len(series))
	for i := range factors {
		factors[i] = 1.0
	}
	if len(series) < 3 {
		return factors
	}

	period := (cfg.ATRPeriodMin + cfg.ATRPeriodMax) / 2
	if period < 1 {
		period = 14
	}
	if period >= len(series) {
		period = len(series) - 1
	}

	highs := make([]float64, len(series))
	lows := make([]float64, len(series))
	closes := make([]float64, len(series))
	for i, p := range series {
		highs[i] = p.High
		lows[i] = p.Low
		closes[i] = p.Close
	}

	atr := talib.Atr(highs, lows, closes, period)

	baseline := Volatility(cfg.Asset)
	multiplier := (cfg.ATRMultiplierMin + cfg.ATRMultiplierMax) / 2
	if multiplier <= 0 {
		multiplier = 2.0
	}

	for i := range series {
		if atr[i] <= 0 || closes[i] <= 0 {
			continue
		}
		factor := (atr[i] / closes[i]) / baseline * (multiplier / 2.0)
		if factor < 0.5 {
			factor = 0.5
		} else if factor > 2.0 {
			factor = 2.0
		}
		factors[i] = factor
	}

	return factors
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
