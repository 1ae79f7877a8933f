package backtest

import (
	"time"
)

// Base prices for known instruments. Unknown symbols fall back to 100.
var basePrices = map[string]float64{
	"EURUSD": 1.0850,
	"GBPUSD": 1.2650,
	"USDJPY": 150.25,
	"GOLD":   2350.00,
	"BTC":    45000.00,
	"ETH":    2800.00,
	"SPX500": 4500.00,
}

// Per-step volatility constants for known instruments. Unknown symbols
// fall back to 0.010.
var volatilities = map[string]float64{
	"EURUSD": 0.008,
	"GBPUSD": 0.010,
	"USDJPY": 0.009,
	"GOLD":   0.015,
	"BTC":    0.040,
	"ETH":    0.045,
	"SPX500": 0.012,
}

const (
	defaultBasePrice  = 100.00
	defaultVolatility = 0.010
	maxVolume         = 1_000_000.0
)

// PriceGenerator produces synthetic OHLCV series via a multiplicative
// random walk. Deterministic in structure, stochastic in values.
type PriceGenerator struct {
	rng Source
}

// NewPriceGenerator creates a generator drawing from the given source
func NewPriceGenerator(rng Source) *PriceGenerator {
	return &PriceGenerator{rng: rng}
}

// BasePrice returns the starting price for a symbol
func BasePrice(symbol string) float64 {
	if p, ok := basePrices[symbol]; ok {
		return p
	}
	return defaultBasePrice
}

// Volatility returns the per-step volatility constant for a symbol
func Volatility(symbol string) float64 {
	if v, ok := volatilities[symbol]; ok {
		return v
	}
	return defaultVolatility
}

// Generate produces days*24 hourly bars ending at now. Each step
// multiplies the price by (1 + u) where u is uniform, centered at zero
// and scaled by the symbol's volatility. Open/high/low are small uniform
// perturbations around the close. Always succeeds for positive days.
func (g *PriceGenerator) Generate(symbol string, days int) PriceSeries {
	if days <= 0 {
		return nil
	}

	steps := days * 24
	series := make(PriceSeries, 0, steps)

	price := BasePrice(symbol)
	volatility := Volatility(symbol)
	now := time.Now().Truncate(time.Hour)

	for i := 0; i < steps; i++ {
		change := (g.rng.Float64() - 0.5) * volatility
		price = price * (1 + change)

		series = append(series, PricePoint{
			Timestamp: now.Add(-time.Duration(steps-1-i) * time.Hour),
			Open:      price * (1 + (g.rng.Float64()-0.5)*0.001),
			High:      price * (1 + g.rng.Float64()*0.005),
			Low:       price * (1 - g.rng.Float64()*0.005),
			Close:     price,
			Volume:    g.rng.Float64() * maxVolume,
		})
	}

	return series
}
