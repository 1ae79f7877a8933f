package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/minelab/botmine/internal/events"
	"github.com/minelab/botmine/internal/modules/bots"
)

// InputError marks a failure in the submitted configurations rather than
// in the engine. Handlers map it to a 400.
type InputError struct {
	msg string
}

func (e *InputError) Error() string { return e.msg }

// IsInputError reports whether err is a request validation failure
func IsInputError(err error) bool {
	_, ok := err.(*InputError)
	return ok
}

// ResultStore persists backtest results
type ResultStore interface {
	Save(result *BacktestResult) error
}

// BotUpserter records the headline outcome of each simulated
// configuration as an idempotent monthly bot record
type BotUpserter interface {
	UpsertBot(rec bots.BotRecord) error
}

// Runner executes a batch of configurations sequentially and publishes
// progress on the event bus.
type Runner struct {
	prices *PriceGenerator
	sim    *Simulator
	store  ResultStore
	bots   BotUpserter
	bus    *events.Bus
	log    zerolog.Logger
	days   int
	pacing time.Duration
}

// RunnerOptions tune a Runner beyond its collaborators
type RunnerOptions struct {
	InitialBalance float64
	SeriesDays     int
	// Pacing inserts a delay between configurations so progress events
	// arrive at a human-observable rate. Zero disables it.
	Pacing time.Duration
}

// NewRunner creates a runner. The randomness source is shared between
// price generation and simulation.
func NewRunner(rng Source, store ResultStore, botStore BotUpserter, bus *events.Bus, log zerolog.Logger, opts RunnerOptions) *Runner {
	return &Runner{
		prices: NewPriceGenerator(rng),
		sim:    NewSimulator(rng, opts.InitialBalance),
		store:  store,
		bots:   botStore,
		bus:    bus,
		log:    log.With().Str("component", "backtest_runner").Logger(),
		days:   opts.SeriesDays,
		pacing: opts.Pacing,
	}
}

// Run simulates every configuration in order and returns the results
// sorted by Sharpe ratio, best first. All configurations are validated
// before the first simulation starts, so a bad batch fails without
// producing partial results. Cancellation is honored between
// configurations; completed results are persisted as they are produced.
func (r *Runner) Run(ctx context.Context, userID string, configs []bots.Configuration) ([]BacktestResult, error) {
	if len(configs) == 0 {
		return nil, &InputError{msg: "no configurations to run"}
	}
	for i := range configs {
		if err := configs[i].Validate(); err != nil {
			return nil, &InputError{msg: fmt.Sprintf("configuration %q: %v", configs[i].Name, err)}
		}
	}

	runID := uuid.New().String()
	started := time.Now()
	monthKey := started.Format("2006-01")

	r.log.Info().
		Str("run_id", runID).
		Str("user_id", userID).
		Int("configs", len(configs)).
		Msg("Backtest run started")

	r.publish(events.BacktestStarted, events.BacktestStartedData{
		RunID:   runID,
		UserID:  userID,
		Configs: len(configs),
	})

	results := make([]BacktestResult, 0, len(configs))
	for i := range configs {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("backtest run %s cancelled: %w", runID, err)
		}
		cfg := &configs[i]

		series := r.prices.Generate(cfg.Asset, r.days)
		output := r.sim.Simulate(cfg, series)

		result := BacktestResult{
			ID:         uuid.New().String(),
			RunID:      runID,
			UserID:     userID,
			ConfigID:   cfg.ID,
			ConfigName: cfg.Name,
			Asset:      cfg.Asset,
			Timeframe:  cfg.Timeframe,
			Techniques: cfg.Techniques,
			Metrics:    ComputeMetrics(output.Trades, output.Equity),
			Trades:     output.Trades,
			Equity:     output.Equity,
			ExecutedAt: time.Now(),
		}

		if r.store != nil {
			if err := r.store.Save(&result); err != nil {
				return results, fmt.Errorf("failed to persist result for %s: %w", cfg.Name, err)
			}
		}
		if r.bots != nil {
			rec := bots.BotRecord{
				UserID:      userID,
				Name:        cfg.Name,
				MonthKey:    monthKey,
				Asset:       cfg.Asset,
				Timeframe:   cfg.Timeframe,
				SharpeRatio: result.Metrics.SharpeRatio,
				WinRate:     result.Metrics.WinRate,
				TotalReturn: result.Metrics.TotalReturn,
			}
			if err := r.bots.UpsertBot(rec); err != nil {
				return results, fmt.Errorf("failed to upsert bot record for %s: %w", cfg.Name, err)
			}
		}

		results = append(results, result)

		r.publish(events.BacktestProgress, events.BacktestProgressData{
			RunID:      runID,
			ConfigID:   cfg.ID,
			ConfigName: cfg.Name,
			Completed:  len(results),
			Total:      len(configs),
			Percent:    float64(len(results)) / float64(len(configs)) * 100,
		})

		if r.pacing > 0 && i < len(configs)-1 {
			select {
			case <-ctx.Done():
				return results, fmt.Errorf("backtest run %s cancelled: %w", runID, ctx.Err())
			case <-time.After(r.pacing):
			}
		}
	}

	// Best Sharpe first; ties keep submission order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Metrics.SharpeRatio > results[j].Metrics.SharpeRatio
	})

	r.publish(events.BacktestCompleted, events.BacktestCompletedData{
		RunID:    runID,
		UserID:   userID,
		Results:  len(results),
		Duration: time.Since(started).Seconds(),
	})

	r.log.Info().
		Str("run_id", runID).
		Int("results", len(results)).
		Dur("elapsed", time.Since(started)).
		Msg("Backtest run completed")

	return results, nil
}

func (r *Runner) publish(eventType events.EventType, data interface{}) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(eventType, "backtest", data)
}
