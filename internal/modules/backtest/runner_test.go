package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minelab/botmine/internal/events"
	"github.com/minelab/botmine/internal/modules/bots"
)

type fakeStore struct {
	saved []BacktestResult
}

func (f *fakeStore) Save(result *BacktestResult) error {
	f.saved = append(f.saved, *result)
	return nil
}

type fakeBotStore struct {
	records []bots.BotRecord
}

func (f *fakeBotStore) UpsertBot(rec bots.BotRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func newTestRunner(store ResultStore, botStore BotUpserter, bus *events.Bus) *Runner {
	return NewRunner(&seqSource{values: []float64{0.1, 0.6, 0.3, 0.9}}, store, botStore, bus, zerolog.Nop(), RunnerOptions{
		InitialBalance: 10000,
		SeriesDays:     1,
	})
}

func TestRunEmptyBatchIsInputError(t *testing.T) {
	runner := newTestRunner(nil, nil, nil)

	_, err := runner.Run(context.Background(), "u1", nil)
	require.Error(t, err)
	assert.True(t, IsInputError(err))
}

func TestRunValidatesBeforeSimulating(t *testing.T) {
	store := &fakeStore{}
	runner := newTestRunner(store, nil, nil)

	bad := *testConfig("both")
	bad.Asset = ""

	_, err := runner.Run(context.Background(), "u1", []bots.Configuration{*testConfig("both"), bad})
	require.Error(t, err)
	assert.True(t, IsInputError(err))
	assert.Empty(t, store.saved, "no simulation may run when any configuration is invalid")
}

func TestRunProducesSortedPersistedResults(t *testing.T) {
	store := &fakeStore{}
	botStore := &fakeBotStore{}
	bus := events.NewBus()

	var progress []events.Event
	bus.Subscribe(events.BacktestProgress, func(e *events.Event) {
		progress = append(progress, *e)
	})
	var completed int
	bus.Subscribe(events.BacktestCompleted, func(e *events.Event) {
		completed++
	})

	runner := newTestRunner(store, botStore, bus)

	cfgA := *testConfig("both")
	cfgA.ID = "cfg-a"
	cfgB := *testConfig("both")
	cfgB.ID = "cfg-b"
	cfgB.Name = "sim_test_b"

	results, err := runner.Run(context.Background(), "u1", []bots.Configuration{cfgA, cfgB})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Sorted best Sharpe first
	assert.GreaterOrEqual(t, results[0].Metrics.SharpeRatio, results[1].Metrics.SharpeRatio)

	// Every result shares the run ID and was persisted
	assert.Equal(t, results[0].RunID, results[1].RunID)
	assert.Len(t, store.saved, 2)

	require.Len(t, botStore.records, 2)
	assert.Equal(t, time.Now().Format("2006-01"), botStore.records[0].MonthKey)
	assert.Equal(t, "u1", botStore.records[0].UserID)

	require.Len(t, progress, 2)
	data, ok := progress[1].Data.(events.BacktestProgressData)
	require.True(t, ok)
	assert.Equal(t, 2, data.Completed)
	assert.Equal(t, 2, data.Total)
	assert.InDelta(t, 100.0, data.Percent, 1e-9)
	assert.Equal(t, 1, completed)
}

func TestRunHonorsCancellation(t *testing.T) {
	runner := newTestRunner(&fakeStore{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := runner.Run(ctx, "u1", []bots.Configuration{*testConfig("both")})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}
