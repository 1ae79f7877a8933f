package results

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/minelab/botmine/internal/modules/backtest"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE backtest_results (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			config_id TEXT NOT NULL,
			config_name TEXT NOT NULL,
			asset TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			techniques TEXT NOT NULL,
			win_rate REAL NOT NULL,
			total_trades INTEGER NOT NULL,
			profit_factor REAL NOT NULL,
			max_drawdown REAL NOT NULL,
			sharpe_ratio REAL NOT NULL,
			avg_win_loss REAL NOT NULL,
			total_return REAL NOT NULL,
			trades BLOB NOT NULL,
			equity BLOB NOT NULL,
			executed_at INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)

	return db
}

func sampleResult(id string, executedAt time.Time) *backtest.BacktestResult {
	entry := executedAt.Add(-2 * time.Hour)
	return &backtest.BacktestResult{
		ID:         id,
		RunID:      "run-1",
		UserID:     "u1",
		ConfigID:   "cfg-1",
		ConfigName: "test_bot",
		Asset:      "EURUSD",
		Timeframe:  "M15",
		Techniques: map[string]int{"SPP": 100},
		Metrics: backtest.Metrics{
			WinRate:      70,
			TotalTrades:  10,
			ProfitFactor: 4.67,
			MaxDrawdown:  0.1,
			SharpeRatio:  1.2,
			AvgWinLoss:   2,
			TotalReturn:  5.5,
		},
		Trades: []backtest.Trade{
			{
				Position:  backtest.Position{Type: backtest.Long, EntryPrice: 1.08, EntryTime: entry, Size: 200, Technique: "SPP"},
				ExitPrice: 1.09,
				ExitTime:  executedAt,
				PnL:       1.85,
				Duration:  2 * time.Hour,
				IsWin:     true,
			},
		},
		Equity: []backtest.EquityPoint{
			{Timestamp: entry, Balance: 10000},
			{Timestamp: executedAt, Balance: 10001.85},
		},
		ExecutedAt: executedAt,
	}
}

func TestSaveAndListRoundTrip(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	now := time.Now().Truncate(time.Second)
	require.NoError(t, repo.Save(sampleResult("r1", now)))

	// Without detail the blobs stay packed
	summaries, err := repo.ListByUser("u1", 0, false)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Empty(t, summaries[0].Trades)
	assert.InDelta(t, 1.2, summaries[0].Metrics.SharpeRatio, 1e-9)
	assert.Equal(t, map[string]int{"SPP": 100}, summaries[0].Techniques)

	// With detail the trades and equity curve come back intact
	detailed, err := repo.ListByUser("u1", 0, true)
	require.NoError(t, err)
	require.Len(t, detailed, 1)
	require.Len(t, detailed[0].Trades, 1)
	assert.Equal(t, backtest.Long, detailed[0].Trades[0].Type)
	assert.InDelta(t, 1.85, detailed[0].Trades[0].PnL, 1e-9)
	require.Len(t, detailed[0].Equity, 2)
	assert.InDelta(t, 10001.85, detailed[0].Equity[1].Balance, 1e-9)
}

func TestListByUserRespectsLimitAndOrder(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	now := time.Now().Truncate(time.Second)
	require.NoError(t, repo.Save(sampleResult("old", now.Add(-time.Hour))))
	require.NoError(t, repo.Save(sampleResult("new", now)))

	listed, err := repo.ListByUser("u1", 1, false)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "new", listed[0].ID)
}

func TestListByUserScoped(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	require.NoError(t, repo.Save(sampleResult("r1", time.Now())))

	listed, err := repo.ListByUser("someone-else", 0, false)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestDeleteOlderThan(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	now := time.Now().Truncate(time.Second)
	require.NoError(t, repo.Save(sampleResult("stale", now.AddDate(0, 0, -100))))
	require.NoError(t, repo.Save(sampleResult("fresh", now)))

	deleted, err := repo.DeleteOlderThan(now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := repo.ListByUser("u1", 0, false)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "fresh", remaining[0].ID)

	count, err := repo.Count("u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
