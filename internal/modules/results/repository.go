// Package results persists backtest outcomes. Metric columns stay
// queryable; the per-trade and equity detail is packed into msgpack
// blobs since it is only ever read back whole.
package results

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/minelab/botmine/internal/modules/backtest"
)

// Repository stores and retrieves backtest results
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new results repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "results").Logger(),
	}
}

// Save persists one result
func (r *Repository) Save(result *backtest.BacktestResult) error {
	techniques, err := json.Marshal(result.Techniques)
	if err != nil {
		return fmt.Errorf("failed to encode techniques: %w", err)
	}
	trades, err := msgpack.Marshal(result.Trades)
	if err != nil {
		return fmt.Errorf("failed to encode trades: %w", err)
	}
	equity, err := msgpack.Marshal(result.Equity)
	if err != nil {
		return fmt.Errorf("failed to encode equity curve: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO backtest_results
		(id, run_id, user_id, config_id, config_name, asset, timeframe, techniques,
		 win_rate, total_trades, profit_factor, max_drawdown, sharpe_ratio,
		 avg_win_loss, total_return, trades, equity, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.ID, result.RunID, result.UserID, result.ConfigID, result.ConfigName,
		result.Asset, result.Timeframe, string(techniques),
		result.Metrics.WinRate, result.Metrics.TotalTrades, result.Metrics.ProfitFactor,
		result.Metrics.MaxDrawdown, result.Metrics.SharpeRatio,
		result.Metrics.AvgWinLoss, result.Metrics.TotalReturn,
		trades, equity, result.ExecutedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert result %s: %w", result.ID, err)
	}
	return nil
}

// ListByUser returns a user's results, newest first, up to limit.
// A non-positive limit returns everything. Detail blobs are decoded
// only when withDetail is set.
func (r *Repository) ListByUser(userID string, limit int, withDetail bool) ([]backtest.BacktestResult, error) {
	query := `
		SELECT id, run_id, user_id, config_id, config_name, asset, timeframe, techniques,
		       win_rate, total_trades, profit_factor, max_drawdown, sharpe_ratio,
		       avg_win_loss, total_return, trades, equity, executed_at
		FROM backtest_results
		WHERE user_id = ?
		ORDER BY executed_at DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []backtest.BacktestResult
	for rows.Next() {
		var (
			res            backtest.BacktestResult
			techniques     string
			trades, equity []byte
			executedAt     int64
		)
		err := rows.Scan(
			&res.ID, &res.RunID, &res.UserID, &res.ConfigID, &res.ConfigName,
			&res.Asset, &res.Timeframe, &techniques,
			&res.Metrics.WinRate, &res.Metrics.TotalTrades, &res.Metrics.ProfitFactor,
			&res.Metrics.MaxDrawdown, &res.Metrics.SharpeRatio,
			&res.Metrics.AvgWinLoss, &res.Metrics.TotalReturn,
			&trades, &equity, &executedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		if err := json.Unmarshal([]byte(techniques), &res.Techniques); err != nil {
			return nil, fmt.Errorf("failed to decode techniques for %s: %w", res.ID, err)
		}
		if withDetail {
			if err := msgpack.Unmarshal(trades, &res.Trades); err != nil {
				return nil, fmt.Errorf("failed to decode trades for %s: %w", res.ID, err)
			}
			if err := msgpack.Unmarshal(equity, &res.Equity); err != nil {
				return nil, fmt.Errorf("failed to decode equity curve for %s: %w", res.ID, err)
			}
		}
		res.ExecutedAt = time.Unix(executedAt, 0)

		results = append(results, res)
	}
	return results, rows.Err()
}

// DeleteOlderThan removes results executed before the cutoff and returns
// how many were deleted
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec("DELETE FROM backtest_results WHERE executed_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired results: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		r.log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("Expired results removed")
	}
	return deleted, nil
}

// Count returns how many results a user has stored
func (r *Repository) Count(userID string) (int, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM backtest_results WHERE user_id = ?", userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return n, nil
}
