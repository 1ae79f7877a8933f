package bots

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Repository handles CRUD operations for bot configurations and bot records
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new bots repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "bots").Logger(),
	}
}

// Create inserts a new configuration. The ID is assigned here.
func (r *Repository) Create(cfg Configuration) (*Configuration, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.ID = uuid.New().String()
	if cfg.Status == "" {
		cfg.Status = StatusActive
	}
	now := time.Now()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	techniques, err := json.Marshal(cfg.Techniques)
	if err != nil {
		return nil, fmt.Errorf("failed to encode techniques: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO bot_configurations
		(id, user_id, name, asset, timeframe, direction, entry_type, techniques,
		 atr_period_min, atr_period_max, atr_multiplier_min, atr_multiplier_max,
		 indicator_min, indicator_max, magic_number, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		cfg.ID, cfg.UserID, cfg.Name, cfg.Asset, cfg.Timeframe, cfg.Direction,
		cfg.EntryType, string(techniques),
		cfg.ATRPeriodMin, cfg.ATRPeriodMax, cfg.ATRMultiplierMin, cfg.ATRMultiplierMax,
		cfg.IndicatorMin, cfg.IndicatorMax, cfg.MagicNumber, string(cfg.Status),
		now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert configuration: %w", err)
	}

	return &cfg, nil
}

// Get returns one configuration by id, scoped to its owner
func (r *Repository) Get(userID, id string) (*Configuration, error) {
	row := r.db.QueryRow(selectConfiguration+" WHERE user_id = ? AND id = ?", userID, id)
	cfg, err := scanConfiguration(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("configuration %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration %s: %w", id, err)
	}
	return cfg, nil
}

// ListByUser returns all configurations owned by a user, newest first
func (r *Repository) ListByUser(userID string) ([]Configuration, error) {
	rows, err := r.db.Query(selectConfiguration+" WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list configurations: %w", err)
	}
	defer rows.Close()

	var configs []Configuration
	for rows.Next() {
		cfg, err := scanConfiguration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan configuration: %w", err)
		}
		configs = append(configs, *cfg)
	}
	return configs, rows.Err()
}

// UpdateStatus applies a status transition. Archived configurations are frozen.
func (r *Repository) UpdateStatus(userID, id string, status Status) error {
	current, err := r.Get(userID, id)
	if err != nil {
		return err
	}
	if !CanTransition(current.Status, status) {
		return fmt.Errorf("invalid status transition %s -> %s for configuration %s", current.Status, status, id)
	}

	_, err = r.db.Exec(
		"UPDATE bot_configurations SET status = ?, updated_at = ? WHERE user_id = ? AND id = ?",
		string(status), time.Now().Unix(), userID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

// Delete removes one configuration
func (r *Repository) Delete(userID, id string) error {
	res, err := r.db.Exec("DELETE FROM bot_configurations WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete configuration: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("configuration %s not found", id)
	}
	return nil
}

// MaxMagicNumber returns the highest magic number among a user's
// configurations, zero when there are none. The bulk generator continues
// numbering from here.
func (r *Repository) MaxMagicNumber(userID string) (int, error) {
	var magic sql.NullInt64
	err := r.db.QueryRow(
		"SELECT MAX(magic_number) FROM bot_configurations WHERE user_id = ?", userID,
	).Scan(&magic)
	if err != nil {
		return 0, fmt.Errorf("failed to query max magic number: %w", err)
	}
	return int(magic.Int64), nil
}

// BotRecord is the persisted outcome of a backtest run, keyed for
// idempotent upserts by (user, name, calendar month, asset, timeframe).
type BotRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	MonthKey    string    `json:"month_key"` // YYYY-MM
	Asset       string    `json:"asset"`
	Timeframe   string    `json:"timeframe"`
	SharpeRatio float64   `json:"sharpe_ratio"`
	WinRate     float64   `json:"win_rate"`
	TotalReturn float64   `json:"total_return"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpsertBot inserts or updates a bot record on its uniqueness key
func (r *Repository) UpsertBot(rec BotRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Status == "" {
		rec.Status = "unrated"
	}
	now := time.Now().Unix()

	_, err := r.db.Exec(`
		INSERT INTO bots
		(id, user_id, name, month_key, asset, timeframe, sharpe_ratio, win_rate,
		 total_return, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, name, month_key, asset, timeframe) DO UPDATE SET
			sharpe_ratio = excluded.sharpe_ratio,
			win_rate = excluded.win_rate,
			total_return = excluded.total_return,
			updated_at = excluded.updated_at
	`,
		rec.ID, rec.UserID, rec.Name, rec.MonthKey, rec.Asset, rec.Timeframe,
		rec.SharpeRatio, rec.WinRate, rec.TotalReturn, rec.Status, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert bot record: %w", err)
	}
	return nil
}

const selectConfiguration = `
	SELECT id, user_id, name, asset, timeframe, direction, entry_type, techniques,
	       atr_period_min, atr_period_max, atr_multiplier_min, atr_multiplier_max,
	       indicator_min, indicator_max, magic_number, status, created_at, updated_at
	FROM bot_configurations`

// scanner abstracts sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanConfiguration(s scanner) (*Configuration, error) {
	var cfg Configuration
	var techniques, status string
	var createdAt, updatedAt int64

	err := s.Scan(
		&cfg.ID, &cfg.UserID, &cfg.Name, &cfg.Asset, &cfg.Timeframe,
		&cfg.Direction, &cfg.EntryType, &techniques,
		&cfg.ATRPeriodMin, &cfg.ATRPeriodMax, &cfg.ATRMultiplierMin, &cfg.ATRMultiplierMax,
		&cfg.IndicatorMin, &cfg.IndicatorMax, &cfg.MagicNumber, &status,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(techniques), &cfg.Techniques); err != nil {
		return nil, fmt.Errorf("failed to decode techniques for %s: %w", cfg.ID, err)
	}
	cfg.Status = Status(status)
	cfg.CreatedAt = time.Unix(createdAt, 0)
	cfg.UpdatedAt = time.Unix(updatedAt, 0)

	return &cfg, nil
}
