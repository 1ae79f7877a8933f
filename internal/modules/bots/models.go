// Package bots manages trading bot configurations: the user-defined
// strategy bundles that the backtest engine simulates.
package bots

import (
	"fmt"
	"sort"
	"time"
)

// Status is the lifecycle state of a configuration or bot record
type Status string

const (
	StatusActive   Status = "active"
	StatusGood     Status = "good"
	StatusBad      Status = "bad"
	StatusArchived Status = "archived"
)

// ValidStatus reports whether s is a known status value
func ValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusGood, StatusBad, StatusArchived:
		return true
	}
	return false
}

// CanTransition reports whether a status change is allowed.
// Archived is terminal; everything else may move freely.
func CanTransition(from, to Status) bool {
	if !ValidStatus(to) {
		return false
	}
	return from != StatusArchived
}

// FallbackTechnique is used whenever a configuration carries no technique
// weights at all. All technique parameter lookups resolve through it.
const FallbackTechnique = "SPP"

// Configuration is one user-defined strategy bundle. Immutable once
// created except for status transitions. Owned by a single user.
type Configuration struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Asset     string `json:"asset"`
	Timeframe string `json:"timeframe"`
	Direction string `json:"direction"`  // long, short, both
	EntryType string `json:"entry_type"` // market, limit, stop

	// Techniques maps technique name to its simulation-count weight. All
	// techniques of a configuration are combined into this one record.
	Techniques map[string]int `json:"techniques"`

	// Auxiliary numeric ranges that modulate simulated entry/exit sensitivity
	ATRPeriodMin     int     `json:"atr_period_min"`
	ATRPeriodMax     int     `json:"atr_period_max"`
	ATRMultiplierMin float64 `json:"atr_multiplier_min"`
	ATRMultiplierMax float64 `json:"atr_multiplier_max"`
	IndicatorMin     float64 `json:"indicator_min"`
	IndicatorMax     float64 `json:"indicator_max"`

	MagicNumber int       `json:"magic_number"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks the required categorical fields. A configuration that
// fails validation is rejected before any simulation work begins.
func (c *Configuration) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("configuration %q: user_id is required", c.Name)
	}
	if c.Name == "" {
		return fmt.Errorf("configuration is missing a name")
	}
	if c.Asset == "" {
		return fmt.Errorf("configuration %q: asset is required", c.Name)
	}
	if c.Timeframe == "" {
		return fmt.Errorf("configuration %q: timeframe is required", c.Name)
	}
	switch c.Direction {
	case "long", "short", "both":
	default:
		return fmt.Errorf("configuration %q: invalid direction %q", c.Name, c.Direction)
	}
	switch c.EntryType {
	case "market", "limit", "stop":
	default:
		return fmt.Errorf("configuration %q: invalid entry type %q", c.Name, c.EntryType)
	}
	return nil
}

// PrimaryTechnique returns the technique that drives entry probability and
// threshold lookups. Technique maps are unordered, so the first name in
// lexical order is the primary; an empty map falls back to SPP.
func (c *Configuration) PrimaryTechnique() string {
	if len(c.Techniques) == 0 {
		return FallbackTechnique
	}
	names := make([]string, 0, len(c.Techniques))
	for name := range c.Techniques {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0]
}
