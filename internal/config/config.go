// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir              string // Base directory for the SQLite databases (always absolute)
	LogLevel             string
	Port                 int
	DevMode              bool
	InitialBalance       float64 // Starting balance for every simulation run
	SeriesDays           int     // Length of the generated price history in days
	ResultRetentionDays  int     // Results older than this are removed by the cleanup job
	CleanupSchedule      string  // Cron expression for the retention job
	AllowedOrigins       []string
	ProgressYieldEnabled bool // Pace the backtest loop so progress events stay readable
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("BOTMINE_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:              absDataDir,
		Port:                 getEnvAsInt("BOTMINE_PORT", 8010),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		InitialBalance:       getEnvAsFloat("BOTMINE_INITIAL_BALANCE", 10000),
		SeriesDays:           getEnvAsInt("BOTMINE_SERIES_DAYS", 90),
		ResultRetentionDays:  getEnvAsInt("BOTMINE_RESULT_RETENTION_DAYS", 90),
		CleanupSchedule:      getEnv("BOTMINE_CLEANUP_SCHEDULE", "@daily"),
		AllowedOrigins:       []string{getEnv("BOTMINE_ALLOWED_ORIGIN", "*")},
		ProgressYieldEnabled: getEnvAsBool("BOTMINE_PROGRESS_YIELD", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.SeriesDays <= 0 {
		return fmt.Errorf("BOTMINE_SERIES_DAYS must be positive, got %d", c.SeriesDays)
	}
	if c.InitialBalance <= 0 {
		return fmt.Errorf("BOTMINE_INITIAL_BALANCE must be positive, got %f", c.InitialBalance)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
