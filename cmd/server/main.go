// Command server runs the botmine HTTP API: bot configuration
// management, the synthetic backtest engine and portfolio analysis.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minelab/botmine/internal/config"
	"github.com/minelab/botmine/internal/database"
	"github.com/minelab/botmine/internal/events"
	"github.com/minelab/botmine/internal/modules/analysis"
	analysishandlers "github.com/minelab/botmine/internal/modules/analysis/handlers"
	"github.com/minelab/botmine/internal/modules/backtest"
	backtesthandlers "github.com/minelab/botmine/internal/modules/backtest/handlers"
	"github.com/minelab/botmine/internal/modules/bots"
	botshandlers "github.com/minelab/botmine/internal/modules/bots/handlers"
	"github.com/minelab/botmine/internal/modules/cleanup"
	"github.com/minelab/botmine/internal/modules/results"
	"github.com/minelab/botmine/internal/scheduler"
	"github.com/minelab/botmine/internal/server"
	"github.com/minelab/botmine/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	appLog := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(appLog)

	appLog.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Msg("Starting botmine")

	botsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "bots.db"),
		Profile: database.ProfileStandard,
		Name:    "bots",
	})
	if err != nil {
		appLog.Fatal().Err(err).Msg("Failed to open bots database")
	}
	defer botsDB.Close()

	resultsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "results.db"),
		Profile: database.ProfileCache,
		Name:    "results",
	})
	if err != nil {
		appLog.Fatal().Err(err).Msg("Failed to open results database")
	}
	defer resultsDB.Close()

	for _, db := range []*database.DB{botsDB, resultsDB} {
		if err := db.Migrate(); err != nil {
			appLog.Fatal().Err(err).Str("database", db.Name()).Msg("Migration failed")
		}
	}

	bus := events.NewBus()

	botsRepo := bots.NewRepository(botsDB.Conn(), appLog)
	resultsRepo := results.NewRepository(resultsDB.Conn(), appLog)
	generator := bots.NewGenerator(botsRepo, appLog)
	transfer := bots.NewTransfer(botsRepo, appLog)

	var pacing time.Duration
	if cfg.ProgressYieldEnabled {
		pacing = 150 * time.Millisecond
	}
	runner := backtest.NewRunner(backtest.NewSource(), resultsRepo, botsRepo, bus, appLog, backtest.RunnerOptions{
		InitialBalance: cfg.InitialBalance,
		SeriesDays:     cfg.SeriesDays,
		Pacing:         pacing,
	})

	analysisService := analysis.NewService(bus, appLog)

	sched := scheduler.New(appLog)
	cleanupJob := cleanup.NewJob(resultsRepo, bus, appLog, cfg.ResultRetentionDays)
	if err := sched.AddJob(cfg.CleanupSchedule, cleanupJob); err != nil {
		appLog.Fatal().Err(err).Msg("Failed to register cleanup job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:              appLog,
		Config:           cfg,
		BotsDB:           botsDB,
		ResultsDB:        resultsDB,
		Bus:              bus,
		BotsHandlers:     botshandlers.New(botsRepo, generator, transfer, appLog),
		BacktestHandlers: backtesthandlers.New(runner, botsRepo, resultsRepo, appLog),
		AnalysisHandlers: analysishandlers.New(analysisService, resultsRepo, appLog),
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		appLog.Fatal().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		appLog.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLog.Error().Err(err).Msg("Graceful shutdown failed")
	}

	appLog.Info().Msg("botmine stopped")
}
