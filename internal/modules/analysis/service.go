package analysis

import (
	"github.com/rs/zerolog"

	"github.com/minelab/botmine/internal/events"
	"github.com/minelab/botmine/internal/modules/backtest"
)

// Report bundles everything one analysis pass produces
type Report struct {
	Analysis        *AggregateAnalysis `json:"analysis"`
	Recommendations []Recommendation   `json:"recommendations"`
	Patterns        []Pattern          `json:"patterns"`
}

// Service runs analysis passes and announces them on the event bus
type Service struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewService creates a new analysis service
func NewService(bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		bus: bus,
		log: log.With().Str("service", "analysis").Logger(),
	}
}

// Run analyzes a result set end to end. An empty result set yields a
// report with a nil analysis, which callers render as insufficient data.
func (s *Service) Run(userID string, results []backtest.BacktestResult) *Report {
	report := &Report{Analysis: Analyze(results)}
	if report.Analysis == nil {
		s.log.Debug().Str("user_id", userID).Msg("Analysis requested with no results")
		return report
	}

	report.Recommendations = Recommend(report.Analysis)
	report.Patterns = DetectPatterns(report.Analysis)

	s.log.Info().
		Str("user_id", userID).
		Int("results", len(results)).
		Int("recommendations", len(report.Recommendations)).
		Int("patterns", len(report.Patterns)).
		Msg("Analysis completed")

	if s.bus != nil {
		s.bus.Publish(events.AnalysisReady, "analysis", events.AnalysisReadyData{
			UserID:          userID,
			Results:         len(results),
			Recommendations: len(report.Recommendations),
			Patterns:        len(report.Patterns),
		})
	}

	return report
}
