// Package cleanup removes backtest results past their retention window.
package cleanup

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/minelab/botmine/internal/events"
)

// ResultPruner deletes results executed before a cutoff
type ResultPruner interface {
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// Job is a scheduler job enforcing the result retention policy
type Job struct {
	pruner        ResultPruner
	bus           *events.Bus
	log           zerolog.Logger
	retentionDays int
}

// NewJob creates a retention job. retentionDays must be positive.
func NewJob(pruner ResultPruner, bus *events.Bus, log zerolog.Logger, retentionDays int) *Job {
	return &Job{
		pruner:        pruner,
		bus:           bus,
		log:           log.With().Str("job", "results_cleanup").Logger(),
		retentionDays: retentionDays,
	}
}

// Name implements scheduler.Job
func (j *Job) Name() string { return "results_cleanup" }

// Run deletes results older than the retention window and announces how
// many were removed
func (j *Job) Run() error {
	cutoff := time.Now().AddDate(0, 0, -j.retentionDays)

	deleted, err := j.pruner.DeleteOlderThan(cutoff)
	if err != nil {
		return err
	}

	j.log.Info().
		Int64("deleted", deleted).
		Int("retention_days", j.retentionDays).
		Msg("Retention cleanup finished")

	if j.bus != nil && deleted > 0 {
		j.bus.Publish(events.ResultsCleaned, "cleanup", events.ResultsCleanedData{
			Deleted:       deleted,
			RetentionDays: j.retentionDays,
		})
	}

	return nil
}
