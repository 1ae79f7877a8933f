package cleanup

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minelab/botmine/internal/events"
)

type fakePruner struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakePruner) DeleteOlderThan(cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

func TestRunDeletesAndPublishes(t *testing.T) {
	pruner := &fakePruner{deleted: 3}
	bus := events.NewBus()

	var cleaned []events.ResultsCleanedData
	bus.Subscribe(events.ResultsCleaned, func(e *events.Event) {
		cleaned = append(cleaned, e.Data.(events.ResultsCleanedData))
	})

	job := NewJob(pruner, bus, zerolog.Nop(), 30)
	require.NoError(t, job.Run())

	// Cutoff sits 30 days back, within a small tolerance
	expected := time.Now().AddDate(0, 0, -30)
	assert.WithinDuration(t, expected, pruner.cutoff, time.Minute)

	require.Len(t, cleaned, 1)
	assert.Equal(t, int64(3), cleaned[0].Deleted)
	assert.Equal(t, 30, cleaned[0].RetentionDays)
}

func TestRunSilentWhenNothingDeleted(t *testing.T) {
	bus := events.NewBus()

	published := false
	bus.Subscribe(events.ResultsCleaned, func(e *events.Event) { published = true })

	job := NewJob(&fakePruner{deleted: 0}, bus, zerolog.Nop(), 30)
	require.NoError(t, job.Run())
	assert.False(t, published)
}

func TestRunPropagatesError(t *testing.T) {
	job := NewJob(&fakePruner{err: errors.New("disk full")}, nil, zerolog.Nop(), 30)
	assert.Error(t, job.Run())
}

func TestJobName(t *testing.T) {
	assert.Equal(t, "results_cleanup", NewJob(&fakePruner{}, nil, zerolog.Nop(), 1).Name())
}
