package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewBus()

	var received []*Event
	bus.Subscribe(BacktestStarted, func(e *Event) {
		received = append(received, e)
	})

	bus.Publish(BacktestStarted, "backtest", BacktestStartedData{RunID: "run-1", Configs: 3})

	require.Len(t, received, 1)
	assert.Equal(t, BacktestStarted, received[0].Type)
	assert.Equal(t, "backtest", received[0].Module)
	assert.False(t, received[0].Timestamp.IsZero())

	data, ok := received[0].Data.(BacktestStartedData)
	require.True(t, ok)
	assert.Equal(t, "run-1", data.RunID)
	assert.Equal(t, 3, data.Configs)
}

func TestPublishIgnoresOtherTypes(t *testing.T) {
	bus := NewBus()

	called := false
	bus.Subscribe(AnalysisReady, func(e *Event) { called = true })

	bus.Publish(BacktestCompleted, "backtest", nil)
	assert.False(t, called)
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewBus()

	count := 0
	bus.Subscribe(ResultsCleaned, func(e *Event) { count++ })
	bus.Subscribe(ResultsCleaned, func(e *Event) { count++ })

	bus.Publish(ResultsCleaned, "cleanup", nil)
	assert.Equal(t, 2, count)
}
