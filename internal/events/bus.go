// Package events provides a lightweight in-process publish/subscribe bus
// used to stream backtest progress and analysis notifications to clients.
package events

import (
	"sync"
	"time"
)

// EventType identifies a category of event on the bus
type EventType string

const (
	// BacktestStarted fires when a backtest run begins
	BacktestStarted EventType = "backtest_started"
	// BacktestProgress fires after each configuration finishes simulating
	BacktestProgress EventType = "backtest_progress"
	// BacktestCompleted fires when a backtest run finishes
	BacktestCompleted EventType = "backtest_completed"
	// AnalysisReady fires when an aggregate analysis pass completes
	AnalysisReady EventType = "analysis_ready"
	// ResultsCleaned fires when the retention job removes old results
	ResultsCleaned EventType = "results_cleaned"
)

// Event is a single bus message
type Event struct {
	Type      EventType   `json:"type"`
	Module    string      `json:"module"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Handler receives published events
type Handler func(event *Event)

// Bus fans events out to subscribers. Publish never blocks on a slow
// subscriber; handlers run synchronously and must be cheap.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for an event type
func (b *Bus) Subscribe(t EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Publish delivers an event to all handlers registered for its type
func (b *Bus) Publish(t EventType, module string, data interface{}) {
	event := &Event{
		Type:      t,
		Module:    module,
		Timestamp: time.Now(),
		Data:      data,
	}

	b.mu.RLock()
	handlers := b.handlers[t]
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
