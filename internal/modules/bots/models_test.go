package bots

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Configuration {
	return Configuration{
		UserID:     "u1",
		Name:       "test_bot",
		Asset:      "EURUSD",
		Timeframe:  "M15",
		Direction:  "both",
		EntryType:  "market",
		Techniques: map[string]int{"SPP": 100},
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())

	missing := validConfig()
	missing.Asset = ""
	assert.Error(t, missing.Validate())

	badDirection := validConfig()
	badDirection.Direction = "sideways"
	assert.Error(t, badDirection.Validate())

	badEntry := validConfig()
	badEntry.EntryType = "teleport"
	assert.Error(t, badEntry.Validate())
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, CanTransition(StatusActive, StatusGood))
	assert.True(t, CanTransition(StatusBad, StatusArchived))
	assert.True(t, CanTransition(StatusGood, StatusActive))

	// Archived is terminal
	assert.False(t, CanTransition(StatusArchived, StatusActive))
	assert.False(t, CanTransition(StatusActive, Status("bogus")))
}

func TestPrimaryTechnique(t *testing.T) {
	cfg := validConfig()
	cfg.Techniques = map[string]int{"WFM": 50, "MC Trade": 50, "SPP": 50}
	assert.Equal(t, "MC Trade", cfg.PrimaryTechnique())

	cfg.Techniques = nil
	assert.Equal(t, "SPP", cfg.PrimaryTechnique())
}
