package bots

import (
	"fmt"

	"github.com/rs/zerolog"
)

// TechniqueSpec bounds the simulation count assigned to one technique by
// the bulk generator.
type TechniqueSpec struct {
	Enabled bool `json:"enabled"`
	Min     int  `json:"min"`
	Max     int  `json:"max"`
}

// GenerateRequest describes a bulk generation pass: the cartesian product
// of assets, timeframes, directions, entry types and enabled techniques.
type GenerateRequest struct {
	UserID     string                   `json:"user_id"`
	BaseName   string                   `json:"base_name"`
	Assets     []string                 `json:"assets"`
	Timeframes []string                 `json:"timeframes"`
	Directions []string                 `json:"directions"`
	EntryTypes []string                 `json:"entry_types"`
	Techniques map[string]TechniqueSpec `json:"techniques"`
}

// Generator creates configurations in bulk
type Generator struct {
	repo *Repository
	log  zerolog.Logger
}

// NewGenerator creates a new bulk generator
func NewGenerator(repo *Repository, log zerolog.Logger) *Generator {
	return &Generator{
		repo: repo,
		log:  log.With().Str("component", "bot_generator").Logger(),
	}
}

// Generate expands the request into configurations and stores them. Magic
// numbers continue from the user's current maximum. Names follow
// base_asset_timeframe_direction_entry_technique_magic.
func (g *Generator) Generate(req GenerateRequest) ([]Configuration, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if req.BaseName == "" {
		return nil, fmt.Errorf("base_name is required")
	}
	if len(req.Assets) == 0 {
		return nil, fmt.Errorf("at least one asset is required")
	}

	timeframes := req.Timeframes
	if len(timeframes) == 0 {
		timeframes = []string{"M15"}
	}
	directions := req.Directions
	if len(directions) == 0 {
		directions = []string{"both"}
	}
	entryTypes := req.EntryTypes
	if len(entryTypes) == 0 {
		entryTypes = []string{"market"}
	}

	var enabled []string
	for name, spec := range req.Techniques {
		if spec.Enabled {
			enabled = append(enabled, name)
		}
	}
	if len(enabled) == 0 {
		enabled = []string{FallbackTechnique}
	}

	magic, err := g.repo.MaxMagicNumber(req.UserID)
	if err != nil {
		return nil, err
	}

	var created []Configuration
	for _, asset := range req.Assets {
		for _, timeframe := range timeframes {
			for _, direction := range directions {
				for _, entryType := range entryTypes {
					for _, technique := range enabled {
						magic++

						spec, ok := req.Techniques[technique]
						if !ok {
							spec = TechniqueSpec{Min: 100, Max: 500}
						}
						simulations := (spec.Min + spec.Max) / 2
						if simulations <= 0 {
							simulations = 100
						}

						cfg := Configuration{
							UserID:    req.UserID,
							Name:      fmt.Sprintf("%s_%s_%s_%s_%s_%s_%d", req.BaseName, asset, timeframe, direction, entryType, technique, magic),
							Asset:     asset,
							Timeframe: timeframe,
							Direction: direction,
							EntryType: entryType,
							Techniques: map[string]int{
								technique: simulations,
							},
							ATRPeriodMin:     7,
							ATRPeriodMax:     21,
							ATRMultiplierMin: 1.0,
							ATRMultiplierMax: 3.0,
							IndicatorMin:     0,
							IndicatorMax:     100,
							MagicNumber:      magic,
						}

						stored, err := g.repo.Create(cfg)
						if err != nil {
							// Surface the storage error as-is; configurations
							// created so far stay created.
							return created, fmt.Errorf("bulk generation stopped at %q: %w", cfg.Name, err)
						}
						created = append(created, *stored)
					}
				}
			}
		}
	}

	g.log.Info().
		Int("created", len(created)).
		Str("user_id", req.UserID).
		Msg("Bulk generation completed")

	return created, nil
}
