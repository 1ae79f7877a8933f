package bots

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog"
)

// Transfer handles import and export of configurations as JSON or CSV.
// Round-tripped configurations keep every field that affects simulation;
// IDs and timestamps are reassigned on import.
type Transfer struct {
	repo *Repository
	log  zerolog.Logger
}

// NewTransfer creates a new transfer service
func NewTransfer(repo *Repository, log zerolog.Logger) *Transfer {
	return &Transfer{
		repo: repo,
		log:  log.With().Str("component", "bot_transfer").Logger(),
	}
}

var csvHeader = []string{
	"name", "asset", "timeframe", "direction", "entry_type", "techniques",
	"atr_period_min", "atr_period_max", "atr_multiplier_min", "atr_multiplier_max",
	"indicator_min", "indicator_max", "magic_number", "status",
}

// ExportJSON writes all of a user's configurations as a JSON array
func (t *Transfer) ExportJSON(userID string, w io.Writer) error {
	configs, err := t.repo.ListByUser(userID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(configs); err != nil {
		return fmt.Errorf("failed to encode configurations: %w", err)
	}
	return nil
}

// ExportCSV writes all of a user's configurations as CSV
func (t *Transfer) ExportCSV(userID string, w io.Writer) error {
	configs, err := t.repo.ListByUser(userID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, cfg := range configs {
		techniques, err := json.Marshal(cfg.Techniques)
		if err != nil {
			return fmt.Errorf("failed to encode techniques for %s: %w", cfg.Name, err)
		}
		record := []string{
			cfg.Name, cfg.Asset, cfg.Timeframe, cfg.Direction, cfg.EntryType,
			string(techniques),
			strconv.Itoa(cfg.ATRPeriodMin), strconv.Itoa(cfg.ATRPeriodMax),
			strconv.FormatFloat(cfg.ATRMultiplierMin, 'f', -1, 64),
			strconv.FormatFloat(cfg.ATRMultiplierMax, 'f', -1, 64),
			strconv.FormatFloat(cfg.IndicatorMin, 'f', -1, 64),
			strconv.FormatFloat(cfg.IndicatorMax, 'f', -1, 64),
			strconv.Itoa(cfg.MagicNumber), string(cfg.Status),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ImportJSON reads a JSON array of configurations and stores each one for
// the given user. Returns the number imported; stops on the first invalid
// record or storage failure.
func (t *Transfer) ImportJSON(userID string, r io.Reader) (int, error) {
	var configs []Configuration
	if err := json.NewDecoder(r).Decode(&configs); err != nil {
		return 0, fmt.Errorf("failed to decode JSON import: %w", err)
	}
	return t.importAll(userID, configs)
}

// ImportCSV reads CSV-encoded configurations and stores each one
func (t *Transfer) ImportCSV(userID string, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV import: %w", err)
	}
	if len(records) < 2 {
		return 0, nil
	}

	var configs []Configuration
	for i, rec := range records[1:] {
		if len(rec) != len(csvHeader) {
			return 0, fmt.Errorf("CSV row %d has %d columns, want %d", i+2, len(rec), len(csvHeader))
		}

		var techniques map[string]int
		if err := json.Unmarshal([]byte(rec[5]), &techniques); err != nil {
			return 0, fmt.Errorf("CSV row %d has invalid techniques column: %w", i+2, err)
		}

		cfg := Configuration{
			Name:       rec[0],
			Asset:      rec[1],
			Timeframe:  rec[2],
			Direction:  rec[3],
			EntryType:  rec[4],
			Techniques: techniques,
			Status:     Status(rec[13]),
		}
		cfg.ATRPeriodMin, _ = strconv.Atoi(rec[6])
		cfg.ATRPeriodMax, _ = strconv.Atoi(rec[7])
		cfg.ATRMultiplierMin, _ = strconv.ParseFloat(rec[8], 64)
		cfg.ATRMultiplierMax, _ = strconv.ParseFloat(rec[9], 64)
		cfg.IndicatorMin, _ = strconv.ParseFloat(rec[10], 64)
		cfg.IndicatorMax, _ = strconv.ParseFloat(rec[11], 64)
		cfg.MagicNumber, _ = strconv.Atoi(rec[12])

		configs = append(configs, cfg)
	}

	return t.importAll(userID, configs)
}

func (t *Transfer) importAll(userID string, configs []Configuration) (int, error) {
	imported := 0
	for _, cfg := range configs {
		cfg.UserID = userID
		if cfg.Status == "" || !ValidStatus(cfg.Status) {
			cfg.Status = StatusActive
		}
		if _, err := t.repo.Create(cfg); err != nil {
			return imported, fmt.Errorf("import stopped at %q: %w", cfg.Name, err)
		}
		imported++
	}

	t.log.Info().Int("imported", imported).Str("user_id", userID).Msg("Import completed")
	return imported, nil
}

// RoundTripJSON is a convenience used in tests and debugging: export to a
// buffer and re-decode, proving the serialization is lossless for
// simulation-relevant fields.
func RoundTripJSON(configs []Configuration) ([]Configuration, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(configs); err != nil {
		return nil, err
	}
	var out []Configuration
	if err := json.NewDecoder(&buf).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
