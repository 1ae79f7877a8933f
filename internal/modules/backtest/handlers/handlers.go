// Package handlers exposes the backtest API.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/minelab/botmine/internal/modules/backtest"
	"github.com/minelab/botmine/internal/modules/bots"
	"github.com/minelab/botmine/internal/modules/results"
	"github.com/minelab/botmine/internal/modules/scoring"
)

// Handlers bundles the backtest endpoints
type Handlers struct {
	runner  *backtest.Runner
	configs *bots.Repository
	results *results.Repository
	log     zerolog.Logger
}

// New creates backtest handlers
func New(runner *backtest.Runner, configs *bots.Repository, resultsRepo *results.Repository, log zerolog.Logger) *Handlers {
	return &Handlers{
		runner:  runner,
		configs: configs,
		results: resultsRepo,
		log:     log.With().Str("handlers", "backtest").Logger(),
	}
}

// RegisterRoutes registers all backtest routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/api/backtest", func(r chi.Router) {
		r.Post("/run", h.handleRun)
		r.Get("/results", h.handleResults)
	})
}

// resultView is the API shape of one result: boundary-rounded metrics
// plus the heuristic score and its factor breakdown.
type resultView struct {
	ID         string                    `json:"id"`
	RunID      string                    `json:"run_id"`
	ConfigID   string                    `json:"config_id"`
	ConfigName string                    `json:"config_name"`
	Asset      string                    `json:"asset"`
	Timeframe  string                    `json:"timeframe"`
	Techniques map[string]int            `json:"techniques"`
	Metrics    backtest.FormattedMetrics `json:"metrics"`
	Score      float64                   `json:"score"`
	Breakdown  scoring.Breakdown         `json:"breakdown"`
	Trades     []backtest.Trade          `json:"trades,omitempty"`
	Equity     []backtest.EquityPoint    `json:"equity,omitempty"`
	ExecutedAt time.Time                 `json:"executed_at"`
}

func toView(res backtest.BacktestResult, withDetail bool) resultView {
	score, breakdown := scoring.Score(res.Metrics)
	v := resultView{
		ID:         res.ID,
		RunID:      res.RunID,
		ConfigID:   res.ConfigID,
		ConfigName: res.ConfigName,
		Asset:      res.Asset,
		Timeframe:  res.Timeframe,
		Techniques: res.Techniques,
		Metrics:    res.Metrics.Format(),
		Score:      score,
		Breakdown:  breakdown,
		ExecutedAt: res.ExecutedAt,
	}
	if withDetail {
		v.Trades = res.Trades
		v.Equity = res.Equity
	}
	return v
}

// handleRun starts a backtest over the caller's configurations. An
// explicit config_ids list restricts the batch; otherwise every
// non-archived configuration runs.
func (h *Handlers) handleRun(w http.ResponseWriter, r *http.Request) {
	userID := requestUser(r)

	var body struct {
		ConfigIDs []string `json:"config_ids"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	configs, err := h.selectConfigs(userID, body.ConfigIDs)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	runResults, err := h.runner.Run(r.Context(), userID, configs)
	if err != nil {
		if backtest.IsInputError(err) {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	withDetail := r.URL.Query().Get("detail") == "true"
	views := make([]resultView, 0, len(runResults))
	for _, res := range runResults {
		views = append(views, toView(res, withDetail))
	}
	h.writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) selectConfigs(userID string, ids []string) ([]bots.Configuration, error) {
	if len(ids) == 0 {
		all, err := h.configs.ListByUser(userID)
		if err != nil {
			return nil, err
		}
		configs := make([]bots.Configuration, 0, len(all))
		for _, cfg := range all {
			if cfg.Status != bots.StatusArchived {
				configs = append(configs, cfg)
			}
		}
		return configs, nil
	}

	configs := make([]bots.Configuration, 0, len(ids))
	for _, id := range ids {
		cfg, err := h.configs.Get(userID, id)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	return configs, nil
}

// handleResults lists stored results, newest first. Supports ?limit= and
// ?detail=true for the full trade and equity detail.
func (h *Handlers) handleResults(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}
	withDetail := r.URL.Query().Get("detail") == "true"

	stored, err := h.results.ListByUser(requestUser(r), limit, withDetail)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	views := make([]resultView, 0, len(stored))
	for _, res := range stored {
		views = append(views, toView(res, withDetail))
	}
	h.writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func requestUser(r *http.Request) string {
	if u := r.Header.Get("X-User-ID"); u != "" {
		return u
	}
	if u := r.URL.Query().Get("user_id"); u != "" {
		return u
	}
	return "local"
}
