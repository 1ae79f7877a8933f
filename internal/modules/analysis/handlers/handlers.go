// Package handlers exposes the portfolio analysis API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/minelab/botmine/internal/modules/analysis"
	"github.com/minelab/botmine/internal/modules/results"
)

// Handlers bundles the analysis endpoints
type Handlers struct {
	service *analysis.Service
	results *results.Repository
	log     zerolog.Logger
}

// New creates analysis handlers
func New(service *analysis.Service, resultsRepo *results.Repository, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		results: resultsRepo,
		log:     log.With().Str("handlers", "analysis").Logger(),
	}
}

// RegisterRoutes registers all analysis routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Post("/api/analysis", h.handleAnalyze)
}

// handleAnalyze runs a full analysis pass over the caller's stored
// results. With no results it reports a structured insufficient-data
// state instead of an error.
func (h *Handlers) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID := requestUser(r)

	stored, err := h.results.ListByUser(userID, 0, false)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	report := h.service.Run(userID, stored)
	if report.Analysis == nil {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"insufficient_data": true,
			"message":           "no backtest results to analyze",
		})
		return
	}

	h.writeJSON(w, http.StatusOK, report)
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
