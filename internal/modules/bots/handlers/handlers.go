// Package handlers exposes the bot configuration API.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/minelab/botmine/internal/modules/bots"
)

// Handlers bundles the bot configuration endpoints
type Handlers struct {
	repo      *bots.Repository
	generator *bots.Generator
	transfer  *bots.Transfer
	log       zerolog.Logger
}

// New creates bot handlers
func New(repo *bots.Repository, generator *bots.Generator, transfer *bots.Transfer, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo:      repo,
		generator: generator,
		transfer:  transfer,
		log:       log.With().Str("handlers", "bots").Logger(),
	}
}

// RegisterRoutes registers all bot configuration routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/api/bots", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Post("/generate", h.handleGenerate)
		r.Get("/export", h.handleExport)
		r.Post("/import", h.handleImport)
		r.Get("/{id}", h.handleGet)
		r.Delete("/{id}", h.handleDelete)
		r.Patch("/{id}/status", h.handleUpdateStatus)
	})
}

func (h *Handlers) handleList(w http.ResponseWriter, r *http.Request) {
	configs, err := h.repo.ListByUser(requestUser(r))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if configs == nil {
		configs = []bots.Configuration{}
	}
	h.writeJSON(w, http.StatusOK, configs)
}

func (h *Handlers) handleCreate(w http.ResponseWriter, r *http.Request) {
	var cfg bots.Configuration
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	cfg.UserID = requestUser(r)
	if err := cfg.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.repo.Create(cfg)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req bots.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	req.UserID = requestUser(r)

	created, err := h.generator.Generate(req)
	if err != nil {
		status := http.StatusBadRequest
		if len(created) > 0 {
			// Partial application: some configurations were stored
			// before the failure. Report what happened.
			status = http.StatusInternalServerError
		}
		h.writeJSON(w, status, map[string]interface{}{
			"error":   err.Error(),
			"created": len(created),
		})
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"created":        len(created),
		"configurations": created,
	})
}

func (h *Handlers) handleGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.repo.Get(requestUser(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

func (h *Handlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.repo.Delete(requestUser(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if !bots.ValidStatus(bots.Status(body.Status)) {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status " + body.Status})
		return
	}

	if err := h.repo.UpdateStatus(requestUser(r), chi.URLParam(r, "id"), bots.Status(body.Status)); err != nil {
		h.writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleExport(w http.ResponseWriter, r *http.Request) {
	userID := requestUser(r)

	switch r.URL.Query().Get("format") {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="bots.csv"`)
		if err := h.transfer.ExportCSV(userID, w); err != nil {
			h.log.Error().Err(err).Msg("CSV export failed")
		}
	default:
		w.Header().Set("Content-Type", "application/json")
		if err := h.transfer.ExportJSON(userID, w); err != nil {
			h.log.Error().Err(err).Msg("JSON export failed")
		}
	}
}

func (h *Handlers) handleImport(w http.ResponseWriter, r *http.Request) {
	userID := requestUser(r)

	var (
		imported int
		err      error
	)
	if strings.Contains(r.Header.Get("Content-Type"), "text/csv") || r.URL.Query().Get("format") == "csv" {
		imported, err = h.transfer.ImportCSV(userID, r.Body)
	} else {
		imported, err = h.transfer.ImportJSON(userID, r.Body)
	}
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":    err.Error(),
			"imported": imported,
		})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"imported": imported})
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

// requestUser resolves the acting user from the X-User-ID header, falling
// back to the user_id query parameter and then a local default.
func requestUser(r *http.Request) string {
	if u := r.Header.Get("X-User-ID"); u != "" {
		return u
	}
	if u := r.URL.Query().Get("user_id"); u != "" {
		return u
	}
	return "local"
}
