package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/minelab/botmine/internal/modules/bots"
)

func setupRouter(t *testing.T) (*chi.Mux, *bots.Repository) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE bot_configurations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			asset TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			direction TEXT NOT NULL,
			entry_type TEXT NOT NULL,
			techniques TEXT NOT NULL,
			atr_period_min INTEGER NOT NULL DEFAULT 7,
			atr_period_max INTEGER NOT NULL DEFAULT 21,
			atr_multiplier_min REAL NOT NULL DEFAULT 1.0,
			atr_multiplier_max REAL NOT NULL DEFAULT 3.0,
			indicator_min REAL NOT NULL DEFAULT 0,
			indicator_max REAL NOT NULL DEFAULT 100,
			magic_number INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'active',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE TABLE bots (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			month_key TEXT NOT NULL,
			asset TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			sharpe_ratio REAL NOT NULL,
			win_rate REAL NOT NULL,
			total_return REAL NOT NULL,
			status TEXT NOT NULL DEFAULT 'unrated',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE (user_id, name, month_key, asset, timeframe)
		);
	`)
	require.NoError(t, err)

	repo := bots.NewRepository(db, zerolog.Nop())
	generator := bots.NewGenerator(repo, zerolog.Nop())
	transfer := bots.NewTransfer(repo, zerolog.Nop())

	router := chi.NewRouter()
	New(repo, generator, transfer, zerolog.Nop()).RegisterRoutes(router)
	return router, repo
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndListBots(t *testing.T) {
	router, _ := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/bots", map[string]interface{}{
		"name":       "my_bot",
		"asset":      "EURUSD",
		"timeframe":  "M15",
		"direction":  "both",
		"entry_type": "market",
		"techniques": map[string]int{"SPP": 100},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/bots", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var configs []bots.Configuration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &configs))
	require.Len(t, configs, 1)
	assert.Equal(t, "my_bot", configs[0].Name)
	assert.Equal(t, "u1", configs[0].UserID)
}

func TestCreateRejectsInvalidConfiguration(t *testing.T) {
	router, _ := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/bots", map[string]interface{}{
		"name":      "broken",
		"asset":     "EURUSD",
		"timeframe": "M15",
		"direction": "sideways",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBot(t *testing.T) {
	router, repo := setupRouter(t)

	created, err := repo.Create(bots.Configuration{
		UserID: "u1", Name: "b", Asset: "GOLD", Timeframe: "H1",
		Direction: "long", EntryType: "market",
		Techniques: map[string]int{"SPP": 100},
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/api/bots/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got bots.Configuration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)

	rec = doJSON(t, router, http.MethodGet, "/api/bots/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStatusAndDelete(t *testing.T) {
	router, repo := setupRouter(t)

	created, err := repo.Create(bots.Configuration{
		UserID: "u1", Name: "b", Asset: "GOLD", Timeframe: "H1",
		Direction: "long", EntryType: "market",
		Techniques: map[string]int{"SPP": 100},
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPatch, "/api/bots/"+created.ID+"/status", map[string]string{"status": "good"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, "/api/bots/"+created.ID+"/status", map[string]string{"status": "sideways"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/bots/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/bots/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/bots/generate", map[string]interface{}{
		"base_name": "grid",
		"assets":    []string{"BTC", "ETH"},
		"techniques": map[string]interface{}{
			"SPP": map[string]interface{}{"enabled": true, "min": 100, "max": 200},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Created int `json:"created"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Created)
}

func TestExportImportEndpoints(t *testing.T) {
	router, repo := setupRouter(t)

	_, err := repo.Create(bots.Configuration{
		UserID: "u1", Name: "b", Asset: "GOLD", Timeframe: "H1",
		Direction: "long", EntryType: "market",
		Techniques: map[string]int{"SPP": 100},
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/api/bots/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/bots/import", bytes.NewReader(rec.Body.Bytes()))
	req.Header.Set("X-User-ID", "u2")
	imp := httptest.NewRecorder()
	router.ServeHTTP(imp, req)
	require.Equal(t, http.StatusOK, imp.Code)

	var body struct {
		Imported int `json:"imported"`
	}
	require.NoError(t, json.Unmarshal(imp.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Imported)
}
