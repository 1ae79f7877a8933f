// Package server provides the HTTP server and routing for botmine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/minelab/botmine/internal/config"
	"github.com/minelab/botmine/internal/database"
	"github.com/minelab/botmine/internal/events"
	analysishandlers "github.com/minelab/botmine/internal/modules/analysis/handlers"
	backtesthandlers "github.com/minelab/botmine/internal/modules/backtest/handlers"
	botshandlers "github.com/minelab/botmine/internal/modules/bots/handlers"
)

// Config holds everything the server needs to route requests
type Config struct {
	Log              zerolog.Logger
	Config           *config.Config
	BotsDB           *database.DB
	ResultsDB        *database.DB
	Bus              *events.Bus
	BotsHandlers     *botshandlers.Handlers
	BacktestHandlers *backtesthandlers.Handlers
	AnalysisHandlers *analysishandlers.Handlers
}

// Server is the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	cfg       *config.Config
	botsDB    *database.DB
	resultsDB *database.DB
}

// New creates a configured HTTP server with all routes registered
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		botsDB:    cfg.BotsDB,
		resultsDB: cfg.ResultsDB,
	}

	s.setupMiddleware()

	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/system/health", s.handleSystemHealth)
	s.router.Method(http.MethodGet, "/api/events/stream", NewEventsStreamHandler(cfg.Bus, cfg.Log))

	cfg.BotsHandlers.RegisterRoutes(s.router)
	cfg.BacktestHandlers.RegisterRoutes(s.router)
	cfg.AnalysisHandlers.RegisterRoutes(s.router)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.router,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)

	// The SSE endpoint must not be wrapped in a timeout; everything else
	// gets a generous ceiling.
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/events/stream" {
				next.ServeHTTP(w, r)
				return
			}
			middleware.Timeout(5 * time.Minute)(next).ServeHTTP(w, r)
		})
	})

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Use(s.requestLogger)
}

// requestLogger logs one line per request at debug level
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Request handled")
	})
}

// Start begins serving. Blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
