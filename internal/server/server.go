package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HerbHall/sportdesk/internal/coach"
	"github.com/HerbHall/sportdesk/internal/search"
	"github.com/HerbHall/sportdesk/internal/theme"
	"github.com/HerbHall/sportdesk/internal/version"
)

// RouteRegistrar mounts additional handlers on the server mux.
type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

// CoachLoader loads the aggregated coach view.
type CoachLoader interface {
	Load(ctx context.Context, id string) (*coach.Detail, error)
	Loading() bool
}

// Deps are the collaborators the server's handlers use.
type Deps struct {
	Theme      *theme.Controller
	Root       *theme.DocumentRoot
	StorageKey string
	API        search.Searcher
	Coaches    CoachLoader
	PerPage    int
	// Gatherer backs /metrics; prometheus.DefaultGatherer when nil.
	Gatherer prometheus.Gatherer
}

// Server is the sportdesk HTTP server.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *zap.Logger
	mux        *http.ServeMux
}

// New creates a new Server instance. deps.Theme is installed into every
// request context; when nil, an in-memory controller applied to deps.Root
// is used.
func New(addr string, deps Deps, logger *zap.Logger, extra ...RouteRegistrar) *Server {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.Root == nil {
		deps.Root = theme.NewDocumentRoot()
	}
	if deps.Theme == nil {
		deps.Theme = theme.NewController(theme.Options{
			Storage: theme.NewMemoryStorage(),
			Key:     deps.StorageKey,
			Root:    deps.Root,
			Logger:  logger,
		})
		deps.Theme.Initialize(context.Background())
	}
	mux := http.NewServeMux()

	s := &Server{
		deps:   deps,
		logger: logger,
		mux:    mux,
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.registerCoreRoutes()
	for _, r := range extra {
		r.RegisterRoutes(mux)
	}

	return s
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return requestID(accessLog(s.logger, securityHeaders(themeScope(s.deps.Theme, s.mux))))
}

// registerCoreRoutes sets up routes that are always available.
func (s *Server) registerCoreRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/search/{kind}", s.handleSearch)
	s.mux.HandleFunc("GET /api/v1/sports", s.handleSports)
	s.mux.HandleFunc("GET /api/v1/coaches/{id}", s.handleCoach)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealth returns the server health status. The status stays
// "starting" until the theme controller has initialized.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("X-Sportdesk-Version", version.Short())
	status := "ok"
	if !s.deps.Theme.Ready() {
		status = "starting"
	}
	body := map[string]any{
		"status":      status,
		"service":     "sportdesk",
		"version":     version.Map(),
		"theme_ready": s.deps.Theme.Ready(),
	}
	if s.deps.Coaches != nil {
		body["coach_loading"] = s.deps.Coaches.Loading()
	}
	writeJSON(w, http.StatusOK, body)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
