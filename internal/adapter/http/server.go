package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/logistics-locator/internal/domain"
)

// Locator is the subset of locator.Service the API serves.
type Locator interface {
	DefaultCenter() domain.Coordinate
	DefaultRadiusKm() float64
	DistanceKm(a, b domain.Coordinate) float64
	Categories() []string

	ResolveAddress(ctx context.Context, text string) (domain.GeocodingResult, error)
	ResolveCoordinates(ctx context.Context, text string) (domain.GeocodingResult, error)
	Suggest(ctx context.Context, partial string, limit int) ([]domain.Suggestion, error)

	Nearby(ctx context.Context, req domain.SearchRequest) (domain.SearchResult, error)
	NearbyLocation(ctx context.Context, location string, radiusKm float64, query string) (domain.SearchResult, error)

	ListEntries(ctx context.Context) ([]domain.DirectoryEntry, error)
	SearchEntries(ctx context.Context, term string) ([]domain.DirectoryEntry, error)
	GetEntry(ctx context.Context, id string) (domain.DirectoryEntry, error)
	CreateEntry(ctx context.Context, in domain.EntryInput) (domain.DirectoryEntry, error)
	UpdateEntry(ctx context.Context, id string, patch domain.EntryPatch) (domain.DirectoryEntry, error)
	DeleteEntry(ctx context.Context, id string) error
}

// Server exposes the locator API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        Locator
	logger     *slog.Logger
}

// NewServer creates an HTTP server. allowedOrigins feeds the CORS policy;
// an empty list falls back to "*".
func NewServer(addr string, svc Locator, ready sharedobs.ReadinessChecker, allowedOrigins []string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	handler := cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})(mux)

	s := &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: handler,
			// Geocoding may wait on the rate limiter and then the provider.
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/defaults", s.handleDefaults)
	mux.HandleFunc("GET /api/v1/categories", s.handleCategories)
	mux.HandleFunc("GET /api/v1/geocode/forward", s.handleForward)
	mux.HandleFunc("GET /api/v1/geocode/reverse", s.handleReverse)
	mux.HandleFunc("GET /api/v1/suggest", s.handleSuggest)
	mux.HandleFunc("GET /api/v1/distance", s.handleDistance)
	mux.HandleFunc("GET /api/v1/nearby", s.handleNearby)
	mux.HandleFunc("GET /api/v1/entries", s.handleListEntries)
	mux.HandleFunc("POST /api/v1/entries", s.handleCreateEntry)
	mux.HandleFunc("GET /api/v1/entries/{id}", s.handleGetEntry)
	mux.HandleFunc("PATCH /api/v1/entries/{id}", s.handleUpdateEntry)
	mux.HandleFunc("DELETE /api/v1/entries/{id}", s.handleDeleteEntry)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
