package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"vodstream/searchgateway/internal/auth"
	"vodstream/searchgateway/internal/domain"
	"vodstream/searchgateway/internal/search"
)

// SearchService is the slice of the search layer the HTTP handlers consume.
type SearchService interface {
	Aggregate(ctx context.Context, query string, providers []search.Provider) ([]domain.Item, error)
	AggregateOne(ctx context.Context, query string, provider search.Provider) ([]domain.Item, error)
	Stream(ctx context.Context, query string, providers []search.Provider) <-chan domain.SearchEvent
	Suggest(ctx context.Context, query string, providers []search.Provider) []domain.Suggestion
	ProviderDiagnostics(providers []search.Provider) []domain.ProviderDiagnostics
}

// ProviderRegistry resolves which providers an identity may search.
type ProviderRegistry interface {
	EnabledProviders(username string) []search.Provider
	Provider(username, key string) (search.Provider, bool)
	Sites() []domain.ProviderInfo
}

type Server struct {
	service      SearchService
	registry     ProviderRegistry
	gate         auth.Gate
	logger       *slog.Logger
	promRegistry *prometheus.Registry
	cacheTTL     time.Duration
	mux          *http.ServeMux
}

type Option func(*Server)

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Server) { s.cacheTTL = ttl }
}

func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.promRegistry = reg }
}

func NewServer(service SearchService, registry ProviderRegistry, gate auth.Gate, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		service:  service,
		registry: registry,
		gate:     gate,
		logger:   logger,
		cacheTTL: 30 * time.Minute,
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/search", s.handleSearch)
	s.mux.HandleFunc("GET /api/search/ws", s.handleSearchStream)
	s.mux.HandleFunc("GET /api/search/one", s.handleSearchOne)
	s.mux.HandleFunc("GET /api/search/suggestions", s.handleSuggestions)
	s.mux.HandleFunc("GET /api/search/resources", s.handleResources)
	s.mux.HandleFunc("GET /api/search/resources/health", s.handleResourcesHealth)
	metricsHandler := promhttp.Handler()
	if s.promRegistry != nil {
		metricsHandler = promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{})
	}
	s.mux.Handle("GET /metrics", metricsHandler)
}

// Handler returns the fully wrapped HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = metricsMiddleware(h)
	h = loggingMiddleware(s.logger, h)
	h = rateLimitMiddleware(h)
	h = recoveryMiddleware(s.logger, h)
	return otelhttp.NewHandler(h, "searchgateway")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authenticate resolves the request identity or terminates with 401.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := s.gate.Authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return auth.Identity{}, false
	}
	return identity, true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		query = r.URL.Query().Get("wd")
	}
	providers := s.registry.EnabledProviders(identity.Username)

	results, err := s.service.Aggregate(r.Context(), query, providers)
	if err != nil {
		if errors.Is(err, search.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}
		s.logger.Error("search failed", "query", query, "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if len(results) > 0 {
		s.setCacheHeaders(w)
	}
	writeJSON(w, http.StatusOK, domain.SearchResponse{Results: results})
}

func (s *Server) handleSearchOne(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get("q")
	resourceID := r.URL.Query().Get("resourceId")
	if query == "" || resourceID == "" {
		writeError(w, http.StatusBadRequest, "q and resourceId are required")
		return
	}
	provider, ok := s.registry.Provider(identity.Username, resourceID)
	if !ok {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	results, err := s.service.AggregateOne(r.Context(), query, provider)
	if err != nil {
		if errors.Is(err, search.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}
		s.logger.Error("single source search failed", "query", query, "source", resourceID, "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if len(results) == 0 {
		writeError(w, http.StatusNotFound, "no results")
		return
	}
	writeJSON(w, http.StatusOK, domain.SearchResponse{Results: results})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get("q")
	providers := s.registry.EnabledProviders(identity.Username)
	suggestions := s.service.Suggest(r.Context(), query, providers)
	writeJSON(w, http.StatusOK, map[string][]domain.Suggestion{"suggestions": suggestions})
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.ProviderInfo{"resources": s.registry.Sites()})
}

func (s *Server) handleResourcesHealth(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	providers := s.registry.EnabledProviders(identity.Username)
	writeJSON(w, http.StatusOK, map[string][]domain.ProviderDiagnostics{
		"resources": s.service.ProviderDiagnostics(providers),
	})
}

func (s *Server) handleSearchStream(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	providers := s.registry.EnabledProviders(identity.Username)
	events := s.service.Stream(r.Context(), query, providers)
	for event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("encode stream event", "error", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			// Client went away, the stream context ends with the request.
			return
		}
		flusher.Flush()
	}
}

func (s *Server) setCacheHeaders(w http.ResponseWriter) {
	seconds := int(s.cacheTTL.Seconds())
	value := fmt.Sprintf("public, max-age=%d, s-maxage=%d", seconds, seconds)
	w.Header().Set("Cache-Control", value)
	w.Header().Set("CDN-Cache-Control", fmt.Sprintf("public, s-maxage=%d", seconds))
	w.Header().Set("Vercel-CDN-Cache-Control", fmt.Sprintf("public, s-maxage=%d", seconds))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
