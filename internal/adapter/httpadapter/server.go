package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/postcode-distance-service/internal/domain"
	"github.com/couchcryptid/postcode-distance-service/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PostcodeService is the subset of domain.DistanceService the API serves.
type PostcodeService interface {
	Lookup(ctx context.Context, postcode string) (domain.LookupResult, error)
	BulkLookup(ctx context.Context, postcodes []string) (map[string]domain.LookupResult, error)
	PostcodeDistance(ctx context.Context, from, to string, unit domain.Unit) (domain.DistanceResult, error)
}

// Server exposes the postcode API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer  *http.Server
	service     PostcodeService
	defaultUnit domain.Unit
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewServer creates an HTTP server with the /v1 API routes and the
// /healthz, /readyz, and /metrics routes.
func NewServer(addr string, service PostcodeService, defaultUnit domain.Unit, ready sharedobs.ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service:     service,
		defaultUnit: defaultUnit,
		metrics:     metrics,
		logger:      logger,
	}

	mux.HandleFunc("GET /v1/postcodes/{postcode}", s.handleLookup)
	mux.HandleFunc("POST /v1/postcodes/lookup", s.handleBulkLookup)
	mux.HandleFunc("GET /v1/distance", s.handlePostcodeDistance)
	mux.HandleFunc("POST /v1/distance/coordinates", s.handleCoordinateDistance)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

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
