// Package httpapi serves the fakersql JSON API and the HTML index page.
//
// Routes:
//   - GET /api/locales
//   - GET|POST /api/generate
//   - GET /api/benchmark
//   - GET /api/health
//   - GET /
//   - GET /metrics (only with WithMetrics)
//
// Every JSON response uses the envelope {success, data?, error?}.
package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/AntonStoeckl/fakersql-go/fakersql"
	"github.com/AntonStoeckl/fakersql-go/fakersql/postgresengine"
)

const (
	metricRequestDuration = "fakersql_http_request_duration_seconds"
	labelMethod           = "method"
	labelRoute            = "route"
	labelStatus           = "status"
)

// Service is the part of postgresengine.FakerService the handlers call.
type Service interface {
	GetLocales(ctx context.Context) ([]fakersql.Locale, error)
	GenerateUsers(ctx context.Context, params fakersql.ValidatedParams) ([]fakersql.FakeUser, error)
	RunBenchmark(ctx context.Context, locale string, iterations int) (fakersql.BenchmarkResult, error)
}

// StatsSource reports pool stats for the health endpoint.
type StatsSource interface {
	Stats() postgresengine.PoolStats
}

// MetricsCollector records request durations and serves the metrics endpoint.
type MetricsCollector interface {
	fakersql.MetricsCollector
	Handler() http.Handler
}

// Server holds the handlers and their collaborators.
type Server struct {
	service      Service
	logger       *slog.Logger
	metrics      MetricsCollector
	stats        StatsSource
	maxBatchSize int
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets the request logger. Without it, nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithMetrics records request durations in collector and serves it on /metrics.
func WithMetrics(collector MetricsCollector) Option {
	return func(s *Server) error {
		s.metrics = collector
		return nil
	}
}

// WithPoolStats adds the pool's stats to the health response.
func WithPoolStats(source StatsSource) Option {
	return func(s *Server) error {
		s.stats = source
		return nil
	}
}

// WithMaxBatchSize sets the upper bound for batch_size.
func WithMaxBatchSize(n int) Option {
	return func(s *Server) error {
		if n < 1 {
			return errors.New("max batch size must be at least 1")
		}

		s.maxBatchSize = n

		return nil
	}
}

// NewServer creates a Server on top of service.
func NewServer(service Service, options ...Option) (*Server, error) {
	if service == nil {
		return nil, errors.New("service must not be nil")
	}

	s := &Server{
		service:      service,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxBatchSize: fakersql.DefaultMaxBatchSize,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Handler returns the routed handler wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/locales", s.handleLocales)
	mux.HandleFunc("GET /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/benchmark", s.handleBenchmark)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleIndex)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return s.middleware(mux)
}

// NewHTTPServer creates an http.Server for addr with conservative timeouts.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
