// Package api serves the HealthMania endpoints over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"healthmania-api/internal/common"
	"healthmania-api/internal/features"
	"healthmania-api/internal/health"
	"healthmania-api/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Metrics is what the HTTP layer reports.
type Metrics interface {
	RequestObserve(route string, code int, d time.Duration)
	ValidationErrorInc(endpoint, kind string)
	RateLimitedInc()
	PanicRecoveredInc()
	ErrorRate() float64
}

// HistoryReader reads back recorded predictions.
type HistoryReader interface {
	GetRecent(endpoint string, limit int) ([]storage.PredictionRecord, error)
	GetRange(endpoint string, start, end time.Time) ([]storage.PredictionRecord, error)
}

type Config struct {
	Port        int
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string
}

// Server provides the HTTP API for predictions and diet recommendations
type Server struct {
	cfg      Config
	svc      *health.Service
	history  HistoryReader
	metrics  Metrics
	gatherer prometheus.Gatherer
	limiter  *rate.Limiter
	server   *http.Server
}

// NewServer wires the routes. history, metrics and gatherer may be nil.
func NewServer(cfg Config, svc *health.Service, history HistoryReader, metrics Metrics, gatherer prometheus.Gatherer) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = common.DefaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = common.DefaultRateBurst
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{common.DefaultCORSOrigin}
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		cfg:      cfg,
		svc:      svc,
		history:  history,
		metrics:  metrics,
		gatherer: gatherer,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  common.ServerReadTimeout * time.Second,
		WriteTimeout: common.ServerWriteTimeout * time.Second,
		IdleTimeout:  common.ServerIdleTimeout * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(common.RouteRoot+"{$}", s.withMiddleware(common.RouteRoot, s.handleRoot))
	mux.HandleFunc(common.RouteHealth, s.withMiddleware(common.RouteHealth, s.handleHealth))
	mux.HandleFunc(common.RouteReady, s.withMiddleware(common.RouteReady, s.handleReady))
	mux.HandleFunc(common.RouteHistory, s.withMiddleware(common.RouteHistory, s.handleHistory))
	mux.Handle(common.RouteMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc(common.RoutePredictDiabetes, s.withMiddleware(common.RoutePredictDiabetes,
		s.predictHandler(common.RoutePredictDiabetes, func(ctx context.Context, req features.Request) (any, error) {
			return s.svc.PredictDiabetes(ctx, req)
		})))
	mux.HandleFunc(common.RoutePredictFood, s.withMiddleware(common.RoutePredictFood,
		s.predictHandler(common.RoutePredictFood, func(ctx context.Context, req features.Request) (any, error) {
			return s.svc.PredictFood(ctx, req)
		})))
	mux.HandleFunc(common.RoutePredictSleep, s.withMiddleware(common.RoutePredictSleep,
		s.predictHandler(common.RoutePredictSleep, func(ctx context.Context, req features.Request) (any, error) {
			return s.svc.PredictSleepStress(ctx, req)
		})))
	mux.HandleFunc(common.RouteRecommendDiet, s.withMiddleware(common.RouteRecommendDiet,
		s.predictHandler(common.RouteRecommendDiet, func(ctx context.Context, req features.Request) (any, error) {
			return s.svc.RecommendDiet(ctx, req)
		})))

	return mux
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving HTTP requests. It returns nil after Shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting HealthMania API server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
