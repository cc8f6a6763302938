// Package api serves the air-route network over JSON HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-airnet/pkg/algorithms"
	"github.com/dd0wney/cluso-airnet/pkg/api/middleware"
	"github.com/dd0wney/cluso-airnet/pkg/logging"
)

// NewServer creates a new API server
func NewServer(opts Options) (*Server, error) {
	if opts.Graph == nil || opts.Analyzer == nil || opts.Scenario == nil {
		return nil, errors.New("api: graph, analyzer and scenario engine are required")
	}
	s := &Server{
		graph:     opts.Graph,
		analyzer:  opts.Analyzer,
		scenario:  opts.Scenario,
		health:    opts.Health,
		events:    opts.Events,
		metrics:   opts.Metrics,
		logger:    logging.OrNop(opts.Logger).With(logging.Component("api")),
		cfg:       opts.Server,
		startTime: time.Now(),
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// routes registers every endpoint on mux
func (s *Server) routes(mux *http.ServeMux) {
	// Hubs and centrality
	mux.HandleFunc("GET /api/hubs/top", s.handleTopHubs)
	mux.HandleFunc("GET /api/hubs/closeness", s.handleCloseness)
	mux.HandleFunc("GET /api/hubs/betweenness", s.handleBetweenness)
	mux.HandleFunc("GET /api/hubs/communities", s.handleCommunities)

	// Routes and paths
	mux.HandleFunc("GET /api/routes/airport/{id}", s.handleRoutesFrom)
	mux.HandleFunc("GET /api/routes/avg-stops", s.handleAverageStops)
	mux.HandleFunc("GET /api/routes/avg-distance", s.handleAverageDistance)
	mux.HandleFunc("GET /api/routes/shortest-stops/{from}/{to}", s.pathHandler(algorithms.MetricHops, algorithms.Shortest))
	mux.HandleFunc("GET /api/routes/longest-stops/{from}/{to}", s.pathHandler(algorithms.MetricHops, algorithms.Longest))
	mux.HandleFunc("GET /api/routes/shortest-distance/{from}/{to}", s.pathHandler(algorithms.MetricDistance, algorithms.Shortest))
	mux.HandleFunc("GET /api/routes/longest-distance/{from}/{to}", s.pathHandler(algorithms.MetricDistance, algorithms.Longest))
	mux.HandleFunc("DELETE /api/routes/isolated", s.handleDeleteIsolated)

	// Airlines
	mux.HandleFunc("GET /api/airlines", s.handleAirlines)
	mux.HandleFunc("GET /api/airlines/top-coverage", s.handleTopCoverage)
	mux.HandleFunc("GET /api/airlines/compare/{a}/{b}", s.handleCompareAirlines)
	mux.HandleFunc("GET /api/airlines/{id}/routes", s.handleAirlineRoutes)
	mux.HandleFunc("GET /api/airlines/{id}/exclusive", s.handleExclusiveRoutes)

	// Exploration and editing
	mux.HandleFunc("GET /api/explore/stats", s.handleStats)
	mux.HandleFunc("GET /api/explore/airports", s.handleListAirports)
	mux.HandleFunc("POST /api/explore/airports", s.handleCreateAirport)
	mux.HandleFunc("GET /api/explore/airports/{id}", s.handleGetAirport)
	mux.HandleFunc("PUT /api/explore/airports/{id}", s.handleUpdateAirport)
	mux.HandleFunc("DELETE /api/explore/airports/{id}", s.handleDeleteAirport)
	mux.HandleFunc("GET /api/explore/airports/{id}/airlines", s.handleAirlinesServing)
	mux.HandleFunc("PUT /api/explore/airlines", s.handleRenameAirline)

	// What-if scenarios
	mux.HandleFunc("DELETE /api/scenario/hub/{id}", s.handleDeleteHub)
	mux.HandleFunc("PUT /api/scenario/hubs/deactivate", s.handleDeactivateHubs)
	mux.HandleFunc("PUT /api/scenario/hubs/reactivate", s.handleReactivateHubs)
	mux.HandleFunc("POST /api/scenario/routes/hypothetical", s.handleHypotheticalRoute)
	mux.HandleFunc("POST /api/scenario/routes/alternative", s.handleAlternativeRoutes)
	mux.HandleFunc("DELETE /api/scenario/routes", s.handleRevertScenarioRoutes)
	mux.HandleFunc("POST /api/scenario/airlines/merge", s.handleMergeAirlines)

	// Change feed
	if s.events != nil {
		mux.HandleFunc("GET /api/events", s.handleEvents)
	}

	// Health and metrics
	if s.health != nil {
		mux.HandleFunc("GET /health", s.health.HTTPHandler())
		mux.HandleFunc("GET /health/ready", s.health.ReadinessHandler())
		mux.HandleFunc("GET /health/live", s.health.LivenessHandler())
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	}
}

// Handler returns the full middleware chain around every endpoint
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)

	// Metrics must see the request the mux annotated with its pattern
	var handler http.Handler = mux
	if s.metrics != nil {
		handler = middleware.Metrics(s.metrics)(handler)
	}
	handler = middleware.Timeout(s.cfg.RequestTimeout)(handler)
	if s.cfg.MaxBodyBytes > 0 {
		handler = middleware.BodySizeLimit(s.cfg.MaxBodyBytes)(handler)
	}
	handler = middleware.SecurityHeaders()(handler)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = s.cfg.CORSOrigins
	handler = middleware.CORS(cors)(handler)

	handler = middleware.Logging(s.logger)(handler)
	handler = middleware.RequestID()(handler)
	return middleware.PanicRecovery(s.logger)(handler)
}

// Start serves the API until Shutdown is called
func (s *Server) Start() error {
	addr := s.httpServer.Addr
	s.logger.Info("airnet API listening", logging.String("addr", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api: listen on %s: %w", addr, err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones. The event
// broker is shut down first so open streams end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("airnet API shutting down", logging.Duration("uptime", time.Since(s.startTime)))
	if s.events != nil {
		s.events.Shutdown()
	}
	return s.httpServer.Shutdown(ctx)
}
