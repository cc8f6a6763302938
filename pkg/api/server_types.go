package api

import (
	"net/http"
	"time"

	"github.com/dd0wney/cluso-airnet/pkg/algorithms"
	"github.com/dd0wney/cluso-airnet/pkg/config"
	"github.com/dd0wney/cluso-airnet/pkg/health"
	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/metrics"
	"github.com/dd0wney/cluso-airnet/pkg/network"
	"github.com/dd0wney/cluso-airnet/pkg/pubsub"
	"github.com/dd0wney/cluso-airnet/pkg/scenario"
)

// Options holds the collaborators of a Server. Graph, Analyzer and Scenario
// are required.
type Options struct {
	Server   config.ServerConfig
	Graph    *network.Graph
	Analyzer *algorithms.Analyzer
	Scenario *scenario.Engine
	Health   *health.HealthChecker
	Events   *pubsub.Broker
	Metrics  *metrics.Registry
	Logger   logging.Logger
}

// Server represents the HTTP API server
type Server struct {
	graph    *network.Graph
	analyzer *algorithms.Analyzer
	scenario *scenario.Engine
	health   *health.HealthChecker
	events   *pubsub.Broker
	metrics  *metrics.Registry
	logger   logging.Logger
	cfg      config.ServerConfig

	httpServer *http.Server
	startTime  time.Time
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Code      int    `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// CommunitiesResponse is the result of community detection
type CommunitiesResponse struct {
	Modularity  float64                      `json:"modularity"`
	Levels      int                          `json:"levels"`
	Communities []algorithms.Community       `json:"communities"`
	Members     []algorithms.CommunityMember `json:"members"`
}

// AverageResponse carries one network-wide average
type AverageResponse struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

// AirportDetailResponse is an airport with its route count
type AirportDetailResponse struct {
	Airport *network.Airport `json:"airport"`
	Degree  int              `json:"degree"`
}

// RemovedAirportResponse reports an airport removal and its cascade
type RemovedAirportResponse struct {
	Airport       *network.Airport `json:"airport"`
	RemovedRoutes []int64          `json:"removed_routes"`
}

// ServingAirlinesResponse lists airlines operating at an airport
type ServingAirlinesResponse struct {
	AirportID int64    `json:"airport_id"`
	Airlines  []string `json:"airlines"`
}

// RemovedIDsResponse lists the ids removed by a bulk operation
type RemovedIDsResponse struct {
	Removed []int64 `json:"removed"`
	Count   int     `json:"count"`
}

// ReactivatedResponse lists airports marked active again
type ReactivatedResponse struct {
	Reactivated []int64 `json:"reactivated"`
}
