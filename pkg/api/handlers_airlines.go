package api

import (
	"net/http"

	"github.com/dd0wney/cluso-airnet/pkg/network"
)

const defaultCoverageLimit = 10

func (s *Server) handleAirlines(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.graph.AirlineSummaries())
}

func (s *Server) handleTopCoverage(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.queryLimit(w, r, defaultCoverageLimit)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, s.graph.TopAirlinesByCoverage(limit))
}

func (s *Server) handleCompareAirlines(w http.ResponseWriter, r *http.Request) {
	a, ok := s.pathID(w, r, "a")
	if !ok {
		return
	}
	b, ok := s.pathID(w, r, "b")
	if !ok {
		return
	}
	comparison, err := s.graph.CompareAirlines(a, b)
	if err != nil {
		s.respondOpError(w, r, "compare airlines", err)
		return
	}
	s.respondJSON(w, http.StatusOK, comparison)
}

func (s *Server) handleAirlineRoutes(w http.ResponseWriter, r *http.Request) {
	s.serveAirlineRoutes(w, r, "airline routes", s.graph.RoutesByAirline)
}

func (s *Server) handleExclusiveRoutes(w http.ResponseWriter, r *http.Request) {
	s.serveAirlineRoutes(w, r, "exclusive routes", s.graph.ExclusiveRoutes)
}

func (s *Server) serveAirlineRoutes(w http.ResponseWriter, r *http.Request, operation string, list func(int64) ([]network.AirlineRoute, error)) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	routes, err := list(id)
	if err != nil {
		s.respondOpError(w, r, operation, err)
		return
	}
	s.respondJSON(w, http.StatusOK, routes)
}
