package api

import (
	"net/http"

	"github.com/dd0wney/cluso-airnet/pkg/scenario"
	"github.com/dd0wney/cluso-airnet/pkg/validation"
)

const (
	defaultDeactivateLimit  = 3
	defaultAlternativeLimit = 5
)

func (s *Server) handleDeleteHub(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	deleted, err := s.scenario.DeleteHub(r.Context(), id)
	if err != nil {
		s.respondOpError(w, r, "delete hub", err)
		return
	}
	s.respondJSON(w, http.StatusOK, deleted)
}

func (s *Server) handleDeactivateHubs(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.queryLimit(w, r, defaultDeactivateLimit)
	if !ok {
		return
	}
	hubs, err := s.scenario.DeactivateTopHubs(r.Context(), limit)
	if err != nil {
		s.respondOpError(w, r, "deactivate hubs", err)
		return
	}
	s.respondJSON(w, http.StatusOK, hubs)
}

func (s *Server) handleReactivateHubs(w http.ResponseWriter, r *http.Request) {
	var req validation.ReactivateRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	if err := s.scenario.ReactivateAirports(r.Context(), req.Airports); err != nil {
		s.respondOpError(w, r, "reactivate airports", err)
		return
	}
	s.respondJSON(w, http.StatusOK, ReactivatedResponse{Reactivated: req.Airports})
}

func (s *Server) handleHypotheticalRoute(w http.ResponseWriter, r *http.Request) {
	var req validation.HypotheticalRouteRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	created, err := s.scenario.CreateHypotheticalRoute(r.Context(), scenario.RouteRequest{
		From:     req.From,
		To:       req.To,
		Distance: req.Distance,
		Stops:    req.Stops,
	})
	if err != nil {
		s.respondOpError(w, r, "create hypothetical route", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleAlternativeRoutes(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.queryLimit(w, r, defaultAlternativeLimit)
	if !ok {
		return
	}
	created, err := s.scenario.CreateAlternativeRoutes(r.Context(), limit)
	if err != nil {
		s.respondOpError(w, r, "create alternative routes", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleRevertScenarioRoutes(w http.ResponseWriter, r *http.Request) {
	removed, err := s.scenario.RevertScenarioRoutes(r.Context())
	if err != nil {
		s.respondOpError(w, r, "revert scenario routes", err)
		return
	}
	s.respondJSON(w, http.StatusOK, RemovedIDsResponse{Removed: removed, Count: len(removed)})
}

func (s *Server) handleMergeAirlines(w http.ResponseWriter, r *http.Request) {
	var req validation.MergeAirlinesRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	merged, err := s.scenario.MergeAirlines(r.Context(), req.Airline1, req.Airline2, scenario.MergeOptions{
		Name:          req.Name,
		RetireSources: req.RetireSources,
	})
	if err != nil {
		s.respondOpError(w, r, "merge airlines", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, merged)
}
