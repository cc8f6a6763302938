package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dd0wney/cluso-airnet/pkg/network"
	"github.com/dd0wney/cluso-airnet/pkg/validation"
)

const defaultAirportListLimit = 100

// airportFromRequest converts a validated request into an airport record.
// The status is left empty so updates keep the current one.
func airportFromRequest(req *validation.AirportRequest) network.Airport {
	return network.Airport{
		ID:        req.ID,
		Name:      strings.TrimSpace(req.Name),
		IATA:      strings.ToUpper(req.IATA),
		ICAO:      strings.ToUpper(req.ICAO),
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.graph.Stats())
}

func (s *Server) handleListAirports(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.queryLimit(w, r, defaultAirportListLimit)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, s.graph.ListAirports(limit))
}

func (s *Server) handleGetAirport(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	airport, err := s.graph.Airport(id)
	if err != nil {
		s.respondOpError(w, r, "get airport", err)
		return
	}
	degree, err := s.graph.Degree(id)
	if err != nil {
		// Removed between the two reads
		s.respondOpError(w, r, "get airport", err)
		return
	}
	s.respondJSON(w, http.StatusOK, AirportDetailResponse{Airport: airport, Degree: degree})
}

func (s *Server) handleCreateAirport(w http.ResponseWriter, r *http.Request) {
	var req validation.AirportRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}

	airport := airportFromRequest(&req)
	if err := s.graph.AddAirport(r.Context(), airport); err != nil {
		s.respondOpError(w, r, "create airport", err)
		return
	}
	created, err := s.graph.Airport(airport.ID)
	if err != nil {
		s.respondOpError(w, r, "create airport", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateAirport(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var req validation.AirportRequest
	rd := s.newRequestDecoder(w, r).DecodeJSON(&req)
	if req.ID == 0 {
		req.ID = id
	}
	if rd.Validate(&req).RespondError() {
		return
	}
	if req.ID != id {
		s.respondError(w, r, http.StatusBadRequest, fmt.Sprintf("airport_id %d does not match path id %d", req.ID, id))
		return
	}

	updated, err := s.graph.UpdateAirport(r.Context(), airportFromRequest(&req))
	if err != nil {
		s.respondOpError(w, r, "update airport", err)
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteAirport(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	airport, routeIDs, err := s.graph.RemoveAirport(r.Context(), id)
	if err != nil {
		s.respondOpError(w, r, "delete airport", err)
		return
	}
	if routeIDs == nil {
		routeIDs = []int64{}
	}
	s.respondJSON(w, http.StatusOK, RemovedAirportResponse{Airport: airport, RemovedRoutes: routeIDs})
}

func (s *Server) handleAirlinesServing(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	airlines, err := s.graph.AirlinesServing(id)
	if err != nil {
		s.respondOpError(w, r, "airlines serving airport", err)
		return
	}
	s.respondJSON(w, http.StatusOK, ServingAirlinesResponse{AirportID: id, Airlines: airlines})
}

func (s *Server) handleRenameAirline(w http.ResponseWriter, r *http.Request) {
	var req validation.AirlineRenameRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	airline, err := s.graph.RenameAirline(r.Context(), req.ID, strings.TrimSpace(req.Name))
	if err != nil {
		s.respondOpError(w, r, "rename airline", err)
		return
	}
	s.respondJSON(w, http.StatusOK, airline)
}
