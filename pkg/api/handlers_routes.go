package api

import (
	"fmt"
	"net/http"

	"github.com/dd0wney/cluso-airnet/pkg/algorithms"
)

func (s *Server) handleRoutesFrom(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	routes, err := s.graph.RoutesFrom(id)
	if err != nil {
		s.respondOpError(w, r, "list routes", err)
		return
	}
	s.respondJSON(w, http.StatusOK, routes)
}

func (s *Server) handleAverageStops(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, AverageResponse{Metric: "stops", Value: s.graph.AverageStops()})
}

func (s *Server) handleAverageDistance(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, AverageResponse{Metric: "distance", Value: s.graph.AverageDistance()})
}

// pathHandler serves one of the four bounded path queries. max_hops may
// lower the hop bound.
func (s *Server) pathHandler(metric algorithms.Metric, objective algorithms.Objective) http.HandlerFunc {
	operation := fmt.Sprintf("%s %s path", objective, metric)
	return func(w http.ResponseWriter, r *http.Request) {
		from, ok := s.pathID(w, r, "from")
		if !ok {
			return
		}
		to, ok := s.pathID(w, r, "to")
		if !ok {
			return
		}
		maxHops, ok := s.queryInt(w, r, "max_hops", algorithms.MaxPathHops)
		if !ok {
			return
		}
		if maxHops < 1 || maxHops > algorithms.MaxPathHops {
			s.respondError(w, r, http.StatusBadRequest,
				fmt.Sprintf("max_hops must be between 1 and %d, got %d", algorithms.MaxPathHops, maxHops))
			return
		}

		path, err := s.analyzer.FindPath(r.Context(), algorithms.PathQuery{
			Start:     from,
			End:       to,
			Metric:    metric,
			Objective: objective,
			MaxHops:   maxHops,
		})
		if err != nil {
			s.respondOpError(w, r, operation, err)
			return
		}
		s.respondJSON(w, http.StatusOK, path)
	}
}

func (s *Server) handleDeleteIsolated(w http.ResponseWriter, r *http.Request) {
	removed, err := s.scenario.DeleteIsolatedAirports(r.Context())
	if err != nil {
		s.respondOpError(w, r, "delete isolated airports", err)
		return
	}
	s.respondJSON(w, http.StatusOK, RemovedIDsResponse{Removed: removed, Count: len(removed)})
}
