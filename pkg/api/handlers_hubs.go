package api

import (
	"context"
	"net/http"

	"github.com/dd0wney/cluso-airnet/pkg/algorithms"
)

const (
	defaultHubLimit       = 20
	defaultCommunityLimit = 100
)

type rankingFunc func(ctx context.Context, limit int) ([]algorithms.RankedAirport, error)

// serveRanking answers a top-N centrality query
func (s *Server) serveRanking(w http.ResponseWriter, r *http.Request, operation string, rank rankingFunc) {
	limit, ok := s.queryLimit(w, r, defaultHubLimit)
	if !ok {
		return
	}
	ranked, err := rank(r.Context(), limit)
	if err != nil {
		s.respondOpError(w, r, operation, err)
		return
	}
	s.respondJSON(w, http.StatusOK, ranked)
}

func (s *Server) handleTopHubs(w http.ResponseWriter, r *http.Request) {
	s.serveRanking(w, r, "degree ranking", s.analyzer.TopHubs)
}

func (s *Server) handleCloseness(w http.ResponseWriter, r *http.Request) {
	s.serveRanking(w, r, "closeness ranking", s.analyzer.Closeness)
}

func (s *Server) handleBetweenness(w http.ResponseWriter, r *http.Request) {
	s.serveRanking(w, r, "betweenness ranking", s.analyzer.Betweenness)
}

func (s *Server) handleCommunities(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.queryLimit(w, r, defaultCommunityLimit)
	if !ok {
		return
	}
	result, err := s.analyzer.Communities(r.Context())
	if err != nil {
		s.respondOpError(w, r, "community detection", err)
		return
	}
	s.respondJSON(w, http.StatusOK, CommunitiesResponse{
		Modularity:  result.Modularity,
		Levels:      result.Levels,
		Communities: result.Communities,
		Members:     result.MembersByCommunity(limit),
	})
}
