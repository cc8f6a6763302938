package algorithms

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-airnet/pkg/network"
)

// MaxPathHops bounds every path query
const MaxPathHops = 4

// Metric selects what a path query measures
type Metric int

const (
	MetricHops Metric = iota
	MetricDistance
)

// String returns the metric name
func (m Metric) String() string {
	if m == MetricDistance {
		return "distance"
	}
	return "hops"
}

// Objective selects whether the query minimises or maximises the metric
type Objective int

const (
	Shortest Objective = iota
	Longest
)

// String returns the objective name
func (o Objective) String() string {
	if o == Longest {
		return "longest"
	}
	return "shortest"
}

// PathQuery describes a bounded path search between two airports
type PathQuery struct {
	Start     int64
	End       int64
	Metric    Metric
	Objective Objective
	MaxHops   int // 0 means MaxPathHops; larger values are capped to it
}

// PathAirport is an airport on a path
type PathAirport struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	IATA      string  `json:"iata,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Path is the result of a path query. Found is false, and every other field
// zero, when start equals end or no simple path exists within the hop bound.
type Path struct {
	Found    bool          `json:"found"`
	Start    *PathAirport  `json:"start,omitempty"`
	Via      []PathAirport `json:"via"`
	End      *PathAirport  `json:"end,omitempty"`
	Hops     int           `json:"hops"`
	Distance float64       `json:"distance"`
	RouteIDs []int64       `json:"route_ids"`
}

// expansions between context checks during path enumeration
const pathCtxCheckInterval = 4096

// pathSearch is the state of one depth-first enumeration
type pathSearch struct {
	ctx  context.Context
	p    *network.Projection
	q    PathQuery
	end  int
	hops int // effective bound

	toEnd   []int // hop distance to end, -1 if beyond the bound
	visited []bool

	nodes  []int // current path, start first
	routes []int64
	dist   float64

	found      bool
	bestNodes  []int
	bestRoutes []int64
	bestDist   float64

	steps int
	err   error
}

// FindPath enumerates simple paths of 1 to MaxPathHops hops from q.Start to
// q.End and returns the best one for the query's metric and objective.
// Routes are expanded in ascending route id order from every airport; the
// first path found is kept unless a later one is strictly better.
func FindPath(ctx context.Context, p *network.Projection, q PathQuery) (*Path, error) {
	start, ok := p.Index(q.Start)
	if !ok {
		return nil, network.NewError("FindPath").Airport(q.Start).Context("start").Cause(network.ErrUnknownEndpoint).Err()
	}
	end, ok := p.Index(q.End)
	if !ok {
		return nil, network.NewError("FindPath").Airport(q.End).Context("end").Cause(network.ErrUnknownEndpoint).Err()
	}
	if start == end {
		return &Path{Via: []PathAirport{}, RouteIDs: []int64{}}, nil
	}

	bound := q.MaxHops
	if bound <= 0 || bound > MaxPathHops {
		bound = MaxPathHops
	}

	s := &pathSearch{
		ctx:     ctx,
		p:       p,
		q:       q,
		end:     end,
		hops:    bound,
		toEnd:   hopsTo(p, end, bound),
		visited: make([]bool, p.Len()),
		nodes:   []int{start},
	}
	if s.toEnd[start] < 0 {
		return &Path{Via: []PathAirport{}, RouteIDs: []int64{}}, nil
	}

	s.visited[start] = true
	s.expand(start)
	if s.err != nil {
		return nil, fmt.Errorf("path search: %w", s.err)
	}
	return s.result(), nil
}

// hopsTo runs a BFS from target over the collapsed projection, stopping at
// bound hops.
func hopsTo(p *network.Projection, target, bound int) []int {
	dist := make([]int, p.Len())
	for i := range dist {
		dist[i] = -1
	}
	dist[target] = 0
	queue := []int{target}
	for head := 0; head < len(queue); head++ {
		v := queue[head]
		if dist[v] == bound {
			continue
		}
		for _, u := range p.Neighbors[v] {
			if dist[u] < 0 {
				dist[u] = dist[v] + 1
				queue = append(queue, u)
			}
		}
	}
	return dist
}

func (s *pathSearch) expand(v int) {
	depth := len(s.routes)
	for _, arc := range s.p.Arcs[v] {
		if s.err != nil {
			return
		}
		s.steps++
		if s.steps%pathCtxCheckInterval == 0 {
			if err := s.ctx.Err(); err != nil {
				s.err = err
				return
			}
		}

		u := arc.To
		if s.visited[u] {
			continue
		}
		hops := depth + 1
		dist := s.dist + arc.Distance

		if u == s.end {
			if s.better(hops, dist) {
				s.record(u, arc.Route, dist)
			}
			continue
		}

		if hops >= s.hops || s.toEnd[u] < 0 || hops+s.toEnd[u] > s.hops {
			continue
		}
		if s.cannotImprove(hops+s.toEnd[u], dist) {
			continue
		}

		s.visited[u] = true
		s.nodes = append(s.nodes, u)
		s.routes = append(s.routes, arc.Route)
		prev := s.dist
		s.dist = dist

		s.expand(u)

		s.dist = prev
		s.routes = s.routes[:len(s.routes)-1]
		s.nodes = s.nodes[:len(s.nodes)-1]
		s.visited[u] = false
	}
}

// better reports whether a complete path with the given hop count and
// distance strictly beats the best so far.
func (s *pathSearch) better(hops int, dist float64) bool {
	if !s.found {
		return true
	}
	bestHops := len(s.bestRoutes)
	switch {
	case s.q.Metric == MetricHops && s.q.Objective == Shortest:
		return hops < bestHops
	case s.q.Metric == MetricHops:
		return hops > bestHops
	case s.q.Objective == Shortest:
		return dist < s.bestDist
	default:
		return dist > s.bestDist
	}
}

// cannotImprove prunes branches of shortest queries whose lower bound already
// meets the best path.
func (s *pathSearch) cannotImprove(minHops int, dist float64) bool {
	if !s.found || s.q.Objective != Shortest {
		return false
	}
	if s.q.Metric == MetricHops {
		return minHops >= len(s.bestRoutes)
	}
	return dist >= s.bestDist
}

func (s *pathSearch) record(end int, route int64, dist float64) {
	s.found = true
	s.bestNodes = append(append(s.bestNodes[:0], s.nodes...), end)
	s.bestRoutes = append(append(s.bestRoutes[:0], s.routes...), route)
	s.bestDist = dist
}

func (s *pathSearch) result() *Path {
	if !s.found {
		return &Path{Via: []PathAirport{}, RouteIDs: []int64{}}
	}
	airports := make([]PathAirport, len(s.bestNodes))
	for k, i := range s.bestNodes {
		a := s.p.Airports[i]
		airports[k] = PathAirport{ID: a.ID, Name: a.Name, IATA: a.IATA, Latitude: a.Latitude, Longitude: a.Longitude}
	}
	last := len(airports) - 1
	return &Path{
		Found:    true,
		Start:    &airports[0],
		Via:      airports[1:last],
		End:      &airports[last],
		Hops:     len(s.bestRoutes),
		Distance: s.bestDist,
		RouteIDs: append([]int64(nil), s.bestRoutes...),
	}
}
