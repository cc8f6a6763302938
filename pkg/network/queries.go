package network

import (
	"cmp"
	"slices"
)

// RouteView is a route seen from one of its endpoints
type RouteView struct {
	RouteID   int64    `json:"route_id"`
	AirportID int64    `json:"airport_id"`
	Name      string   `json:"name"`
	IATA      string   `json:"iata,omitempty"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Stops     int      `json:"stops"`
	Distance  float64  `json:"distance"`
	Airlines  []string `json:"airlines"`
}

// AirlineRoute is a route operated by an airline, with both endpoints
// resolved
type AirlineRoute struct {
	RouteID       int64   `json:"route_id"`
	Airline       string  `json:"airline"`
	From          string  `json:"from"`
	FromLatitude  float64 `json:"from_latitude"`
	FromLongitude float64 `json:"from_longitude"`
	To            string  `json:"to"`
	ToLatitude    float64 `json:"to_latitude"`
	ToLongitude   float64 `json:"to_longitude"`
	Stops         int     `json:"stops"`
	Distance      float64 `json:"distance"`
}

// AirlineSummary is an airline with the number of routes it operates
type AirlineSummary struct {
	ID         int64  `json:"airline_id"`
	Name       string `json:"name"`
	RouteCount int    `json:"route_count"`
}

// AirlineCoverage is an airline with the number of distinct airports its
// routes touch
type AirlineCoverage struct {
	ID              int64  `json:"airline_id"`
	Name            string `json:"airline"`
	AirportsCovered int    `json:"airports_covered"`
}

// AirlineComparison lists shared and distinct route labels of two airlines.
// A label is "{from name}→{to name}" in the route's stored orientation.
type AirlineComparison struct {
	Airline1         string   `json:"airline1"`
	Airline2         string   `json:"airline2"`
	SharedRoutes     []string `json:"shared_routes"`
	UniqueToAirline1 []string `json:"unique_to_airline1"`
	UniqueToAirline2 []string `json:"unique_to_airline2"`
}

// ListAirports returns up to limit airports, ascending by id
func (g *Graph) ListAirports(limit int) []*Airport {
	if limit <= 0 {
		return []*Airport{}
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := sortedKeys(g.airports)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*Airport, len(ids))
	for i, id := range ids {
		out[i] = g.airports[id].Clone()
	}
	return out
}

// RoutesFrom returns every route touching the airport as seen from it,
// ascending by distance then route id.
func (g *Graph) RoutesFrom(airportID int64) ([]RouteView, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.airports[airportID]; !ok {
		return nil, airportNotFound("RoutesFrom", airportID)
	}

	views := make([]RouteView, 0, len(g.incident[airportID]))
	for _, rid := range g.incident[airportID] {
		r := g.routes[rid]
		other := g.airports[r.Other(airportID)]
		views = append(views, RouteView{
			RouteID:   r.ID,
			AirportID: other.ID,
			Name:      other.Name,
			IATA:      other.IATA,
			Latitude:  other.Latitude,
			Longitude: other.Longitude,
			Stops:     r.Stops,
			Distance:  r.Distance,
			Airlines:  g.operatorNames(r),
		})
	}
	slices.SortStableFunc(views, func(a, b RouteView) int {
		return cmp.Or(cmp.Compare(a.Distance, b.Distance), cmp.Compare(a.RouteID, b.RouteID))
	})
	return views, nil
}

// AverageStops returns the mean stops over all routes, 0 with no routes
func (g *Graph) AverageStops() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.routes) == 0 {
		return 0
	}
	total := 0
	for _, r := range g.routes {
		total += r.Stops
	}
	return float64(total) / float64(len(g.routes))
}

// AverageDistance returns the mean distance over all routes, 0 with no routes
func (g *Graph) AverageDistance() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.routes) == 0 {
		return 0
	}
	total := 0.0
	for _, id := range sortedKeys(g.routes) {
		total += g.routes[id].Distance
	}
	return total / float64(len(g.routes))
}

// AirlineSummaries returns every airline with its route count, descending by
// count then ascending id
func (g *Graph) AirlineSummaries() []AirlineSummary {
	g.mu.RLock()
	defer g.mu.RUnlock()

	counts := make(map[int64]int, len(g.airlines))
	for _, r := range g.routes {
		for _, al := range r.Operators {
			counts[al]++
		}
	}

	out := make([]AirlineSummary, 0, len(g.airlines))
	for _, id := range sortedKeys(g.airlines) {
		out = append(out, AirlineSummary{ID: id, Name: g.airlines[id].Name, RouteCount: counts[id]})
	}
	slices.SortStableFunc(out, func(a, b AirlineSummary) int {
		return cmp.Compare(b.RouteCount, a.RouteCount)
	})
	return out
}

// RoutesByAirline returns the routes an airline operates, ordered by
// endpoint names
func (g *Graph) RoutesByAirline(airlineID int64) ([]AirlineRoute, error) {
	return g.airlineRoutes("RoutesByAirline", airlineID, func(*Route) bool { return true })
}

// ExclusiveRoutes returns the routes whose only operator is the airline
func (g *Graph) ExclusiveRoutes(airlineID int64) ([]AirlineRoute, error) {
	return g.airlineRoutes("ExclusiveRoutes", airlineID, func(r *Route) bool {
		return len(r.Operators) == 1
	})
}

func (g *Graph) airlineRoutes(op string, airlineID int64, keep func(*Route) bool) ([]AirlineRoute, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	al, ok := g.airlines[airlineID]
	if !ok {
		return nil, airlineNotFound(op, airlineID)
	}

	out := []AirlineRoute{}
	for _, rid := range sortedKeys(g.routes) {
		r := g.routes[rid]
		if !r.OperatedBy(airlineID) || !keep(r) {
			continue
		}
		from, to := g.airports[r.From], g.airports[r.To]
		out = append(out, AirlineRoute{
			RouteID:       r.ID,
			Airline:       al.Name,
			From:          from.Name,
			FromLatitude:  from.Latitude,
			FromLongitude: from.Longitude,
			To:            to.Name,
			ToLatitude:    to.Latitude,
			ToLongitude:   to.Longitude,
			Stops:         r.Stops,
			Distance:      r.Distance,
		})
	}
	slices.SortStableFunc(out, func(a, b AirlineRoute) int {
		return cmp.Or(cmp.Compare(a.From, b.From), cmp.Compare(a.To, b.To))
	})
	return out, nil
}

// CompareAirlines splits the route labels of two airlines into shared and
// unique sets. Each list is sorted and free of duplicates.
func (g *Graph) CompareAirlines(id1, id2 int64) (*AirlineComparison, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	a1, ok := g.airlines[id1]
	if !ok {
		return nil, airlineNotFound("CompareAirlines", id1)
	}
	a2, ok := g.airlines[id2]
	if !ok {
		return nil, airlineNotFound("CompareAirlines", id2)
	}

	labels1 := g.routeLabels(id1)
	labels2 := g.routeLabels(id2)

	cmpResult := &AirlineComparison{
		Airline1:         a1.Name,
		Airline2:         a2.Name,
		SharedRoutes:     []string{},
		UniqueToAirline1: []string{},
		UniqueToAirline2: []string{},
	}
	for _, l := range labels1 {
		if _, found := slices.BinarySearch(labels2, l); found {
			cmpResult.SharedRoutes = append(cmpResult.SharedRoutes, l)
		} else {
			cmpResult.UniqueToAirline1 = append(cmpResult.UniqueToAirline1, l)
		}
	}
	for _, l := range labels2 {
		if _, found := slices.BinarySearch(labels1, l); !found {
			cmpResult.UniqueToAirline2 = append(cmpResult.UniqueToAirline2, l)
		}
	}
	return cmpResult, nil
}

func (g *Graph) routeLabels(airlineID int64) []string {
	var labels []string
	for _, r := range g.routes {
		if r.OperatedBy(airlineID) {
			labels = append(labels, g.airports[r.From].Name+"→"+g.airports[r.To].Name)
		}
	}
	slices.Sort(labels)
	return slices.Compact(labels)
}

// TopAirlinesByCoverage ranks airlines by the number of distinct airports
// their routes touch, descending then ascending id. Airlines with no routes
// are left out.
func (g *Graph) TopAirlinesByCoverage(limit int) []AirlineCoverage {
	if limit <= 0 {
		return []AirlineCoverage{}
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	served := make(map[int64]map[int64]struct{})
	for _, r := range g.routes {
		for _, al := range r.Operators {
			set, ok := served[al]
			if !ok {
				set = make(map[int64]struct{})
				served[al] = set
			}
			set[r.From] = struct{}{}
			set[r.To] = struct{}{}
		}
	}

	out := make([]AirlineCoverage, 0, len(served))
	for _, id := range sortedKeys(served) {
		out = append(out, AirlineCoverage{ID: id, Name: g.airlines[id].Name, AirportsCovered: len(served[id])})
	}
	slices.SortStableFunc(out, func(a, b AirlineCoverage) int {
		return cmp.Compare(b.AirportsCovered, a.AirportsCovered)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// AirlinesServing returns the sorted, distinct names of airlines operating
// at least one route touching the airport
func (g *Graph) AirlinesServing(airportID int64) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.airports[airportID]; !ok {
		return nil, airportNotFound("AirlinesServing", airportID)
	}

	names := []string{}
	for _, rid := range g.incident[airportID] {
		names = append(names, g.operatorNames(g.routes[rid])...)
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// operatorNames resolves a route's operators to airline names, in operator
// id order. Caller must hold the lock.
func (g *Graph) operatorNames(r *Route) []string {
	names := make([]string, 0, len(r.Operators))
	for _, al := range r.Operators {
		names = append(names, g.airlines[al].Name)
	}
	return names
}
