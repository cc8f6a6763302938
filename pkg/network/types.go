package network

import (
	"slices"
)

// AirportStatus marks whether an airport takes part in hub selection and
// alternative route generation.
type AirportStatus string

const (
	StatusActive   AirportStatus = "active"
	StatusInactive AirportStatus = "inactive"
)

// Valid reports whether s is a known status.
func (s AirportStatus) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// RouteKind records which operation created a route.
type RouteKind string

const (
	KindScheduled    RouteKind = "scheduled"
	KindHypothetical RouteKind = "hypothetical"
	KindAlternative  RouteKind = "alternative"
)

// Airport is a node of the route network
type Airport struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	IATA      string        `json:"iata,omitempty"`
	ICAO      string        `json:"icao,omitempty"`
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Status    AirportStatus `json:"status"`
}

// Active reports whether the airport is active. An empty status counts as
// active so that records loaded from older snapshots behave sensibly.
func (a *Airport) Active() bool {
	return a.Status != StatusInactive
}

// Clone creates a copy of an airport
func (a *Airport) Clone() *Airport {
	clone := *a
	return &clone
}

// Route is an undirected connection between two distinct airports. From and
// To keep the orientation the route was created with; traversal ignores it.
type Route struct {
	ID        int64     `json:"id"`
	From      int64     `json:"from"`
	To        int64     `json:"to"`
	Distance  float64   `json:"distance"`
	Stops     int       `json:"stops"`
	Operators []int64   `json:"operators,omitempty"` // sorted, unique airline IDs
	Kind      RouteKind `json:"kind,omitempty"`
}

// Clone creates a deep copy of a route
func (r *Route) Clone() *Route {
	clone := *r
	clone.Operators = slices.Clone(r.Operators)
	return &clone
}

// Other returns the endpoint opposite airportID.
func (r *Route) Other(airportID int64) int64 {
	if r.From == airportID {
		return r.To
	}
	return r.From
}

// Touches reports whether airportID is one of the route's endpoints.
func (r *Route) Touches(airportID int64) bool {
	return r.From == airportID || r.To == airportID
}

// OperatedBy reports whether the airline operates this route.
func (r *Route) OperatedBy(airlineID int64) bool {
	_, found := slices.BinarySearch(r.Operators, airlineID)
	return found
}

// Connects reports whether the route joins a and b in either orientation.
func (r *Route) Connects(a, b int64) bool {
	return (r.From == a && r.To == b) || (r.From == b && r.To == a)
}

// Airline operates a set of routes
type Airline struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Clone creates a copy of an airline
func (a *Airline) Clone() *Airline {
	clone := *a
	return &clone
}

// Dataset is the plain record form of a whole network, exchanged with
// persistence backends.
type Dataset struct {
	Airports    []Airport `json:"airports"`
	Routes      []Route   `json:"routes"`
	Airlines    []Airline `json:"airlines"`
	NextRouteID int64     `json:"next_route_id"`
}

// Stats holds network size counters
type Stats struct {
	Airports         int `json:"airports"`
	InactiveAirports int `json:"inactive_airports"`
	Routes           int `json:"routes"`
	Airlines         int `json:"airlines"`
}

// normalizeOperators returns a sorted copy of ids without duplicates.
func normalizeOperators(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
