package network

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/metrics"
)

// Config holds the collaborators of a Graph. All fields are optional.
type Config struct {
	Writer   Writer
	Notifier Notifier
	Logger   logging.Logger
	Metrics  *metrics.Registry
}

// Graph is the in-memory air-route network. A single RWMutex guards all
// state; algorithms read through Project so they never hold the lock.
type Graph struct {
	airports map[int64]*Airport
	routes   map[int64]*Route
	airlines map[int64]*Airline

	// airport ID -> incident route IDs, ascending
	incident map[int64][]int64

	nextRouteID int64

	mu sync.RWMutex

	writer   Writer
	notifier Notifier
	logger   logging.Logger
	metrics  *metrics.Registry
}

// NewGraph creates an empty graph
func NewGraph(cfg Config) *Graph {
	return &Graph{
		airports:    make(map[int64]*Airport),
		routes:      make(map[int64]*Route),
		airlines:    make(map[int64]*Airline),
		incident:    make(map[int64][]int64),
		nextRouteID: 1,
		writer:      cfg.Writer,
		notifier:    cfg.Notifier,
		logger:      logging.OrNop(cfg.Logger).With(logging.Component("network")),
		metrics:     cfg.Metrics,
	}
}

// Load replaces the graph contents with ds. Nothing is handed to the writer.
// The dataset is validated as a whole; on error the graph is left unchanged.
func (g *Graph) Load(ds *Dataset) error {
	staged := NewGraph(Config{Logger: g.logger})
	tx := staged.begin()
	for _, al := range ds.Airlines {
		if err := tx.AddAirline(al); err != nil {
			return err
		}
	}
	for _, ap := range ds.Airports {
		if err := tx.AddAirport(ap); err != nil {
			return err
		}
	}
	for i := range ds.Routes {
		if err := tx.insertRoute(ds.Routes[i].Clone()); err != nil {
			return err
		}
	}
	if ds.NextRouteID > staged.nextRouteID {
		staged.nextRouteID = ds.NextRouteID
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.airports = staged.airports
	g.routes = staged.routes
	g.airlines = staged.airlines
	g.incident = staged.incident
	g.nextRouteID = staged.nextRouteID
	g.publishSize()

	g.logger.Info("graph loaded",
		logging.Int("airports", len(g.airports)),
		logging.Int("routes", len(g.routes)),
		logging.Int("airlines", len(g.airlines)))
	return nil
}

// Export returns a deep copy of the graph as a Dataset, every slice sorted
// by id.
func (g *Graph) Export() *Dataset {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.exportLocked()
}

// Checkpoint hands a full copy of the graph to s. The read lock is held
// until s returns, so no transaction can persist mutations that the
// snapshot would miss.
func (g *Graph) Checkpoint(ctx context.Context, s Snapshotter) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ds := g.exportLocked()
	if err := s.Snapshot(ctx, ds); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	g.logger.Info("checkpoint written",
		logging.Int("airports", len(ds.Airports)),
		logging.Int("routes", len(ds.Routes)))
	return nil
}

func (g *Graph) exportLocked() *Dataset {
	ds := &Dataset{
		Airports:    make([]Airport, 0, len(g.airports)),
		Routes:      make([]Route, 0, len(g.routes)),
		Airlines:    make([]Airline, 0, len(g.airlines)),
		NextRouteID: g.nextRouteID,
	}
	for _, id := range sortedKeys(g.airports) {
		ds.Airports = append(ds.Airports, *g.airports[id])
	}
	for _, id := range sortedKeys(g.routes) {
		ds.Routes = append(ds.Routes, *g.routes[id].Clone())
	}
	for _, id := range sortedKeys(g.airlines) {
		ds.Airlines = append(ds.Airlines, *g.airlines[id])
	}
	return ds
}

// Airport returns a copy of the airport with the given id
func (g *Graph) Airport(id int64) (*Airport, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	a, ok := g.airports[id]
	if !ok {
		return nil, airportNotFound("Airport", id)
	}
	return a.Clone(), nil
}

// Route returns a copy of the route with the given id
func (g *Graph) Route(id int64) (*Route, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.routes[id]
	if !ok {
		return nil, routeNotFound("Route", id)
	}
	return r.Clone(), nil
}

// Airline returns a copy of the airline with the given id
func (g *Graph) Airline(id int64) (*Airline, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	a, ok := g.airlines[id]
	if !ok {
		return nil, airlineNotFound("Airline", id)
	}
	return a.Clone(), nil
}

// Airports returns copies of all airports, ascending by id
func (g *Graph) Airports() []*Airport {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Airport, 0, len(g.airports))
	for _, id := range sortedKeys(g.airports) {
		out = append(out, g.airports[id].Clone())
	}
	return out
}

// Routes returns copies of all routes, ascending by id
func (g *Graph) Routes() []*Route {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Route, 0, len(g.routes))
	for _, id := range sortedKeys(g.routes) {
		out = append(out, g.routes[id].Clone())
	}
	return out
}

// Airlines returns copies of all airlines, ascending by id
func (g *Graph) Airlines() []*Airline {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Airline, 0, len(g.airlines))
	for _, id := range sortedKeys(g.airlines) {
		out = append(out, g.airlines[id].Clone())
	}
	return out
}

// Neighbors yields (route ID, other airport ID) for every route incident to
// the airport, ascending by route id. The sequence iterates over a copy taken
// when Neighbors is called, so later mutations do not affect it.
func (g *Graph) Neighbors(airportID int64) (iter.Seq2[int64, int64], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.airports[airportID]; !ok {
		return nil, airportNotFound("Neighbors", airportID)
	}

	ids := g.incident[airportID]
	pairs := make([][2]int64, len(ids))
	for i, rid := range ids {
		pairs[i] = [2]int64{rid, g.routes[rid].Other(airportID)}
	}

	return func(yield func(int64, int64) bool) {
		for _, p := range pairs {
			if !yield(p[0], p[1]) {
				return
			}
		}
	}, nil
}

// IncidentRoutes returns copies of the routes touching the airport, ascending
// by route id.
func (g *Graph) IncidentRoutes(airportID int64) ([]*Route, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.airports[airportID]; !ok {
		return nil, airportNotFound("IncidentRoutes", airportID)
	}
	ids := g.incident[airportID]
	out := make([]*Route, len(ids))
	for i, rid := range ids {
		out[i] = g.routes[rid].Clone()
	}
	return out, nil
}

// Degree returns the number of routes incident to the airport. Parallel
// routes count individually.
func (g *Graph) Degree(airportID int64) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.airports[airportID]; !ok {
		return 0, airportNotFound("Degree", airportID)
	}
	return len(g.incident[airportID]), nil
}

// Stats returns the current network size
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.statsLocked()
}

func (g *Graph) statsLocked() Stats {
	s := Stats{
		Airports: len(g.airports),
		Routes:   len(g.routes),
		Airlines: len(g.airlines),
	}
	for _, a := range g.airports {
		if !a.Active() {
			s.InactiveAirports++
		}
	}
	return s
}

// publishSize updates the size gauges. Caller must hold the lock.
func (g *Graph) publishSize() {
	if g.metrics == nil {
		return
	}
	s := g.statsLocked()
	g.metrics.SetNetworkSize(s.Airports, s.InactiveAirports, s.Routes, s.Airlines)
}

// AddAirport inserts a new airport
func (g *Graph) AddAirport(ctx context.Context, a Airport) error {
	return g.Update(ctx, func(tx *Tx) error {
		return tx.AddAirport(a)
	})
}

// UpdateAirport replaces the descriptive fields and status of an existing
// airport and returns the stored result.
func (g *Graph) UpdateAirport(ctx context.Context, a Airport) (*Airport, error) {
	var updated *Airport
	err := g.Update(ctx, func(tx *Tx) error {
		var err error
		updated, err = tx.UpdateAirport(a)
		return err
	})
	return updated, err
}

// SetAirportStatus flips an airport between active and inactive
func (g *Graph) SetAirportStatus(ctx context.Context, id int64, status AirportStatus) error {
	return g.Update(ctx, func(tx *Tx) error {
		return tx.SetAirportStatus(id, status)
	})
}

// RemoveAirport deletes an airport and every route incident to it. It
// returns the removed airport and the ids of the removed routes.
func (g *Graph) RemoveAirport(ctx context.Context, id int64) (*Airport, []int64, error) {
	var (
		removed  *Airport
		routeIDs []int64
	)
	err := g.Update(ctx, func(tx *Tx) error {
		var err error
		removed, routeIDs, err = tx.RemoveAirport(id)
		return err
	})
	return removed, routeIDs, err
}

// RemoveAirportsWhere deletes every airport for which pred returns true,
// cascading to incident routes. pred sees the airport and its degree and
// must not retain or modify the airport. Returns removed airport ids,
// ascending.
func (g *Graph) RemoveAirportsWhere(ctx context.Context, pred func(a *Airport, degree int) bool) ([]int64, error) {
	var removed []int64
	err := g.Update(ctx, func(tx *Tx) error {
		for _, id := range tx.AirportIDs() {
			if !pred(tx.g.airports[id], len(tx.g.incident[id])) {
				continue
			}
			if _, _, err := tx.RemoveAirport(id); err != nil {
				return err
			}
			removed = append(removed, id)
		}
		return nil
	})
	return removed, err
}

// AddRoute creates a route with a freshly allocated id
func (g *Graph) AddRoute(ctx context.Context, spec RouteSpec) (*Route, error) {
	var created *Route
	err := g.Update(ctx, func(tx *Tx) error {
		var err error
		created, err = tx.AddRoute(spec)
		return err
	})
	return created, err
}

// RemoveRoute deletes a single route
func (g *Graph) RemoveRoute(ctx context.Context, id int64) error {
	return g.Update(ctx, func(tx *Tx) error {
		_, err := tx.RemoveRoute(id)
		return err
	})
}

// RemoveRoutesWhere deletes every route for which pred returns true and
// returns their ids, ascending. pred must not retain or modify the route.
func (g *Graph) RemoveRoutesWhere(ctx context.Context, pred func(*Route) bool) ([]int64, error) {
	var removed []int64
	err := g.Update(ctx, func(tx *Tx) error {
		for _, id := range tx.RouteIDs() {
			if !pred(tx.g.routes[id]) {
				continue
			}
			if _, err := tx.RemoveRoute(id); err != nil {
				return err
			}
			removed = append(removed, id)
		}
		return nil
	})
	return removed, err
}

// AddAirline inserts a new airline
func (g *Graph) AddAirline(ctx context.Context, a Airline) error {
	return g.Update(ctx, func(tx *Tx) error {
		return tx.AddAirline(a)
	})
}

// RenameAirline changes an airline's name
func (g *Graph) RenameAirline(ctx context.Context, id int64, name string) (*Airline, error) {
	var renamed *Airline
	err := g.Update(ctx, func(tx *Tx) error {
		if err := tx.RenameAirline(id, name); err != nil {
			return err
		}
		renamed = tx.g.airlines[id].Clone()
		return nil
	})
	return renamed, err
}

// RemoveAirline deletes an airline and strips it from every operator set
func (g *Graph) RemoveAirline(ctx context.Context, id int64) error {
	return g.Update(ctx, func(tx *Tx) error {
		return tx.RemoveAirline(id)
	})
}

func sortedKeys[V any](m map[int64]V) []int64 {
	return slices.Sorted(maps.Keys(m))
}
