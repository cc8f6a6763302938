// Package scenario applies what-if changes to the route network: hub
// outages, hub deletion, airline mergers and hypothetical or alternative
// routes. Every operation runs as one graph transaction.
package scenario

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/network"
)

const (
	// DefaultHypotheticalDistance applies when a hypothetical route has no distance
	DefaultHypotheticalDistance float64 = 500

	// MergedAirlineOffset is added to the sum of the source ids to derive the
	// merged airline id. Assumes source ids below it.
	MergedAirlineOffset = 10000

	alternativeStops        = 1
	alternativeMinDistance  = 200
	alternativeDistanceSpan = 1000
)

// Config holds the collaborators of an Engine. All fields are optional.
type Config struct {
	// Rand draws alternative route distances. Defaults to a time-seeded PCG.
	Rand   *rand.Rand
	Logger logging.Logger
}

// Engine runs scenario operations against a graph
type Engine struct {
	graph  *network.Graph
	logger logging.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewEngine creates a scenario engine over g
func NewEngine(g *network.Graph, cfg Config) *Engine {
	rng := cfg.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Engine{
		graph:  g,
		logger: logging.OrNop(cfg.Logger).With(logging.Component("scenario")),
		rng:    rng,
	}
}

// DeactivatedHub is an airport taken out of service, with the route count it
// had when it was deactivated
type DeactivatedHub struct {
	ID        int64   `json:"id"`
	Name      string  `json:"airport"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Degree    int     `json:"degree"`
}

// DeactivateTopHubs marks the limit most connected active airports inactive.
// Airports are ranked by degree, ties by ascending id. Routes are kept.
func (e *Engine) DeactivateTopHubs(ctx context.Context, limit int) ([]DeactivatedHub, error) {
	hubs := []DeactivatedHub{}
	if limit <= 0 {
		return hubs, nil
	}

	err := e.graph.Update(ctx, func(tx *network.Tx) error {
		hubs = hubs[:0]
		for _, id := range tx.AirportIDs() {
			a, _ := tx.Airport(id)
			if !a.Active() {
				continue
			}
			hubs = append(hubs, DeactivatedHub{
				ID:        a.ID,
				Name:      a.Name,
				Latitude:  a.Latitude,
				Longitude: a.Longitude,
				Degree:    tx.Degree(id),
			})
		}
		slices.SortStableFunc(hubs, func(a, b DeactivatedHub) int {
			return cmp.Compare(b.Degree, a.Degree)
		})
		hubs = hubs[:min(limit, len(hubs))]

		for _, h := range hubs {
			if err := tx.SetAirportStatus(h.ID, network.StatusInactive); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("hubs deactivated", logging.Count(len(hubs)))
	return hubs, nil
}

// ReactivateAirports marks the given airports active again. Either all are
// reactivated or, if one does not exist, none.
func (e *Engine) ReactivateAirports(ctx context.Context, ids []int64) error {
	err := e.graph.Update(ctx, func(tx *network.Tx) error {
		for _, id := range ids {
			if err := tx.SetAirportStatus(id, network.StatusActive); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.logger.Info("airports reactivated", logging.Count(len(ids)))
	return nil
}

// DeletedHub describes a hub removed from the network
type DeletedHub struct {
	Airport  *network.Airport `json:"airport"`
	RouteIDs []int64          `json:"removed_routes"`
}

// DeleteHub removes an airport and every route touching it
func (e *Engine) DeleteHub(ctx context.Context, id int64) (*DeletedHub, error) {
	a, routeIDs, err := e.graph.RemoveAirport(ctx, id)
	if err != nil {
		return nil, err
	}
	if routeIDs == nil {
		routeIDs = []int64{}
	}
	e.logger.Info("hub deleted", logging.AirportID(id), logging.Count(len(routeIDs)))
	return &DeletedHub{Airport: a, RouteIDs: routeIDs}, nil
}

// DeleteIsolatedAirports removes every airport without routes and returns
// their ids, ascending.
func (e *Engine) DeleteIsolatedAirports(ctx context.Context) ([]int64, error) {
	removed, err := e.graph.RemoveAirportsWhere(ctx, func(_ *network.Airport, degree int) bool {
		return degree == 0
	})
	if err != nil {
		return nil, err
	}
	if removed == nil {
		removed = []int64{}
	}
	e.logger.Info("isolated airports deleted", logging.Count(len(removed)))
	return removed, nil
}
