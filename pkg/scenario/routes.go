package scenario

import (
	"context"

	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/network"
)

// RouteRequest describes a hypothetical route. A nil Distance means
// DefaultHypotheticalDistance; 0 is a valid distance.
type RouteRequest struct {
	From     int64
	To       int64
	Distance *float64
	Stops    int
}

// CreatedRoute is a scenario route with its endpoints resolved
type CreatedRoute struct {
	RouteID       int64             `json:"route_id"`
	Kind          network.RouteKind `json:"kind"`
	From          string            `json:"from"`
	FromLatitude  float64           `json:"fromLatitude"`
	FromLongitude float64           `json:"fromLongitude"`
	To            string            `json:"to"`
	ToLatitude    float64           `json:"toLatitude"`
	ToLongitude   float64           `json:"toLongitude"`
	Distance      float64           `json:"distance"`
	Stops         int               `json:"stops"`
}

func createdRoute(r *network.Route, from, to *network.Airport) CreatedRoute {
	return CreatedRoute{
		RouteID:       r.ID,
		Kind:          r.Kind,
		From:          from.Name,
		FromLatitude:  from.Latitude,
		FromLongitude: from.Longitude,
		To:            to.Name,
		ToLatitude:    to.Latitude,
		ToLongitude:   to.Longitude,
		Distance:      r.Distance,
		Stops:         r.Stops,
	}
}

// CreateHypotheticalRoute adds a route without operators
func (e *Engine) CreateHypotheticalRoute(ctx context.Context, req RouteRequest) (*CreatedRoute, error) {
	distance := DefaultHypotheticalDistance
	if req.Distance != nil {
		distance = *req.Distance
	}

	var created CreatedRoute
	err := e.graph.Update(ctx, func(tx *network.Tx) error {
		r, err := tx.AddRoute(network.RouteSpec{
			From:     req.From,
			To:       req.To,
			Distance: distance,
			Stops:    req.Stops,
			Kind:     network.KindHypothetical,
		})
		if err != nil {
			return err
		}
		from, _ := tx.Airport(r.From)
		to, _ := tx.Airport(r.To)
		created = createdRoute(r, from, to)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("hypothetical route created",
		logging.RouteID(created.RouteID),
		logging.Int64("from", req.From),
		logging.Int64("to", req.To))
	return &created, nil
}

// CreateAlternativeRoutes links up to limit pairs of active airports that
// have no route between them. Pairs are scanned by ascending first then
// second airport id. Each route has one stop and a distance drawn uniformly
// from [200, 1200).
func (e *Engine) CreateAlternativeRoutes(ctx context.Context, limit int) ([]CreatedRoute, error) {
	created := []CreatedRoute{}
	if limit <= 0 {
		return created, nil
	}

	e.rngMu.Lock()
	defer e.rngMu.Unlock()

	err := e.graph.Update(ctx, func(tx *network.Tx) error {
		created = created[:0]
		active := make([]*network.Airport, 0)
		for _, id := range tx.AirportIDs() {
			if a, _ := tx.Airport(id); a.Active() {
				active = append(active, a)
			}
		}

		for i := 0; i < len(active) && len(created) < limit; i++ {
			for j := i + 1; j < len(active) && len(created) < limit; j++ {
				a, b := active[i], active[j]
				if tx.Connected(a.ID, b.ID) {
					continue
				}
				r, err := tx.AddRoute(network.RouteSpec{
					From:     a.ID,
					To:       b.ID,
					Distance: alternativeMinDistance + e.rng.Float64()*alternativeDistanceSpan,
					Stops:    alternativeStops,
					Kind:     network.KindAlternative,
				})
				if err != nil {
					return err
				}
				created = append(created, createdRoute(r, a, b))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("alternative routes created", logging.Count(len(created)))
	return created, nil
}

// RevertScenarioRoutes removes every hypothetical and alternative route and
// returns their ids, ascending.
func (e *Engine) RevertScenarioRoutes(ctx context.Context) ([]int64, error) {
	removed, err := e.graph.RemoveRoutesWhere(ctx, func(r *network.Route) bool {
		return r.Kind == network.KindHypothetical || r.Kind == network.KindAlternative
	})
	if err != nil {
		return nil, err
	}
	if removed == nil {
		removed = []int64{}
	}
	e.logger.Info("scenario routes reverted", logging.Count(len(removed)))
	return removed, nil
}
