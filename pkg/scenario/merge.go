package scenario

import (
	"context"
	"slices"

	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/network"
)

// MergeOptions tunes MergeAirlines
type MergeOptions struct {
	// Name of the merged airline. Empty means "{name1}-{name2}".
	Name string
	// RetireSources removes both source airlines, leaving the merged airline
	// as sole operator of their routes. By default the sources keep
	// operating alongside it.
	RetireSources bool
}

// MergeResult describes a merged airline
type MergeResult struct {
	Airline  *network.Airline `json:"airline"`
	RouteIDs []int64          `json:"routes"` // ascending
}

// MergeAirlines creates an airline with id id1+id2+MergedAirlineOffset that
// operates the union of both source airlines' routes.
func (e *Engine) MergeAirlines(ctx context.Context, id1, id2 int64, opts MergeOptions) (*MergeResult, error) {
	const op = "MergeAirlines"
	if id1 == id2 {
		return nil, network.NewError(op).Airline(id1).Context("cannot merge an airline with itself").Cause(network.ErrInvalidArgument).Err()
	}

	var result *MergeResult
	err := e.graph.Update(ctx, func(tx *network.Tx) error {
		a1, ok := tx.Airline(id1)
		if !ok {
			return network.NewError(op).Airline(id1).Cause(network.ErrNotFound).Err()
		}
		a2, ok := tx.Airline(id2)
		if !ok {
			return network.NewError(op).Airline(id2).Cause(network.ErrNotFound).Err()
		}

		merged := network.Airline{ID: id1 + id2 + MergedAirlineOffset, Name: opts.Name}
		if merged.Name == "" {
			merged.Name = a1.Name + "-" + a2.Name
		}
		if err := tx.AddAirline(merged); err != nil {
			return err
		}

		routeIDs := []int64{}
		for _, rid := range tx.RouteIDs() {
			r, _ := tx.Route(rid)
			if !r.OperatedBy(id1) && !r.OperatedBy(id2) {
				continue
			}
			ops := append(r.Operators, merged.ID)
			if opts.RetireSources {
				ops = slices.DeleteFunc(ops, func(al int64) bool { return al == id1 || al == id2 })
			}
			if err := tx.SetRouteOperators(rid, ops); err != nil {
				return err
			}
			routeIDs = append(routeIDs, rid)
		}

		if opts.RetireSources {
			if err := tx.RemoveAirline(id1); err != nil {
				return err
			}
			if err := tx.RemoveAirline(id2); err != nil {
				return err
			}
		}

		result = &MergeResult{Airline: merged.Clone(), RouteIDs: routeIDs}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("airlines merged",
		logging.AirlineID(result.Airline.ID),
		logging.Int64("source_1", id1),
		logging.Int64("source_2", id2),
		logging.Count(len(result.RouteIDs)),
		logging.Bool("retire_sources", opts.RetireSources))
	return result, nil
}
