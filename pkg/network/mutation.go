package network

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OpType identifies the kind of change a Mutation records
type OpType string

const (
	OpAddAirport    OpType = "add_airport"
	OpUpdateAirport OpType = "update_airport"
	OpRemoveAirport OpType = "remove_airport"
	OpAddRoute      OpType = "add_route"
	OpUpdateRoute   OpType = "update_route"
	OpRemoveRoute   OpType = "remove_route"
	OpAddAirline    OpType = "add_airline"
	OpUpdateAirline OpType = "update_airline"
	OpRemoveAirline OpType = "remove_airline"
)

// Mutation is one committed change to the graph. Exactly one of Airport,
// Route or Airline is set. Update records carry the full new state; remove
// records carry the state that was removed.
//
// Removing an airport or airline is always preceded, in the same batch, by
// the route removals or route updates its cascade caused, so replaying a
// batch in order never observes a dangling reference.
type Mutation struct {
	ID        uuid.UUID `json:"id"`
	Op        OpType    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
	Airport   *Airport  `json:"airport,omitempty"`
	Route     *Route    `json:"route,omitempty"`
	Airline   *Airline  `json:"airline,omitempty"`
}

// Loader supplies the initial graph contents
type Loader interface {
	LoadGraph(ctx context.Context) (*Dataset, error)
}

// Writer durably records committed mutations. Persist is called with the
// graph's write lock held, once per committed transaction.
type Writer interface {
	Persist(ctx context.Context, mutations []Mutation) error
}

// Snapshotter stores a full copy of the graph
type Snapshotter interface {
	Snapshot(ctx context.Context, ds *Dataset) error
}

// Notifier is told about every committed transaction after its writer
// accepted it. Notify runs under the write lock and must not block or call
// back into the graph.
type Notifier interface {
	Notify(mutations []Mutation)
}

// WriterFunc adapts a function to the Writer interface
type WriterFunc func(ctx context.Context, mutations []Mutation) error

// Persist calls f(ctx, mutations)
func (f WriterFunc) Persist(ctx context.Context, mutations []Mutation) error {
	return f(ctx, mutations)
}

func newMutation(op OpType, now time.Time) Mutation {
	return Mutation{ID: uuid.New(), Op: op, Timestamp: now}
}

// Replay applies previously persisted mutations without handing them to the
// writer again. The whole slice is applied atomically.
func (g *Graph) Replay(mutations []Mutation) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	tx := g.begin()
	for i := range mutations {
		if err := tx.apply(&mutations[i]); err != nil {
			tx.rollback()
			return err
		}
	}
	g.publishSize()
	return nil
}

func (tx *Tx) apply(m *Mutation) error {
	const op = "Replay"
	switch m.Op {
	case OpAddAirport:
		if m.Airport == nil {
			return NewError(op).Context(string(m.Op)).Cause(ErrInvalidArgument).Err()
		}
		return tx.AddAirport(*m.Airport)
	case OpUpdateAirport:
		if m.Airport == nil {
			return NewError(op).Context(string(m.Op)).Cause(ErrInvalidArgument).Err()
		}
		_, err := tx.UpdateAirport(*m.Airport)
		return err
	case OpRemoveAirport:
		if m.Airport == nil {
			return NewError(op).Context(string(m.Op)).Cause(ErrInvalidArgument).Err()
		}
		_, _, err := tx.RemoveAirport(m.Airport.ID)
		return err
	case OpAddRoute:
		if m.Route == nil {
			return NewError(op).Context(string(m.Op)).Cause(ErrInvalidArgument).Err()
		}
		return tx.insertRoute(m.Route.Clone())
	case OpUpdateRoute:
		if m.Route == nil {
			return NewError(op).Context(string(m.Op)).Cause(ErrInvalidArgument).Err()
		}
		return tx.SetRouteOperators(m.Route.ID, m.Route.Operators)
	case OpRemoveRoute:
		if m.Route == nil {
			return NewError(op).Context(string(m.Op)).Cause(ErrInvalidArgument).Err()
		}
		_, err := tx.RemoveRoute(m.Route.ID)
		return err
	case OpAddAirline:
		if m.Airline == nil {
			return NewError(op).Context(string(m.Op)).Cause(ErrInvalidArgument).Err()
		}
		return tx.AddAirline(*m.Airline)
	case OpUpdateAirline:
		if m.Airline == nil {
			return NewError(op).Context(string(m.Op)).Cause(ErrInvalidArgument).Err()
		}
		return tx.RenameAirline(m.Airline.ID, m.Airline.Name)
	case OpRemoveAirline:
		if m.Airline == nil {
			return NewError(op).Context(string(m.Op)).Cause(ErrInvalidArgument).Err()
		}
		return tx.RemoveAirline(m.Airline.ID)
	default:
		return NewError(op).Context("unknown op " + string(m.Op)).Cause(ErrInvalidArgument).Err()
	}
}
