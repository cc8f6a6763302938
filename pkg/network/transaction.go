package network

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/metrics"
)

// RouteSpec describes a route to create. The id is allocated by the graph.
type RouteSpec struct {
	From      int64
	To        int64
	Distance  float64
	Stops     int
	Operators []int64
	Kind      RouteKind
}

// Tx is a multi-step mutation running under the graph's write lock. Every
// change registers an undo step; if the transaction function or the writer
// fails, the steps run in reverse and the graph is left as it was.
//
// A Tx must not be used after the function passed to Update returns.
type Tx struct {
	g         *Graph
	undo      []func()
	mutations []Mutation
	now       time.Time
}

func (g *Graph) begin() *Tx {
	return &Tx{g: g, now: time.Now().UTC()}
}

// Update runs fn as one all-or-nothing transaction. Committed mutation
// records are handed to the configured Writer before the lock is released;
// a writer error rolls the change back and is returned.
func (g *Graph) Update(ctx context.Context, fn func(*Tx) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	tx := g.begin()
	if err := fn(tx); err != nil {
		tx.rollback()
		g.recordMutations(tx.mutations, err)
		return err
	}
	if len(tx.mutations) == 0 {
		return nil
	}

	if g.writer != nil {
		if err := g.writer.Persist(ctx, tx.mutations); err != nil {
			tx.rollback()
			g.recordMutations(tx.mutations, err)
			g.logger.Error("persist failed, transaction rolled back",
				logging.Count(len(tx.mutations)), logging.Error(err))
			return fmt.Errorf("persist mutations: %w", err)
		}
	}

	g.recordMutations(tx.mutations, nil)
	if g.notifier != nil {
		g.notifier.Notify(tx.mutations)
	}
	g.publishSize()
	g.logger.Debug("transaction committed", logging.Count(len(tx.mutations)))
	return nil
}

func (g *Graph) recordMutations(mutations []Mutation, err error) {
	if g.metrics == nil {
		return
	}
	if len(mutations) == 0 && err != nil {
		g.metrics.RecordMutation("transaction", metrics.Status(err))
		return
	}
	for _, m := range mutations {
		g.metrics.RecordMutation(string(m.Op), metrics.Status(err))
	}
}

func (tx *Tx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *Tx) record(m Mutation) {
	tx.mutations = append(tx.mutations, m)
}

// Airport returns a copy of the airport as seen inside the transaction
func (tx *Tx) Airport(id int64) (*Airport, bool) {
	a, ok := tx.g.airports[id]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// Route returns a copy of the route as seen inside the transaction
func (tx *Tx) Route(id int64) (*Route, bool) {
	r, ok := tx.g.routes[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Airline returns a copy of the airline as seen inside the transaction
func (tx *Tx) Airline(id int64) (*Airline, bool) {
	a, ok := tx.g.airlines[id]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// Degree returns the airport's incident route count, 0 if it does not exist
func (tx *Tx) Degree(id int64) int {
	return len(tx.g.incident[id])
}

// AirportIDs returns all airport ids, ascending
func (tx *Tx) AirportIDs() []int64 {
	return sortedKeys(tx.g.airports)
}

// RouteIDs returns all route ids, ascending
func (tx *Tx) RouteIDs() []int64 {
	return sortedKeys(tx.g.routes)
}

// Connected reports whether at least one route joins a and b
func (tx *Tx) Connected(a, b int64) bool {
	shorter, other := a, b
	if len(tx.g.incident[b]) < len(tx.g.incident[a]) {
		shorter, other = b, a
	}
	for _, rid := range tx.g.incident[shorter] {
		if tx.g.routes[rid].Other(shorter) == other {
			return true
		}
	}
	return false
}

// AddAirport inserts a new airport. An empty status is stored as active.
func (tx *Tx) AddAirport(a Airport) error {
	const op = "AddAirport"
	if _, exists := tx.g.airports[a.ID]; exists {
		return NewError(op).Airport(a.ID).Cause(ErrDuplicateID).Err()
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
	if !a.Status.Valid() {
		return NewError(op).Airport(a.ID).Context("status " + string(a.Status)).Cause(ErrInvalidArgument).Err()
	}

	stored := a.Clone()
	tx.g.airports[a.ID] = stored
	tx.undo = append(tx.undo, func() {
		delete(tx.g.airports, stored.ID)
		delete(tx.g.incident, stored.ID)
	})

	m := newMutation(OpAddAirport, tx.now)
	m.Airport = stored.Clone()
	tx.record(m)
	return nil
}

// UpdateAirport replaces every field of an existing airport except its id.
// An empty status keeps the current one.
func (tx *Tx) UpdateAirport(a Airport) (*Airport, error) {
	const op = "UpdateAirport"
	current, ok := tx.g.airports[a.ID]
	if !ok {
		return nil, airportNotFound(op, a.ID)
	}
	if a.Status == "" {
		a.Status = current.Status
	}
	if !a.Status.Valid() {
		return nil, NewError(op).Airport(a.ID).Context("status " + string(a.Status)).Cause(ErrInvalidArgument).Err()
	}

	previous := *current
	*current = a
	tx.undo = append(tx.undo, func() {
		*current = previous
	})

	m := newMutation(OpUpdateAirport, tx.now)
	m.Airport = current.Clone()
	tx.record(m)
	return current.Clone(), nil
}

// SetAirportStatus changes only the status of an airport. Setting the status
// it already has records nothing.
func (tx *Tx) SetAirportStatus(id int64, status AirportStatus) error {
	current, ok := tx.g.airports[id]
	if !ok {
		return airportNotFound("SetAirportStatus", id)
	}
	if !status.Valid() {
		return NewError("SetAirportStatus").Airport(id).Context("status " + string(status)).Cause(ErrInvalidArgument).Err()
	}
	if current.Status == status {
		return nil
	}
	updated := *current
	updated.Status = status
	_, err := tx.UpdateAirport(updated)
	return err
}

// RemoveAirport deletes the airport after removing its incident routes. The
// route removals are recorded before the airport removal.
func (tx *Tx) RemoveAirport(id int64) (*Airport, []int64, error) {
	a, ok := tx.g.airports[id]
	if !ok {
		return nil, nil, airportNotFound("RemoveAirport", id)
	}

	routeIDs := slices.Clone(tx.g.incident[id])
	for _, rid := range routeIDs {
		if _, err := tx.RemoveRoute(rid); err != nil {
			return nil, nil, err
		}
	}

	delete(tx.g.airports, id)
	delete(tx.g.incident, id)
	tx.undo = append(tx.undo, func() {
		tx.g.airports[a.ID] = a
	})

	m := newMutation(OpRemoveAirport, tx.now)
	m.Airport = a.Clone()
	tx.record(m)
	return a.Clone(), routeIDs, nil
}

// AddRoute validates spec and creates a route with the next free id
func (tx *Tx) AddRoute(spec RouteSpec) (*Route, error) {
	id := tx.g.nextRouteID
	r := &Route{
		ID:        id,
		From:      spec.From,
		To:        spec.To,
		Distance:  spec.Distance,
		Stops:     spec.Stops,
		Operators: normalizeOperators(spec.Operators),
		Kind:      spec.Kind,
	}
	if err := tx.insertRoute(r); err != nil {
		return nil, err
	}
	return r.Clone(), nil
}

// insertRoute validates and stores r under its own id, advancing the id
// allocator past it.
func (tx *Tx) insertRoute(r *Route) error {
	const op = "AddRoute"
	if _, exists := tx.g.routes[r.ID]; exists {
		return NewError(op).Route(r.ID).Cause(ErrDuplicateID).Err()
	}
	if r.ID <= 0 {
		return NewError(op).Route(r.ID).Context("id must be positive").Cause(ErrInvalidArgument).Err()
	}
	if _, ok := tx.g.airports[r.From]; !ok {
		return NewError(op).Airport(r.From).Context("from").Cause(ErrUnknownEndpoint).Err()
	}
	if _, ok := tx.g.airports[r.To]; !ok {
		return NewError(op).Airport(r.To).Context("to").Cause(ErrUnknownEndpoint).Err()
	}
	if r.From == r.To {
		return NewError(op).Airport(r.From).Cause(ErrInvalidSelfLoop).Err()
	}
	if r.Distance < 0 || r.Stops < 0 {
		return NewError(op).Route(r.ID).Cause(ErrInvalidWeight).Err()
	}
	r.Operators = normalizeOperators(r.Operators)
	for _, al := range r.Operators {
		if _, ok := tx.g.airlines[al]; !ok {
			return NewError(op).Airline(al).Context("operator").Cause(ErrNotFound).Err()
		}
	}
	if r.Kind == "" {
		r.Kind = KindScheduled
	}

	prevNext := tx.g.nextRouteID
	if r.ID >= tx.g.nextRouteID {
		tx.g.nextRouteID = r.ID + 1
	}
	tx.g.routes[r.ID] = r
	tx.link(r.From, r.ID)
	tx.link(r.To, r.ID)
	tx.undo = append(tx.undo, func() {
		tx.unlink(r.From, r.ID)
		tx.unlink(r.To, r.ID)
		delete(tx.g.routes, r.ID)
		tx.g.nextRouteID = prevNext
	})

	m := newMutation(OpAddRoute, tx.now)
	m.Route = r.Clone()
	tx.record(m)
	return nil
}

// SetRouteOperators replaces a route's operator set
func (tx *Tx) SetRouteOperators(id int64, operators []int64) error {
	const op = "SetRouteOperators"
	r, ok := tx.g.routes[id]
	if !ok {
		return routeNotFound(op, id)
	}
	ops := normalizeOperators(operators)
	for _, al := range ops {
		if _, ok := tx.g.airlines[al]; !ok {
			return NewError(op).Airline(al).Context("operator").Cause(ErrNotFound).Err()
		}
	}

	previous := r.Operators
	r.Operators = ops
	tx.undo = append(tx.undo, func() {
		r.Operators = previous
	})

	m := newMutation(OpUpdateRoute, tx.now)
	m.Route = r.Clone()
	tx.record(m)
	return nil
}

// RemoveRoute deletes a route and returns what was removed
func (tx *Tx) RemoveRoute(id int64) (*Route, error) {
	r, ok := tx.g.routes[id]
	if !ok {
		return nil, routeNotFound("RemoveRoute", id)
	}

	delete(tx.g.routes, id)
	tx.unlink(r.From, id)
	tx.unlink(r.To, id)
	tx.undo = append(tx.undo, func() {
		tx.g.routes[id] = r
		tx.link(r.From, id)
		tx.link(r.To, id)
	})

	m := newMutation(OpRemoveRoute, tx.now)
	m.Route = r.Clone()
	tx.record(m)
	return r.Clone(), nil
}

// AddAirline inserts a new airline
func (tx *Tx) AddAirline(a Airline) error {
	if _, exists := tx.g.airlines[a.ID]; exists {
		return NewError("AddAirline").Airline(a.ID).Cause(ErrDuplicateID).Err()
	}

	stored := a.Clone()
	tx.g.airlines[a.ID] = stored
	tx.undo = append(tx.undo, func() {
		delete(tx.g.airlines, stored.ID)
	})

	m := newMutation(OpAddAirline, tx.now)
	m.Airline = stored.Clone()
	tx.record(m)
	return nil
}

// RenameAirline changes an airline's name
func (tx *Tx) RenameAirline(id int64, name string) error {
	a, ok := tx.g.airlines[id]
	if !ok {
		return airlineNotFound("RenameAirline", id)
	}

	previous := a.Name
	a.Name = name
	tx.undo = append(tx.undo, func() {
		a.Name = previous
	})

	m := newMutation(OpUpdateAirline, tx.now)
	m.Airline = a.Clone()
	tx.record(m)
	return nil
}

// RemoveAirline strips the airline from every route it operates, recording
// each route update, then deletes the airline.
func (tx *Tx) RemoveAirline(id int64) error {
	a, ok := tx.g.airlines[id]
	if !ok {
		return airlineNotFound("RemoveAirline", id)
	}

	for _, rid := range tx.RouteIDs() {
		r := tx.g.routes[rid]
		if !r.OperatedBy(id) {
			continue
		}
		remaining := slices.DeleteFunc(slices.Clone(r.Operators), func(al int64) bool { return al == id })
		if err := tx.SetRouteOperators(rid, remaining); err != nil {
			return err
		}
	}

	delete(tx.g.airlines, id)
	tx.undo = append(tx.undo, func() {
		tx.g.airlines[a.ID] = a
	})

	m := newMutation(OpRemoveAirline, tx.now)
	m.Airline = a.Clone()
	tx.record(m)
	return nil
}

// link inserts routeID into the airport's sorted incident list
func (tx *Tx) link(airportID, routeID int64) {
	list := tx.g.incident[airportID]
	i, found := slices.BinarySearch(list, routeID)
	if found {
		return
	}
	tx.g.incident[airportID] = slices.Insert(list, i, routeID)
}

// unlink removes routeID from the airport's incident list
func (tx *Tx) unlink(airportID, routeID int64) {
	list := tx.g.incident[airportID]
	i, found := slices.BinarySearch(list, routeID)
	if !found {
		return
	}
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(tx.g.incident, airportID)
		return
	}
	tx.g.incident[airportID] = list
}
