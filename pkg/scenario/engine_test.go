package scenario

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/dd0wney/cluso-airnet/pkg/network"
)

// setupStar creates airport 1 linked to airports 2..6 plus isolated airport 7
func setupStar(t *testing.T) (*network.Graph, *Engine) {
	t.Helper()
	g := network.NewGraph(network.Config{})
	ctx := context.Background()

	for id := int64(1); id <= 7; id++ {
		if err := g.AddAirport(ctx, network.Airport{ID: id, Name: fmt.Sprintf("Airport %d", id)}); err != nil {
			t.Fatalf("AddAirport(%d) failed: %v", id, err)
		}
	}
	for leaf := int64(2); leaf <= 6; leaf++ {
		if _, err := g.AddRoute(ctx, network.RouteSpec{From: 1, To: leaf, Distance: 100}); err != nil {
			t.Fatalf("AddRoute(1-%d) failed: %v", leaf, err)
		}
	}
	return g, NewEngine(g, Config{Rand: rand.New(rand.NewPCG(1, 2))})
}

func TestDeactivateTopHubs_Star(t *testing.T) {
	g, e := setupStar(t)

	hubs, err := e.DeactivateTopHubs(context.Background(), 1)
	if err != nil {
		t.Fatalf("DeactivateTopHubs failed: %v", err)
	}
	if len(hubs) != 1 || hubs[0].ID != 1 || hubs[0].Degree != 5 {
		t.Fatalf("Expected hub 1 with degree 5, got %+v", hubs)
	}

	a, _ := g.Airport(1)
	if a.Status != network.StatusInactive {
		t.Errorf("Expected airport 1 inactive, got %q", a.Status)
	}
	if degree, _ := g.Degree(1); degree != 5 {
		t.Errorf("Expected routes to remain, degree is %d", degree)
	}
	if got := g.Stats().Routes; got != 5 {
		t.Errorf("Expected 5 routes, got %d", got)
	}
}

func TestDeactivateTopHubs_SkipsInactiveAndBreaksTiesById(t *testing.T) {
	_, e := setupStar(t)
	ctx := context.Background()

	if _, err := e.DeactivateTopHubs(ctx, 1); err != nil {
		t.Fatalf("DeactivateTopHubs failed: %v", err)
	}
	hubs, err := e.DeactivateTopHubs(ctx, 2)
	if err != nil {
		t.Fatalf("DeactivateTopHubs failed: %v", err)
	}
	ids := []int64{hubs[0].ID, hubs[1].ID}
	if !slices.Equal(ids, []int64{2, 3}) {
		t.Errorf("Expected leaves [2 3], got %v", ids)
	}

	none, err := e.DeactivateTopHubs(ctx, 0)
	if err != nil || len(none) != 0 {
		t.Errorf("Expected empty result for limit 0, got %v, %v", none, err)
	}
}

func TestReactivateAirports(t *testing.T) {
	g, e := setupStar(t)
	ctx := context.Background()

	if _, err := e.DeactivateTopHubs(ctx, 2); err != nil {
		t.Fatalf("DeactivateTopHubs failed: %v", err)
	}

	err := e.ReactivateAirports(ctx, []int64{1, 99})
	if !errors.Is(err, network.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if a, _ := g.Airport(1); a.Active() {
		t.Error("Expected failed reactivation to leave airport 1 inactive")
	}

	if err := e.ReactivateAirports(ctx, []int64{1, 2}); err != nil {
		t.Fatalf("ReactivateAirports failed: %v", err)
	}
	if got := g.Stats().InactiveAirports; got != 0 {
		t.Errorf("Expected no inactive airports, got %d", got)
	}
}

func TestDeleteHub(t *testing.T) {
	g, e := setupStar(t)
	ctx := context.Background()

	deleted, err := e.DeleteHub(ctx, 1)
	if err != nil {
		t.Fatalf("DeleteHub failed: %v", err)
	}
	if deleted.Airport.ID != 1 || !slices.Equal(deleted.RouteIDs, []int64{1, 2, 3, 4, 5}) {
		t.Errorf("Unexpected deletion result %+v", deleted)
	}
	if _, err := g.Degree(1); !errors.Is(err, network.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for deleted hub, got %v", err)
	}
	if got := g.Stats().Routes; got != 0 {
		t.Errorf("Expected no routes left, got %d", got)
	}

	if _, err := e.DeleteHub(ctx, 1); !errors.Is(err, network.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteIsolatedAirports(t *testing.T) {
	g, e := setupStar(t)
	ctx := context.Background()

	removed, err := e.DeleteIsolatedAirports(ctx)
	if err != nil {
		t.Fatalf("DeleteIsolatedAirports failed: %v", err)
	}
	if !slices.Equal(removed, []int64{7}) {
		t.Errorf("Expected [7] removed, got %v", removed)
	}

	again, err := e.DeleteIsolatedAirports(ctx)
	if err != nil {
		t.Fatalf("DeleteIsolatedAirports failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("Expected second run to remove nothing, got %v", again)
	}
	if got := g.Stats().Airports; got != 6 {
		t.Errorf("Expected 6 airports, got %d", got)
	}
}

// setupAirlines creates airline A (id 1) on routes 1-2 and 2-3 and airline B
// (id 2) on route 3-4.
func setupAirlines(t *testing.T) (*network.Graph, *Engine) {
	t.Helper()
	g := network.NewGraph(network.Config{})
	ctx := context.Background()

	for _, al := range []network.Airline{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}} {
		if err := g.AddAirline(ctx, al); err != nil {
			t.Fatalf("AddAirline failed: %v", err)
		}
	}
	for id := int64(1); id <= 4; id++ {
		if err := g.AddAirport(ctx, network.Airport{ID: id, Name: fmt.Sprintf("Airport %d", id)}); err != nil {
			t.Fatalf("AddAirport failed: %v", err)
		}
	}
	for _, spec := range []network.RouteSpec{
		{From: 1, To: 2, Distance: 100, Operators: []int64{1}},
		{From: 2, To: 3, Distance: 100, Operators: []int64{1}},
		{From: 3, To: 4, Distance: 100, Operators: []int64{2}},
	} {
		if _, err := g.AddRoute(ctx, spec); err != nil {
			t.Fatalf("AddRoute failed: %v", err)
		}
	}
	return g, NewEngine(g, Config{})
}

func TestMergeAirlines_KeepsSources(t *testing.T) {
	g, e := setupAirlines(t)

	res, err := e.MergeAirlines(context.Background(), 1, 2, MergeOptions{})
	if err != nil {
		t.Fatalf("MergeAirlines failed: %v", err)
	}
	if res.Airline.ID != 10003 || res.Airline.Name != "A-B" {
		t.Errorf("Expected airline 10003 named A-B, got %+v", res.Airline)
	}
	if !slices.Equal(res.RouteIDs, []int64{1, 2, 3}) {
		t.Errorf("Expected merged routes [1 2 3], got %v", res.RouteIDs)
	}

	routes, err := g.RoutesByAirline(10003)
	if err != nil {
		t.Fatalf("RoutesByAirline failed: %v", err)
	}
	if len(routes) != 3 {
		t.Errorf("Expected merged airline to operate 3 routes, got %d", len(routes))
	}
	if routes, _ := g.RoutesByAirline(1); len(routes) != 2 {
		t.Errorf("Expected airline A to keep 2 routes, got %d", len(routes))
	}
}

func TestMergeAirlines_RetireSources(t *testing.T) {
	g, e := setupAirlines(t)

	res, err := e.MergeAirlines(context.Background(), 1, 2, MergeOptions{Name: "AB", RetireSources: true})
	if err != nil {
		t.Fatalf("MergeAirlines failed: %v", err)
	}
	if res.Airline.Name != "AB" {
		t.Errorf("Expected custom name, got %q", res.Airline.Name)
	}
	if _, err := g.Airline(1); !errors.Is(err, network.ErrNotFound) {
		t.Errorf("Expected airline 1 retired, got %v", err)
	}
	for _, r := range g.Routes() {
		if !slices.Equal(r.Operators, []int64{10003}) {
			t.Errorf("Route %d: expected sole operator 10003, got %v", r.ID, r.Operators)
		}
	}
}

func TestMergeAirlines_Errors(t *testing.T) {
	g, e := setupAirlines(t)
	ctx := context.Background()

	if _, err := e.MergeAirlines(ctx, 1, 1, MergeOptions{}); !errors.Is(err, network.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
	if _, err := e.MergeAirlines(ctx, 1, 42, MergeOptions{}); !errors.Is(err, network.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if _, err := e.MergeAirlines(ctx, 1, 2, MergeOptions{}); err != nil {
		t.Fatalf("MergeAirlines failed: %v", err)
	}
	before := g.Export()
	if _, err := e.MergeAirlines(ctx, 2, 1, MergeOptions{}); !errors.Is(err, network.ErrDuplicateID) {
		t.Errorf("Expected ErrDuplicateID, got %v", err)
	}
	if after := g.Export(); len(after.Airlines) != len(before.Airlines) {
		t.Errorf("Expected failed merge to change nothing, airlines %d -> %d", len(before.Airlines), len(after.Airlines))
	}
}

func TestCreateHypotheticalRoute(t *testing.T) {
	g, e := setupStar(t)
	ctx := context.Background()

	created, err := e.CreateHypotheticalRoute(ctx, RouteRequest{From: 2, To: 3})
	if err != nil {
		t.Fatalf("CreateHypotheticalRoute failed: %v", err)
	}
	if created.Distance != DefaultHypotheticalDistance || created.Stops != 0 {
		t.Errorf("Expected defaults 500/0, got %v/%d", created.Distance, created.Stops)
	}
	if created.From != "Airport 2" || created.To != "Airport 3" || created.Kind != network.KindHypothetical {
		t.Errorf("Unexpected route %+v", created)
	}

	r, err := g.Route(created.RouteID)
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if len(r.Operators) != 0 {
		t.Errorf("Expected no operators, got %v", r.Operators)
	}

	if _, err := e.CreateHypotheticalRoute(ctx, RouteRequest{From: 2, To: 99}); !errors.Is(err, network.ErrUnknownEndpoint) {
		t.Errorf("Expected ErrUnknownEndpoint, got %v", err)
	}
}

func ptr[T any](v T) *T { return &v }

func TestCreateHypotheticalRoute_ZeroDistance(t *testing.T) {
	g, e := setupStar(t)

	created, err := e.CreateHypotheticalRoute(context.Background(), RouteRequest{From: 2, To: 3, Distance: ptr(0.0)})
	if err != nil {
		t.Fatalf("CreateHypotheticalRoute failed: %v", err)
	}
	if created.Distance != 0 {
		t.Errorf("Expected distance 0 kept, got %v", created.Distance)
	}
	r, err := g.Route(created.RouteID)
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if r.Distance != 0 {
		t.Errorf("Expected stored distance 0, got %v", r.Distance)
	}

	if _, err := e.CreateHypotheticalRoute(context.Background(), RouteRequest{From: 2, To: 4, Distance: ptr(-1.0)}); !errors.Is(err, network.ErrInvalidWeight) {
		t.Errorf("Expected ErrInvalidWeight, got %v", err)
	}
}

func TestCreateAlternativeRoutes(t *testing.T) {
	g, e := setupStar(t)
	ctx := context.Background()

	if _, err := e.DeactivateTopHubs(ctx, 1); err != nil {
		t.Fatalf("DeactivateTopHubs failed: %v", err)
	}

	created, err := e.CreateAlternativeRoutes(ctx, 3)
	if err != nil {
		t.Fatalf("CreateAlternativeRoutes failed: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("Expected 3 routes, got %d", len(created))
	}

	wantPairs := [][2]string{{"Airport 2", "Airport 3"}, {"Airport 2", "Airport 4"}, {"Airport 2", "Airport 5"}}
	for i, c := range created {
		if c.From != wantPairs[i][0] || c.To != wantPairs[i][1] {
			t.Errorf("Route %d: expected %v, got %s-%s", i, wantPairs[i], c.From, c.To)
		}
		if c.Stops != 1 || c.Kind != network.KindAlternative {
			t.Errorf("Route %d: unexpected stops/kind %d/%s", i, c.Stops, c.Kind)
		}
		if c.Distance < 200 || c.Distance >= 1200 {
			t.Errorf("Route %d: distance %v outside [200, 1200)", i, c.Distance)
		}
	}
	if degree, _ := g.Degree(1); degree != 5 {
		t.Errorf("Expected inactive hub untouched, degree %d", degree)
	}
}

func TestCreateAlternativeRoutes_NoEligiblePair(t *testing.T) {
	g := network.NewGraph(network.Config{})
	ctx := context.Background()
	for id := int64(1); id <= 2; id++ {
		if err := g.AddAirport(ctx, network.Airport{ID: id, Name: "x"}); err != nil {
			t.Fatalf("AddAirport failed: %v", err)
		}
	}
	if _, err := g.AddRoute(ctx, network.RouteSpec{From: 1, To: 2}); err != nil {
		t.Fatalf("AddRoute failed: %v", err)
	}

	created, err := NewEngine(g, Config{}).CreateAlternativeRoutes(ctx, 5)
	if err != nil {
		t.Fatalf("CreateAlternativeRoutes failed: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("Expected no routes, got %d", len(created))
	}
}

func TestCreateAlternativeRoutes_SeededSourceIsRepeatable(t *testing.T) {
	distances := func() []float64 {
		_, e := setupStar(t)
		created, err := e.CreateAlternativeRoutes(context.Background(), 4)
		if err != nil {
			t.Fatalf("CreateAlternativeRoutes failed: %v", err)
		}
		out := make([]float64, len(created))
		for i, c := range created {
			out[i] = c.Distance
		}
		return out
	}

	if first, second := distances(), distances(); !slices.Equal(first, second) {
		t.Errorf("Expected equal distances from equal seeds, got %v and %v", first, second)
	}
}

func TestRevertScenarioRoutes(t *testing.T) {
	g, e := setupStar(t)
	ctx := context.Background()

	if _, err := e.CreateHypotheticalRoute(ctx, RouteRequest{From: 2, To: 3, Distance: ptr(50.0)}); err != nil {
		t.Fatalf("CreateHypotheticalRoute failed: %v", err)
	}
	if _, err := e.CreateAlternativeRoutes(ctx, 2); err != nil {
		t.Fatalf("CreateAlternativeRoutes failed: %v", err)
	}
	if got := g.Stats().Routes; got != 8 {
		t.Fatalf("Expected 8 routes, got %d", got)
	}

	removed, err := e.RevertScenarioRoutes(ctx)
	if err != nil {
		t.Fatalf("RevertScenarioRoutes failed: %v", err)
	}
	if !slices.Equal(removed, []int64{6, 7, 8}) {
		t.Errorf("Expected [6 7 8] removed, got %v", removed)
	}
	if got := g.Stats().Routes; got != 5 {
		t.Errorf("Expected 5 scheduled routes, got %d", got)
	}
}
