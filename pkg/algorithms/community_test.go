package algorithms

import (
	"context"
	"math"
	"reflect"
	"slices"
	"testing"

	"github.com/dd0wney/cluso-airnet/pkg/network"
)

// cliqueRoutes links every pair of ids
func cliqueRoutes(ids ...int64) []testRoute {
	var routes []testRoute
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			routes = append(routes, testRoute{ids[i], ids[j], 100})
		}
	}
	return routes
}

func communityOf(t *testing.T, res *CommunityDetectionResult, id int64) int {
	t.Helper()
	for _, m := range res.Members {
		if m.ID == id {
			return m.Community
		}
	}
	t.Fatalf("airport %d missing from result", id)
	return -1
}

func runLouvain(t *testing.T, p *network.Projection) *CommunityDetectionResult {
	t.Helper()
	res, err := Louvain(context.Background(), p, DefaultLouvainOptions())
	if err != nil {
		t.Fatalf("Louvain failed: %v", err)
	}
	return res
}

func TestLouvain_TwoDisconnectedCliques(t *testing.T) {
	routes := append(cliqueRoutes(1, 2, 3, 4), cliqueRoutes(5, 6, 7, 8)...)
	p := buildNetwork(t, []int64{1, 2, 3, 4, 5, 6, 7, 8}, routes).Project()

	res := runLouvain(t, p)

	if len(res.Communities) != 2 {
		t.Fatalf("Expected 2 communities, got %d", len(res.Communities))
	}
	for _, id := range []int64{1, 2, 3, 4} {
		if c := communityOf(t, res, id); c != 0 {
			t.Errorf("Expected airport %d in community 0, got %d", id, c)
		}
	}
	for _, id := range []int64{5, 6, 7, 8} {
		if c := communityOf(t, res, id); c != 1 {
			t.Errorf("Expected airport %d in community 1, got %d", id, c)
		}
	}
	if res.Communities[0].Size != 4 || res.Communities[1].Size != 4 {
		t.Errorf("Expected sizes 4 and 4, got %d and %d", res.Communities[0].Size, res.Communities[1].Size)
	}
	if res.Communities[0].Density != 1 {
		t.Errorf("Expected clique density 1, got %v", res.Communities[0].Density)
	}
	if math.Abs(res.Modularity-0.5) > 1e-9 {
		t.Errorf("Expected modularity 0.5, got %v", res.Modularity)
	}
}

func TestLouvain_BridgedCliques(t *testing.T) {
	routes := append(cliqueRoutes(1, 2, 3, 4), cliqueRoutes(5, 6, 7, 8)...)
	routes = append(routes, testRoute{4, 5, 100})
	p := buildNetwork(t, []int64{1, 2, 3, 4, 5, 6, 7, 8}, routes).Project()

	res := runLouvain(t, p)

	left := communityOf(t, res, 1)
	right := communityOf(t, res, 8)
	if left == right {
		t.Fatal("Expected the bridge not to merge the cliques")
	}
	for _, id := range []int64{2, 3, 4} {
		if communityOf(t, res, id) != left {
			t.Errorf("Expected airport %d with airport 1", id)
		}
	}
	for _, id := range []int64{5, 6, 7} {
		if communityOf(t, res, id) != right {
			t.Errorf("Expected airport %d with airport 8", id)
		}
	}
	if res.Modularity <= 0 {
		t.Errorf("Expected positive modularity, got %v", res.Modularity)
	}
}

func TestLouvain_IsolatedAirportsAreSingletons(t *testing.T) {
	p := buildNetwork(t, []int64{1, 2, 3, 9, 10}, cliqueRoutes(1, 2, 3)).Project()

	res := runLouvain(t, p)

	if len(res.Communities) != 3 {
		t.Fatalf("Expected 3 communities, got %d", len(res.Communities))
	}
	if c := communityOf(t, res, 9); c != 1 {
		t.Errorf("Expected airport 9 in community 1, got %d", c)
	}
	if c := communityOf(t, res, 10); c != 2 {
		t.Errorf("Expected airport 10 in community 2, got %d", c)
	}
	if !slices.Equal(res.Communities[2].Airports, []int64{10}) {
		t.Errorf("Expected singleton [10], got %v", res.Communities[2].Airports)
	}
}

func TestLouvain_EmptyAndEdgeless(t *testing.T) {
	empty := runLouvain(t, network.NewGraph(network.Config{}).Project())
	if len(empty.Members) != 0 || len(empty.Communities) != 0 || empty.Modularity != 0 {
		t.Errorf("Expected empty result, got %+v", empty)
	}

	edgeless := runLouvain(t, buildNetwork(t, []int64{1, 2, 3}, nil).Project())
	if len(edgeless.Communities) != 3 || edgeless.Levels != 0 {
		t.Errorf("Expected 3 singletons at level 0, got %d communities at level %d",
			len(edgeless.Communities), edgeless.Levels)
	}
}

func TestLouvain_Deterministic(t *testing.T) {
	routes := append(cliqueRoutes(1, 2, 3, 4, 5), cliqueRoutes(6, 7, 8)...)
	routes = append(routes, testRoute{5, 6, 1}, testRoute{2, 9, 1}, testRoute{9, 10, 1}, testRoute{10, 7, 1})
	p := buildNetwork(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, routes).Project()

	first := runLouvain(t, p)
	for range 5 {
		again := runLouvain(t, p)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Expected identical results, got %+v and %+v", first, again)
		}
	}

	// Communities are numbered by smallest member id.
	for c, comm := range first.Communities {
		if c > 0 && first.Communities[c-1].Airports[0] >= comm.Airports[0] {
			t.Errorf("Community %d starts at %d, not after community %d", c, comm.Airports[0], c-1)
		}
	}
}

func TestLouvain_Cancelled(t *testing.T) {
	p := buildNetwork(t, []int64{1, 2, 3}, cliqueRoutes(1, 2, 3)).Project()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Louvain(ctx, p, DefaultLouvainOptions()); err == nil {
		t.Error("Expected error from cancelled run")
	}
}

func TestMembersByCommunity(t *testing.T) {
	routes := append(cliqueRoutes(1, 5), cliqueRoutes(2, 3)...)
	p := buildNetwork(t, []int64{1, 2, 3, 5}, routes).Project()

	res := runLouvain(t, p)
	members := res.MembersByCommunity(3)

	got := make([]int64, len(members))
	for i, m := range members {
		got[i] = m.ID
	}
	if !slices.Equal(got, []int64{1, 5, 2}) {
		t.Errorf("Expected [1 5 2], got %v", got)
	}
	if len(res.MembersByCommunity(0)) != 4 {
		t.Error("Expected every member for limit 0")
	}
}
