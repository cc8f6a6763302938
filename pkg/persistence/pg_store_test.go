package persistence

import (
	"context"
	"os"
	"slices"
	"testing"

	"github.com/dd0wney/cluso-airnet/pkg/network"
)

// openTestPGStore connects to AIRNET_TEST_DATABASE_URL and starts from
// empty tables.
func openTestPGStore(t *testing.T) *PGStore {
	t.Helper()
	url := os.Getenv("AIRNET_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("AIRNET_TEST_DATABASE_URL not set")
	}
	store, err := NewPGStore(context.Background(), url, Options{})
	if err != nil {
		t.Fatalf("NewPGStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Snapshot(context.Background(), &network.Dataset{}); err != nil {
		t.Fatalf("clearing tables failed: %v", err)
	}
	return store
}

func TestPGStore_PersistAndLoad(t *testing.T) {
	store := openTestPGStore(t)
	ctx := context.Background()

	g := network.NewGraph(network.Config{Writer: store})
	seedGraph(t, g)
	if err := g.SetAirportStatus(ctx, 3, network.StatusInactive); err != nil {
		t.Fatalf("SetAirportStatus failed: %v", err)
	}
	if _, _, err := g.RemoveAirport(ctx, 1); err != nil {
		t.Fatalf("RemoveAirport failed: %v", err)
	}

	ds, err := store.LoadGraph(ctx)
	if err != nil {
		t.Fatalf("LoadGraph failed: %v", err)
	}
	if len(ds.Airports) != 2 || len(ds.Routes) != 1 {
		t.Fatalf("Expected 2 airports and 1 route, got %d and %d", len(ds.Airports), len(ds.Routes))
	}
	if ds.Airports[1].Status != network.StatusInactive {
		t.Errorf("Expected airport 3 inactive, got %q", ds.Airports[1].Status)
	}
	if ds.NextRouteID != 3 {
		t.Errorf("Expected next route id 3, got %d", ds.NextRouteID)
	}
}

func TestPGStore_SnapshotReplacesTables(t *testing.T) {
	store := openTestPGStore(t)
	ctx := context.Background()

	g := network.NewGraph(network.Config{})
	seedGraph(t, g)
	if err := g.Checkpoint(ctx, store); err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}

	ds, err := store.LoadGraph(ctx)
	if err != nil {
		t.Fatalf("LoadGraph failed: %v", err)
	}
	if len(ds.Routes) != 2 || !slices.Equal(ds.Routes[0].Operators, []int64{7}) {
		t.Errorf("Unexpected routes after snapshot: %+v", ds.Routes)
	}
	if ds.Routes[1].Operators != nil {
		t.Errorf("Expected no operators on route 2, got %v", ds.Routes[1].Operators)
	}
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
