package persistence

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dd0wney/cluso-airnet/pkg/network"
)

type loaderFunc func(ctx context.Context) (*network.Dataset, error)

func (f loaderFunc) LoadGraph(ctx context.Context) (*network.Dataset, error) { return f(ctx) }

func staticLoader(ds *network.Dataset) network.Loader {
	return loaderFunc(func(context.Context) (*network.Dataset, error) { return ds, nil })
}

type countingSnapshotter struct {
	calls atomic.Int32
	last  atomic.Pointer[network.Dataset]
}

func (c *countingSnapshotter) Snapshot(_ context.Context, ds *network.Dataset) error {
	c.calls.Add(1)
	c.last.Store(ds)
	return nil
}

func twoAirports() *network.Dataset {
	return &network.Dataset{
		Airports: []network.Airport{
			{ID: 1, Name: "One", Status: network.StatusActive},
			{ID: 2, Name: "Two", Status: network.StatusActive},
		},
		Routes:      []network.Route{{ID: 1, From: 1, To: 2, Distance: 100, Kind: network.KindScheduled}},
		NextRouteID: 2,
	}
}

func TestBootstrap_PrimaryWins(t *testing.T) {
	g := network.NewGraph(network.Config{})
	primary := &countingSnapshotter{}

	name, err := Bootstrap(context.Background(), g, primary, []Source{
		{Name: "file", Loader: staticLoader(twoAirports())},
		{Name: "openflights", Loader: loaderFunc(func(context.Context) (*network.Dataset, error) {
			t.Error("later source should not be read")
			return nil, nil
		})},
	}, nil)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if name != "file" {
		t.Errorf("Expected source file, got %q", name)
	}
	if primary.calls.Load() != 0 {
		t.Errorf("Data already in the primary store must not be written back")
	}
	if st := g.Stats(); st.Airports != 2 || st.Routes != 1 {
		t.Errorf("Unexpected stats %+v", st)
	}
}

func TestBootstrap_FallsBackAndWritesBack(t *testing.T) {
	g := network.NewGraph(network.Config{})
	primary := &countingSnapshotter{}

	name, err := Bootstrap(context.Background(), g, primary, []Source{
		{Name: "file", Loader: staticLoader(&network.Dataset{})},
		{Name: "s3", Loader: staticLoader(twoAirports())},
	}, nil)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if name != "s3" {
		t.Errorf("Expected source s3, got %q", name)
	}
	if primary.calls.Load() != 1 || len(primary.last.Load().Airports) != 2 {
		t.Errorf("Expected the restored network checkpointed once to primary")
	}
}

func TestBootstrap_AllEmpty(t *testing.T) {
	g := network.NewGraph(network.Config{})
	name, err := Bootstrap(context.Background(), g, nil, []Source{
		{Name: "file", Loader: staticLoader(&network.Dataset{})},
	}, nil)
	if err != nil || name != "" {
		t.Fatalf("Expected empty start, got %q, %v", name, err)
	}
}

func TestBootstrap_SourceError(t *testing.T) {
	boom := errors.New("boom")
	g := network.NewGraph(network.Config{})
	_, err := Bootstrap(context.Background(), g, nil, []Source{
		{Name: "postgres", Loader: loaderFunc(func(context.Context) (*network.Dataset, error) { return nil, boom })},
	}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped source error, got %v", err)
	}
}

func TestBootstrap_InvalidDataset(t *testing.T) {
	ds := twoAirports()
	ds.Routes[0].To = 99
	g := network.NewGraph(network.Config{})
	if _, err := Bootstrap(context.Background(), g, nil, []Source{{Name: "file", Loader: staticLoader(ds)}}, nil); err == nil {
		t.Fatal("Expected an error for a dangling route")
	}
	if g.Stats().Airports != 0 {
		t.Error("Graph should be left empty")
	}
}

func TestRunCheckpoints(t *testing.T) {
	g := network.NewGraph(network.Config{})
	if err := g.Load(twoAirports()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	snap := &countingSnapshotter{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunCheckpoints(ctx, g, snap, 5*time.Millisecond, "test", nil)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for snap.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for checkpoints")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestRunCheckpoints_ZeroIntervalReturns(t *testing.T) {
	g := network.NewGraph(network.Config{})
	RunCheckpoints(context.Background(), g, &countingSnapshotter{}, 0, "test", nil)
}
