// Command airnet-bench times the network analytics on an OpenFlights
// dataset or on a random synthetic network.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/dd0wney/cluso-airnet/pkg/algorithms"
	"github.com/dd0wney/cluso-airnet/pkg/network"
	"github.com/dd0wney/cluso-airnet/pkg/persistence"
)

func main() {
	dir := flag.String("dir", "", "OpenFlights directory (default: synthetic network)")
	airports := flag.Int("airports", 1000, "Synthetic airports")
	routes := flag.Int("routes", 4000, "Synthetic routes")
	seed := flag.Uint64("seed", 1, "Random seed")
	workers := flag.Int("workers", 0, "Analytics workers (0 = GOMAXPROCS)")
	paths := flag.Int("paths", 20, "Random path queries per metric")
	top := flag.Int("top", 5, "Entries to print per ranking")
	flag.Parse()

	ctx := context.Background()
	rng := rand.New(rand.NewPCG(*seed, *seed))

	fmt.Printf("✈️  Airnet - Network Analytics Benchmark\n")
	fmt.Printf("=======================================\n\n")

	g := network.NewGraph(network.Config{})
	start := time.Now()
	if *dir != "" {
		fmt.Printf("📂 Importing OpenFlights data from %s...\n", *dir)
		ds, stats, err := persistence.ImportOpenFlightsDir(ctx, *dir, nil)
		if err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		if err := g.Load(ds); err != nil {
			log.Fatalf("Load failed: %v", err)
		}
		fmt.Printf("  Dropped: %d unknown endpoints, %d self loops\n", stats.UnknownEndpoint, stats.SelfLoops)
	} else {
		fmt.Printf("📝 Building a synthetic network (%d airports, %d routes)...\n", *airports, *routes)
		if err := g.Load(synthetic(rng, *airports, *routes)); err != nil {
			log.Fatalf("Load failed: %v", err)
		}
	}
	st := g.Stats()
	fmt.Printf("✅ Loaded %d airports, %d routes, %d airlines in %v\n",
		st.Airports, st.Routes, st.Airlines, time.Since(start))
	if st.Airports < 2 {
		log.Fatal("Need at least two airports")
	}

	a := algorithms.NewAnalyzer(g, algorithms.AnalyzerConfig{Workers: *workers})

	rankings := []struct {
		name string
		run  func(context.Context, int) ([]algorithms.RankedAirport, error)
	}{
		{"Degree", a.TopHubs},
		{"Closeness", a.Closeness},
		{"Betweenness", a.Betweenness},
	}
	for i, r := range rankings {
		fmt.Printf("\n📊 Benchmark %d: %s Centrality\n", i+1, r.name)
		start := time.Now()
		ranked, err := r.run(ctx, *top)
		if err != nil {
			log.Fatalf("%s failed: %v", r.name, err)
		}
		fmt.Printf("✅ %s completed in %v\n", r.name, time.Since(start))
		for j, item := range ranked {
			fmt.Printf("    %d. %s [%d] (score: %.6f)\n", j+1, item.Name, item.ID, item.Score)
		}
	}

	fmt.Printf("\n📊 Benchmark %d: Louvain Communities\n", len(rankings)+1)
	start = time.Now()
	communities, err := a.Communities(ctx)
	if err != nil {
		log.Fatalf("Community detection failed: %v", err)
	}
	fmt.Printf("✅ Louvain completed in %v\n", time.Since(start))
	fmt.Printf("  Communities: %d over %d levels\n", len(communities.Communities), communities.Levels)
	fmt.Printf("  Modularity: %.4f\n", communities.Modularity)
	if len(communities.Communities) > 0 {
		fmt.Printf("  Largest community: %d airports\n", largestCommunity(communities))
	}

	var ids []int64
	for _, ap := range g.Airports() {
		ids = append(ids, ap.ID)
	}
	queries := make([][2]int64, *paths)
	for i := range queries {
		from := ids[rng.IntN(len(ids))]
		to := ids[rng.IntN(len(ids))]
		for to == from {
			to = ids[rng.IntN(len(ids))]
		}
		queries[i] = [2]int64{from, to}
	}

	n := len(rankings) + 2
	for _, metric := range []algorithms.Metric{algorithms.MetricHops, algorithms.MetricDistance} {
		for _, objective := range []algorithms.Objective{algorithms.Shortest, algorithms.Longest} {
			fmt.Printf("\n📊 Benchmark %d: %s %s paths (%d queries)\n", n, objective, metric, len(queries))
			n++
			found := 0
			start := time.Now()
			for _, q := range queries {
				p, err := a.FindPath(ctx, algorithms.PathQuery{
					Start:     q[0],
					End:       q[1],
					Metric:    metric,
					Objective: objective,
				})
				if err != nil {
					log.Fatalf("FindPath(%d, %d) failed: %v", q[0], q[1], err)
				}
				if p.Found {
					found++
				}
			}
			elapsed := time.Since(start)
			fmt.Printf("✅ %d/%d connected in %v (%v per query)\n",
				found, len(queries), elapsed, elapsed/time.Duration(max(len(queries), 1)))
		}
	}

	fmt.Printf("\n✅ Benchmark complete!\n")
}

// synthetic builds a random network with airports spread over the globe and
// routes between uniformly chosen distinct pairs
func synthetic(rng *rand.Rand, airports, routes int) *network.Dataset {
	ds := &network.Dataset{
		Airlines: []network.Airline{{ID: 1, Name: "Synthetic Air"}},
	}
	for i := 1; i <= airports; i++ {
		ds.Airports = append(ds.Airports, network.Airport{
			ID:        int64(i),
			Name:      fmt.Sprintf("Airport %d", i),
			Latitude:  rng.Float64()*180 - 90,
			Longitude: rng.Float64()*360 - 180,
			Status:    network.StatusActive,
		})
	}
	if airports < 2 {
		return ds
	}
	for i := 1; i <= routes; i++ {
		from := rng.IntN(airports)
		to := rng.IntN(airports - 1)
		if to >= from {
			to++
		}
		a, b := &ds.Airports[from], &ds.Airports[to]
		ds.Routes = append(ds.Routes, network.Route{
			ID:        int64(i),
			From:      a.ID,
			To:        b.ID,
			Distance:  persistence.Haversine(a, b),
			Stops:     rng.IntN(2),
			Operators: []int64{1},
			Kind:      network.KindScheduled,
		})
	}
	ds.NextRouteID = int64(routes + 1)
	return ds
}

func largestCommunity(result *algorithms.CommunityDetectionResult) int {
	largest := 0
	for _, c := range result.Communities {
		largest = max(largest, c.Size)
	}
	return largest
}
