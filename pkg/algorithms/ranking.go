package algorithms

import (
	"cmp"
	"container/heap"
	"slices"

	"github.com/dd0wney/cluso-airnet/pkg/network"
)

// RankedAirport is an airport with a metric value
type RankedAirport struct {
	ID        int64   `json:"id"`
	Name      string  `json:"airport"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Score     float64 `json:"score"`
}

// rankedEntry is a projection index with its score
type rankedEntry struct {
	index int
	id    int64
	score float64
}

// worse reports whether a ranks below b: lower score, or equal score and
// higher airport id.
func (a rankedEntry) worse(b rankedEntry) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.id > b.id
}

// rankedHeap is a min-heap whose root is the worst entry kept so far
type rankedHeap []rankedEntry

func (h rankedHeap) Len() int           { return len(h) }
func (h rankedHeap) Less(i, j int) bool { return h[i].worse(h[j]) }
func (h rankedHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *rankedHeap) Push(x any) {
	*h = append(*h, x.(rankedEntry))
}

func (h *rankedHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// topAirports returns the n best-scoring airports of the projection,
// descending by score then ascending by id.
func topAirports(p *network.Projection, scores []float64, n int) []RankedAirport {
	if n <= 0 {
		return []RankedAirport{}
	}

	h := make(rankedHeap, 0, min(n, len(scores)))
	heap.Init(&h)

	for i, score := range scores {
		e := rankedEntry{index: i, id: p.IDs[i], score: score}
		if h.Len() < n {
			heap.Push(&h, e)
		} else if h[0].worse(e) {
			heap.Pop(&h)
			heap.Push(&h, e)
		}
	}

	entries := []rankedEntry(h)
	slices.SortFunc(entries, func(a, b rankedEntry) int {
		return cmp.Or(cmp.Compare(b.score, a.score), cmp.Compare(a.id, b.id))
	})

	out := make([]RankedAirport, len(entries))
	for k, e := range entries {
		a := p.Airports[e.index]
		out[k] = RankedAirport{
			ID:        a.ID,
			Name:      a.Name,
			Latitude:  a.Latitude,
			Longitude: a.Longitude,
			Score:     e.score,
		}
	}
	return out
}
