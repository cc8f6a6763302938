package algorithms

import (
	"context"

	"github.com/dd0wney/cluso-airnet/pkg/network"
	"github.com/dd0wney/cluso-airnet/pkg/parallel"
)

// DegreeScores returns the route count of every airport in projection
// order. Parallel routes count individually.
func DegreeScores(p *network.Projection) []float64 {
	scores := make([]float64, p.Len())
	for i := range scores {
		scores[i] = float64(p.Degree(i))
	}
	return scores
}

// TopDegree ranks airports by route count
func TopDegree(p *network.Projection, limit int) []RankedAirport {
	return topAirports(p, DegreeScores(p), limit)
}

// ClosenessScores computes closeness centrality for every airport: the number
// of airports reachable from it divided by the sum of their hop distances.
// Isolated airports score 0. One BFS runs per airport, spread over workers.
func ClosenessScores(ctx context.Context, p *network.Projection, workers int) ([]float64, error) {
	n := p.Len()
	closeness := make([]float64, n)

	buffers := make([]*bfsBuffer, effectiveWorkers(workers, n))
	err := parallel.ForEach(ctx, len(buffers), n, func(w, source int) {
		if buffers[w] == nil {
			buffers[w] = newBFSBuffer(n)
		}
		b := buffers[w]
		b.reset()

		b.dist[source] = 0
		b.queue = append(b.queue, source)
		total, reachable := 0, 0
		for head := 0; head < len(b.queue); head++ {
			v := b.queue[head]
			for _, u := range p.Neighbors[v] {
				if b.dist[u] < 0 {
					b.dist[u] = b.dist[v] + 1
					b.queue = append(b.queue, u)
					total += b.dist[u]
					reachable++
				}
			}
		}

		if total > 0 {
			closeness[source] = float64(reachable) / float64(total)
		}
	})
	if err != nil {
		return nil, err
	}
	return closeness, nil
}

// BetweennessScores computes Brandes betweenness centrality over the
// collapsed undirected projection, normalised by 1/((n-1)(n-2)). Each worker
// accumulates into its own slice; the slices are summed in worker order.
func BetweennessScores(ctx context.Context, p *network.Projection, workers int) ([]float64, error) {
	n := p.Len()
	w := effectiveWorkers(workers, n)

	partials := make([][]float64, w)
	buffers := make([]*bfsBuffer, w)
	err := parallel.ForEach(ctx, w, n, func(worker, source int) {
		if buffers[worker] == nil {
			buffers[worker] = newBFSBuffer(n)
			partials[worker] = make([]float64, n)
		}
		brandesFrom(p, source, buffers[worker], partials[worker])
	})
	if err != nil {
		return nil, err
	}

	betweenness := make([]float64, n)
	for _, part := range partials {
		for i, v := range part {
			betweenness[i] += v
		}
	}

	if n > 2 {
		normFactor := 1.0 / float64((n-1)*(n-2))
		for i := range betweenness {
			betweenness[i] *= normFactor
		}
	}
	return betweenness, nil
}

// brandesFrom runs one single-source Brandes pass and adds the dependency
// of every airport on source to acc.
func brandesFrom(p *network.Projection, source int, b *bfsBuffer, acc []float64) {
	b.reset()
	b.sigma[source] = 1
	b.dist[source] = 0
	b.queue = append(b.queue, source)

	// The BFS queue doubles as the visit order stack.
	for head := 0; head < len(b.queue); head++ {
		v := b.queue[head]
		for _, u := range p.Neighbors[v] {
			if b.dist[u] < 0 {
				b.dist[u] = b.dist[v] + 1
				b.queue = append(b.queue, u)
			}
			if b.dist[u] == b.dist[v]+1 {
				b.sigma[u] += b.sigma[v]
				b.preds[u] = append(b.preds[u], v)
			}
		}
	}

	for k := len(b.queue) - 1; k >= 0; k-- {
		u := b.queue[k]
		for _, v := range b.preds[u] {
			b.delta[v] += (b.sigma[v] / b.sigma[u]) * (1 + b.delta[u])
		}
		if u != source {
			acc[u] += b.delta[u]
		}
	}
}

// bfsBuffer holds per-worker scratch state reused across sources
type bfsBuffer struct {
	dist  []int
	sigma []float64
	delta []float64
	preds [][]int
	queue []int
}

func newBFSBuffer(n int) *bfsBuffer {
	b := &bfsBuffer{
		dist:  make([]int, n),
		sigma: make([]float64, n),
		delta: make([]float64, n),
		preds: make([][]int, n),
		queue: make([]int, 0, n),
	}
	for i := range b.dist {
		b.dist[i] = -1
	}
	return b
}

// reset clears only the entries the previous run visited
func (b *bfsBuffer) reset() {
	for _, i := range b.queue {
		b.dist[i] = -1
		b.sigma[i] = 0
		b.delta[i] = 0
		b.preds[i] = b.preds[i][:0]
	}
	b.queue = b.queue[:0]
}

func effectiveWorkers(workers, n int) int {
	if workers <= 0 {
		workers = defaultWorkers()
	}
	return max(1, min(workers, n))
}
