package algorithms

import (
	"context"
	"slices"

	"github.com/dd0wney/cluso-airnet/pkg/network"
)

// weightedEdge is an edge of a Louvain level graph
type weightedEdge struct {
	to int
	w  float64
}

// levelGraph is the weighted undirected graph of one Louvain level. Node i of
// level 0 is airport i of the projection; later levels have one node per
// community of the level below.
type levelGraph struct {
	adj  [][]weightedEdge // ascending by neighbour, self excluded
	self []float64        // A_ii: twice the internal edge weight
	k    []float64        // node strength including self
	m2   float64          // twice the total edge weight
}

func newLevelGraph(p *network.Projection) *levelGraph {
	n := p.Len()
	lg := &levelGraph{
		adj:  make([][]weightedEdge, n),
		self: make([]float64, n),
		k:    make([]float64, n),
	}
	for i, nbrs := range p.Neighbors {
		edges := make([]weightedEdge, len(nbrs))
		for j, u := range nbrs {
			edges[j] = weightedEdge{to: u, w: 1}
		}
		lg.adj[i] = edges
		lg.k[i] = float64(len(nbrs))
		lg.m2 += lg.k[i]
	}
	return lg
}

func (lg *levelGraph) len() int {
	return len(lg.adj)
}

// Louvain detects communities by modularity optimisation. Every airport
// pair joined by at least one route is one edge of weight 1.
//
// Nodes are visited in ascending order and candidate communities in
// ascending id; a node moves only for a strictly larger gain. Passes repeat
// until nothing moves, the level is aggregated into super-nodes, and the
// process stops at the first level where no node moves. The result is
// deterministic for a given projection.
func Louvain(ctx context.Context, p *network.Projection, opts LouvainOptions) (*CommunityDetectionResult, error) {
	if opts.Resolution <= 0 {
		opts.Resolution = 1.0
	}

	n := p.Len()
	membership := make([]int, n) // airport index -> community at current level
	for i := range membership {
		membership[i] = i
	}

	lg := newLevelGraph(p)
	levels := 0
	for opts.MaxLevels <= 0 || levels < opts.MaxLevels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		comm, moved, err := lg.localMoving(ctx, opts)
		if err != nil {
			return nil, err
		}
		if !moved {
			break
		}
		levels++

		dense, count := densify(comm)
		for i := range membership {
			membership[i] = dense[membership[i]]
		}
		lg = lg.aggregate(dense, count)
	}

	return buildCommunityResult(p, membership, levels, opts.Resolution), nil
}

// localMoving runs passes of the local moving phase. It returns the
// community of every node and whether any node changed community.
func (lg *levelGraph) localMoving(ctx context.Context, opts LouvainOptions) ([]int, bool, error) {
	n := lg.len()
	comm := make([]int, n)
	tot := make([]float64, n)
	for i := range comm {
		comm[i] = i
		tot[i] = lg.k[i]
	}
	if lg.m2 == 0 {
		return comm, false, nil
	}

	linkWeight := make([]float64, n) // community -> weight from the current node
	touched := make([]int, 0, 16)

	moved := false
	for pass := 0; opts.MaxPasses <= 0 || pass < opts.MaxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		movedThisPass := false
		for i := 0; i < n; i++ {
			ki := lg.k[i]
			own := comm[i]

			touched = touched[:0]
			for _, e := range lg.adj[i] {
				c := comm[e.to]
				if linkWeight[c] == 0 {
					touched = append(touched, c)
				}
				linkWeight[c] += e.w
			}

			tot[own] -= ki
			best := own
			bestGain := linkWeight[own] - opts.Resolution*tot[own]*ki/lg.m2

			slices.Sort(touched)
			for _, c := range touched {
				if c == own {
					continue
				}
				gain := linkWeight[c] - opts.Resolution*tot[c]*ki/lg.m2
				if gain > bestGain {
					best, bestGain = c, gain
				}
			}
			tot[best] += ki

			for _, c := range touched {
				linkWeight[c] = 0
			}

			if best != own {
				comm[i] = best
				movedThisPass = true
			}
		}

		if !movedThisPass {
			break
		}
		moved = true
	}
	return comm, moved, nil
}

// densify renumbers community labels to 0..count-1 in order of first
// appearance.
func densify(comm []int) ([]int, int) {
	remap := make(map[int]int)
	dense := make([]int, len(comm))
	for i, c := range comm {
		id, ok := remap[c]
		if !ok {
			id = len(remap)
			remap[c] = id
		}
		dense[i] = id
	}
	return dense, len(remap)
}

// aggregate collapses every community into one node. Internal edges become
// self-loop weight.
func (lg *levelGraph) aggregate(comm []int, count int) *levelGraph {
	next := &levelGraph{
		adj:  make([][]weightedEdge, count),
		self: make([]float64, count),
		k:    make([]float64, count),
		m2:   lg.m2,
	}
	weights := make([]map[int]float64, count)

	for i, edges := range lg.adj {
		ci := comm[i]
		next.self[ci] += lg.self[i]
		next.k[ci] += lg.k[i]
		for _, e := range edges {
			cj := comm[e.to]
			if ci == cj {
				next.self[ci] += e.w
				continue
			}
			if weights[ci] == nil {
				weights[ci] = make(map[int]float64)
			}
			weights[ci][cj] += e.w
		}
	}

	for c, w := range weights {
		edges := make([]weightedEdge, 0, len(w))
		for to, weight := range w {
			edges = append(edges, weightedEdge{to: to, w: weight})
		}
		slices.SortFunc(edges, func(a, b weightedEdge) int { return a.to - b.to })
		next.adj[c] = edges
	}
	return next
}

// buildCommunityResult numbers communities by smallest member airport id and
// computes modularity on the original graph.
func buildCommunityResult(p *network.Projection, membership []int, levels int, resolution float64) *CommunityDetectionResult {
	n := p.Len()
	final := make([]int, n)
	renumber := make(map[int]int)
	for i, c := range membership {
		id, ok := renumber[c]
		if !ok {
			id = len(renumber)
			renumber[c] = id
		}
		final[i] = id
	}

	communities := make([]Community, len(renumber))
	for c := range communities {
		communities[c] = Community{ID: c, Airports: []int64{}}
	}
	members := make([]CommunityMember, n)
	for i, c := range final {
		a := p.Airports[i]
		members[i] = CommunityMember{ID: a.ID, Name: a.Name, Latitude: a.Latitude, Longitude: a.Longitude, Community: c}
		communities[c].Airports = append(communities[c].Airports, a.ID)
	}

	internal := make([]float64, len(communities))
	degreeSum := make([]float64, len(communities))
	m2 := 0.0
	for i, nbrs := range p.Neighbors {
		degreeSum[final[i]] += float64(len(nbrs))
		m2 += float64(len(nbrs))
		for _, u := range nbrs {
			if final[u] == final[i] {
				internal[final[i]] += 1 // each internal edge seen from both ends
			}
		}
	}

	modularity := 0.0
	for c := range communities {
		size := len(communities[c].Airports)
		communities[c].Size = size
		if size > 1 {
			communities[c].Density = internal[c] / float64(size*(size-1))
		}
		if m2 > 0 {
			modularity += internal[c]/m2 - resolution*(degreeSum[c]/m2)*(degreeSum[c]/m2)
		}
	}

	return &CommunityDetectionResult{
		Members:     members,
		Communities: communities,
		Modularity:  modularity,
		Levels:      levels,
	}
}
