package network

import "slices"

// Arc is one direction of a route in a Projection
type Arc struct {
	Route    int64
	To       int // index into Projection.IDs
	Distance float64
}

// Projection is an immutable, index-compacted copy of the graph taken under
// the read lock. Airport i of the projection has id IDs[i]; indexes follow
// ascending airport id.
type Projection struct {
	IDs      []int64
	Airports []Airport

	// Arcs[i] lists every route incident to airport i, ascending by route id.
	// Parallel routes appear individually.
	Arcs [][]Arc

	// Neighbors[i] lists the distinct adjacent airport indexes of i,
	// ascending. Parallel routes collapse into one entry.
	Neighbors [][]int

	index map[int64]int
}

// Project builds a Projection of the current graph
func (g *Graph) Project() *Projection {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := sortedKeys(g.airports)
	p := &Projection{
		IDs:       ids,
		Airports:  make([]Airport, len(ids)),
		Arcs:      make([][]Arc, len(ids)),
		Neighbors: make([][]int, len(ids)),
		index:     make(map[int64]int, len(ids)),
	}
	for i, id := range ids {
		p.index[id] = i
		p.Airports[i] = *g.airports[id]
	}

	for i, id := range ids {
		rids := g.incident[id]
		if len(rids) == 0 {
			continue
		}
		arcs := make([]Arc, len(rids))
		seen := make(map[int]struct{}, len(rids))
		for k, rid := range rids {
			r := g.routes[rid]
			to := p.index[r.Other(id)]
			arcs[k] = Arc{Route: rid, To: to, Distance: r.Distance}
			seen[to] = struct{}{}
		}
		p.Arcs[i] = arcs

		nbrs := make([]int, 0, len(seen))
		for j := range seen {
			nbrs = append(nbrs, j)
		}
		slices.Sort(nbrs)
		p.Neighbors[i] = nbrs
	}
	return p
}

// Len returns the number of airports in the projection
func (p *Projection) Len() int {
	return len(p.IDs)
}

// Index returns the projection index of an airport id
func (p *Projection) Index(id int64) (int, bool) {
	i, ok := p.index[id]
	return i, ok
}

// Degree returns the route count of airport index i, counting parallel
// routes individually.
func (p *Projection) Degree(i int) int {
	return len(p.Arcs[i])
}

// Edges counts distinct undirected airport pairs
func (p *Projection) Edges() int {
	total := 0
	for _, n := range p.Neighbors {
		total += len(n)
	}
	return total / 2
}
