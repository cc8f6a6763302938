package algorithms

import (
	"cmp"
	"slices"
)

// Community represents a detected community
type Community struct {
	ID       int     `json:"id"`
	Airports []int64 `json:"airports"` // ascending
	Size     int     `json:"size"`
	Density  float64 `json:"density"` // internal airport pairs over possible pairs
}

// CommunityMember is one airport with the community it was assigned to
type CommunityMember struct {
	ID        int64   `json:"id"`
	Name      string  `json:"airport"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Community int     `json:"community"`
}

// CommunityDetectionResult contains detected communities. Community ids are
// dense, numbered by smallest member airport id, and only meaningful within
// one result.
type CommunityDetectionResult struct {
	Members     []CommunityMember `json:"members"` // ascending airport id
	Communities []Community       `json:"communities"`
	Modularity  float64           `json:"modularity"`
	Levels      int               `json:"levels"`
}

// LouvainOptions tunes community detection
type LouvainOptions struct {
	// Resolution scales the null-model term; values above 1 favour smaller
	// communities. 0 means 1.
	Resolution float64
	// MaxLevels bounds aggregation levels. 0 means no bound.
	MaxLevels int
	// MaxPasses bounds local moving passes per level. 0 means no bound.
	MaxPasses int
}

// DefaultLouvainOptions returns the standard settings
func DefaultLouvainOptions() LouvainOptions {
	return LouvainOptions{Resolution: 1.0}
}

// MembersByCommunity returns up to limit members ordered by community id,
// then airport id. limit <= 0 returns every member.
func (r *CommunityDetectionResult) MembersByCommunity(limit int) []CommunityMember {
	out := slices.Clone(r.Members)
	slices.SortStableFunc(out, func(a, b CommunityMember) int {
		return cmp.Or(cmp.Compare(a.Community, b.Community), cmp.Compare(a.ID, b.ID))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
