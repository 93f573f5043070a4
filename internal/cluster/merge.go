package cluster

import (
	"sort"

	"github.com/sells-group/lead-dedup/internal/model"
)

// Cluster is one connected component and the index of its surviving
// record.
type Cluster struct {
	Members  []int `json:"members"`
	Survivor int   `json:"survivor"`
}

// Size returns the number of members.
func (c Cluster) Size() int { return len(c.Members) }

// SelectSurvivor picks the member with the most non-empty fields. Ties go
// to the lowest index, so the result does not depend on member order.
func SelectSurvivor(records []model.Record, members []int) int {
	best, bestCount := -1, -1
	for _, m := range members {
		n := records[m].NonEmptyCount()
		if n > bestCount || (n == bestCount && m < best) {
			best, bestCount = m, n
		}
	}
	return best
}

// Resolve groups records into clusters along edges and selects each
// cluster's survivor. Clusters are returned in survivor index order.
func Resolve(records []model.Record, edges []Edge) []Cluster {
	comps := Components(len(records), edges)
	out := make([]Cluster, len(comps))
	for i, members := range comps {
		out[i] = Cluster{Members: members, Survivor: SelectSurvivor(records, members)}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Survivor < out[j].Survivor })
	return out
}

// Merge emits each cluster's survivor unchanged, in cluster order. Fields
// of the other members are not folded in.
func Merge(records []model.Record, clusters []Cluster) []model.Record {
	out := make([]model.Record, len(clusters))
	for i, c := range clusters {
		out[i] = records[c.Survivor]
	}
	return out
}

// Histogram counts clusters by size.
func Histogram(clusters []Cluster) map[int]int {
	h := make(map[int]int)
	for _, c := range clusters {
		h[c.Size()]++
	}
	return h
}
