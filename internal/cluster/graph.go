// Package cluster groups matched records into duplicate clusters and picks
// the record that survives each cluster.
package cluster

import "sort"

// Edge is a matched pair of record indices.
type Edge struct {
	A, B int
}

// UnionFind is a disjoint-set forest over indices 0..n-1 with path
// compression and union by rank.
type UnionFind struct {
	parent []int
	rank   []uint8
}

// NewUnionFind returns n singleton sets.
func NewUnionFind(n int) *UnionFind {
	u := &UnionFind{parent: make([]int, n), rank: make([]uint8, n)}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

// Find returns the representative of x's set.
func (u *UnionFind) Find(x int) int {
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		next := u.parent[x]
		u.parent[x] = root
		x = next
	}
	return root
}

// Union merges the sets of a and b. It reports false when they were
// already joined.
func (u *UnionFind) Union(a, b int) bool {
	ra, rb := u.Find(a), u.Find(b)
	if ra == rb {
		return false
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
	return true
}

// Components returns the connected components of the graph over n nodes.
// Members of a component are ascending and components are ordered by
// their smallest member. Isolated nodes form singleton components.
func Components(n int, edges []Edge) [][]int {
	u := NewUnionFind(n)
	for _, e := range edges {
		u.Union(e.A, e.B)
	}

	byRoot := make(map[int]int, n)
	var out [][]int
	for i := 0; i < n; i++ {
		r := u.Find(i)
		slot, ok := byRoot[r]
		if !ok {
			slot = len(out)
			byRoot[r] = slot
			out = append(out, nil)
		}
		out[slot] = append(out[slot], i)
	}
	return out
}

// Clique returns a chain of edges connecting every member, which is
// enough to put them in one component.
func Clique(members []int) []Edge {
	if len(members) < 2 {
		return nil
	}
	sorted := append([]int(nil), members...)
	sort.Ints(sorted)
	edges := make([]Edge, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		edges = append(edges, Edge{A: sorted[i-1], B: sorted[i]})
	}
	return edges
}
