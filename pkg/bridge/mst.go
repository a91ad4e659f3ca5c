package bridge

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"
)

// SpanningTreeFunc computes a minimum spanning tree of the dense weighted
// undirected graph held in dist. Entries that are NaN or +Inf are treated as
// missing edges; the diagonal is ignored. The result has n-1 edges for a
// connected graph of n nodes.
type SpanningTreeFunc func(dist mat.Symmetric) ([]Edge, error)

// denseEdges lists the usable upper-triangle edges of dist in (u, v) order.
func denseEdges(dist mat.Symmetric) []Edge {
	n := dist.SymmetricDim()
	edges := make([]Edge, 0, n*(n-1)/2)
	for u := 0; u < n; u++ {
		for v := u + 1; v < n; v++ {
			w := dist.At(u, v)
			if math.IsNaN(w) || math.IsInf(w, 1) {
				continue
			}
			edges = append(edges, Edge{U: u, V: v, Weight: w})
		}
	}
	return edges
}

// Kruskal computes the MST with a disjoint-set forest (path compression and
// union by rank). Edges are stably sorted by weight from (u, v) order, so on
// equal weights the pair with the lowest region ids is taken first and the
// result is deterministic.
//
// Complexity: O(E log E) with E = n(n-1)/2.
func Kruskal(dist mat.Symmetric) ([]Edge, error) {
	n := dist.SymmetricDim()
	if n <= 1 {
		return []Edge{}, nil
	}

	edges := denseEdges(dist)
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].Weight < edges[j].Weight
	})

	parent := make([]int, n)
	rank := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	find := func(u int) int {
		for parent[u] != u {
			parent[u] = parent[parent[u]]
			u = parent[u]
		}
		return u
	}

	mst := make([]Edge, 0, n-1)
	for _, e := range edges {
		ru, rv := find(e.U), find(e.V)
		if ru == rv {
			continue
		}
		switch {
		case rank[ru] < rank[rv]:
			parent[ru] = rv
		case rank[ru] > rank[rv]:
			parent[rv] = ru
		default:
			parent[rv] = ru
			rank[ru]++
		}
		mst = append(mst, e)
		if len(mst) == n-1 {
			break
		}
	}

	if len(mst) < n-1 {
		return nil, fmt.Errorf("%w: spanning tree has %d of %d edges", ErrDisconnected, len(mst), n-1)
	}
	return mst, nil
}

// Prim computes the MST with gonum's Prim implementation. On equal weights the
// chosen tree follows gonum's internal ordering; the returned edges are sorted
// by (u, v).
func Prim(dist mat.Symmetric) ([]Edge, error) {
	n := dist.SymmetricDim()
	if n <= 1 {
		return []Edge{}, nil
	}

	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}
	for _, e := range denseEdges(dist) {
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(e.U), simple.Node(e.V), e.Weight))
	}

	dst := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	path.Prim(dst, g)

	mst := make([]Edge, 0, n-1)
	it := dst.WeightedEdges()
	for it.Next() {
		e := it.WeightedEdge()
		u, v := int(e.From().ID()), int(e.To().ID())
		if u > v {
			u, v = v, u
		}
		mst = append(mst, Edge{U: u, V: v, Weight: e.Weight()})
	}
	sort.Slice(mst, func(i, j int) bool {
		if mst[i].U != mst[j].U {
			return mst[i].U < mst[j].U
		}
		return mst[i].V < mst[j].V
	})

	if len(mst) != n-1 {
		return nil, fmt.Errorf("%w: spanning forest has %d of %d edges", ErrDisconnected, len(mst), n-1)
	}
	return mst, nil
}

// TotalWeight sums the edge weights of a tree.
func TotalWeight(edges []Edge) float64 {
	var total float64
	for _, e := range edges {
		total += e.Weight
	}
	return total
}

// SpanningTreeByName maps a configuration name to a SpanningTreeFunc.
func SpanningTreeByName(name string) (SpanningTreeFunc, error) {
	switch name {
	case "", "kruskal":
		return Kruskal, nil
	case "prim":
		return Prim, nil
	default:
		return nil, fmt.Errorf("bridge: unknown spanning tree method %q", name)
	}
}
