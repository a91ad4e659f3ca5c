package bridge

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// treeView exposes a spanning tree to gonum's traversal with neighbours
// iterated in ascending id order, which fixes the sibling order of the BFS.
type treeView struct {
	adj [][]int64
}

func newTreeView(n int, edges []Edge) (*treeView, error) {
	t := &treeView{adj: make([][]int64, n)}
	for _, e := range edges {
		if e.U < 0 || e.V < 0 || e.U >= n || e.V >= n || e.U == e.V {
			return nil, fmt.Errorf("%w: tree edge (%d,%d) for %d nodes", ErrInvalidGraph, e.U, e.V, n)
		}
		t.adj[e.U] = append(t.adj[e.U], int64(e.V))
		t.adj[e.V] = append(t.adj[e.V], int64(e.U))
	}
	for _, nb := range t.adj {
		sort.Slice(nb, func(i, j int) bool { return nb[i] < nb[j] })
	}
	return t, nil
}

func (t *treeView) From(id int64) graph.Nodes {
	nb := t.adj[id]
	nodes := make([]graph.Node, len(nb))
	for i, v := range nb {
		nodes[i] = simple.Node(v)
	}
	return iterator.NewOrderedNodes(nodes)
}

func (t *treeView) Edge(uid, vid int64) graph.Edge {
	for _, v := range t.adj[uid] {
		if v == vid {
			return simple.Edge{F: simple.Node(uid), T: simple.Node(vid)}
		}
	}
	return nil
}

// Order reduces the distance graph to a minimum spanning tree and returns its
// edges as bridges in breadth-first order from the reference label. Every
// bridge's Label0 is the reference or the Label1 of an earlier bridge.
//
// A nil span uses Kruskal. For a single region no bridges are returned.
func Order(g *Graph, ref int, span SpanningTreeFunc) ([]Bridge, error) {
	if g == nil || g.Dist == nil {
		return nil, ErrInvalidGraph
	}
	if ref < 1 || ref > g.N {
		return nil, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidReference, ref, g.N)
	}
	if g.N == 1 {
		return []Bridge{}, nil
	}
	if span == nil {
		span = Kruskal
	}

	edges, err := span(g.Dist)
	if err != nil {
		return nil, err
	}
	tree, err := newTreeView(g.N, edges)
	if err != nil {
		return nil, err
	}

	root := int64(ref - 1)
	parent := make(map[int64]int64, g.N)
	var order []int64
	var via graph.Edge

	// Traverse sees the discovering edge right before Visit sees the new node,
	// so the edge's From is the BFS parent.
	bfs := traverse.BreadthFirst{
		Traverse: func(e graph.Edge) bool {
			via = e
			return true
		},
		Visit: func(n graph.Node) {
			if n.ID() == root {
				return
			}
			parent[n.ID()] = via.From().ID()
			order = append(order, n.ID())
		},
	}
	bfs.Walk(tree, simple.Node(root), nil)

	if len(order) != g.N-1 {
		return nil, fmt.Errorf("%w: reached %d of %d regions", ErrDisconnected, len(order)+1, g.N)
	}

	bridges := make([]Bridge, 0, len(order))
	for _, child := range order {
		label0 := int(parent[child]) + 1
		label1 := int(child) + 1
		rec, ok := g.Records[MakePair(label0, label1)]
		if !ok {
			return nil, fmt.Errorf("%w: no bridge record for regions %d and %d", ErrInvalidGraph, label0, label1)
		}
		p0 := rec.Endpoint(label0)
		p1 := rec.Endpoint(label1)
		bridges = append(bridges, Bridge{
			Label0: label0,
			Label1: label1,
			X0:     p0.X,
			Y0:     p0.Y,
			X1:     p1.X,
			Y1:     p1.Y,
		})
	}
	return bridges, nil
}
