package core

import (
	"math"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Unreachable is the distance between disconnected nodes. It is larger than
// any real path length on the graphs this system drives.
const Unreachable = 1e7

// DistanceTable holds all-pairs shortest path distances. Read-only after construction.
type DistanceTable struct {
	index map[NodeID]int
	d     [][]float64
}

// NewDistanceTable runs Floyd-Warshall over g. Edge weights are the Euclidean
// distances between node positions.
func NewDistanceTable(g *Graph) *DistanceTable {
	ids := g.ids
	n := len(ids)

	t := &DistanceTable{
		index: make(map[NodeID]int, n),
		d:     make([][]float64, n),
	}
	for i, id := range ids {
		t.index[id] = i
	}

	wg := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for i := range ids {
		wg.AddNode(simple.Node(i))
	}
	for i, id := range ids {
		node := g.nodes[id]
		for _, u := range node.Neighbors {
			j := t.index[u]
			if j < i {
				continue
			}
			wg.SetWeightedEdge(wg.NewWeightedEdge(simple.Node(i), simple.Node(j), euclid(node.Pos, g.nodes[u].Pos)))
		}
	}
	paths, _ := path.FloydWarshall(wg)

	for i := range ids {
		row := make([]float64, n)
		for j := range row {
			switch w := paths.Weight(int64(i), int64(j)); {
			case i == j:
				row[j] = 0
			case math.IsInf(w, 1) || w >= Unreachable:
				row[j] = Unreachable
			default:
				row[j] = w
			}
		}
		t.d[i] = row
	}
	return t
}

// Dist returns the shortest path length from -> to. Unknown nodes are unreachable.
func (t *DistanceTable) Dist(from, to NodeID) float64 {
	i, ok := t.index[from]
	if !ok {
		return Unreachable
	}
	j, ok := t.index[to]
	if !ok {
		return Unreachable
	}
	return t.d[i][j]
}

// Reachable reports whether a path exists between the two nodes.
func (t *DistanceTable) Reachable(from, to NodeID) bool {
	return t.Dist(from, to) < Unreachable
}
