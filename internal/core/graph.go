package core

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Pos is a 2D reference position in device coordinates.
type Pos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeID is a unique node identifier.
type NodeID string

// NoNode is the empty node reference (no pending move, no goal).
const NoNode NodeID = ""

// Node is a discrete location an agent can occupy.
type Node struct {
	ID        NodeID   `json:"id"`
	Pos       Pos      `json:"pos"`
	Neighbors []NodeID `json:"neighbors"` // Symmetric adjacency
}

// NodeSpec describes one node of a parsed graph description.
type NodeSpec struct {
	Pos       Pos
	Neighbors []NodeID
}

// GraphSpec maps node ids to their description.
type GraphSpec map[NodeID]NodeSpec

// Graph is the static set of nodes agents move over. Immutable after NewGraph.
type Graph struct {
	nodes map[NodeID]*Node
	ids   []NodeID // sorted by NodeIDLess
}

// NewGraph builds and validates a graph. Every neighbor must exist, adjacency
// must be symmetric and nodes must not list themselves.
func NewGraph(spec GraphSpec) (*Graph, error) {
	if len(spec) == 0 {
		return nil, ErrEmptyGraph
	}

	g := &Graph{
		nodes: make(map[NodeID]*Node, len(spec)),
		ids:   make([]NodeID, 0, len(spec)),
	}
	for id, ns := range spec {
		g.nodes[id] = &Node{
			ID:        id,
			Pos:       ns.Pos,
			Neighbors: append([]NodeID(nil), ns.Neighbors...),
		}
		g.ids = append(g.ids, id)
	}
	sort.Slice(g.ids, func(i, j int) bool { return NodeIDLess(g.ids[i], g.ids[j]) })

	var verr ValidationError
	for _, id := range g.ids {
		for _, u := range g.nodes[id].Neighbors {
			if u == id {
				verr.Add(fmt.Errorf("node %q: %w", id, ErrSelfLoop))
				continue
			}
			other, ok := g.nodes[u]
			if !ok {
				verr.Add(fmt.Errorf("node %q -> %q: %w", id, u, ErrDanglingNeighbor))
				continue
			}
			if !other.hasNeighbor(id) {
				verr.Add(fmt.Errorf("node %q -> %q: %w", id, u, ErrAsymmetricEdge))
			}
		}
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}
	return g, nil
}

func (n *Node) hasNeighbor(id NodeID) bool {
	for _, u := range n.Neighbors {
		if u == id {
			return true
		}
	}
	return false
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Has reports whether id names a node of the graph.
func (g *Graph) Has(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Pos returns the reference position of a node (zero value if unknown).
func (g *Graph) Pos(id NodeID) Pos {
	if n, ok := g.nodes[id]; ok {
		return n.Pos
	}
	return Pos{}
}

// Neighbors returns adjacent nodes in declaration order.
func (g *Graph) Neighbors(id NodeID) []NodeID {
	if n, ok := g.nodes[id]; ok {
		return n.Neighbors
	}
	return nil
}

// IDs returns all node ids in stable order.
func (g *Graph) IDs() []NodeID {
	return append([]NodeID(nil), g.ids...)
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.ids) }

// Nearest returns the node whose reference position is closest to p.
func (g *Graph) Nearest(p Pos) NodeID {
	best := NoNode
	bestD2 := math.Inf(1)
	for _, id := range g.ids {
		q := g.nodes[id].Pos
		d2 := (q.X-p.X)*(q.X-p.X) + (q.Y-p.Y)*(q.Y-p.Y)
		if d2 < bestD2 {
			bestD2 = d2
			best = id
		}
	}
	return best
}

// euclid computes 2D Euclidean distance.
func euclid(a, b Pos) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// NodeIDLess orders node ids numerically when both are integers, lexically otherwise.
func NodeIDLess(a, b NodeID) bool {
	ai, aerr := strconv.Atoi(string(a))
	bi, berr := strconv.Atoi(string(b))
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true // numbers first
	case berr == nil:
		return false
	default:
		return a < b
	}
}

// GridSpec describes a 4-connected w x h grid with the given spacing. Node
// ids are y*w+x in decimal.
func GridSpec(w, h int, spacing float64) GraphSpec {
	spec := make(GraphSpec, w*h)
	id := func(x, y int) NodeID { return NodeID(strconv.Itoa(y*w + x)) }
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var neigh []NodeID
			if x > 0 {
				neigh = append(neigh, id(x-1, y))
			}
			if x < w-1 {
				neigh = append(neigh, id(x+1, y))
			}
			if y > 0 {
				neigh = append(neigh, id(x, y-1))
			}
			if y < h-1 {
				neigh = append(neigh, id(x, y+1))
			}
			spec[id(x, y)] = NodeSpec{
				Pos:       Pos{X: float64(x) * spacing, Y: float64(y) * spacing},
				Neighbors: neigh,
			}
		}
	}
	return spec
}
