// Package main generates grid execution instances: a graph file and a
// problem file with distinct random starts and goals.
// Generation is deterministic for a given seed.
package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/loader"
)

// InstanceParams defines parameters for instance generation.
type InstanceParams struct {
	Seed      int64
	NumAgents int
	Width     int
	Height    int
	Spacing   float64
	Obstacles float64 // Fraction of grid cells removed
}

// Instance is a generated graph plus problem.
type Instance struct {
	Name   string
	Params InstanceParams
	Graph  core.GraphSpec
	Agents map[core.AgentID]core.AgentSpec
}

var errTooDense = errors.New("not enough free nodes for the agents")

// generateInstance removes random cells from a grid, keeps the largest
// connected component and draws starts and goals from it.
func generateInstance(p InstanceParams) (*Instance, error) {
	rng := rand.New(rand.NewSource(p.Seed))
	spec := core.GridSpec(p.Width, p.Height, p.Spacing)

	ids := make([]core.NodeID, 0, len(spec))
	for id := range spec {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return core.NodeIDLess(ids[i], ids[j]) })

	removed := make(map[core.NodeID]bool)
	for _, i := range rng.Perm(len(ids))[:int(p.Obstacles*float64(len(ids)))] {
		removed[ids[i]] = true
	}
	spec = largestComponent(prune(spec, removed))

	free := make([]core.NodeID, 0, len(spec))
	for _, id := range ids {
		if _, ok := spec[id]; ok {
			free = append(free, id)
		}
	}
	if p.NumAgents > len(free) {
		return nil, fmt.Errorf("%d agents, %d nodes: %w", p.NumAgents, len(free), errTooDense)
	}

	starts := rng.Perm(len(free))
	goals := rng.Perm(len(free))
	agents := make(map[core.AgentID]core.AgentSpec, p.NumAgents)
	for i := 0; i < p.NumAgents; i++ {
		agents[core.AgentID(fmt.Sprintf("a%03d", i))] = core.AgentSpec{
			Start: free[starts[i]],
			Goal:  free[goals[i]],
		}
	}

	return &Instance{
		Name:   fmt.Sprintf("grid_%dx%d_a%d_s%d", p.Width, p.Height, p.NumAgents, p.Seed),
		Params: p,
		Graph:  spec,
		Agents: agents,
	}, nil
}

// prune drops removed nodes and every edge touching them.
func prune(spec core.GraphSpec, removed map[core.NodeID]bool) core.GraphSpec {
	out := make(core.GraphSpec, len(spec))
	for id, n := range spec {
		if removed[id] {
			continue
		}
		var neigh []core.NodeID
		for _, u := range n.Neighbors {
			if !removed[u] {
				neigh = append(neigh, u)
			}
		}
		out[id] = core.NodeSpec{Pos: n.Pos, Neighbors: neigh}
	}
	return out
}

// largestComponent keeps the biggest connected component. Ties go to the
// component holding the smallest node id.
func largestComponent(spec core.GraphSpec) core.GraphSpec {
	ids := make([]core.NodeID, 0, len(spec))
	for id := range spec {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return core.NodeIDLess(ids[i], ids[j]) })

	seen := make(map[core.NodeID]bool)
	var best []core.NodeID
	for _, root := range ids {
		if seen[root] {
			continue
		}
		comp := []core.NodeID{root}
		seen[root] = true
		for i := 0; i < len(comp); i++ {
			for _, u := range spec[comp[i]].Neighbors {
				if !seen[u] {
					seen[u] = true
					comp = append(comp, u)
				}
			}
		}
		if len(comp) > len(best) {
			best = comp
		}
	}

	out := make(core.GraphSpec, len(best))
	for _, id := range best {
		out[id] = spec[id]
	}
	return out
}

// write stores the instance as <name>.graph.yaml and <name>.problem.yaml.
func write(dir string, inst *Instance) (graphPath, problemPath string, err error) {
	graphPath = filepath.Join(dir, inst.Name+".graph.yaml")
	problemPath = filepath.Join(dir, inst.Name+".problem.yaml")

	gf, err := os.Create(graphPath)
	if err != nil {
		return "", "", err
	}
	defer gf.Close()
	if err := loader.WriteGraph(gf, inst.Graph); err != nil {
		return "", "", err
	}

	pf, err := os.Create(problemPath)
	if err != nil {
		return "", "", err
	}
	defer pf.Close()
	if err := loader.WriteProblem(pf, inst.Agents); err != nil {
		return "", "", err
	}
	return graphPath, problemPath, nil
}

func main() {
	seed := flag.Int64("seed", 42, "Random seed for deterministic generation")
	numAgents := flag.Int("agents", 10, "Number of agents")
	width := flag.Int("width", 10, "Grid width")
	height := flag.Int("height", 10, "Grid height")
	spacing := flag.Float64("spacing", 100, "Distance between neighboring nodes")
	obstacles := flag.Float64("obstacles", 0.1, "Fraction of grid cells removed (0-1)")
	outputDir := flag.String("output", "testdata", "Output directory")
	scalingMode := flag.Bool("scaling", false, "Generate scaling instances (4, 16, 64, 256 agents)")

	flag.Parse()

	if *obstacles < 0 || *obstacles >= 1 {
		fmt.Fprintln(os.Stderr, "Error: -obstacles must be in [0, 1)")
		os.Exit(1)
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	var params []InstanceParams
	if *scalingMode {
		for _, size := range []int{4, 16, 64, 256} {
			// Grid side scales with sqrt of agents
			side := int(math.Ceil(math.Sqrt(float64(size)) * 3))
			if side < 6 {
				side = 6
			}
			params = append(params, InstanceParams{
				Seed: *seed, NumAgents: size, Width: side, Height: side,
				Spacing: *spacing, Obstacles: *obstacles,
			})
		}
	} else {
		params = append(params, InstanceParams{
			Seed: *seed, NumAgents: *numAgents, Width: *width, Height: *height,
			Spacing: *spacing, Obstacles: *obstacles,
		})
	}

	for _, p := range params {
		inst, err := generateInstance(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating %dx%d with %d agents: %v\n", p.Width, p.Height, p.NumAgents, err)
			continue
		}
		graphPath, _, err := write(*outputDir, inst)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing instance %s: %v\n", inst.Name, err)
			continue
		}
		fmt.Printf("Generated: %s (%d agents, %d nodes, %dx%d grid)\n",
			graphPath, p.NumAgents, len(inst.Graph), p.Width, p.Height)
	}
}
