package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/loader"
)

func TestGenerateInstanceIsValid(t *testing.T) {
	p := InstanceParams{Seed: 7, NumAgents: 12, Width: 8, Height: 8, Spacing: 10, Obstacles: 0.2}
	inst, err := generateInstance(p)
	require.NoError(t, err)

	g, err := core.NewGraph(inst.Graph)
	require.NoError(t, err)
	assert.Len(t, inst.Agents, 12)
	assert.Less(t, g.Len(), 64)

	require.NoError(t, (&core.Instance{Graph: g, Agents: inst.Agents}).Validate())

	// Kept component is connected.
	d := core.NewDistanceTable(g)
	ids := g.IDs()
	for _, v := range ids {
		assert.True(t, d.Reachable(ids[0], v), "%s unreachable", v)
	}
}

func TestGenerateInstanceDeterministic(t *testing.T) {
	p := InstanceParams{Seed: 3, NumAgents: 5, Width: 6, Height: 6, Spacing: 1, Obstacles: 0.1}
	a, err := generateInstance(p)
	require.NoError(t, err)
	b, err := generateInstance(p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateInstanceTooDense(t *testing.T) {
	_, err := generateInstance(InstanceParams{Seed: 1, NumAgents: 10, Width: 3, Height: 3, Spacing: 1})
	assert.True(t, errors.Is(err, errTooDense))
}

func TestLargestComponent(t *testing.T) {
	spec := core.GridSpec(5, 1, 1)
	// Cutting node 1 leaves {0} and {2, 3, 4}.
	got := largestComponent(prune(spec, map[core.NodeID]bool{"1": true}))
	assert.Len(t, got, 3)
	assert.NotContains(t, got, core.NodeID("0"))
	assert.Equal(t, []core.NodeID{"3"}, got["2"].Neighbors)
}

func TestWriteInstance(t *testing.T) {
	inst, err := generateInstance(InstanceParams{Seed: 1, NumAgents: 3, Width: 4, Height: 4, Spacing: 5})
	require.NoError(t, err)

	graphPath, problemPath, err := write(t.TempDir(), inst)
	require.NoError(t, err)

	g, err := loader.LoadGraph(graphPath)
	require.NoError(t, err)
	assert.Equal(t, 16, g.Len())
	agents, err := loader.LoadProblem(problemPath)
	require.NoError(t, err)
	assert.Equal(t, inst.Agents, agents)
}
