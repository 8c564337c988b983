package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/mapf-exec/internal/config"
	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/discovery"
	"github.com/elektrokombinacija/mapf-exec/internal/loader"
	"github.com/elektrokombinacija/mapf-exec/internal/logging"
	"github.com/elektrokombinacija/mapf-exec/internal/session"
)

// A 4x1 line with 10 units between nodes.
const lineGraph = `
0: {pos: {x: 0, y: 0}, neigh: [1]}
1: {pos: {x: 10, y: 0}, neigh: [0, 2]}
2: {pos: {x: 20, y: 0}, neigh: [1, 3]}
3: {pos: {x: 30, y: 0}, neigh: [2]}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunValidate(t *testing.T) {
	graph := writeFile(t, "graph.yaml", lineGraph)

	var out bytes.Buffer
	require.NoError(t, runValidate(&out, []string{graph}, false))
	assert.Contains(t, out.String(), "4 nodes")

	problem := writeFile(t, "problem.yaml", "a: {v: '0', g: '3'}\nb: {v: '3', g: '0'}\n")
	out.Reset()
	require.NoError(t, runValidate(&out, []string{graph, problem}, false))
	assert.Contains(t, out.String(), "2 agents OK")

	shared := writeFile(t, "shared.yaml", "a: {v: '0', g: '2'}\nb: {v: '1', g: '2'}\n")
	out.Reset()
	require.NoError(t, runValidate(&out, []string{graph, shared}, false))
	assert.Contains(t, out.String(), "not runnable with tswap")
	assert.Contains(t, out.String(), "share goal")

	bad := writeFile(t, "bad.yaml", "a: {v: '0', g: '9'}\n")
	assert.ErrorIs(t, runValidate(&out, []string{graph, bad}, false), core.ErrUnknownNode)

	plans := writeFile(t, "plans.yaml", "a: {plan: ['0', '1', '2'], order: [0, 1, 2]}\n")
	out.Reset()
	require.NoError(t, runValidate(&out, []string{graph, plans}, true))
	assert.Contains(t, out.String(), "1 agents OK")
}

func TestRunAssign(t *testing.T) {
	graph := writeFile(t, "graph.yaml", lineGraph)
	// Crossed goals: swapping them shortens both paths.
	problem := writeFile(t, "problem.yaml", "a: {v: '0', g: '2'}\nb: {v: '1', g: '3'}\nc: {v: '3', g: '0'}\n")

	var out bytes.Buffer
	require.NoError(t, runAssign(&out, logging.NewNop(), graph, problem))

	assigned := filepath.Join(t.TempDir(), "assigned.yaml")
	require.NoError(t, os.WriteFile(assigned, out.Bytes(), 0644))
	agents, err := loader.LoadProblem(assigned)
	require.NoError(t, err)

	assert.Equal(t, core.AgentSpec{Start: "0", Goal: "0"}, agents["a"])
	assert.Equal(t, core.AgentSpec{Start: "1", Goal: "2"}, agents["b"])
	assert.Equal(t, core.AgentSpec{Start: "3", Goal: "3"}, agents["c"])
}

func TestExecuteSimulated(t *testing.T) {
	c := config.Default()
	c.Tick = 2 * time.Millisecond
	c.InitDelay = 0
	c.Tolerance = 1
	c.Sim.Speed = 5000
	c.Sim.TimeStep = time.Millisecond
	c.SummaryPath = filepath.Join(t.TempDir(), "summary.json")
	cfg = c
	t.Cleanup(func() { cfg = config.Config{} })

	g, err := core.NewGraph(core.GridSpec(4, 1, 10))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(logging.WithLogger(context.Background(), logging.NewNop()), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	err = execute(ctx, &out, session.Options{
		Variant: core.VariantGoal,
		Instance: &core.Instance{Graph: g, Agents: map[core.AgentID]core.AgentSpec{
			"a": {Start: "0", Goal: "3"},
			"b": {Start: "3", Goal: "0"},
		}},
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "=== TSWAP run")
	assert.Contains(t, out.String(), "Done:       true")
	assert.FileExists(t, c.SummaryPath)
}

func TestPrintPeers(t *testing.T) {
	var out bytes.Buffer
	printPeers(&out, nil)
	assert.Equal(t, "no devices found\n", out.String())

	out.Reset()
	printPeers(&out, []discovery.Peer{{Agent: "r1", Info: map[string]string{"kind": "sim", "fw": "2"}}})
	assert.Contains(t, out.String(), "AGENT")
	assert.Contains(t, out.String(), "fw=2 kind=sim")
}

func TestRootValidateCommand(t *testing.T) {
	graph := writeFile(t, "graph.yaml", lineGraph)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"validate", graph, "--log-level", "error"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "4 nodes")
	assert.Equal(t, "error", cfg.Log.Level)
}
