package loader

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

const lineGraph = `
0:
  pos: {x: 100, y: 100}
  neigh: [1]
1:
  pos: {x: 150, y: 100}
  neigh: [0, 2]
2:
  pos: {x: 200, y: 100}
  neigh: [1]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadGraph(t *testing.T) {
	g, err := LoadGraph(writeFile(t, "graph.yaml", lineGraph))
	require.NoError(t, err)

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, core.Pos{X: 150, Y: 100}, g.Pos("1"))
	assert.Equal(t, []core.NodeID{"0", "2"}, g.Neighbors("1"))
}

func TestLoadGraphRejectsAsymmetric(t *testing.T) {
	_, err := LoadGraph(writeFile(t, "graph.yaml", `
a: {pos: {x: 0, y: 0}, neigh: [b]}
b: {pos: {x: 1, y: 0}, neigh: []}
`))
	assert.ErrorIs(t, err, core.ErrAsymmetricEdge)
}

func TestLoadGraphMissingFile(t *testing.T) {
	_, err := LoadGraph(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadGraphBadYAML(t *testing.T) {
	_, err := LoadGraph(writeFile(t, "graph.yaml", "0: [unclosed"))
	assert.Error(t, err)
}

func TestLoadProblem(t *testing.T) {
	agents, err := LoadProblem(writeFile(t, "problem.yaml", `
d1a0c4e9b2f3: {v: 0, g: 2}
"e4f0":
  v: '2'
  g: '0'
`))
	require.NoError(t, err)
	assert.Equal(t, core.AgentSpec{Start: "0", Goal: "2"}, agents["d1a0c4e9b2f3"])
	assert.Equal(t, core.AgentSpec{Start: "2", Goal: "0"}, agents["e4f0"])
}

func TestLoadPlans(t *testing.T) {
	plans, err := LoadPlans(writeFile(t, "plan.yaml", `
a: {plan: [0, 1, 2], order: [0, 0, 1]}
`))
	require.NoError(t, err)
	assert.Equal(t, []core.NodeID{"0", "1", "2"}, plans["a"].Plan)
	assert.Equal(t, []int{0, 0, 1}, plans["a"].Order)
}

func TestWriteProblemRoundTrip(t *testing.T) {
	in := map[core.AgentID]core.AgentSpec{
		"b": {Start: "2", Goal: "0"},
		"a": {Start: "0", Goal: "2"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteProblem(&buf, in))

	out := buf.String()
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("a:")), bytes.Index(buf.Bytes(), []byte("b:")))
	assert.Contains(t, out, "v: '0'")

	got, err := LoadProblem(writeFile(t, "problem.yaml", out))
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestWriteGraphRoundTrip(t *testing.T) {
	spec := core.GridSpec(3, 2, 12.5)
	var buf bytes.Buffer
	require.NoError(t, WriteGraph(&buf, spec))

	got, err := ParseGraph(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, spec, got)
	assert.Contains(t, buf.String(), "pos: {x: 12.5, y: 0}")

	_, err = core.NewGraph(got)
	assert.NoError(t, err)
}
