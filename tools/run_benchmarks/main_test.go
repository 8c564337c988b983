package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/loader"
)

func writeInstance(t *testing.T) (graph, problem string) {
	t.Helper()
	dir := t.TempDir()
	graph = filepath.Join(dir, "grid.graph.yaml")
	problem = filepath.Join(dir, "grid.problem.yaml")

	var buf bytes.Buffer
	require.NoError(t, loader.WriteGraph(&buf, core.GridSpec(3, 3, 10)))
	require.NoError(t, os.WriteFile(graph, buf.Bytes(), 0644))

	buf.Reset()
	require.NoError(t, loader.WriteProblem(&buf, map[core.AgentID]core.AgentSpec{
		"a": {Start: "0", Goal: "2"},
		"b": {Start: "6", Goal: "8"},
	}))
	require.NoError(t, os.WriteFile(problem, buf.Bytes(), 0644))
	return graph, problem
}

func TestRunPlannerTSWAP(t *testing.T) {
	graph, problem := writeInstance(t)
	r := runPlanner(graph, problem, "tswap", 0, 10*time.Second)
	require.Empty(t, r.Error)
	assert.True(t, r.Success)
	assert.Equal(t, "grid", r.Instance)
	assert.Equal(t, 2, r.NumAgents)
	assert.Equal(t, 9, r.NumNodes)
	assert.Greater(t, r.Moves, 0)
}

func TestRunPlannerPIBT(t *testing.T) {
	graph, problem := writeInstance(t)
	r := runPlanner(graph, problem, "pibt", 30, 10*time.Second)
	require.Empty(t, r.Error)
	assert.True(t, r.Success)
	assert.Equal(t, 30, r.Ticks)
}

func TestRunPlannerUnknown(t *testing.T) {
	graph, problem := writeInstance(t)
	r := runPlanner(graph, problem, "cbs", 0, time.Second)
	assert.False(t, r.Success)
	assert.Contains(t, r.Error, "cbs")
}

func TestWriteCSVAndSummary(t *testing.T) {
	results := []*BenchmarkResult{
		{Instance: "x", Planner: "tswap", Success: true, RuntimeMs: 4, Ticks: 10, Moves: 20},
		{Instance: "y", Planner: "tswap", Error: "timed out"},
	}
	var buf bytes.Buffer
	require.NoError(t, writeCSV(results, &buf))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "timed out", rows[2][len(rows[2])-1])

	buf.Reset()
	printSummary(&buf, results)
	assert.Contains(t, buf.String(), "tswap")
	assert.Contains(t, buf.String(), "10.0")
}
