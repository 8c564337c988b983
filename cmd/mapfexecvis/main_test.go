package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

const lineGraph = `
0: {pos: {x: 0, y: 0}, neigh: [1]}
1: {pos: {x: 10, y: 0}, neigh: [0, 2]}
2: {pos: {x: 20, y: 0}, neigh: [1]}
`

func TestSharedFlags(t *testing.T) {
	fs := rootCmd.Flags()
	for _, name := range []string{"config", "log-level", "tick", "init-delay", "max-ticks",
		"tolerance", "seed", "http", "redis", "summary", "speed"} {
		assert.NotNil(t, fs.Lookup(name), "--%s", name)
	}

	require.NoError(t, fs.Parse([]string{"--tick=20ms", "--tolerance=2", "--seed=9"}))
	cfg, err := overrides.Load()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, cfg.Tick)
	assert.Equal(t, 2.0, cfg.Tolerance)
	assert.Equal(t, int64(9), cfg.Seed)
}

func TestBuildOptions(t *testing.T) {
	dir := t.TempDir()
	graph := filepath.Join(dir, "graph.yaml")
	require.NoError(t, os.WriteFile(graph, []byte(lineGraph), 0644))

	opts, err := buildOptions([]string{"pibt", graph})
	require.NoError(t, err)
	assert.Equal(t, core.VariantLifelong, opts.Variant)
	assert.Equal(t, 3, opts.Instance.Graph.Len())

	_, err = buildOptions([]string{"tswap", graph})
	assert.Error(t, err, "tswap without a problem file")

	_, err = buildOptions([]string{"cbs", graph})
	assert.Error(t, err)
}
