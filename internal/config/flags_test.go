package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverridesOnlySetFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapfexec.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tolerance: 4\nseed: 3\nsim:\n  speed: 120\n"), 0644))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o := BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", path, "--tick=5ms", "--seed=7"}))

	cfg, err := o.Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, cfg.Tick)
	assert.Equal(t, int64(7), cfg.Seed, "flag wins over file")
	assert.Equal(t, 4.0, cfg.Tolerance, "file value kept when flag unset")
	assert.Equal(t, 120.0, cfg.Sim.Speed)
	assert.Equal(t, Default().InitDelay, cfg.InitDelay)
}

func TestOverridesRejectInvalid(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o := BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--tolerance=0"}))

	_, err := o.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tolerance")
}
