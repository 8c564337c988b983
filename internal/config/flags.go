package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Overrides holds the command line flags shared by the mapfexec binaries.
// Flags left unset on the command line do not touch the loaded file.
type Overrides struct {
	fs   *pflag.FlagSet
	path string
	v    Config
}

// BindFlags registers --config and the shared override flags on fs, with
// Default() values shown as flag defaults.
func BindFlags(fs *pflag.FlagSet) *Overrides {
	d := Default()
	o := &Overrides{fs: fs}
	fs.StringVar(&o.path, "config", "", "YAML configuration file")
	fs.StringVar(&o.v.Log.Level, "log-level", d.Log.Level, "Log level (debug, info, warn, error)")
	fs.StringVar(&o.v.Log.Format, "log-format", d.Log.Format, "Log format (text, json)")
	fs.DurationVar(&o.v.Tick, "tick", d.Tick, "Scheduler tick interval")
	fs.DurationVar(&o.v.InitDelay, "init-delay", d.InitDelay, "Wait after commanding agents to their start nodes")
	fs.IntVar(&o.v.MaxTicks, "max-ticks", d.MaxTicks, "Stop after this many ticks (0 = until done)")
	fs.Float64Var(&o.v.Tolerance, "tolerance", d.Tolerance, "Arrival tolerance per axis")
	fs.Int64Var(&o.v.Seed, "seed", d.Seed, "Random seed")
	fs.StringVar(&o.v.HTTP.Addr, "http", d.HTTP.Addr, "Status API address (empty disables)")
	fs.StringVar(&o.v.Redis.Addr, "redis", d.Redis.Addr, "Redis address for snapshots (empty disables)")
	fs.StringVar(&o.v.SummaryPath, "summary", d.SummaryPath, "Write the run summary as JSON to this file")
	fs.IntVar(&o.v.UDP.Port, "udp-port", d.UDP.Port, "UDP port for device telemetry and commands")
	fs.Float64Var(&o.v.Sim.Speed, "speed", d.Sim.Speed, "Simulated robot speed in position units per second")
	return o
}

// Apply copies the flags set on the command line over c.
func (o *Overrides) Apply(c *Config) {
	set := func(name string, apply func()) {
		if o.fs.Changed(name) {
			apply()
		}
	}
	set("log-level", func() { c.Log.Level = o.v.Log.Level })
	set("log-format", func() { c.Log.Format = o.v.Log.Format })
	set("tick", func() { c.Tick = o.v.Tick })
	set("init-delay", func() { c.InitDelay = o.v.InitDelay })
	set("max-ticks", func() { c.MaxTicks = o.v.MaxTicks })
	set("tolerance", func() { c.Tolerance = o.v.Tolerance })
	set("seed", func() { c.Seed = o.v.Seed })
	set("http", func() { c.HTTP.Addr = o.v.HTTP.Addr })
	set("redis", func() { c.Redis.Addr = o.v.Redis.Addr })
	set("summary", func() { c.SummaryPath = o.v.SummaryPath })
	set("udp-port", func() { c.UDP.Port = o.v.UDP.Port })
	set("speed", func() { c.Sim.Speed = o.v.Sim.Speed })
}

// Load reads the --config file, applies the set flags and validates the result.
func (o *Overrides) Load() (Config, error) {
	c, err := Load(o.path)
	if err != nil {
		return c, err
	}
	o.Apply(&c)
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}
