// Package config loads run configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/elektrokombinacija/mapf-exec/internal/exec"
	"github.com/elektrokombinacija/mapf-exec/internal/sim"
)

// Config is the full run configuration.
type Config struct {
	Tick            time.Duration `yaml:"tick"`
	InitDelay       time.Duration `yaml:"init_delay"`
	MaxTicks        int           `yaml:"max_ticks"`
	Tolerance       float64       `yaml:"tolerance"`
	TelemetryBuffer int           `yaml:"telemetry_buffer"`
	Seed            int64         `yaml:"seed"`
	SummaryPath     string        `yaml:"summary_path"`

	Log   LogConfig   `yaml:"log"`
	Sim   SimConfig   `yaml:"sim"`
	HTTP  HTTPConfig  `yaml:"http"`
	Redis RedisConfig `yaml:"redis"`
	UDP   UDPConfig   `yaml:"udp"`
	MDNS  MDNSConfig  `yaml:"mdns"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// SimConfig configures the simulated robots.
type SimConfig struct {
	Speed       float64       `yaml:"speed"`
	TimeStep    time.Duration `yaml:"time_step"`
	Noise       float64       `yaml:"noise"`
	CommandLoss float64       `yaml:"command_loss"`
}

// HTTPConfig configures the status API. Empty Addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// RedisConfig configures the snapshot store. Empty Addr disables it.
type RedisConfig struct {
	Addr   string        `yaml:"addr"`
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl"`
}

// UDPConfig configures the device transport.
type UDPConfig struct {
	Port int `yaml:"port"`
}

// MDNSConfig configures device discovery.
type MDNSConfig struct {
	Service string        `yaml:"service"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the default configuration. Timings follow the
// scheduler and simulator defaults.
func Default() Config {
	ec := exec.DefaultConfig()
	sc := sim.DefaultConfig()
	return Config{
		Tick:            ec.Tick,
		InitDelay:       ec.InitDelay,
		MaxTicks:        ec.MaxTicks,
		Tolerance:       10,
		TelemetryBuffer: ec.TelemetryBuffer,
		Seed:            sc.Seed,
		Log:             LogConfig{Level: "info", Format: "text"},
		Sim: SimConfig{
			Speed:    sc.Speed,
			TimeStep: sc.TimeStep,
		},
		Redis: RedisConfig{Prefix: "mapfexec:", TTL: time.Hour},
		UDP:   UDPConfig{Port: 9990},
		MDNS:  MDNSConfig{Service: "_mapfagent._udp", Timeout: 3 * time.Second},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Tick <= 0 {
		errs = append(errs, fmt.Errorf("tick must be positive, got %v", c.Tick))
	}
	if c.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("tolerance must be positive, got %v", c.Tolerance))
	}
	if c.MaxTicks < 0 {
		errs = append(errs, fmt.Errorf("max_ticks must not be negative, got %d", c.MaxTicks))
	}
	if c.Sim.Speed <= 0 {
		errs = append(errs, fmt.Errorf("sim.speed must be positive, got %v", c.Sim.Speed))
	}
	if c.Sim.TimeStep <= 0 {
		errs = append(errs, fmt.Errorf("sim.time_step must be positive, got %v", c.Sim.TimeStep))
	}
	if c.Sim.CommandLoss < 0 || c.Sim.CommandLoss >= 1 {
		errs = append(errs, fmt.Errorf("sim.command_loss must be in [0, 1), got %v", c.Sim.CommandLoss))
	}
	return errors.Join(errs...)
}

// Scheduler returns the tick loop configuration.
func (c Config) Scheduler() exec.Config {
	return exec.Config{
		Tick:            c.Tick,
		InitDelay:       c.InitDelay,
		MaxTicks:        c.MaxTicks,
		TelemetryBuffer: c.TelemetryBuffer,
	}
}

// Simulator returns the simulated robot configuration.
func (c Config) Simulator() sim.Config {
	return sim.Config{
		Speed:       c.Sim.Speed,
		TimeStep:    c.Sim.TimeStep,
		Noise:       c.Sim.Noise,
		CommandLoss: c.Sim.CommandLoss,
		Seed:        c.Seed,
	}
}
