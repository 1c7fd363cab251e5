// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/gridcomp/components"
	"github.com/pthm-cable/gridcomp/systems"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters. It is fixed once a
// run starts.
type Config struct {
	Grid       GridConfig       `yaml:"grid"`
	Founding   FoundingConfig   `yaml:"founding"`
	Scattered  ScatteredConfig  `yaml:"scattered"`
	Mortality  MortalityConfig  `yaml:"mortality"`
	Run        RunConfig        `yaml:"run"`
	Validation ValidationConfig `yaml:"validation"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Output     OutputConfig     `yaml:"output"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// GridConfig holds lattice dimensions.
type GridConfig struct {
	Size int `yaml:"size"`
}

// FoundingConfig describes the confined step-0 cluster.
type FoundingConfig struct {
	Species components.Species `yaml:"species"`
	Pairs   int                `yaml:"pairs"`
	Region  components.Region  `yaml:"region"` // row/col -1 = centred
}

// ScatteredConfig describes the spaced introduction of the second species.
type ScatteredConfig struct {
	Species          components.Species `yaml:"species"`
	Pairs            int                `yaml:"pairs"`
	MinDistance      int                `yaml:"min_distance"`
	IntroductionStep int                `yaml:"introduction_step"`
	AvoidConfinement bool               `yaml:"avoid_confinement"`
}

// MortalityConfig holds the static per-step illness rates.
type MortalityConfig struct {
	RateA float64 `yaml:"rate_a"`
	RateB float64 `yaml:"rate_b"`
}

// RunConfig holds step count and seed.
type RunConfig struct {
	Steps int   `yaml:"steps"` // total steps including step 0
	Seed  int64 `yaml:"seed"`
}

// ValidationConfig controls the post-run repair pass.
type ValidationConfig struct {
	RepairPolicy string `yaml:"repair_policy"`
	// Spacing selects the species B pairs checked for spacing: "all" or
	// "introduced".
	Spacing string `yaml:"spacing"`
}

// TelemetryConfig holds rendering and analysis knobs.
type TelemetryConfig struct {
	Render              bool    `yaml:"render"`
	FrameScale          int     `yaml:"frame_scale"`
	FrameDelay          int     `yaml:"frame_delay"`
	BookmarksHistory    int     `yaml:"bookmarks_history"`
	CrashThreshold      float64 `yaml:"crash_threshold"`
	SaturationThreshold float64 `yaml:"saturation_threshold"`
	PerfWindow          int     `yaml:"perf_window"`
}

// OutputConfig selects which reporters run.
type OutputConfig struct {
	CSV    bool `yaml:"csv"`
	SQLite bool `yaml:"sqlite"`
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	Region       components.Region
	RepairPolicy systems.RepairPolicy
	Spacing      systems.SpacingScope
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults with derived values computed.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize validates the config and recomputes derived values. Call it after
// changing fields programmatically.
func (c *Config) Finalize() error {
	c.computeDerived()
	return c.Validate()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	region := c.Founding.Region
	if region.Row < 0 || region.Col < 0 {
		centred := components.CenteredRegion(c.Grid.Size, region.Size)
		if region.Row < 0 {
			region.Row = centred.Row
		}
		if region.Col < 0 {
			region.Col = centred.Col
		}
	}
	c.Derived.Region = region

	// Validate reports a bad name; fall back so derived state stays usable.
	policy, err := systems.ParseRepairPolicy(c.Validation.RepairPolicy)
	if err != nil {
		policy = systems.RepairKeepOrphans
	}
	c.Derived.RepairPolicy = policy

	scope, err := systems.ParseSpacingScope(c.Validation.Spacing)
	if err != nil {
		scope = systems.SpacingAll
	}
	c.Derived.Spacing = scope
}

// Validate rejects configurations the engine cannot run.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Grid.Size >= 2, "grid.size must be at least 2, got %d", c.Grid.Size)
	check(c.Run.Steps >= 1, "run.steps must be at least 1, got %d", c.Run.Steps)

	check(c.Founding.Species != components.Empty, "founding.species must not be empty")
	check(c.Scattered.Species != components.Empty, "scattered.species must not be empty")
	check(c.Founding.Species != c.Scattered.Species, "founding and scattered species must differ")

	check(c.Founding.Pairs >= 0, "founding.pairs must be non-negative, got %d", c.Founding.Pairs)
	r := c.Derived.Region
	check(r.Size >= 1 && r.Row >= 0 && r.Col >= 0 && r.Row+r.Size <= c.Grid.Size && r.Col+r.Size <= c.Grid.Size,
		"founding.region %+v must lie inside the %dx%d grid", r, c.Grid.Size, c.Grid.Size)

	check(c.Scattered.Pairs >= 0, "scattered.pairs must be non-negative, got %d", c.Scattered.Pairs)
	check(c.Scattered.MinDistance >= systems.RelaxedMinDistance,
		"scattered.min_distance must be at least %d, got %d", systems.RelaxedMinDistance, c.Scattered.MinDistance)
	if c.Scattered.Pairs > 0 {
		check(c.Scattered.IntroductionStep >= 1,
			"scattered.introduction_step must be at least 1, got %d", c.Scattered.IntroductionStep)
		check(c.Scattered.IntroductionStep < c.Run.Steps,
			"scattered.introduction_step %d never runs within run.steps %d", c.Scattered.IntroductionStep, c.Run.Steps)
	}

	check(c.Mortality.RateA >= 0 && c.Mortality.RateA <= 1, "mortality.rate_a must be in [0,1], got %v", c.Mortality.RateA)
	check(c.Mortality.RateB >= 0 && c.Mortality.RateB <= 1, "mortality.rate_b must be in [0,1], got %v", c.Mortality.RateB)

	_, err := systems.ParseRepairPolicy(c.Validation.RepairPolicy)
	check(err == nil, "validation.repair_policy: %v", err)
	_, err = systems.ParseSpacingScope(c.Validation.Spacing)
	check(err == nil, "validation.spacing: %v", err)

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Rate returns the mortality rate configured for species.
func (c *Config) Rate(species components.Species) float64 {
	switch species {
	case c.Founding.Species:
		return c.Mortality.RateA
	case c.Scattered.Species:
		return c.Mortality.RateB
	default:
		return 0
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
