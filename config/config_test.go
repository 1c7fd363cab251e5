package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/gridcomp/components"
	"github.com/pthm-cable/gridcomp/systems"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}
	if cfg.Grid.Size != 50 || cfg.Run.Steps != 151 || cfg.Run.Seed != 42 {
		t.Errorf("unexpected defaults: grid=%d steps=%d seed=%d", cfg.Grid.Size, cfg.Run.Steps, cfg.Run.Seed)
	}
	if cfg.Founding.Species != components.SpeciesA || cfg.Scattered.Species != components.SpeciesB {
		t.Errorf("species = %v/%v, want a/b", cfg.Founding.Species, cfg.Scattered.Species)
	}
	if want := (components.Region{Row: 18, Col: 18, Size: 15}); cfg.Derived.Region != want {
		t.Errorf("derived region = %+v, want %+v", cfg.Derived.Region, want)
	}
	if cfg.Derived.RepairPolicy != systems.RepairKeepOrphans {
		t.Errorf("repair policy = %q", cfg.Derived.RepairPolicy)
	}
	if cfg.Derived.Spacing != systems.SpacingAll {
		t.Errorf("spacing = %q, want all", cfg.Derived.Spacing)
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	user := `
grid:
  size: 20
founding:
  pairs: 10
  region:
    row: 0
    col: 0
    size: 5
run:
  seed: 7
validation:
  repair_policy: drop-orphans
  spacing: introduced
`
	if err := os.WriteFile(path, []byte(user), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Grid.Size != 20 || cfg.Founding.Pairs != 10 || cfg.Run.Seed != 7 {
		t.Errorf("user values not applied: %+v", cfg)
	}
	if cfg.Run.Steps != 151 || cfg.Scattered.MinDistance != 6 {
		t.Error("unset keys should keep their defaults")
	}
	if cfg.Derived.Region != (components.Region{Row: 0, Col: 0, Size: 5}) {
		t.Errorf("explicit region not kept: %+v", cfg.Derived.Region)
	}
	if cfg.Derived.RepairPolicy != systems.RepairDropOrphans {
		t.Errorf("repair policy = %q", cfg.Derived.RepairPolicy)
	}
	if cfg.Derived.Spacing != systems.SpacingIntroduced {
		t.Errorf("spacing = %q, want introduced", cfg.Derived.Spacing)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"tiny grid", func(c *Config) { c.Grid.Size = 1 }, "grid.size"},
		{"no steps", func(c *Config) { c.Run.Steps = 0 }, "run.steps"},
		{"region off grid", func(c *Config) { c.Founding.Region = components.Region{Row: 45, Col: 45, Size: 15} }, "founding.region"},
		{"negative pairs", func(c *Config) { c.Scattered.Pairs = -1 }, "scattered.pairs"},
		{"distance below relaxed", func(c *Config) { c.Scattered.MinDistance = 1 }, "min_distance"},
		{"introduction at founding", func(c *Config) { c.Scattered.IntroductionStep = 0 }, "introduction_step"},
		{"rate above one", func(c *Config) { c.Mortality.RateB = 1.5 }, "rate_b"},
		{"same species", func(c *Config) { c.Scattered.Species = components.SpeciesA }, "must differ"},
		{"bad policy", func(c *Config) { c.Validation.RepairPolicy = "rebuild" }, "repair_policy"},
		{"bad spacing", func(c *Config) { c.Validation.Spacing = "born" }, "validation.spacing"},
		{"introduction after last step", func(c *Config) { c.Scattered.IntroductionStep = c.Run.Steps }, "never runs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Finalize()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestIntroductionStepIgnoredWithoutPairs(t *testing.T) {
	cfg := Default()
	cfg.Scattered.Pairs = 0
	cfg.Scattered.IntroductionStep = 0
	cfg.Run.Steps = 3
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("zero scattered pairs should not need an introduction step: %v", err)
	}
}

func TestWriteYAMLReloads(t *testing.T) {
	cfg := Default()
	cfg.Run.Seed = 1234
	cfg.Mortality.RateA = 0.05

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Run.Seed != 1234 || got.Mortality.RateA != 0.05 || got.Scattered.Species != components.SpeciesB {
		t.Errorf("reloaded config differs: %+v", got)
	}
}

func TestRate(t *testing.T) {
	cfg := Default()
	if cfg.Rate(components.SpeciesA) != cfg.Mortality.RateA || cfg.Rate(components.SpeciesB) != cfg.Mortality.RateB {
		t.Error("Rate should map species to their configured rates")
	}
	if cfg.Rate(components.Empty) != 0 {
		t.Error("empty has no mortality")
	}
}
