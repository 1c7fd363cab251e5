package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/pthm-cable/gridcomp/components"
	"github.com/pthm-cable/gridcomp/config"
	"github.com/pthm-cable/gridcomp/telemetry"
)

// SelfTestConfig returns the end-to-end check scenario: seed 42, a centred
// 15x15 region holding 10 founding pairs, no scattered pairs, no mortality,
// 5 steps.
func SelfTestConfig() *config.Config {
	cfg := config.Default()
	cfg.Run.Seed = 42
	cfg.Run.Steps = 5
	cfg.Founding.Pairs = 10
	cfg.Founding.Region = components.Region{Row: -1, Col: -1, Size: 15}
	cfg.Scattered.Pairs = 0
	cfg.Mortality.RateA = 0
	cfg.Mortality.RateB = 0
	if err := cfg.Finalize(); err != nil {
		panic(fmt.Sprintf("game: self-test config invalid: %v", err))
	}
	return cfg
}

// CheckGrowth verifies a zero-mortality run: the founding species never
// shrinks, every count is even, the final population is at least the founding
// one, and the end state validated cleanly.
func CheckGrowth(res *telemetry.RunResult) error {
	if res == nil || res.Config == nil {
		return errors.New("no result")
	}
	species := res.Config.Founding.Species
	founded := res.Config.Founding.Pairs

	var errs []error
	prev := -1
	for _, snap := range res.Population {
		c := snap.Count(species)
		if c%2 != 0 {
			errs = append(errs, fmt.Errorf("step %d: odd %s count %d", snap.Step, species, c))
		}
		if c < prev {
			errs = append(errs, fmt.Errorf("step %d: %s count fell from %d to %d", snap.Step, species, prev, c))
		}
		prev = c
	}
	if got := res.FinalCount(species) / 2; got < founded {
		errs = append(errs, fmt.Errorf("final %s pairs %d < founded %d", species, got, founded))
	}
	if !res.Validation.OK {
		errs = append(errs, fmt.Errorf("validation failed with %d violations", len(res.Validation.Violations)))
	}
	return errors.Join(errs...)
}

// RunSelfTest runs the self-test scenario and checks it.
func RunSelfTest(ctx context.Context, opts Options) (*telemetry.RunResult, error) {
	sim, err := NewSim(SelfTestConfig(), opts)
	if err != nil {
		return nil, err
	}
	res, err := sim.Run(ctx)
	if err != nil {
		return nil, err
	}
	if err := CheckGrowth(res); err != nil {
		return res, fmt.Errorf("self-test: %w", err)
	}
	return res, nil
}
