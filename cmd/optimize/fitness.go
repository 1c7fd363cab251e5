package main

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/pthm-cable/gridcomp/components"
	"github.com/pthm-cable/gridcomp/config"
	"github.com/pthm-cable/gridcomp/game"
)

const (
	// extinctionPenalty is added per seed in which either species dies out.
	extinctionPenalty = 1.0
	// failedFitness scores a run that could not complete.
	failedFitness = 10.0
)

// FitnessEvaluator runs headless simulations and scores how close the
// scattered species' final share of the population lands to a target.
type FitnessEvaluator struct {
	params     *ParamVector
	seeds      []int64
	baseConfig *config.Config
	target     float64

	mu        sync.Mutex
	lastShare float64 // mean share from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, seeds []int64, baseCfg *config.Config, target float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		seeds:      seeds,
		baseConfig: baseCfg,
		target:     target,
	}
}

// LastShare returns the mean final share from the most recent evaluation.
func (fe *FitnessEvaluator) LastShare() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastShare
}

type seedResult struct {
	fitness float64
	share   float64
}

// Evaluate computes fitness for a raw parameter vector (lower = better). Seeds
// run in parallel; each run is independent and deterministic.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))

	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSeed(x, s)
		}(i, seed)
	}
	wg.Wait()

	var fitness, share float64
	for _, r := range results {
		fitness += r.fitness
		share += r.share
	}
	n := float64(len(results))

	fe.mu.Lock()
	fe.lastShare = share / n
	fe.mu.Unlock()

	return fitness / n
}

func (fe *FitnessEvaluator) runSeed(x []float64, seed int64) seedResult {
	cfg := *fe.baseConfig
	fe.params.ApplyToConfig(&cfg, x)
	cfg.Run.Seed = seed
	cfg.Telemetry.Render = false
	if err := cfg.Finalize(); err != nil {
		return seedResult{fitness: failedFitness}
	}

	sim, err := game.NewSim(&cfg, game.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		return seedResult{fitness: failedFitness}
	}
	res, err := sim.Run(context.Background())
	if err != nil {
		return seedResult{fitness: failedFitness}
	}

	a := res.FinalCount(components.SpeciesA)
	b := res.FinalCount(components.SpeciesB)
	if a+b == 0 {
		return seedResult{fitness: 1 + 2*extinctionPenalty}
	}
	share := float64(b) / float64(a+b)
	fitness := (share - fe.target) * (share - fe.target)
	if a == 0 || b == 0 {
		fitness += extinctionPenalty
	}
	return seedResult{fitness: fitness, share: share}
}
