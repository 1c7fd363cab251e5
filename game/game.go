// Package game sequences a run: founding at step 0, scattered introduction,
// reproduction and mortality every step, then validation and reporting.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pthm-cable/gridcomp/components"
	"github.com/pthm-cable/gridcomp/config"
	"github.com/pthm-cable/gridcomp/systems"
	"github.com/pthm-cable/gridcomp/telemetry"
)

// ErrFinished is returned by Step once the run has reached PhaseDone.
var ErrFinished = errors.New("simulation finished")

// Phase is the clock state.
type Phase uint8

const (
	PhaseFounding Phase = iota
	PhaseStepping
	PhaseFinalizing
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseFounding:
		return "founding"
	case PhaseStepping:
		return "stepping"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Renderer receives a grid snapshot for every rendered step.
type Renderer interface {
	RenderFrame(snap telemetry.GridSnapshot) error
	Close() error
}

// Reporter receives the finished run.
type Reporter interface {
	Report(res *telemetry.RunResult) error
}

// StepObserver is optionally implemented by reporters that want per-step
// stats as the run progresses.
type StepObserver interface {
	ObserveStep(stats telemetry.StepStats, bookmarks []telemetry.Bookmark) error
}

// Options configures collaborators for a Sim.
type Options struct {
	// RunID labels the result, e.g. the run directory id.
	RunID     string
	Logger    *slog.Logger
	Renderers []Renderer
	Reporters []Reporter

	// LogSteps emits one info line per step; otherwise steps log at debug.
	LogSteps bool
}

// Sim holds the complete state of one run.
type Sim struct {
	cfg    *config.Config
	logger *slog.Logger
	rng    *rand.Rand

	grid         *systems.Grid
	ids          components.IDAllocator
	placement    *systems.PlacementSystem
	reproduction *systems.ReproductionSystem
	mortality    *systems.MortalitySystem

	// Authoritative pair lists, indexed by species.
	pairs [3][]components.Pair

	phase Phase
	step  int // next step to execute
	err   error

	// Telemetry
	events           telemetry.EventLog
	population       []telemetry.PopulationSnapshot
	stats            []telemetry.StepStats
	bookmarks        []telemetry.Bookmark
	perfRows         []telemetry.PerfStatsCSV
	relaxed          int
	collector        *telemetry.Collector
	bookmarkDetector *telemetry.BookmarkDetector
	perfCollector    *telemetry.PerfCollector

	renderers       []Renderer
	renderersClosed bool
	reporters       []Reporter
	logSteps        bool
	runID           string

	started time.Time
	result  *telemetry.RunResult
}

// NewSim creates a simulation from a finalized config. The config must not
// be modified afterwards.
func NewSim(cfg *config.Config, opts Options) (*Sim, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Sim{
		cfg:       cfg,
		logger:    logger,
		rng:       rand.New(rand.NewSource(cfg.Run.Seed)),
		grid:      systems.NewGrid(cfg.Grid.Size),
		renderers: opts.Renderers,
		reporters: opts.Reporters,
		logSteps:  opts.LogSteps,
		runID:     opts.RunID,
	}
	s.placement = systems.NewPlacementSystem(s.grid, s.rng, &s.ids)
	s.reproduction = systems.NewReproductionSystem(s.grid, &s.ids)
	s.mortality = systems.NewMortalitySystem(s.grid, s.rng)

	tcfg := cfg.Telemetry
	s.collector = telemetry.NewCollector(cfg.Grid.Size * cfg.Grid.Size)
	s.bookmarkDetector = telemetry.NewBookmarkDetector(tcfg.BookmarksHistory, tcfg.CrashThreshold, tcfg.SaturationThreshold)
	s.perfCollector = telemetry.NewPerfCollector(tcfg.PerfWindow)

	return s, nil
}

// Run drives every remaining phase. It checks ctx between steps.
func (s *Sim) Run(ctx context.Context) (*telemetry.RunResult, error) {
	defer s.closeRenderers()

	for s.phase != PhaseDone {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run interrupted at step %d: %w", s.step, err)
		}
		if err := s.Step(); err != nil {
			return nil, err
		}
	}
	return s.result, nil
}

// Step advances the clock by one phase transition: founding, one simulation
// step, or finalization. A fatal error ends the run and is returned again by
// every later call.
func (s *Sim) Step() error {
	if s.err != nil {
		return s.err
	}

	phase := s.phase
	var err error
	switch phase {
	case PhaseFounding:
		s.started = time.Now()
		err = s.found()
		s.step = 1
		s.phase = PhaseStepping
		if s.step >= s.cfg.Run.Steps {
			s.phase = PhaseFinalizing
		}
	case PhaseStepping:
		err = s.advance(s.step)
		s.step++
		if s.step >= s.cfg.Run.Steps {
			s.phase = PhaseFinalizing
		}
	case PhaseFinalizing:
		err = s.finalize()
		s.phase = PhaseDone
	case PhaseDone:
		return ErrFinished
	}

	if err != nil {
		s.err = err
		s.phase = PhaseDone
		s.closeRenderers()
		s.logger.Error("run aborted", "phase", phase.String(), "step", s.step, "error", err)
	}
	return err
}

// Phase returns the current clock phase.
func (s *Sim) Phase() Phase { return s.phase }

// NextStep returns the index of the next simulation step.
func (s *Sim) NextStep() int { return s.step }

// Grid returns the live grid. Callers must not modify it.
func (s *Sim) Grid() *systems.Grid { return s.grid }

// Pairs returns the live pair list for species. Callers must not modify it.
func (s *Sim) Pairs(species components.Species) []components.Pair {
	if species > components.SpeciesB {
		return nil
	}
	return s.pairs[species]
}

// Population returns the snapshots recorded so far.
func (s *Sim) Population() []telemetry.PopulationSnapshot { return s.population }

// Result returns the run result once finalized, else nil.
func (s *Sim) Result() *telemetry.RunResult { return s.result }

func (s *Sim) closeRenderers() {
	if s.renderersClosed {
		return
	}
	s.renderersClosed = true
	for _, r := range s.renderers {
		if err := r.Close(); err != nil {
			s.logger.Error("failed to close renderer", "error", err)
		}
	}
}
