package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/pthm-cable/gridcomp/components"
	"github.com/pthm-cable/gridcomp/systems"
	"github.com/pthm-cable/gridcomp/telemetry"
)

// speciesOrder is the fixed per-step processing order.
var speciesOrder = [2]components.Species{components.SpeciesA, components.SpeciesB}

// found places the confined founding cluster and records step 0.
func (s *Sim) found() error {
	s.perfCollector.StartStep()
	s.perfCollector.StartPhase(telemetry.PhasePlacement)

	fc := s.cfg.Founding
	pairs, err := s.placement.FoundCluster(fc.Species, fc.Pairs, s.cfg.Derived.Region)
	if err != nil {
		return fmt.Errorf("founding cluster: %w", err)
	}
	s.pairs[fc.Species] = pairs
	s.events.Append(telemetry.NewFoundingEvent(0, fc.Species, len(pairs)))

	s.logger.Info("founding cluster placed",
		"species", fc.Species.String(),
		"pairs", len(pairs),
		"region", s.cfg.Derived.Region,
	)

	annotation := fmt.Sprintf("step 0: %d %s pairs founded", len(pairs), fc.Species)
	s.recordStep(0, annotation, true)
	return nil
}

// advance runs one simulation step.
func (s *Sim) advance(step int) error {
	s.perfCollector.StartStep()

	annotation := ""
	sc := s.cfg.Scattered
	if sc.Pairs > 0 && step == sc.IntroductionStep {
		s.perfCollector.StartPhase(telemetry.PhasePlacement)
		n, err := s.introduce(step)
		if err != nil {
			return fmt.Errorf("scattered introduction at step %d: %w", step, err)
		}
		annotation = fmt.Sprintf("step %d: %d %s pairs introduced", step, n, sc.Species)
	}

	// Offspring stay out of the active lists until every species has bred.
	s.perfCollector.StartPhase(telemetry.PhaseReproduction)
	var offspring [3][]components.Pair
	for _, sp := range speciesOrder {
		born, births := s.reproduction.Update(s.pairs[sp], step)
		offspring[sp] = born
		s.collector.RecordBirths(births)
		for _, b := range births {
			s.events.Append(telemetry.NewBirthEvent(b))
		}
	}
	for _, sp := range speciesOrder {
		s.pairs[sp] = append(s.pairs[sp], offspring[sp]...)
	}

	s.perfCollector.StartPhase(telemetry.PhaseMortality)
	for _, sp := range speciesOrder {
		survivors, deaths := s.mortality.Update(s.pairs[sp], s.cfg.Rate(sp), step)
		s.pairs[sp] = survivors
		s.collector.RecordDeaths(deaths)
		for _, d := range deaths {
			s.events.Append(telemetry.NewDeathEvent(d))
		}
	}

	s.recordStep(step, annotation, annotation != "")
	return nil
}

// introduce places the scattered species away from the founding species
// (and optionally the whole confinement region).
func (s *Sim) introduce(step int) (int, error) {
	sc := s.cfg.Scattered
	avoid := systems.SpeciesMask(s.grid, s.cfg.Founding.Species)
	if sc.AvoidConfinement {
		avoid = avoid.Union(systems.RegionMask(s.cfg.Grid.Size, s.cfg.Derived.Region))
	}

	res, err := s.placement.PlaceScattered(sc.Species, sc.Pairs, avoid, sc.MinDistance)
	if err != nil {
		return 0, err
	}
	for i := range res.Pairs {
		res.Pairs[i].BornStep = step
	}
	s.pairs[sc.Species] = append(s.pairs[sc.Species], res.Pairs...)
	s.relaxed += res.RelaxedCount()
	s.events.Append(telemetry.NewIntroductionEvent(step, sc.Species, len(res.Pairs)))

	s.logger.Info("scattered pairs introduced",
		"step", step,
		"species", sc.Species.String(),
		"pairs", len(res.Pairs),
		"relaxed", res.RelaxedCount(),
		"min_distance", sc.MinDistance,
	)
	return len(res.Pairs), nil
}

// finalize validates the end state, repairs it when inconsistent, and hands
// the result to every reporter.
func (s *Sim) finalize() error {
	s.closeRenderers()

	s.perfCollector.StartStep()
	s.perfCollector.StartPhase(telemetry.PhaseValidation)

	pairsA, pairsB := s.pairs[components.SpeciesA], s.pairs[components.SpeciesB]
	report := systems.ValidateScoped(s.grid, pairsA, pairsB, s.cfg.Derived.Spacing)

	var repair *systems.RepairReport
	if report.OK {
		s.logger.Info("validation passed", "report", report)
	} else {
		s.logger.Warn("validation failed, repairing", "report", report, "policy", string(s.cfg.Derived.RepairPolicy))
		for _, v := range report.Violations {
			s.logger.Debug("violation", "detail", v.String())
		}
		rep := systems.Repair(s.grid, pairsA, pairsB, s.cfg.Derived.RepairPolicy)
		repair = &rep
		s.pairs[components.SpeciesA] = rep.PairsA
		s.pairs[components.SpeciesB] = rep.PairsB
		s.logger.Info("repair complete",
			"collisions", len(rep.Collisions),
			"orphaned", len(rep.Orphaned),
		)
	}
	s.perfCollector.EndStep()
	s.perfRows = append(s.perfRows, s.perfCollector.Stats().ToCSV(s.step-1))

	last := s.step - 1
	s.result = &telemetry.RunResult{
		RunID:             s.runID,
		Config:            s.cfg,
		Seed:              s.cfg.Run.Seed,
		Started:           s.started,
		Elapsed:           time.Since(s.started),
		Steps:             s.step,
		Events:            s.events.Events(),
		Population:        s.population,
		Stats:             s.stats,
		Bookmarks:         s.bookmarks,
		Perf:              s.perfRows,
		RelaxedPlacements: s.relaxed,
		Validation:        report,
		Repair:            repair,
		PairsA:            s.pairs[components.SpeciesA],
		PairsB:            s.pairs[components.SpeciesB],
		Final:             telemetry.NewGridSnapshot(s.grid, last),
	}

	s.logger.Info("run complete",
		"steps", s.result.Steps,
		"final_a", s.result.FinalCount(components.SpeciesA),
		"final_b", s.result.FinalCount(components.SpeciesB),
		"outcome", s.result.Outcome(),
		"elapsed", s.result.Elapsed.String(),
	)

	var errs []error
	for _, r := range s.reporters {
		if err := r.Report(s.result); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("reporting: %w", err)
	}
	return nil
}
