package game

import (
	"github.com/pthm-cable/gridcomp/components"
	"github.com/pthm-cable/gridcomp/telemetry"
)

// recordStep appends the population snapshot for step, checks bookmarks,
// streams stats to observers and renders the frame. Output failures are
// logged and do not stop the run.
func (s *Sim) recordStep(step int, annotation string, showRegion bool) {
	s.perfCollector.StartPhase(telemetry.PhaseTelemetry)

	countA := 2 * len(s.pairs[components.SpeciesA])
	countB := 2 * len(s.pairs[components.SpeciesB])
	stats := s.collector.Flush(step, countA, countB)
	s.stats = append(s.stats, stats)
	s.population = append(s.population, stats.Snapshot())

	bookmarks := s.bookmarkDetector.Check(stats)
	for _, bm := range bookmarks {
		bm.LogBookmark(s.logger)
	}
	s.bookmarks = append(s.bookmarks, bookmarks...)

	s.logStep(stats)

	for _, r := range s.reporters {
		obs, ok := r.(StepObserver)
		if !ok {
			continue
		}
		if err := obs.ObserveStep(stats, bookmarks); err != nil {
			s.logger.Error("failed to write step stats", "step", step, "error", err)
		}
	}

	if len(s.renderers) > 0 {
		s.perfCollector.StartPhase(telemetry.PhaseRender)
		snap := telemetry.NewGridSnapshot(s.grid, step)
		snap.Annotation = annotation
		if showRegion {
			snap.Region = s.cfg.Derived.Region
			snap.ShowRegion = true
		}
		for _, r := range s.renderers {
			if err := r.RenderFrame(snap); err != nil {
				s.logger.Error("failed to render frame", "step", step, "error", err)
			}
		}
	}

	s.perfCollector.EndStep()
	if window := s.perfCollector.WindowSize(); (step+1)%window == 0 {
		perf := s.perfCollector.Stats()
		s.perfRows = append(s.perfRows, perf.ToCSV(step))
		s.logger.Debug("perf", "stats", perf)
	}
}
