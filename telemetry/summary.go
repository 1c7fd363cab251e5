package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pthm-cable/gridcomp/components"
)

// Summary renders the human-readable run summary written to summary.txt.
func Summary(res *RunResult) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("Grid competition summary")
	line("========================")
	if cfg := res.Config; cfg != nil {
		r := cfg.Derived.Region
		line("grid:        %dx%d", cfg.Grid.Size, cfg.Grid.Size)
		line("founding:    %s pairs of %s in %dx%d region at (%d,%d)",
			humanize.Comma(int64(cfg.Founding.Pairs)), cfg.Founding.Species, r.Size, r.Size, r.Row, r.Col)
		if cfg.Scattered.Pairs > 0 {
			line("scattered:   %s pairs of %s on the %s step, min distance %d",
				humanize.Comma(int64(cfg.Scattered.Pairs)), cfg.Scattered.Species,
				humanize.Ordinal(cfg.Scattered.IntroductionStep), cfg.Scattered.MinDistance)
		}
		line("mortality:   a=%s b=%s per step",
			humanize.FtoaWithDigits(cfg.Mortality.RateA, 4), humanize.FtoaWithDigits(cfg.Mortality.RateB, 4))
	}
	line("seed:        %d", res.Seed)
	line("steps:       %s", humanize.Comma(int64(res.Steps)))
	line("elapsed:     %s", res.Elapsed.Round(time.Millisecond))
	line("")

	for _, sp := range []components.Species{components.SpeciesA, components.SpeciesB} {
		s := Summarize(res.Population, sp)
		line("species %s: final %s (%s pairs), peak %s at step %d, mean %.1f, sd %.1f, median %.0f, trend %+.2f/step",
			sp, humanize.Comma(int64(res.FinalCount(sp))), humanize.Comma(int64(res.FinalCount(sp)/2)),
			humanize.Comma(int64(s.Peak)), s.PeakStep, s.Mean, s.StdDev, s.Median, s.Trend)
	}
	line("outcome:     %s", res.Outcome())
	line("")

	var log EventLog
	log.Append(res.Events...)
	line("births:      a=%s b=%s",
		humanize.Comma(int64(log.Count(EventBirth, components.SpeciesA))),
		humanize.Comma(int64(log.Count(EventBirth, components.SpeciesB))))
	line("deaths:      a=%s b=%s",
		humanize.Comma(int64(log.Count(EventDeath, components.SpeciesA))),
		humanize.Comma(int64(log.Count(EventDeath, components.SpeciesB))))
	if res.RelaxedPlacements > 0 {
		line("relaxed:     %d scattered pairs placed at reduced spacing", res.RelaxedPlacements)
	}
	line("bookmarks:   %d", len(res.Bookmarks))
	for _, bm := range res.Bookmarks {
		line("  step %d %s: %s", bm.Step, bm.Type, bm.Description)
	}
	line("")

	if res.Validation.OK {
		line("validation:  ok")
	} else {
		line("validation:  %d violations", len(res.Validation.Violations))
		for _, v := range res.Validation.Violations {
			line("  %s", v)
		}
	}
	if res.Repair != nil {
		line("repair:      policy %s, %d collisions, %d orphaned pairs",
			res.Repair.Policy, len(res.Repair.Collisions), len(res.Repair.Orphaned))
	}

	return b.String()
}
