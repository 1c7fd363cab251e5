package game

import (
	"context"
	"log/slog"

	"github.com/pthm-cable/gridcomp/telemetry"
)

// logStep emits the per-step population line.
func (s *Sim) logStep(stats telemetry.StepStats) {
	level := slog.LevelDebug
	if s.logSteps {
		level = slog.LevelInfo
	}
	if !s.logger.Enabled(context.Background(), level) {
		return
	}
	s.logger.Log(context.Background(), level, "step",
		"step", stats.Step,
		"count_a", stats.CountA,
		"count_b", stats.CountB,
		"births_a", stats.BirthsA,
		"births_b", stats.BirthsB,
		"deaths_a", stats.DeathsA,
		"deaths_b", stats.DeathsB,
	)
}
