package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartStep()
		pc.StartPhase(PhaseReproduction)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseMortality)
		time.Sleep(200 * time.Microsecond)
		pc.EndStep()
	}

	stats := pc.Stats()

	if stats.AvgStepDuration <= 0 {
		t.Error("expected positive average step duration")
	}
	if _, ok := stats.PhaseAvg[PhaseReproduction]; !ok {
		t.Error("expected reproduction phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhaseMortality]; !ok {
		t.Error("expected mortality phase to be tracked")
	}
	if stats.MinStepDuration > stats.MaxStepDuration {
		t.Errorf("min %v > max %v", stats.MinStepDuration, stats.MaxStepDuration)
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartStep()
		pc.StartPhase(PhasePlacement)
		time.Sleep(50 * time.Microsecond)
		pc.EndStep()
	}

	if pc.sampleCount != 5 {
		t.Errorf("sampleCount = %d, want window size 5", pc.sampleCount)
	}

	stats := pc.Stats()
	if stats.StepsPerSecond <= 0 {
		t.Error("expected positive steps per second")
	}
}

func TestPerfCollector_Empty(t *testing.T) {
	stats := NewPerfCollector(0).Stats()
	if stats.AvgStepDuration != 0 || len(stats.PhaseAvg) != 0 {
		t.Errorf("empty collector stats = %+v", stats)
	}
}

func TestPerfStats_ToCSV(t *testing.T) {
	stats := PerfStats{
		AvgStepDuration: 2 * time.Millisecond,
		PhasePct: map[string]float64{
			PhaseReproduction: 60,
			PhaseMortality:    30,
		},
	}

	row := stats.ToCSV(40)
	if row.WindowEnd != 40 || row.AvgStepUS != 2000 {
		t.Errorf("row = %+v", row)
	}
	if row.ReproductionPct != 60 || row.MortalityPct != 30 || row.RenderPct != 0 {
		t.Errorf("phase pct = %+v", row)
	}
}
