package telemetry

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/gridcomp/components"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkExtinction BookmarkType = "extinction"
	BookmarkCrash      BookmarkType = "crash"
	BookmarkSaturation BookmarkType = "saturation"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType       `json:"type"`
	Step        int                `json:"step"`
	Species     components.Species `json:"species"`
	Description string             `json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("bookmark",
		"type", string(b.Type),
		"step", b.Step,
		"species", b.Species.String(),
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the population series.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []StepStats
	historySize int
	historyIdx  int
	historyFull bool

	crashThreshold      float64 // fractional drop from recent peak
	saturationThreshold float64 // grid occupancy fraction

	// Each bookmark fires once per episode and re-arms when the condition clears.
	crashed   [3]bool
	extinct   [3]bool
	saturated bool
}

// NewBookmarkDetector creates a detector with the given history size and
// thresholds.
func NewBookmarkDetector(historySize int, crashThreshold, saturationThreshold float64) *BookmarkDetector {
	if historySize < 2 {
		historySize = 2
	}
	return &BookmarkDetector{
		history:             make([]StepStats, historySize),
		historySize:         historySize,
		crashThreshold:      crashThreshold,
		saturationThreshold: saturationThreshold,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats StepStats) []Bookmark {
	var bookmarks []Bookmark

	for _, sp := range []components.Species{components.SpeciesA, components.SpeciesB} {
		if b := bd.checkExtinction(stats, sp); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkCrash(stats, sp); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}
	if b := bd.checkSaturation(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats StepStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []StepStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func countOf(s StepStats, species components.Species) int {
	if species == components.SpeciesA {
		return s.CountA
	}
	return s.CountB
}

func (bd *BookmarkDetector) checkExtinction(stats StepStats, species components.Species) *Bookmark {
	count := countOf(stats, species)
	if count > 0 {
		bd.extinct[species] = false
		return nil
	}
	if bd.extinct[species] {
		return nil
	}

	if len(bd.getHistory()) == 0 {
		return nil
	}
	// Most recent entry sits just behind the write index.
	prev := bd.history[(bd.historyIdx-1+bd.historySize)%bd.historySize]
	if countOf(prev, species) == 0 {
		return nil
	}

	bd.extinct[species] = true
	return &Bookmark{
		Type:        BookmarkExtinction,
		Step:        stats.Step,
		Species:     species,
		Description: fmt.Sprintf("species %s went extinct (was %d)", species, countOf(prev, species)),
	}
}

func (bd *BookmarkDetector) checkCrash(stats StepStats, species components.Species) *Bookmark {
	history := bd.getHistory()
	if len(history) == 0 || bd.crashThreshold <= 0 {
		return nil
	}

	peak := 0
	for _, h := range history {
		if c := countOf(h, species); c > peak {
			peak = c
		}
	}
	if peak == 0 {
		return nil
	}

	count := countOf(stats, species)
	drop := float64(peak-count) / float64(peak)
	if drop <= bd.crashThreshold {
		bd.crashed[species] = false
		return nil
	}
	if bd.crashed[species] {
		return nil
	}

	bd.crashed[species] = true
	return &Bookmark{
		Type:        BookmarkCrash,
		Step:        stats.Step,
		Species:     species,
		Description: fmt.Sprintf("species %s dropped %.0f%% from peak %d to %d", species, drop*100, peak, count),
	}
}

func (bd *BookmarkDetector) checkSaturation(stats StepStats) *Bookmark {
	if bd.saturationThreshold <= 0 {
		return nil
	}
	if stats.Occupancy <= bd.saturationThreshold {
		bd.saturated = false
		return nil
	}
	if bd.saturated {
		return nil
	}

	bd.saturated = true
	species := components.SpeciesA
	if stats.CountB > stats.CountA {
		species = components.SpeciesB
	}
	return &Bookmark{
		Type:        BookmarkSaturation,
		Step:        stats.Step,
		Species:     species,
		Description: fmt.Sprintf("grid %.0f%% occupied (a=%d b=%d)", stats.Occupancy*100, stats.CountA, stats.CountB),
	}
}
