package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/gridcomp/components"
	"github.com/pthm-cable/gridcomp/systems"
)

// Output file names inside a run directory.
const (
	FileSteps      = "steps.csv"
	FileBookmarks  = "bookmarks.csv"
	FilePopulation = "population.csv"
	FileEvents     = "events.csv"
	FileViolations = "violations.csv"
	FileCollisions = "collisions.csv"
	FilePerf       = "perf.csv"
	FileConfig     = "config.yaml"
	FileSummary    = "summary.txt"
)

// OutputManager handles structured run output with CSV logging. Per-step
// stats and bookmarks stream as the run progresses; everything else is
// written by Report.
type OutputManager struct {
	dir          string
	stepsFile    *os.File
	bookmarkFile *os.File

	// Track if headers have been written
	stepsHeaderWritten    bool
	bookmarkHeaderWritten bool
}

// NewOutputManager creates a new output manager and initializes the output
// directory. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, FileSteps))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", FileSteps, err)
	}
	om.stepsFile = f

	f, err = os.Create(filepath.Join(dir, FileBookmarks))
	if err != nil {
		om.stepsFile.Close()
		return nil, fmt.Errorf("creating %s: %w", FileBookmarks, err)
	}
	om.bookmarkFile = f

	return om, nil
}

// Dir returns the output directory.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// appendCSV writes records to f, including the header on the first call.
func appendCSV(f *os.File, records any, headerWritten *bool) error {
	if !*headerWritten {
		if err := gocsv.Marshal(records, f); err != nil {
			return err
		}
		*headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, f)
}

// ObserveStep writes a step stats record and any bookmarks it triggered.
func (om *OutputManager) ObserveStep(stats StepStats, bookmarks []Bookmark) error {
	if om == nil {
		return nil
	}
	if err := appendCSV(om.stepsFile, []StepStats{stats}, &om.stepsHeaderWritten); err != nil {
		return fmt.Errorf("writing step stats: %w", err)
	}
	if len(bookmarks) == 0 {
		return nil
	}
	records := make([]bookmarkRecord, len(bookmarks))
	for i, b := range bookmarks {
		records[i] = newBookmarkRecord(b)
	}
	if err := appendCSV(om.bookmarkFile, records, &om.bookmarkHeaderWritten); err != nil {
		return fmt.Errorf("writing bookmark: %w", err)
	}
	return nil
}

// Report writes the end-of-run files and closes the streamed ones.
func (om *OutputManager) Report(res *RunResult) error {
	if om == nil {
		return nil
	}
	defer om.Close()

	var errs []error
	if res.Config != nil {
		if err := res.Config.WriteYAML(filepath.Join(om.dir, FileConfig)); err != nil {
			errs = append(errs, err)
		}
	}

	errs = append(errs,
		om.writeAll(FilePopulation, res.Population),
		om.writeAll(FileEvents, eventRecords(res.Events)),
		om.writeAll(FileViolations, violationRecords(res.Validation.Violations)),
		om.writeAll(FilePerf, res.Perf),
	)
	if res.Repair != nil {
		errs = append(errs, om.writeAll(FileCollisions, collisionRecords(res.Repair.Collisions)))
	}

	state := NewFinalState(res.Seed, res.Final, res.PairsA, res.PairsB)
	if n := len(res.Bookmarks); n > 0 {
		last := res.Bookmarks[n-1]
		state.Bookmark = &last
	}
	if _, err := SaveFinalState(state, om.dir); err != nil {
		errs = append(errs, err)
	}

	if err := os.WriteFile(filepath.Join(om.dir, FileSummary), []byte(Summary(res)), 0644); err != nil {
		errs = append(errs, fmt.Errorf("writing %s: %w", FileSummary, err))
	}

	return errors.Join(errs...)
}

// writeAll writes a complete CSV file. Empty record sets produce an empty
// file so every run directory has the same layout.
func (om *OutputManager) writeAll(name string, records any) error {
	f, err := os.Create(filepath.Join(om.dir, name))
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer f.Close()

	if err := gocsv.Marshal(records, f); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// Close closes all open files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var errs []error
	if om.stepsFile != nil {
		errs = append(errs, om.stepsFile.Close())
		om.stepsFile = nil
	}
	if om.bookmarkFile != nil {
		errs = append(errs, om.bookmarkFile.Close())
		om.bookmarkFile = nil
	}
	return errors.Join(errs...)
}

type bookmarkRecord struct {
	Type        string `csv:"type"`
	Step        int    `csv:"step"`
	Species     string `csv:"species"`
	Description string `csv:"description"`
}

func newBookmarkRecord(b Bookmark) bookmarkRecord {
	return bookmarkRecord{
		Type:        string(b.Type),
		Step:        b.Step,
		Species:     b.Species.String(),
		Description: b.Description,
	}
}

type eventRecord struct {
	Step    int    `csv:"step"`
	Type    string `csv:"type"`
	Species string `csv:"species"`
	Pair    uint32 `csv:"pair"`
	Cell1   string `csv:"cell1"`
	Cell2   string `csv:"cell2"`
	Parent  uint32 `csv:"parent"`
	Count   int    `csv:"count"`
}

func eventRecords(events []Event) []eventRecord {
	out := make([]eventRecord, len(events))
	for i, e := range events {
		r := eventRecord{
			Step:    e.Step,
			Type:    e.Type.String(),
			Species: e.Species.String(),
			Count:   e.Count,
		}
		if e.Type == EventBirth || e.Type == EventDeath {
			r.Pair = uint32(e.Pair)
			r.Cell1 = e.Cells[0].String()
			r.Cell2 = e.Cells[1].String()
		}
		if e.Type == EventBirth {
			r.Parent = uint32(e.Parent)
		}
		out[i] = r
	}
	return out
}

type violationRecord struct {
	Kind     string `csv:"kind"`
	Species  string `csv:"species"`
	Pair     string `csv:"pair"`
	Cell     string `csv:"cell"`
	Other    string `csv:"other"`
	Distance int    `csv:"distance"`
	Detail   string `csv:"detail"`
}

func violationRecords(vs []systems.Violation) []violationRecord {
	out := make([]violationRecord, len(vs))
	for i, v := range vs {
		out[i] = violationRecord{
			Kind:     string(v.Kind),
			Species:  v.Species.String(),
			Pair:     pairField(v.Pair),
			Cell:     v.Cell.String(),
			Other:    pairField(v.Other),
			Distance: v.Distance,
			Detail:   v.Detail,
		}
	}
	return out
}

// pairField renders a pair id, leaving it blank for systems.NoPair.
func pairField(id components.PairID) string {
	if id == systems.NoPair {
		return ""
	}
	return strconv.FormatUint(uint64(id), 10)
}

type collisionRecord struct {
	Species string `csv:"species"`
	Pair    uint32 `csv:"pair"`
	Cell    string `csv:"cell"`
	Holder  string `csv:"holder"`
}

func collisionRecords(cs []systems.Collision) []collisionRecord {
	out := make([]collisionRecord, len(cs))
	for i, c := range cs {
		holder := c.Holder.String()
		if c.Holder == components.Empty {
			holder = ""
		}
		out[i] = collisionRecord{
			Species: c.Species.String(),
			Pair:    uint32(c.Pair),
			Cell:    c.Cell.String(),
			Holder:  holder,
		}
	}
	return out
}
