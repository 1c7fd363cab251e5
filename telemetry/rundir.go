package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunMode selects where a run's output directory lives.
type RunMode string

const (
	RunModeRun  RunMode = "run"
	RunModeDemo RunMode = "demo"
	RunModeTest RunMode = "test"
)

var (
	// ErrRootDir is returned when a non-root user would write under /root.
	ErrRootDir = errors.New("refusing to write under /root as non-root")
	// ErrNoWritableDir is returned when no default base directory is writable.
	ErrNoWritableDir = errors.New("no writable default output directory")
)

// RunDirOptions controls NewRunDir. Zero fields fall back to the process
// environment.
type RunDirOptions struct {
	Mode RunMode
	// OutputDir is the base directory for persistent runs. Demo and test
	// runs ignore it.
	OutputDir string
	WorkDir   string
	Home      string
	Now       time.Time
	IsRoot    *bool
}

// RunDir describes a created per-run output directory.
type RunDir struct {
	Path string
	ID   string
	// IgnoredOutputDir is set when OutputDir was given for a demo or test run.
	IgnoredOutputDir bool
}

// RunDirName returns "<mode>_<timestamp>_<id>".
func RunDirName(mode RunMode, now time.Time, id string) string {
	return fmt.Sprintf("%s_%s_%s", mode, now.Format("2006-01-02T15-04-05"), id)
}

// NewRunDir creates a uniquely named directory for one run. Demo and test
// runs go under the working directory. Persistent runs go under OutputDir,
// else $HOME/simulation_runs, else ./outputs.
func NewRunDir(opts RunDirOptions) (RunDir, error) {
	if opts.Mode == "" {
		opts.Mode = RunModeRun
	}
	if opts.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return RunDir{}, fmt.Errorf("getting working directory: %w", err)
		}
		opts.WorkDir = wd
	}
	if opts.Home == "" {
		opts.Home = os.Getenv("HOME")
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	isRoot := os.Geteuid() == 0
	if opts.IsRoot != nil {
		isRoot = *opts.IsRoot
	}

	rd := RunDir{ID: uuid.NewString()}

	var base string
	switch opts.Mode {
	case RunModeDemo, RunModeTest:
		rd.IgnoredOutputDir = opts.OutputDir != ""
		base = opts.WorkDir
	default:
		switch {
		case opts.OutputDir != "":
			abs, err := filepath.Abs(opts.OutputDir)
			if err != nil {
				return RunDir{}, fmt.Errorf("resolving output dir: %w", err)
			}
			base = abs
		case opts.Home != "" && writableDir(filepath.Join(opts.Home, "simulation_runs")):
			base = filepath.Join(opts.Home, "simulation_runs")
		case writableDir(filepath.Join(opts.WorkDir, "outputs")):
			base = filepath.Join(opts.WorkDir, "outputs")
		default:
			return RunDir{}, ErrNoWritableDir
		}
		if !isRoot && (base == "/root" || strings.HasPrefix(base, "/root/")) {
			return RunDir{}, fmt.Errorf("%w: %s", ErrRootDir, base)
		}
	}

	rd.Path = filepath.Join(base, RunDirName(opts.Mode, opts.Now, rd.ID))
	if !writableDir(rd.Path) {
		return RunDir{}, fmt.Errorf("output directory %q cannot be created or is not writable", rd.Path)
	}
	return rd, nil
}

// writableDir creates path if needed and checks a file can be written in it.
func writableDir(path string) bool {
	if err := os.MkdirAll(path, 0755); err != nil {
		return false
	}
	probe := filepath.Join(path, ".output_write_test")
	if err := os.WriteFile(probe, []byte("test"), 0644); err != nil {
		return false
	}
	return os.Remove(probe) == nil
}
