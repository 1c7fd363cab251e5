package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pthm-cable/gridcomp/components"
	"github.com/pthm-cable/gridcomp/config"
	"github.com/pthm-cable/gridcomp/game"
	"github.com/pthm-cable/gridcomp/persistence"
	"github.com/pthm-cable/gridcomp/renderer"
	"github.com/pthm-cable/gridcomp/telemetry"
)

const gifName = "grid_competition.gif"

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = use config)")
	steps := flag.Int("steps", 0, "Total steps including step 0 (0 = use config)")
	outputDir := flag.String("output-dir", "", "Base directory for persistent runs (ignored with -demo/-test)")
	demo := flag.Bool("demo", false, "Run a short demo on a small grid")
	selfTest := flag.Bool("test", false, "Run the end-to-end growth check and exit non-zero on failure")
	noRender := flag.Bool("no-render", false, "Skip GIF output")
	dbPath := flag.String("db", "", "SQLite archive path (empty = run directory when output.sqlite is set)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logText := flag.Bool("log-text", false, "Log as text instead of JSON")
	logSteps := flag.Bool("log-steps", false, "Log one line per step at info level")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q\n", *logLevel)
		os.Exit(2)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, handlerOpts)
	if *logText {
		handler = slog.NewTextHandler(os.Stdout, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))

	mode := telemetry.RunModeRun
	switch {
	case *selfTest:
		mode = telemetry.RunModeTest
	case *demo:
		mode = telemetry.RunModeDemo
	}

	err := run(runArgs{
		configPath: *configPath,
		seed:       *seed,
		steps:      *steps,
		outputDir:  *outputDir,
		mode:       mode,
		noRender:   *noRender,
		dbPath:     *dbPath,
		logSteps:   *logSteps,
	})
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

type runArgs struct {
	configPath string
	seed       int64
	steps      int
	outputDir  string
	mode       telemetry.RunMode
	noRender   bool
	dbPath     string
	logSteps   bool
}

func run(args runArgs) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rd, err := telemetry.NewRunDir(telemetry.RunDirOptions{Mode: args.mode, OutputDir: args.outputDir})
	if err != nil {
		return err
	}
	if rd.IgnoredOutputDir {
		slog.Warn("-output-dir is ignored in demo/test mode", "output_dir", args.outputDir)
	}

	opts := game.Options{
		RunID:    rd.ID,
		Logger:   slog.Default(),
		LogSteps: args.logSteps,
	}

	if cfg.Telemetry.Render && !args.noRender {
		opts.Renderers = append(opts.Renderers,
			renderer.NewGIFRenderer(filepath.Join(rd.Path, gifName), cfg.Telemetry.FrameScale, cfg.Telemetry.FrameDelay))
	}

	if cfg.Output.CSV {
		om, err := telemetry.NewOutputManager(rd.Path)
		if err != nil {
			return err
		}
		defer om.Close()
		opts.Reporters = append(opts.Reporters, om)
	}

	if cfg.Output.SQLite || args.dbPath != "" {
		path := args.dbPath
		if path == "" {
			path = filepath.Join(rd.Path, "runs.db")
		}
		db, err := persistence.Open(path)
		if err != nil {
			return err
		}
		defer db.Close()
		opts.Reporters = append(opts.Reporters, db)
	}

	slog.Info("starting simulation",
		"mode", string(args.mode),
		"seed", cfg.Run.Seed,
		"steps", cfg.Run.Steps,
		"grid", cfg.Grid.Size,
		"output", rd.Path,
	)

	sim, err := game.NewSim(cfg, opts)
	if err != nil {
		return err
	}
	res, err := sim.Run(ctx)
	if err != nil {
		return err
	}

	if args.mode == telemetry.RunModeTest {
		if err := game.CheckGrowth(res); err != nil {
			return fmt.Errorf("self-test failed: %w", err)
		}
		slog.Info("self-test passed", "final_pairs", res.FinalCount(cfg.Founding.Species)/2)
	}

	slog.Info("all outputs for this run", "dir", rd.Path, "outcome", res.Outcome())
	return nil
}

// loadConfig builds the run configuration for the selected mode and applies
// CLI overrides.
func loadConfig(args runArgs) (*config.Config, error) {
	var cfg *config.Config
	switch args.mode {
	case telemetry.RunModeTest:
		if args.configPath != "" {
			return nil, errors.New("-config cannot be combined with -test")
		}
		cfg = game.SelfTestConfig()
	default:
		if err := config.Init(args.configPath); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = config.Cfg()
		if args.mode == telemetry.RunModeDemo {
			applyDemo(cfg)
		}
	}

	if args.seed != 0 {
		cfg.Run.Seed = args.seed
	}
	if args.steps != 0 {
		cfg.Run.Steps = args.steps
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDemo shrinks the scenario so a demo finishes in a moment.
func applyDemo(cfg *config.Config) {
	cfg.Grid.Size = 30
	cfg.Founding.Pairs = 30
	cfg.Founding.Region = components.Region{Row: -1, Col: -1, Size: 10}
	cfg.Scattered.Pairs = 30
	cfg.Scattered.MinDistance = 4
	cfg.Scattered.IntroductionStep = 5
	cfg.Run.Steps = 40
}

func init() {
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Usage: %s [flags]\n\n", filepath.Base(os.Args[0]))
		fmt.Fprintln(out, strings.TrimSpace(`
Runs a two-species grid competition. Every run writes its outputs (GIF,
CSV logs, summary, config snapshot) into its own <mode>_<timestamp>_<uuid>
directory: under the working directory for -demo and -test, otherwise under
-output-dir, $HOME/simulation_runs or ./outputs.`))
		fmt.Fprintln(out)
		flag.PrintDefaults()
	}
}
