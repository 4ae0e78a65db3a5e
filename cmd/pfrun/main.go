// Command pfrun localizes a vehicle against a landmark map with the particle
// filter, replaying recorded controls and observations step by step.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	particlefilter "github.com/jhoydich/landmark-pf"
	"github.com/jhoydich/landmark-pf/internal/config"
	"github.com/jhoydich/landmark-pf/internal/dataset"
	"github.com/jhoydich/landmark-pf/internal/report"
	"github.com/jhoydich/landmark-pf/internal/runner"
	"github.com/jhoydich/landmark-pf/internal/runstore"
	"github.com/jhoydich/landmark-pf/internal/sim"
)

// options holds the parsed command line. Only flags that were set
// explicitly override the config file.
type options struct {
	configPath string
	simulate   string
	verbosity  int
	set        map[string]bool

	dataDir   string
	out       string
	plot      string
	chart     string
	db        string
	seed      uint64
	particles int
	workers   int
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("pfrun", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "Path to a JSON config file")
	fs.StringVar(&o.dataDir, "data", "", "Dataset directory holding map_data.txt, control_data.txt, ground_truth_data.txt and observation/")
	fs.StringVar(&o.out, "out", "", "CSV log path (empty disables)")
	fs.StringVar(&o.plot, "plot", "", "Trajectory plot path (.png, .svg or .pdf)")
	fs.StringVar(&o.chart, "chart", "", "HTML error chart path")
	fs.StringVar(&o.db, "db", "", "SQLite run store path")
	fs.Uint64Var(&o.seed, "seed", 0, "Random seed (0 picks a time-based seed)")
	fs.IntVar(&o.particles, "particles", 0, "Number of particles")
	fs.IntVar(&o.workers, "workers", 0, "Worker goroutines for predict and weight update (0 or 1 runs sequentially)")
	fs.IntVar(&o.verbosity, "v", 0, "Log verbosity: 0 info, 1 debug (association misses), 2 trace (per-step estimates)")
	fs.StringVar(&o.simulate, "simulate", "", "Write a synthetic dataset to this directory and run on it")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	if o.set["data"] && o.set["simulate"] {
		return options{}, fmt.Errorf("-data and -simulate are mutually exclusive")
	}
	return o, nil
}

// apply overlays the explicitly set flags onto cfg.
func (o options) apply(cfg *config.Config) {
	if dir := o.dataDir; o.set["data"] || o.set["simulate"] {
		if o.set["simulate"] {
			dir = o.simulate
		}
		setDataDir(cfg, dir)
	}
	if o.set["out"] {
		cfg.OutputFile = &o.out
	}
	if o.set["plot"] {
		cfg.PlotFile = &o.plot
	}
	if o.set["chart"] {
		cfg.ChartFile = &o.chart
	}
	if o.set["db"] {
		cfg.Database = &o.db
	}
	if o.set["seed"] {
		cfg.Seed = &o.seed
	}
	if o.set["particles"] {
		cfg.Particles = &o.particles
	}
	if o.set["workers"] {
		cfg.Workers = &o.workers
	}
}

func setDataDir(cfg *config.Config, dir string) {
	mapFile := filepath.Join(dir, "map_data.txt")
	obsDir := filepath.Join(dir, "observation")
	controls := filepath.Join(dir, "control_data.txt")
	truth := filepath.Join(dir, "ground_truth_data.txt")
	cfg.MapFile = &mapFile
	cfg.ObservationDir = &obsDir
	cfg.ControlsFile = &controls
	cfg.GroundTruthFile = &truth
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalf("invalid arguments: %v", err)
	}
	configureLogging(o.verbosity)

	cfg := config.Empty()
	if o.configPath != "" {
		if cfg, err = config.Load(o.configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	o.apply(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	seed := cfg.GetSeed()
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
		cfg.Seed = &seed
	}
	src := rand.NewSource(seed)

	if o.set["simulate"] {
		if err := simulate(o.simulate, scenario(cfg), src); err != nil {
			log.Fatalf("failed to write synthetic dataset: %v", err)
		}
	}

	sum, err := run(cfg, src, os.Stdout)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}
	printSummary(os.Stdout, sum, seed)
}

func configureLogging(verbosity int) {
	switch {
	case verbosity >= 2:
		log.SetLevel(log.TraceLevel)
	case verbosity == 1:
		log.SetLevel(log.DebugLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
	particlefilter.SetLogger(log.StandardLogger())
}

// scenario returns the default synthetic scenario with the interval and
// sensor range the filter will run with.
func scenario(cfg *config.Config) sim.Scenario {
	s := sim.Default()
	s.Dt = cfg.GetDt()
	s.SensorRange = cfg.GetSensorRange()
	return s
}

func simulate(dir string, s sim.Scenario, src rand.Source) error {
	ds, err := sim.Generate(s, src)
	if err != nil {
		return err
	}
	_, err = dataset.WriteDir(dir, ds)
	return err
}

// run loads the dataset named by cfg, replays it through the filter and
// writes every configured output. Progress lines go to w.
func run(cfg *config.Config, src rand.Source, w io.Writer) (runner.Summary, error) {
	ds, err := dataset.Load(dataset.Paths{
		Map:          cfg.GetMapFile(),
		Observations: cfg.GetObservationDir(),
		Controls:     cfg.GetControlsFile(),
		GroundTruth:  cfg.GetGroundTruthFile(),
	})
	if err != nil {
		return runner.Summary{}, fmt.Errorf("failed to load dataset: %w", err)
	}
	fmt.Fprintf(w, "loaded %d landmarks, %d steps\n", len(ds.Landmarks), ds.Steps())

	opts := runner.Options{Filter: cfg.EngineConfig(), Source: src}
	if p, ok := cfg.GetInitialPose(); ok {
		opts.InitialPose = &p
	}

	collector := &runner.Collector{}
	sinks := []runner.Sink{collector}

	var csvLog *csvFile
	if path := cfg.GetOutputFile(); path != "" {
		if csvLog, err = createCSVFile(path, ds.HasGroundTruth()); err != nil {
			return runner.Summary{}, err
		}
		defer csvLog.f.Close()
		sinks = append(sinks, csvLog.w)
	}

	var (
		store *runstore.Store
		runID string
	)
	if path := cfg.GetDatabase(); path != "" {
		if store, err = runstore.Open(path); err != nil {
			return runner.Summary{}, fmt.Errorf("failed to open run store: %w", err)
		}
		defer store.Close()
		cfgJSON, err := cfg.MarshalIndent()
		if err != nil {
			return runner.Summary{}, err
		}
		if runID, err = store.StartRun(cfgJSON); err != nil {
			return runner.Summary{}, err
		}
		sinks = append(sinks, store.Sink(runID))
		fmt.Fprintf(w, "run id %s\n", runID)
	}

	sum, err := runner.Run(ds, opts, sinks...)
	if err != nil {
		return runner.Summary{}, err
	}
	if csvLog != nil {
		if err := csvLog.Close(); err != nil {
			return runner.Summary{}, err
		}
	}

	if store != nil {
		if err := store.FinishRun(runID, sum); err != nil {
			return runner.Summary{}, err
		}
	}
	if path := cfg.GetPlotFile(); path != "" {
		if err := report.SaveTrajectoryPlot(path, collector.Records, ds.Landmarks); err != nil {
			return runner.Summary{}, err
		}
		fmt.Fprintf(w, "wrote plot %s\n", path)
	}
	if path := cfg.GetChartFile(); path != "" {
		if err := writeChart(path, collector.Records); err != nil {
			return runner.Summary{}, err
		}
		fmt.Fprintf(w, "wrote chart %s\n", path)
	}
	return sum, nil
}

// csvFile is the buffered CSV log of a run.
type csvFile struct {
	path string
	f    *os.File
	bw   *bufio.Writer
	w    *report.CSVWriter
}

func createCSVFile(path string, withTruth bool) (*csvFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	bw := bufio.NewWriter(f)
	return &csvFile{path: path, f: f, bw: bw, w: report.NewCSVWriter(bw, withTruth)}, nil
}

// Close flushes every buffered row and closes the file, reporting the
// first error.
func (c *csvFile) Close() error {
	err := c.w.Flush()
	if err == nil {
		err = c.bw.Flush()
	}
	if cerr := c.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", c.path, err)
	}
	return nil
}

func writeChart(path string, records []runner.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	if err := report.WriteErrorChart(f, "Localization error", records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(w io.Writer, sum runner.Summary, seed uint64) {
	fmt.Fprintf(w, "steps: %d  duration: %v  seed: %d\n", sum.Steps, sum.Duration, seed)
	if !sum.HasTruth {
		return
	}
	fmt.Fprintf(w, "rmse       x=%.4f y=%.4f phi=%.4f\n", sum.RMSE.X, sum.RMSE.Y, sum.RMSE.Phi)
	fmt.Fprintf(w, "mean error x=%.4f y=%.4f phi=%.4f\n", sum.MeanError.X, sum.MeanError.Y, sum.MeanError.Phi)
}
