// Package runner drives the particle filter over a loaded dataset and
// fans per-step results out to sinks.
package runner

import (
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	particlefilter "github.com/jhoydich/landmark-pf"
	"github.com/jhoydich/landmark-pf/internal/dataset"
)

// ErrNoInitialPose is returned when the dataset has no ground truth and no
// initial pose was supplied.
var ErrNoInitialPose = errors.New("no initial pose: provide ground truth or an initial pose")

// ErrNilDataset is returned when Run is given no dataset.
var ErrNilDataset = errors.New("nil dataset")

// Record is the per-step output of a run.
type Record struct {
	Step int
	// Pred is the best particle's pose after resampling.
	Pred   particlefilter.Pose
	Weight float64
	// Truth and Err are only meaningful when HasTruth is set.
	Truth    particlefilter.Pose
	Err      particlefilter.Pose
	HasTruth bool
	// ESS is the effective sample size of the scored ensemble.
	ESS float64
}

// Sink consumes records as they are produced.
type Sink interface {
	WriteRecord(Record) error
}

// Collector is a Sink that keeps every record in memory.
type Collector struct {
	Records []Record
}

// WriteRecord appends r.
func (c *Collector) WriteRecord(r Record) error {
	c.Records = append(c.Records, r)
	return nil
}

// Options configures a run.
type Options struct {
	Filter particlefilter.Config
	// InitialPose seeds the filter when the dataset has no ground truth.
	// Ground truth takes precedence when present.
	InitialPose *particlefilter.Pose
	Source      rand.Source
}

// Summary describes a completed run.
type Summary struct {
	Steps    int
	Duration time.Duration
	HasTruth bool
	// RMSE and MeanError are per-component over all steps; zero without
	// ground truth.
	RMSE      particlefilter.Pose
	MeanError particlefilter.Pose
}

// Run initializes a filter on the first step and then predicts, scores,
// resamples and estimates once per observation batch. Any filter or sink
// error aborts the run and is returned with the step number attached.
func Run(ds *dataset.Dataset, opts Options, sinks ...Sink) (Summary, error) {
	if ds == nil {
		return Summary{}, ErrNilDataset
	}
	if err := ds.Check(); err != nil {
		return Summary{}, err
	}
	if opts.Source == nil {
		return Summary{}, particlefilter.ErrNilSource
	}

	seed, err := initialPose(ds, opts)
	if err != nil {
		return Summary{}, err
	}

	pf := particlefilter.New()
	if err := pf.Init(seed, opts.Filter, opts.Source); err != nil {
		return Summary{}, fmt.Errorf("init: %w", err)
	}

	steps := ds.Steps()
	errs := [3][]float64{make([]float64, 0, steps), make([]float64, 0, steps), make([]float64, 0, steps)}
	start := time.Now()

	for i, observations := range ds.Observations {
		if i > 0 {
			if err := pf.Predict(ds.Controls[i-1], opts.Source); err != nil {
				return Summary{}, fmt.Errorf("step %d: predict: %w", i+1, err)
			}
		}
		if err := pf.UpdateWeights(observations, ds.Landmarks); err != nil {
			return Summary{}, fmt.Errorf("step %d: update weights: %w", i+1, err)
		}
		ess := pf.EffectiveSampleSize()
		if err := pf.Resample(opts.Source); err != nil {
			return Summary{}, fmt.Errorf("step %d: resample: %w", i+1, err)
		}
		best, err := pf.Estimate()
		if err != nil {
			return Summary{}, fmt.Errorf("step %d: estimate: %w", i+1, err)
		}

		rec := Record{Step: i + 1, Pred: best.Pose(), Weight: best.Weight, ESS: ess}
		if ds.HasGroundTruth() {
			rec.Truth = ds.GroundTruth[i]
			rec.HasTruth = true
			if rec.Err, err = pf.BestError(rec.Truth); err != nil {
				return Summary{}, fmt.Errorf("step %d: best error: %w", i+1, err)
			}
			errs[0] = append(errs[0], rec.Err.X)
			errs[1] = append(errs[1], rec.Err.Y)
			errs[2] = append(errs[2], rec.Err.Phi)
		}

		for _, s := range sinks {
			if err := s.WriteRecord(rec); err != nil {
				return Summary{}, fmt.Errorf("step %d: write record: %w", i+1, err)
			}
		}
	}

	sum := Summary{Steps: steps, Duration: time.Since(start), HasTruth: ds.HasGroundTruth()}
	if sum.HasTruth {
		sum.MeanError = particlefilter.Pose{X: stat.Mean(errs[0], nil), Y: stat.Mean(errs[1], nil), Phi: stat.Mean(errs[2], nil)}
		sum.RMSE = particlefilter.Pose{X: rms(errs[0]), Y: rms(errs[1]), Phi: rms(errs[2])}
	}
	Logf("run finished: %d steps in %v", sum.Steps, sum.Duration)
	return sum, nil
}

func initialPose(ds *dataset.Dataset, opts Options) (particlefilter.Pose, error) {
	if ds.HasGroundTruth() {
		return ds.GroundTruth[0], nil
	}
	if opts.InitialPose != nil {
		return *opts.InitialPose, nil
	}
	return particlefilter.Pose{}, ErrNoInitialPose
}

func rms(xs []float64) float64 {
	sq := make([]float64, len(xs))
	for i, x := range xs {
		sq[i] = x * x
	}
	return math.Sqrt(stat.Mean(sq, nil))
}
