package particlefilter

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrNotInitialized is returned by step operations called before Init.
	ErrNotInitialized = errors.New("particle filter not initialized")
	// ErrDegenerateWeights is returned by Resample when no particle carries a
	// strictly positive weight, which means the filter has diverged.
	ErrDegenerateWeights = errors.New("no particle has a positive weight")
	// ErrNoEstimate is returned when a best estimate is requested before a
	// full update and resample cycle has completed.
	ErrNoEstimate = errors.New("no best estimate available")
	// ErrNilSource is returned when a randomized operation receives no source.
	ErrNilSource = errors.New("nil random source")
)

// ParticleFilter estimates a 2D vehicle pose from noisy controls and
// landmark observations. The zero value is an uninitialized filter.
//
// A ParticleFilter is not safe for concurrent use; per-particle work inside a
// single call is parallelized according to Config.Workers.
type ParticleFilter struct {
	initialized bool
	cfg         Config

	// particles is replaced wholesale by every operation that changes it and
	// never mutated after publication.
	particles []Particle

	// resampled is set by the first successful Resample; estimates are
	// only valid from then on.
	resampled bool
	best      Particle
	bestValid bool

	xNoise   distuv.Normal
	yNoise   distuv.Normal
	phiNoise distuv.Normal
}

// New returns an uninitialized particle filter.
func New() *ParticleFilter {
	return &ParticleFilter{}
}

// Init spreads cfg.Particles particles around seed using independent
// Gaussian noise on each axis. Calling Init on an initialized filter does
// nothing and returns nil. An invalid cfg leaves the filter uninitialized.
func (pf *ParticleFilter) Init(seed Pose, cfg Config, src rand.Source) error {
	if pf.initialized {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if src == nil {
		return ErrNilSource
	}

	xNoise := distuv.Normal{Mu: 0, Sigma: cfg.PositionStd[0]}
	yNoise := distuv.Normal{Mu: 0, Sigma: cfg.PositionStd[1]}
	phiNoise := distuv.Normal{Mu: 0, Sigma: cfg.PositionStd[2]}
	xNoise.Src, yNoise.Src, phiNoise.Src = src, src, src

	particles := make([]Particle, cfg.Particles)
	for i := range particles {
		particles[i] = Particle{
			ID:     i + 1,
			X:      seed.X + xNoise.Rand(),
			Y:      seed.Y + yNoise.Rand(),
			Phi:    seed.Phi + phiNoise.Rand(),
			Weight: 1.0,
		}
	}

	xNoise.Src, yNoise.Src, phiNoise.Src = nil, nil, nil
	pf.cfg = cfg
	pf.xNoise, pf.yNoise, pf.phiNoise = xNoise, yNoise, phiNoise
	pf.particles = particles
	pf.best, pf.bestValid = Particle{}, false
	pf.resampled = false
	pf.initialized = true

	diagf("initialized %d particles around (%.3f, %.3f, %.3f)", cfg.Particles, seed.X, seed.Y, seed.Phi)
	return nil
}

// Initialized reports whether Init has succeeded.
func (pf *ParticleFilter) Initialized() bool {
	return pf.initialized
}

// Config returns the configuration stored by Init.
func (pf *ParticleFilter) Config() Config {
	return pf.cfg
}

// Len returns the ensemble size.
func (pf *ParticleFilter) Len() int {
	return len(pf.particles)
}

// Particles returns a copy of the current ensemble.
func (pf *ParticleFilter) Particles() []Particle {
	out := make([]Particle, len(pf.particles))
	copy(out, pf.particles)
	return out
}

// Step runs one full filter cycle: predict (skipped when c is nil),
// weight update, resample and estimate. It returns the new best estimate.
func (pf *ParticleFilter) Step(observations, landmarks []Landmark, c *Controls, src rand.Source) (Particle, error) {
	if c != nil {
		if err := pf.Predict(*c, src); err != nil {
			return Particle{}, fmt.Errorf("predict: %w", err)
		}
	}
	if err := pf.UpdateWeights(observations, landmarks); err != nil {
		return Particle{}, fmt.Errorf("update weights: %w", err)
	}
	if err := pf.Resample(src); err != nil {
		return Particle{}, fmt.Errorf("resample: %w", err)
	}
	best, err := pf.Estimate()
	if err != nil {
		return Particle{}, fmt.Errorf("estimate: %w", err)
	}
	return best, nil
}
