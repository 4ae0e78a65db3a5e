package particlefilter

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Resample draws a new ensemble of the same size with replacement, each
// particle chosen with probability proportional to its weight. The i-th
// draw is relabeled with ID i+1 and keeps the sampled pose and weight.
// The ensemble is only replaced once every draw has been made.
//
// Resample returns an error wrapping ErrDegenerateWeights if no weight is
// strictly positive or any weight is negative, NaN or infinite.
func (pf *ParticleFilter) Resample(src rand.Source) error {
	if !pf.initialized {
		return ErrNotInitialized
	}
	if src == nil {
		return ErrNilSource
	}

	cur := pf.particles
	weights := make([]float64, len(cur))
	anyPositive := false
	for i, p := range cur {
		w := p.Weight
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			opsf("resample: particle %d has invalid weight %g", p.ID, w)
			return fmt.Errorf("%w: particle %d has weight %g", ErrDegenerateWeights, p.ID, w)
		}
		if w > 0 {
			anyPositive = true
		}
		weights[i] = w
	}
	if !anyPositive {
		opsf("resample: all %d weights are zero, filter diverged", len(cur))
		return ErrDegenerateWeights
	}

	dist := distuv.NewCategorical(weights, src)
	next := make([]Particle, len(cur))
	for i := range next {
		next[i] = cur[int(dist.Rand())]
		next[i].ID = i + 1
	}

	pf.particles = next
	pf.resampled = true
	return nil
}
