package particlefilter

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Estimate selects the particle with the greatest weight, keeping the first
// one on ties, stores it as the best estimate and returns it. It returns
// ErrNoEstimate until the ensemble has been resampled at least once.
func (pf *ParticleFilter) Estimate() (Particle, error) {
	if !pf.initialized {
		return Particle{}, ErrNotInitialized
	}
	if !pf.resampled {
		return Particle{}, ErrNoEstimate
	}

	best := pf.particles[0]
	for _, p := range pf.particles[1:] {
		if p.Weight > best.Weight {
			best = p
		}
	}

	pf.best, pf.bestValid = best, true
	tracef("best particle %d at (%.3f, %.3f, %.3f) weight %g", best.ID, best.X, best.Y, best.Phi, best.Weight)
	return best, nil
}

// Best returns the last estimate and whether one has been computed after a
// completed cycle.
func (pf *ParticleFilter) Best() (Particle, bool) {
	return pf.best, pf.bestValid
}

// BestError returns the absolute per-component difference between the best
// estimate and truth. It does not influence the filter.
func (pf *ParticleFilter) BestError(truth Pose) (Pose, error) {
	if !pf.bestValid {
		return Pose{}, ErrNoEstimate
	}
	return Pose{
		X:   math.Abs(pf.best.X - truth.X),
		Y:   math.Abs(pf.best.Y - truth.Y),
		Phi: math.Abs(pf.best.Phi - truth.Phi),
	}, nil
}

// MeanPose returns the weight-averaged pose of the ensemble. If every
// weight is zero the plain average is used.
func (pf *ParticleFilter) MeanPose() Pose {
	n := len(pf.particles)
	if n == 0 {
		return Pose{}
	}
	xs, ys, phis, ws := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i, p := range pf.particles {
		xs[i], ys[i], phis[i], ws[i] = p.X, p.Y, p.Phi, p.Weight
	}
	if floats.Sum(ws) <= 0 {
		ws = nil
	}
	return Pose{
		X:   stat.Mean(xs, ws),
		Y:   stat.Mean(ys, ws),
		Phi: stat.Mean(phis, ws),
	}
}

// EffectiveSampleSize returns (Σw)² / Σw² for the current weights, a
// measure of how many particles carry meaningful weight.
func (pf *ParticleFilter) EffectiveSampleSize() float64 {
	ws := make([]float64, len(pf.particles))
	for i, p := range pf.particles {
		ws[i] = p.Weight
	}
	sq := floats.Dot(ws, ws)
	if sq == 0 {
		return 0
	}
	sum := floats.Sum(ws)
	return sum * sum / sq
}
