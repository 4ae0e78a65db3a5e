package particlefilter

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// VisibleLandmarks returns the landmarks within sensorRange of (x, y),
// preserving map order.
func VisibleLandmarks(x, y, sensorRange float64, landmarks []Landmark) []Landmark {
	var visible []Landmark
	for _, lm := range landmarks {
		if math.Hypot(lm.X-x, lm.Y-y) <= sensorRange {
			visible = append(visible, lm)
		}
	}
	return visible
}

// ToMapFrame transforms a vehicle-frame observation into map coordinates
// as seen from pose p.
func ToMapFrame(p Pose, obs Landmark) Landmark {
	sin, cos := math.Sincos(p.Phi)
	return Landmark{
		X:  obs.X*cos - obs.Y*sin + p.X,
		Y:  obs.X*sin + obs.Y*cos + p.Y,
		ID: obs.ID,
	}
}

// Nearest returns the index of the candidate closest to obs whose distance
// is strictly below maxDist, or -1 if there is none. On exact ties the
// earliest candidate wins.
func Nearest(obs Landmark, candidates []Landmark, maxDist float64) int {
	best := -1
	minDist := maxDist
	for i, lm := range candidates {
		if d := math.Hypot(lm.X-obs.X, lm.Y-obs.Y); d < minDist {
			minDist = d
			best = i
		}
	}
	return best
}

// Associate assigns to every map-frame observation the ID of its nearest
// candidate landmark. The returned slice holds, per observation, the index
// of the matched candidate or -1 when nothing lies closer than maxDist.
func Associate(observations, candidates []Landmark, maxDist float64) []int {
	matches := make([]int, len(observations))
	for i := range observations {
		matches[i] = Nearest(observations[i], candidates, maxDist)
		if matches[i] >= 0 {
			observations[i].ID = candidates[matches[i]].ID
		}
	}
	return matches
}

// Likelihood is the bivariate independent Gaussian density of the offset
// (dx, dy) with standard deviations sx and sy.
func Likelihood(dx, dy, sx, sy float64) float64 {
	return distuv.Normal{Mu: 0, Sigma: sx}.Prob(dx) * distuv.Normal{Mu: 0, Sigma: sy}.Prob(dy)
}

// UpdateWeights scores every particle against observations, given in the
// vehicle frame, and the static landmark map. Weights are left
// unnormalized.
func (pf *ParticleFilter) UpdateWeights(observations, landmarks []Landmark) error {
	if !pf.initialized {
		return ErrNotInitialized
	}

	cur := pf.particles
	next := make([]Particle, len(cur))
	err := eachSpan(spans(len(cur), pf.cfg.Workers), func(_ int, s span) error {
		mapped := make([]Landmark, len(observations))
		for i := s.lo; i < s.hi; i++ {
			next[i] = cur[i]
			next[i].Weight = pf.weigh(cur[i], observations, landmarks, mapped)
		}
		return nil
	})
	if err != nil {
		return err
	}

	pf.particles = next
	return nil
}

// weigh computes the importance weight of p. Each low likelihood term is
// floored at epsilon; an observation without any associated landmark
// resets the running product to epsilon.
func (pf *ParticleFilter) weigh(p Particle, observations, landmarks, mapped []Landmark) float64 {
	eps := pf.cfg.Epsilon
	pose := p.Pose()

	visible := VisibleLandmarks(p.X, p.Y, pf.cfg.SensorRange, landmarks)
	for i, obs := range observations {
		mapped[i] = ToMapFrame(pose, obs)
	}
	matches := Associate(mapped, visible, 2*pf.cfg.SensorRange)

	weight := 1.0
	for i, m := range matches {
		if m < 0 {
			diagf("particle %d: no landmark for observation (%.3f, %.3f)", p.ID, mapped[i].X, mapped[i].Y)
			weight = eps
			continue
		}
		lm := visible[m]
		l := Likelihood(mapped[i].X-lm.X, mapped[i].Y-lm.Y, pf.cfg.LandmarkStd[0], pf.cfg.LandmarkStd[1])
		if l < eps {
			weight *= eps
		} else {
			weight *= l
		}
	}
	return weight
}
